package pathy

import (
	"io/fs"
	"os"

	"github.com/hairyhenderson/go-pathy/internal/env"
)

// Credentials carries the already-acquired connection parameters a
// ClientProvider needs to construct an authenticated native client. Each
// backend reads only the fields relevant to it; see the backend package docs.
type Credentials struct {
	// ConnectionString is a complete connection string (Azure).
	ConnectionString string

	// AccountURL is the service endpoint for an account (Azure).
	AccountURL string

	// Credential is an account key or SAS token (Azure).
	Credential string

	// Region selects the service region (S3).
	Region string

	// Endpoint overrides the service endpoint (S3, GCS).
	Endpoint string

	// Project is the project used for listing and creating buckets (GCS).
	Project string

	// Root is the local directory holding buckets (file-backed buckets).
	Root string

	// Anonymous disables request signing (S3, GCS).
	Anonymous bool

	// PathStyle forces path-style bucket addressing (S3).
	PathStyle bool
}

// Environment variables read by the credential loaders. Each can instead be
// set with a `_FILE` suffix naming a file that holds the value.
const (
	EnvAzureConnStr    = "PATHY_AZURE_CONN_STR"
	EnvAzureAccountURL = "PATHY_AZURE_ACCOUNT_URL"
	EnvAzureCredential = "PATHY_AZURE_CREDENTIAL"
)

func envFS(fsys []fs.FS) fs.FS {
	if len(fsys) > 0 && fsys[0] != nil {
		return fsys[0]
	}

	return os.DirFS("/")
}

// AzureCredentialsFromEnv reads Azure credentials from the environment: a
// full connection string from PATHY_AZURE_CONN_STR if set, otherwise an
// account URL and credential (access key or SAS token) from
// PATHY_AZURE_ACCOUNT_URL and PATHY_AZURE_CREDENTIAL.
//
// The optional filesystem resolves `_FILE` variables, and defaults to the
// root of the local filesystem.
func AzureCredentialsFromEnv(fsys ...fs.FS) Credentials {
	efs := envFS(fsys)

	if connStr, ok := env.LookupFS(efs, EnvAzureConnStr); ok {
		return Credentials{ConnectionString: connStr}
	}

	return Credentials{
		AccountURL: env.GetenvFS(efs, EnvAzureAccountURL),
		Credential: env.GetenvFS(efs, EnvAzureCredential),
	}
}

// S3CredentialsFromEnv reads S3 connection parameters from the environment:
// AWS_S3_ENDPOINT, AWS_REGION (or AWS_DEFAULT_REGION), AWS_ANON and
// AWS_S3_PATH_STYLE. Access keys are left to the AWS SDK's own credential
// chain.
func S3CredentialsFromEnv(fsys ...fs.FS) Credentials {
	efs := envFS(fsys)

	return Credentials{
		Endpoint:  env.GetenvFS(efs, "AWS_S3_ENDPOINT"),
		Region:    env.GetenvFS(efs, "AWS_REGION", env.GetenvFS(efs, "AWS_DEFAULT_REGION")),
		Anonymous: env.BoolFS(efs, "AWS_ANON"),
		PathStyle: env.BoolFS(efs, "AWS_S3_PATH_STYLE"),
	}
}

// GCSCredentialsFromEnv reads GCS connection parameters from the environment:
// GOOGLE_CLOUD_PROJECT, GOOGLE_ANON, and STORAGE_EMULATOR_HOST. Service
// account credentials are left to Application Default Credentials.
func GCSCredentialsFromEnv(fsys ...fs.FS) Credentials {
	efs := envFS(fsys)

	return Credentials{
		Project:   env.GetenvFS(efs, "GOOGLE_CLOUD_PROJECT"),
		Anonymous: env.BoolFS(efs, "GOOGLE_ANON"),
		Endpoint:  env.GetenvFS(efs, "STORAGE_EMULATOR_HOST"),
	}
}

// FileCredentialsFromEnv reads the root directory for file-backed buckets
// from PATHY_FS_ROOT.
func FileCredentialsFromEnv(fsys ...fs.FS) Credentials {
	return Credentials{Root: env.GetenvFS(envFS(fsys), "PATHY_FS_ROOT")}
}
