// Package azurebucket provides a pathy bucket client for Azure Blob Storage.
//
// Paths use the "azure" scheme: azure://container/key. Azure containers are
// treated as buckets.
//
// Clients are constructed from pathy.Credentials, in this order of preference:
//
//   - ConnectionString: a full storage account connection string
//   - AccountURL with Anonymous set: unauthenticated access to public containers
//   - AccountURL and Credential: the credential is a SAS token when it looks
//     like one (it contains a "sig=" parameter), and an account key otherwise
//   - AccountURL alone: azidentity's DefaultAzureCredential (environment,
//     workload identity, managed identity, or the Azure CLI)
//
// See pathy.AzureCredentialsFromEnv for the environment variables read by
// default.
package azurebucket
