package pathy

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// ClientProvider constructs BucketClients for a set of path schemes.
type ClientProvider interface {
	// Schemes returns the path schemes served by the provider's clients
	Schemes() []string

	// New returns a new client for the given scheme, authenticated with the
	// given credentials.
	New(ctx context.Context, scheme string, creds Credentials) (BucketClient, error)
}

// ClientProviderFunc adapts a constructor function into a ClientProvider for
// the given schemes.
func ClientProviderFunc(f func(ctx context.Context, scheme string, creds Credentials) (BucketClient, error), schemes ...string) ClientProvider {
	return cp{f, schemes}
}

type cp struct {
	newFunc func(ctx context.Context, scheme string, creds Credentials) (BucketClient, error)
	schemes []string
}

func (p cp) Schemes() []string {
	return p.schemes
}

func (p cp) New(ctx context.Context, scheme string, creds Credentials) (BucketClient, error) {
	return p.newFunc(ctx, scheme, creds)
}

// Registry maps path schemes to client providers, and holds the live client
// for each scheme.
//
// Providers should be registered once at startup. Clients are constructed
// lazily on first use, and replaced wholesale by Recreate. Recreate and
// SetClient take an exclusive lock, so they never race with a lookup, but
// callers that still hold the previous client must stop using it.
type Registry struct {
	log       logrus.FieldLogger
	providers map[string]ClientProvider
	clients   map[string]BucketClient
	creds     map[string]Credentials
	mu        sync.RWMutex
}

// NewRegistry returns an empty Registry ready for use.
func NewRegistry() *Registry {
	return &Registry{
		log:       discardLogger(),
		providers: map[string]ClientProvider{},
		clients:   map[string]BucketClient{},
		creds:     map[string]Credentials{},
	}
}

//nolint:gochecknoglobals
var defaultRegistry = sync.OnceValue(NewRegistry)

// DefaultRegistry returns the process-wide Registry used by New. It starts
// empty: register providers explicitly (see the autobucket package).
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return l
}

// WithLogger sets the logger used for client lifecycle events.
func (r *Registry) WithLogger(log logrus.FieldLogger) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log != nil {
		r.log = log
	}

	return r
}

// Logger returns the registry's logger.
func (r *Registry) Logger() logrus.FieldLogger {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.log
}

// Register adds the provider for each of its schemes. Schemes that are already
// registered are overridden.
func (r *Registry) Register(p ClientProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, scheme := range p.Schemes() {
		r.providers[scheme] = p
	}
}

// Schemes returns all registered schemes, sorted.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemes := make([]string, 0, len(r.providers))
	for scheme := range r.providers {
		schemes = append(schemes, scheme)
	}

	sort.Strings(schemes)

	return schemes
}

// SetCredentials records the credentials used the next time a client for the
// scheme is constructed. An existing client is left in place: use Recreate to
// replace it immediately.
func (r *Registry) SetCredentials(scheme string, creds Credentials) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.creds[scheme] = creds
}

// Client returns the live client for the scheme, constructing it if needed.
func (r *Registry) Client(ctx context.Context, scheme string) (BucketClient, error) {
	r.mu.RLock()
	c, ok := r.clients[scheme]
	r.mu.RUnlock()

	if ok {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// another caller may have won the race
	if c, ok := r.clients[scheme]; ok {
		return c, nil
	}

	c, err := r.newClient(ctx, scheme, r.creds[scheme])
	if err != nil {
		return nil, err
	}

	r.clients[scheme] = c

	return c, nil
}

// Recreate constructs a new client for the scheme with the given credentials
// and replaces the live one, closing it.
func (r *Registry) Recreate(ctx context.Context, scheme string, creds Credentials) (BucketClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.newClient(ctx, scheme, creds)
	if err != nil {
		return nil, err
	}

	r.creds[scheme] = creds
	r.replace(scheme, c)

	return c, nil
}

// SetClient installs an already-constructed client for the scheme, replacing
// (and closing) any live one. The scheme does not need a registered provider.
func (r *Registry) SetClient(scheme string, c BucketClient) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.replace(scheme, c)
}

// Close closes every live client.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error

	for scheme, c := range r.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s client: %w", scheme, err)
		}

		delete(r.clients, scheme)
	}

	return firstErr
}

func (r *Registry) newClient(ctx context.Context, scheme string, creds Credentials) (BucketClient, error) {
	p, ok := r.providers[scheme]
	if !ok {
		return nil, fmt.Errorf("no bucket client registered for scheme %q", scheme)
	}

	c, err := p.New(ctx, scheme, creds)
	if err != nil {
		return nil, fmt.Errorf("new %s client: %w", scheme, err)
	}

	r.log.WithField("scheme", scheme).Debug("constructed bucket client")

	return c, nil
}

// must hold the write lock
func (r *Registry) replace(scheme string, c BucketClient) {
	if old, ok := r.clients[scheme]; ok && old != c {
		if err := old.Close(); err != nil {
			r.log.WithError(err).WithField("scheme", scheme).Warn("closing replaced bucket client")
		}
	}

	r.clients[scheme] = c

	r.log.WithField("scheme", scheme).Debug("replaced bucket client")
}
