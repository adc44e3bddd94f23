package cloud

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"

	errUtils "github.com/cloudposse/runtime-init/errors"
	log "github.com/cloudposse/runtime-init/pkg/logger"
	"github.com/cloudposse/runtime-init/pkg/schema"
)

// Constructor creates an uninitialized CloudClient variant.
type Constructor func(settings *schema.Settings) CloudClient

// Factory selects, constructs and initializes the CloudClient for an environment.
//
// Without client caching a Factory holds no state between calls. With caching,
// one initialized client per environment is kept; concurrent first requests for
// the same environment share a single construction and failed inits are not kept.
//
// Clients that hold connections are tracked until Close releases them.
type Factory struct {
	settings     *schema.Settings
	constructors map[string]Constructor
	cache        bool

	mu      sync.RWMutex
	clients map[string]CloudClient
	closers []io.Closer
	group   singleflight.Group
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithConstructor registers ctor for environment, replacing the built-in variant.
func WithConstructor(environment string, ctor Constructor) FactoryOption {
	return func(f *Factory) {
		f.constructors[environment] = ctor
	}
}

// WithClientCache overrides settings.cache_clients.
func WithClientCache(enabled bool) FactoryOption {
	return func(f *Factory) {
		f.cache = enabled
	}
}

// NewFactory creates a Factory for aws, azure and gcp. settings may be nil.
func NewFactory(settings *schema.Settings, opts ...FactoryOption) *Factory {
	s := settingsOrDefault(settings)

	f := &Factory{
		settings: &s,
		constructors: map[string]Constructor{
			schema.EnvironmentAWS:   NewAWSCloudClient,
			schema.EnvironmentAzure: NewAzureCloudClient,
			schema.EnvironmentGCP:   NewGCPCloudClient,
		},
		cache:   s.CacheClients,
		clients: make(map[string]CloudClient),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// GetCloudProvider returns an initialized client for environment using a factory
// with default settings.
func GetCloudProvider(ctx context.Context, environment string) (CloudClient, error) {
	return NewFactory(nil).GetCloudProvider(ctx, environment)
}

// GetCloudProvider constructs the variant matching environment and runs its Init.
// Init errors are returned unchanged.
func (f *Factory) GetCloudProvider(ctx context.Context, environment string) (CloudClient, error) {
	ctor, ok := f.constructors[environment]
	if !ok {
		return nil, errUtils.Build(fmt.Errorf("%w: %s", errUtils.ErrUnsupportedCloud, environment)).
			WithHintf("Supported clouds are %s", strings.Join(f.SupportedEnvironments(), ", ")).
			Err()
	}

	if !f.cache {
		return f.create(ctx, environment, ctor)
	}

	f.mu.RLock()
	client, ok := f.clients[environment]
	f.mu.RUnlock()
	if ok {
		return client, nil
	}

	v, err, _ := f.group.Do(environment, func() (any, error) {
		f.mu.RLock()
		cached, ok := f.clients[environment]
		f.mu.RUnlock()
		if ok {
			return cached, nil
		}

		client, err := f.create(ctx, environment, ctor)
		if err != nil {
			return nil, err
		}

		f.mu.Lock()
		f.clients[environment] = client
		f.mu.Unlock()
		return client, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(CloudClient), nil
}

func (f *Factory) create(ctx context.Context, environment string, ctor Constructor) (CloudClient, error) {
	client := ctor(f.settings)

	log.Debug("Initializing cloud client", "environment", environment)
	if err := client.Init(ctx); err != nil {
		closeQuietly(client)
		return nil, err
	}

	if closer, ok := client.(io.Closer); ok {
		f.mu.Lock()
		f.closers = append(f.closers, closer)
		f.mu.Unlock()
	}

	return client, nil
}

// Close releases every client handed out so far and empties the cache. The
// Factory stays usable afterwards.
func (f *Factory) Close() error {
	f.mu.Lock()
	closers := f.closers
	f.closers = nil
	f.clients = make(map[string]CloudClient)
	f.mu.Unlock()

	var errs []error
	for _, closer := range closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		log.Debug("Failed to close cloud clients", "count", len(errs))
	}

	return errors.Join(errs...)
}

func closeQuietly(client CloudClient) {
	if closer, ok := client.(io.Closer); ok {
		_ = closer.Close()
	}
}

// SupportedEnvironments lists the environment names the factory can build, sorted.
func (f *Factory) SupportedEnvironments() []string {
	names := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func settingsOrDefault(settings *schema.Settings) schema.Settings {
	if settings == nil {
		return schema.Settings{}
	}
	return *settings
}
