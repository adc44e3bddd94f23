// Package resolver turns a list of runtime parameter declarations into a
// name to value map, fetching secrets and instance metadata concurrently.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	errUtils "github.com/cloudposse/runtime-init/errors"
	"github.com/cloudposse/runtime-init/pkg/cloud"
	log "github.com/cloudposse/runtime-init/pkg/logger"
	"github.com/cloudposse/runtime-init/pkg/schema"
)

// ProviderFactory hands out initialized cloud clients by environment name.
type ProviderFactory interface {
	GetCloudProvider(ctx context.Context, environment string) (cloud.CloudClient, error)
}

var _ ProviderFactory = (*cloud.Factory)(nil)

// Client resolves runtime parameters.
type Client struct {
	factory        ProviderFactory
	timeout        time.Duration
	maxConcurrency int
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds a whole ResolveRuntimeParameters call. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithMaxConcurrency limits the number of lookups in flight. Zero or negative means unlimited.
func WithMaxConcurrency(n int) Option {
	return func(c *Client) {
		c.maxConcurrency = n
	}
}

// WithSettings applies settings.timeout and settings.max_concurrency.
func WithSettings(settings *schema.Settings) Option {
	return func(c *Client) {
		if settings == nil {
			return
		}
		c.timeout = settings.Timeout
		c.maxConcurrency = settings.MaxConcurrency
	}
}

// New creates a Client that obtains cloud clients from factory.
func New(factory ProviderFactory, opts ...Option) *Client {
	c := &Client{factory: factory}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveRuntimeParameters resolves params and returns the values by name.
//
// Static parameters are always present in the result, even when empty. Secret and
// metadata parameters are present only when they resolve to a non-empty string.
// Declarations are validated before any lookup starts. The first lookup error
// cancels the others and is returned with its message unchanged; no partial map is
// returned.
func (c *Client) ResolveRuntimeParameters(ctx context.Context, params []schema.RuntimeParameter) (map[string]string, error) {
	if err := Validate(params); err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		mu     sync.Mutex
		result = make(map[string]string, len(params))
	)

	g, gctx := errgroup.WithContext(ctx)
	if c.maxConcurrency > 0 {
		g.SetLimit(c.maxConcurrency)
	}

	for i := range params {
		param := params[i]

		if param.Type == schema.ParameterTypeStatic {
			log.Trace("Resolved static runtime parameter", "name", param.Name)
			mu.Lock()
			result[param.Name] = param.Value
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			value, err := c.resolve(gctx, &param)
			if err != nil {
				builder := errUtils.Build(err).
					WithContext("parameter", param.Name).
					WithContext("type", string(param.Type))
				if gctx.Err() != nil && !isCategorized(err) {
					builder = builder.WithSentinel(lookupCategory(param.Type))
				}
				return builder.Err()
			}

			if value == "" {
				log.Debug("Runtime parameter resolved to empty value, skipping", "name", param.Name, "type", param.Type)
				return nil
			}

			log.Debug("Resolved runtime parameter", "name", param.Name, "type", param.Type)
			mu.Lock()
			result[param.Name] = value
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) resolve(ctx context.Context, param *schema.RuntimeParameter) (string, error) {
	switch param.Type {
	case schema.ParameterTypeSecret:
		return c.resolveSecret(ctx, param.Name, param.SecretProvider)
	case schema.ParameterTypeMetadata:
		return c.resolveMetadata(ctx, param.MetadataProvider)
	default:
		return "", unknownType(param.Type)
	}
}

func (c *Client) resolveSecret(ctx context.Context, name string, provider *schema.SecretProvider) (string, error) {
	client, err := c.factory.GetCloudProvider(ctx, provider.Environment)
	if err != nil {
		return "", err
	}

	if provider.Debug {
		log.Info("Fetching secret", "parameter", name, "environment", provider.Environment,
			"backend", provider.Type, "secret_id", provider.SecretID, "version", provider.Version)
	}

	return client.GetSecret(ctx, provider.SecretID, &cloud.SecretOptions{
		Version:  provider.Version,
		Backend:  provider.Type,
		VaultURL: provider.VaultURL,
	})
}

func (c *Client) resolveMetadata(ctx context.Context, provider *schema.MetadataProvider) (string, error) {
	client, err := c.factory.GetCloudProvider(ctx, provider.Environment)
	if err != nil {
		return "", err
	}

	return client.GetMetadata(ctx, provider)
}

// Validate rejects the whole declaration list when any entry is malformed. It
// performs no I/O.
func Validate(params []schema.RuntimeParameter) error {
	for i := range params {
		param := &params[i]

		if !param.Type.IsValid() {
			return unknownType(param.Type)
		}

		if param.Name == "" {
			return errUtils.Build(errUtils.Validation(errUtils.ErrParameterNameMissing)).
				WithContext("index", i).
				Err()
		}

		switch {
		case param.Type == schema.ParameterTypeSecret && param.SecretProvider == nil:
			return errUtils.Build(errUtils.Validation(errUtils.ErrSecretProviderMissing)).
				WithContext("parameter", param.Name).
				Err()
		case param.Type == schema.ParameterTypeMetadata && param.MetadataProvider == nil:
			return errUtils.Build(errUtils.Validation(errUtils.ErrMetadataProvider)).
				WithContext("parameter", param.Name).
				Err()
		}
	}

	names := lo.Map(params, func(p schema.RuntimeParameter, _ int) string { return p.Name })
	if duplicates := lo.FindDuplicates(names); len(duplicates) > 0 {
		return errUtils.Build(errUtils.Validation(fmt.Errorf("%w: %v", errUtils.ErrDuplicateParameter, duplicates))).
			WithHint("Runtime parameter names must be unique").
			Err()
	}

	return nil
}

// isCategorized reports whether err already says which side of the lookup failed.
func isCategorized(err error) bool {
	return errors.Is(err, errUtils.ErrBackend) ||
		errors.Is(err, errUtils.ErrMetadataUnavailable) ||
		errors.Is(err, errUtils.ErrValidation) ||
		errors.Is(err, errUtils.ErrUnsupportedCloud)
}

// lookupCategory is the error category of a lookup cut short by cancellation or
// the call deadline.
func lookupCategory(t schema.ParameterType) error {
	if t == schema.ParameterTypeMetadata {
		return errUtils.ErrMetadataUnavailable
	}
	return errUtils.ErrBackend
}

func unknownType(t schema.ParameterType) error {
	return errUtils.Build(fmt.Errorf("%w: %s", errUtils.ErrUnknownParameterType, t)).
		WithHint("Runtime parameter type must be one of secret, metadata, static").
		Err()
}
