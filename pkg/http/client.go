//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -source=client.go -destination=mock_client_test.go -package=http

package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	errUtils "github.com/cloudposse/runtime-init/errors"
)

// DefaultTimeout bounds metadata endpoint calls when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Client defines the interface for making HTTP requests.
// This interface allows for easy mocking in tests.
type Client interface {
	// Do performs an HTTP request and returns the response.
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption is a functional option for configuring the DefaultClient.
type ClientOption func(*DefaultClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *DefaultClient) {
		c.client.Timeout = timeout
	}
}

// WithTransport sets a custom HTTP transport.
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *DefaultClient) {
		c.client.Transport = transport
	}
}

// DefaultClient is the default HTTP client implementation.
type DefaultClient struct {
	client *http.Client
}

// NewDefaultClient creates a new DefaultClient with optional configuration.
// Instance metadata endpoints are link-local, so proxies from the environment are ignored.
func NewDefaultClient(opts ...ClientOption) *DefaultClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil

	client := &DefaultClient{
		client: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range append([]ClientOption{WithTransport(transport)}, opts...) {
		opt(client)
	}

	return client
}

// Do implements Client.Do.
func (c *DefaultClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// Get performs an HTTP GET request with context using the provided client.
func Get(ctx context.Context, url string, client Client) ([]byte, error) {
	return GetWithHeaders(ctx, url, client, nil)
}

// GetWithHeaders performs an HTTP GET with the given headers and returns the body.
// A 404 is reported as ErrHTTPNotFound; any other non-2xx status as ErrHTTPRequestFailed.
// Transport errors are returned unchanged.
func GetWithHeaders(ctx context.Context, url string, client Client, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf(errUtils.ErrWrapFormat, errUtils.ErrHTTPRequestFailed, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(errUtils.ErrHTTPNotFound, "GET %s", url)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: unexpected status code: %d", errUtils.ErrHTTPRequestFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return body, nil
}
