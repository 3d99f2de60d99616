package degrade

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

const (
	// maxDrainBytes bounds how much of a probe response body is read before the connection is reused.
	maxDrainBytes = 4 << 10

	headerRequestID = "X-Request-ID"
)

// Prober performs a single availability probe. A nil error means the dependency answered successfully.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error {
	return f(ctx)
}

// endpointer is implemented by probers that know which endpoint they target.
type endpointer interface {
	Endpoint() string
}

// HTTPProber probes an HTTP endpoint with a request that never changes state on the remote side.
//
// By default the request is an OPTIONS request with caching disabled. Any 2xx response is a success;
// everything else, including transport errors and the context deadline firing, is a ProbeFailure.
type HTTPProber struct {
	endpoint string
	method   string
	origin   string
	client   *http.Client
}

// NewHTTPProber creates an HTTPProber for the given absolute http(s) endpoint.
func NewHTTPProber(endpoint string, opts ...ProberOption) (*HTTPProber, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}

	p := &HTTPProber{
		endpoint: endpoint,
		method:   http.MethodOptions,
		client:   new(http.Client),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("failed to apply prober option: %w", err)
		}
	}

	return p, nil
}

// Endpoint returns the probed URL.
func (p *HTTPProber) Endpoint() string {
	return p.endpoint
}

// Probe sends one request to the endpoint. The caller bounds it with the context deadline.
func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, p.method, p.endpoint, http.NoBody)
	if err != nil {
		return NewProbeFailure(p.endpoint, 0, fmt.Errorf("build request: %w", err))
	}

	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set(headerRequestID, uuid.NewString())
	if p.origin != "" {
		req.Header.Set("Origin", p.origin)
	}

	resp, err := p.client.Do(req) // nolint:bodyclose // Closed below
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return NewProbeFailure(p.endpoint, 0, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return NewProbeFailure(p.endpoint, resp.StatusCode, nil)
	}

	return nil
}

// ProberOption configures an HTTPProber.
type ProberOption func(*HTTPProber) error

// WithProberClient sets the HTTP client used for probes.
func WithProberClient(client *http.Client) ProberOption {
	return func(p *HTTPProber) error {
		if client == nil {
			return errors.New("http client is nil")
		}
		p.client = client
		return nil
	}
}

// WithProberOrigin sets the Origin header so the probe exercises the endpoint's cross-origin handling.
func WithProberOrigin(origin string) ProberOption {
	return func(p *HTTPProber) error {
		p.origin = origin
		return nil
	}
}

// WithProberMethod sets the probe method. Only OPTIONS and HEAD are accepted.
func WithProberMethod(method string) ProberOption {
	return func(p *HTTPProber) error {
		switch method {
		case http.MethodOptions, http.MethodHead:
			p.method = method
			return nil
		default:
			return fmt.Errorf("method %s may change remote state", method)
		}
	}
}
