package license

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pion/logging"

	"cdmbridge/internal/domain"
	"cdmbridge/internal/metrics"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// ErrNoServer is returned when neither the call nor the client names a
// license server.
var ErrNoServer = errors.New("license: no license server URL")

// ErrResponseTooLarge is returned for bodies over maxResponseBytes.
var ErrResponseTooLarge = errors.New("license: response too large")

// HTTPClient posts license messages over HTTP.
type HTTPClient struct {
	Base    string
	HTTP    *http.Client
	log     logging.LeveledLogger
	metrics *metrics.Metrics
}

// Option customises an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option { return func(h *HTTPClient) { h.HTTP = c } }

// WithLoggerFactory enables logging under the "license" scope.
func WithLoggerFactory(f logging.LoggerFactory) Option {
	return func(h *HTTPClient) {
		if f != nil {
			h.log = f.NewLogger("license")
		}
	}
}

// WithMetrics records exchange outcomes and latency.
func WithMetrics(m *metrics.Metrics) Option { return func(h *HTTPClient) { h.metrics = m } }

// NewHTTP returns a client whose default server is base.
func NewHTTP(base string, opts ...Option) *HTTPClient {
	c := &HTTPClient{Base: base, HTTP: http.DefaultClient}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ domain.LicenseClient = (*HTTPClient)(nil)

// Exchange posts challenge to serverURL, or to c.Base when serverURL is
// empty, and returns the response body.
func (c *HTTPClient) Exchange(ctx context.Context, serverURL string, challenge []byte) ([]byte, error) {
	u := serverURL
	if u == "" {
		u = c.Base
	}
	if u == "" {
		return nil, ErrNoServer
	}

	start := time.Now()
	body, err := c.post(ctx, u, challenge)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if c.log != nil {
			c.log.Warnf("exchange with %s: %v", u, err)
		}
	} else if c.log != nil {
		c.log.Debugf("exchange with %s: %d bytes in %s", u, len(body), time.Since(start))
	}
	c.metrics.License(outcome, time.Since(start).Seconds())
	return body, err
}

func (c *HTTPClient) post(ctx context.Context, u string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("license post %s: %s", u, resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxResponseBytes {
		return nil, ErrResponseTooLarge
	}
	return b, nil
}
