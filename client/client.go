// Package client is the outbound HTTP client the reference resolver
// (refresolve, spec.md §4.7) uses to dereference a Reference{id, sref,
// uref} against another service's provider base URL. Trimmed from the
// teacher's general-purpose CRUD+SSE REST client down to the single
// operation this framework ever performs outbound: an authenticated GET.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tierforge/tierserve/logger/zap"
	"github.com/tierforge/tierserve/types"
	"github.com/tierforge/tierserve/types/consts"
	"golang.org/x/time/rate"
)

// Client performs a single outbound GET against a provider's base
// address, retrying transient failures and honoring an optional rate
// limiter, the way the teacher's client does for its full CRUD surface.
type Client struct {
	addr       string
	httpClient *http.Client
	username   string
	password   string
	token      string

	header      http.Header
	debug       bool
	maxRetries  int
	retryWait   time.Duration
	rateLimiter *rate.Limiter

	ctx context.Context

	types.Logger
}

// New creates a new client instance with given base URL and options.
// The base URL must start with "http://" or "https://".
func New(addr string, opts ...Option) (*Client, error) {
	client := &Client{
		httpClient: http.DefaultClient,
		header:     http.Header{},
		addr:       strings.TrimRight(addr, "/"),
		ctx:        context.Background(),
		Logger:     zap.New(""),
	}
	client.header.Set("User-Agent", consts.FrameworkName)

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(client)
	}

	if !strings.HasPrefix(client.addr, "http://") && !strings.HasPrefix(client.addr, "https://") {
		return nil, errors.New("addr must start with http:// or https://")
	}
	return client, nil
}

// Fetch issues an authenticated GET to c.addr + path, forwarding extra
// (the caller's inbound Authorization/Organization headers, per §4.7's
// "with the current auth headers") on top of the client's own defaults,
// and returns the raw response body. Non-2xx responses are returned as
// an error carrying the status code so refresolve can map it to a
// tier.Kind.
func (c *Client) Fetch(ctx context.Context, path string, extra http.Header) ([]byte, int, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, 0, errors.Wrap(err, "rate limit exceeded")
		}
	}

	url := c.addr
	if len(path) > 0 {
		url = fmt.Sprintf("%s/%s", c.addr, strings.TrimLeft(path, "/"))
	}

	var lastErr error
	attempts := c.maxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(c.retryWait):
			}
		}

		body, status, err := c.doFetch(ctx, url, extra)
		if err == nil {
			return body, status, nil
		}
		lastErr = err
		if status > 0 && status < 500 {
			// Client errors (4xx) are not transient; don't retry.
			return nil, status, err
		}
	}
	return nil, 0, errors.Wrap(lastErr, "all retries exhausted")
}

func (c *Client) doFetch(ctx context.Context, url string, extra http.Header) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to create request")
	}
	if len(c.username) > 0 {
		req.SetBasicAuth(c.username, c.password)
	}
	if len(c.token) > 0 {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	maps.Copy(req.Header, c.header)
	maps.Copy(req.Header, extra)

	if c.debug {
		dump, _ := httputil.DumpRequest(req, false)
		c.Logger.Debug(string(dump))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to request")
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "failed to copy response body")
	}
	if c.debug {
		dump, _ := httputil.DumpResponse(resp, false)
		c.Logger.Debug(string(dump))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, errors.Newf("response status code: %d, body: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), resp.StatusCode, nil
}
