// Package httpx provides the resilient outbound HTTP client used for calls
// to the legacy billing backend.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/civica/ventanilla/internal/logging"
)

// Config controls retry, timeout, and egress behavior.
type Config struct {
	MaxRetries    int           // total attempts; default 3
	BaseDelay     time.Duration // delay unit; attempt n waits n×BaseDelay; default 1s
	Timeout       time.Duration // absolute per-attempt timeout; default 30s
	PartnerDomain string        // host routed through the egress proxy
	ProxyURL      string        // egress proxy address; empty disables proxying
}

// Request is one outbound call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is the fully-read outcome of a call. A non-2xx status on the
// final attempt is returned here, not as an error.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client issues outbound calls with bounded retries and linear backoff.
// Calls whose target host matches the configured partner domain are routed
// through the egress proxy; everything else goes direct.
type Client struct {
	rc      *retryablehttp.Client
	partner string
	proxied bool
	log     *logging.Logger
}

// New builds a client from the config. Zero-value fields take the defaults
// documented on Config.
func New(cfg Config, log *logging.Logger) (*Client, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	clog := log.Sub("httpx")

	var proxyURL *url.URL
	if cfg.ProxyURL != "" {
		parsed, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy url: %w", err)
		}
		proxyURL = parsed
	}

	partner := strings.ToLower(cfg.PartnerDomain)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		if proxyURL != nil && partner != "" && strings.EqualFold(req.URL.Hostname(), partner) {
			return proxyURL, nil
		}
		return nil, nil
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = cfg.MaxRetries - 1
	rc.HTTPClient = &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
	// Linear scaling: the n-th retry waits n×BaseDelay.
	rc.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		return time.Duration(attemptNum+1) * cfg.BaseDelay
	}
	// Any non-2xx response or transport error triggers a retry on non-final
	// attempts; the final attempt's outcome is surfaced as-is.
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return true, nil
		}
		return false, nil
	}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		path := "direct"
		if proxyURL != nil && partner != "" && strings.EqualFold(req.URL.Hostname(), partner) {
			path = "proxy"
		}
		clog.Debug().
			Str("url", req.URL.String()).
			Int("attempt", attempt+1).
			Str("path", path).
			Msg("outbound attempt")
	}
	rc.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			clog.Warn().
				Str("url", resp.Request.URL.String()).
				Int("status", resp.StatusCode).
				Msg("outbound attempt failed")
		}
	}

	return &Client{rc: rc, partner: partner, proxied: proxyURL != nil, log: clog}, nil
}

// Do issues the call, retrying per the client's policy. Exhausting all
// retries surfaces the last transport error; a non-2xx response on the final
// attempt is returned as a Response for the caller to interpret.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	rreq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, v := range req.Headers {
		rreq.Header.Set(k, v)
	}

	resp, err := c.rc.Do(rreq)
	if err != nil {
		c.log.Error().Err(err).Str("url", req.URL).Msg("outbound call exhausted retries")
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
