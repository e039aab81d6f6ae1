// Package apiclient is the operator client's HTTP layer. It resolves every path
// against either the configured remote apiBase or the frontend origin, applies
// the read retry policy, and reports status errors with the server's text.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrServerUnreachable is returned when a request never got an HTTP response.
var ErrServerUnreachable = errors.New("servidor no disponible")

// StatusError is a non-2xx response. Message carries the body text the server
// sent, which the views show verbatim.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d %s", e.Status, http.StatusText(e.Status))
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Text returns the body as trimmed text.
func (r *Response) Text() string { return strings.TrimSpace(string(r.Body)) }

// Options configures a Client.
type Options struct {
	// Origin serves /usuarios, /login and /config.json (the frontend origin).
	Origin string
	// ConfigURL overrides where config.json is loaded from: an http(s) URL or a
	// local file path. Empty means Origin + "/config.json".
	ConfigURL  string
	HTTPClient *http.Client
	Retry      RetryPolicy
	Breaker    CircuitBreakerConfig
}

type Client struct {
	origin     string
	configURL  string
	httpClient *http.Client
	retry      RetryPolicy
	breaker    *CircuitBreaker

	mu      sync.Mutex
	loaded  bool
	apiBase string
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		origin:     strings.TrimRight(opts.Origin, "/"),
		configURL:  opts.ConfigURL,
		httpClient: hc,
		retry:      opts.Retry.normalized(),
		breaker:    NewCircuitBreaker(opts.Breaker),
	}
}

type fileConfig struct {
	APIBase *string `json:"apiBase"`
}

// LoadConfig reads config.json once. Any failure (missing, non-2xx, invalid
// JSON, non-string apiBase) leaves apiBase empty, which means same-origin.
func (c *Client) LoadConfig(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	c.loaded = true
	c.apiBase = c.fetchAPIBase(ctx)
	if c.apiBase != "" {
		log.Debug().Str("api_base", c.apiBase).Msg("apiclient: remote api base")
	}
}

func (c *Client) fetchAPIBase(ctx context.Context) string {
	var raw []byte
	src := c.configURL
	if src == "" {
		src = c.origin + "/config.json"
	}
	if isAbsoluteURL(src) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return ""
		}
		req.Header.Set("Cache-Control", "no-cache")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return ""
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return ""
		}
		if raw, err = io.ReadAll(resp.Body); err != nil {
			return ""
		}
	} else {
		b, err := os.ReadFile(src)
		if err != nil {
			return ""
		}
		raw = b
	}

	var cfg fileConfig
	if err := json.Unmarshal(raw, &cfg); err != nil || cfg.APIBase == nil {
		return ""
	}
	return strings.TrimRight(*cfg.APIBase, "/")
}

// SetAPIBase overrides (and marks as loaded) the remote API base.
func (c *Client) SetAPIBase(base string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = true
	c.apiBase = strings.TrimRight(base, "/")
}

// APIBase returns the loaded base, "" for same-origin.
func (c *Client) APIBase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apiBase
}

var (
	absoluteURL  = regexp.MustCompile(`(?i)^(?:https?:)?//`)
	localService = regexp.MustCompile(`(?i)^/(usuarios|login|config\.json)(?:/|$|\?)`)
)

func isAbsoluteURL(s string) bool { return absoluteURL.MatchString(s) }

// IsLocalService reports whether path is served by the identity service itself
// and must never be sent to the remote apiBase.
func IsLocalService(path string) bool { return localService.MatchString(normalizePath(path)) }

func normalizePath(p string) string {
	if p == "" || strings.HasPrefix(p, "/") || isAbsoluteURL(p) {
		return p
	}
	return "/" + p
}

// resolve returns the URL to hit for path and whether it went through apiBase.
func (c *Client) resolve(path string) (url string, viaBase bool) {
	if isAbsoluteURL(path) {
		return path, false
	}
	p := normalizePath(path)
	base := c.APIBase()
	if base != "" && !IsLocalService(p) {
		return base + p, true
	}
	return c.origin + p, false
}

// Do sends one request and reads the full response. Reads (GET/HEAD) follow
// the retry policy; mutations are sent exactly once.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, header http.Header) (*Response, error) {
	c.LoadConfig(ctx)
	url, viaBase := c.resolve(path)

	attempts := 1
	if isRead(method) {
		attempts = c.retry.MaxAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		resp, err := c.roundTrip(ctx, method, url, body, header)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}

	if isRead(method) && viaBase && c.retry.FallbackToOrigin {
		fallback := c.origin + normalizePath(path)
		log.Warn().Err(lastErr).Str("url", url).Str("fallback", fallback).Msg("apiclient: remote base failed, retrying same origin")
		if resp, err := c.roundTrip(ctx, method, fallback, body, header); err == nil {
			return resp, nil
		}
	}
	return nil, lastErr
}

func (c *Client) roundTrip(ctx context.Context, method, url string, body []byte, header http.Header) (*Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, fmt.Errorf("apiclient: create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("url", url).Msg("apiclient: transport error")
		return nil, fmt.Errorf("%w: %s %s: %v", ErrServerUnreachable, method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrServerUnreachable, err)
	}
	log.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("apiclient: request")
	return &Response{Status: resp.StatusCode, Body: data}, nil
}

func isRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// GetJSON fetches path and decodes a 2xx body into out. Non-2xx returns a
// *StatusError carrying the body text.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil, http.Header{"Cache-Control": {"no-cache"}})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &StatusError{Status: resp.Status, Message: resp.Text()}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("apiclient: decode %s: %w", path, err)
	}
	return nil
}

// SendJSON marshals in (when non-nil) and sends it with method. The response is
// returned whatever its status; callers classify it.
func (c *Client) SendJSON(ctx context.Context, method, path string, in any, header http.Header) (*Response, error) {
	h := http.Header{}
	for k, vs := range header {
		h[k] = vs
	}
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("apiclient: marshal body: %w", err)
		}
		body = b
		h.Set("Content-Type", "application/json")
	}
	return c.Do(ctx, method, path, body, h)
}

// Expect2xx turns a non-2xx response into a *StatusError; fallback is used when
// the server sent no text.
func Expect2xx(resp *Response, fallback string) error {
	if resp.OK() {
		return nil
	}
	msg := resp.Text()
	if msg == "" {
		msg = fallback
	}
	return &StatusError{Status: resp.Status, Message: msg}
}
