package gsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrTimeout is reported when no response arrives within the client-side
// timeout.
var ErrTimeout = errors.New("gsapi: request timed out")

const (
	defaultEndpoint  = "https://grooveshark.com/more.php"
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:40.0) Gecko/20100101 Firefox/40.0"
	// DefaultTimeout bounds a single call independently of the transport.
	DefaultTimeout = 20 * time.Second
	maxBodyBytes   = 16 << 20
)

// Sender issues enveloped calls. *Client implements it; tests substitute
// their own.
type Sender interface {
	Send(ctx context.Context, env Envelope) *Call
}

// Ensure Client implements Sender at compile time.
var _ Sender = (*Client)(nil)

// Options configure a Client.
type Options struct {
	Endpoint  string
	HomeURL   string // Referer and Origin; derived from Endpoint when empty
	UserAgent string
	Timeout   time.Duration
	// HTTPClient is reused for every call. A fresh client is built when nil.
	HTTPClient *http.Client
}

// Client posts enveloped calls to the JSON-RPC endpoint.
type Client struct {
	endpoint  *url.URL
	homeURL   string
	userAgent string
	timeout   time.Duration
	http      *http.Client
}

// NewClient builds a Client for the given options.
func NewClient(opts Options) (*Client, error) {
	endpoint, err := parseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	home := strings.TrimSpace(opts.HomeURL)
	if home == "" {
		home = (&url.URL{Scheme: endpoint.Scheme, Host: endpoint.Host, Path: "/"}).String()
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		endpoint:  endpoint,
		homeURL:   home,
		userAgent: ua,
		timeout:   timeout,
		http:      hc,
	}, nil
}

// Endpoint returns the normalized endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Send posts env and returns immediately. The returned Call resolves once,
// with either the HTTP response or ErrTimeout.
func (c *Client) Send(ctx context.Context, env Envelope) *Call {
	call := newCall()

	body, err := json.Marshal(env)
	if err != nil {
		call.resolve(nil, 0, fmt.Errorf("encode request: %w", err))
		return call
	}

	reqCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(c.timeout, func() {
		if call.resolve(nil, 0, ErrTimeout) {
			cancel()
		}
	})

	go func() {
		defer cancel()
		defer timer.Stop()
		data, status, err := c.post(reqCtx, env.Method, body)
		call.resolve(data, status, err)
	}()
	return call
}

func (c *Client) post(ctx context.Context, method string, body []byte) ([]byte, int, error) {
	reqURL := *c.endpoint
	reqURL.RawQuery = url.QueryEscape(method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// decorate mirrors the headers a browser session sends.
func (c *Client) decorate(req *http.Request) {
	req.Host = c.endpoint.Host
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Content-Type", "text/plain; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.homeURL)
	req.Header.Set("Origin", c.homeURL)
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Cache-Control", "no-cache")
}

// Call is the handle for one in-flight request.
type Call struct {
	once   sync.Once
	done   chan struct{}
	body   []byte
	status int
	err    error
}

func newCall() *Call {
	return &Call{done: make(chan struct{})}
}

// Done is closed when the call resolves.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Result returns the raw body, HTTP status and transport error. It is only
// meaningful after Done is closed.
func (c *Call) Result() ([]byte, int, error) {
	return c.body, c.status, c.err
}

// resolve reports whether this invocation was the one that resolved c.
func (c *Call) resolve(body []byte, status int, err error) bool {
	resolved := false
	c.once.Do(func() {
		c.body = body
		c.status = status
		c.err = err
		resolved = true
		close(c.done)
	})
	return resolved
}

// Resolved returns a Call that is already complete. Fakes use it.
func Resolved(body []byte, status int, err error) *Call {
	c := newCall()
	c.resolve(body, status, err)
	return c
}

func parseEndpoint(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultEndpoint
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse endpoint %q: missing host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
