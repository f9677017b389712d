package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultUserAgent identifies the bot to publishers.
const DefaultUserAgent = "NewsBriefBot/0.2.2 (+https://github.com/bigthack/newsbrief-repo-v0.2.2/issues)"

var (
	ErrBudgetExhausted = errors.New("request budget exhausted")
	ErrUnauthorized    = errors.New("unauthorized")
)

// StatusError is returned for non-2xx responses that are not retried into success.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

type Config struct {
	UserAgent      string
	AcceptLanguage string

	// Timeout bounds a single attempt. A context deadline can still override this.
	Timeout time.Duration

	// Retries after the first attempt, with a linear backoff of Backoff*attempt.
	MaxRetries int
	Backoff    time.Duration

	// MaxRequests caps attempts across the lifetime of the client. Zero means unlimited.
	MaxRequests int

	// MaxBodyBytes truncates oversized bodies.
	MaxBodyBytes int64

	// RespectRobots checks each host's robots.txt before fetching from it.
	// Hosts in Allowlist are still fetched when their robots.txt cannot be read.
	RespectRobots bool
	Allowlist     []string

	DialTimeout     time.Duration
	KeepAlive       time.Duration
	TLSHandshake    time.Duration
	ResponseHeader  time.Duration
	IdleConnTimeout time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
}

func DefaultConfig() Config {
	return Config{
		UserAgent:           DefaultUserAgent,
		AcceptLanguage:      "en, *;q=0.1",
		Timeout:             20 * time.Second,
		MaxRetries:          2,
		Backoff:             500 * time.Millisecond,
		MaxRequests:         40,
		MaxBodyBytes:        10 << 20,
		RespectRobots:       true,
		DialTimeout:         5 * time.Second,
		KeepAlive:           30 * time.Second,
		TLSHandshake:        5 * time.Second,
		ResponseHeader:      15 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 4,
	}
}

// NewHTTPClient builds the underlying transport from cfg.
func NewHTTPClient(cfg Config) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	tr := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		ForceAttemptHTTP2: true,

		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,

		TLSHandshakeTimeout:   cfg.TLSHandshake,
		ResponseHeaderTimeout: cfg.ResponseHeader,
	}

	return &http.Client{Transport: tr}
}

// Response captures the final response of a Get.
type Response struct {
	URL      string
	Status   int
	Headers  http.Header
	Body     []byte
	Duration time.Duration
	Attempts int
}

// Client performs polite GET requests shared by all connectors of a run.
// It is safe for concurrent use.
type Client struct {
	http *http.Client
	cfg  Config
	log  zerolog.Logger
	used atomic.Int64

	robotsMu     sync.Mutex
	robotsCache  map[string]*robotsRules
	robotsFlight singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client, e.g. one from httptest.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New builds a Client. Zero-valued fields of cfg fall back to DefaultConfig.
func New(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = def.AcceptLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
		cfg.KeepAlive = def.KeepAlive
		cfg.TLSHandshake = def.TLSHandshake
		cfg.ResponseHeader = def.ResponseHeader
		cfg.IdleConnTimeout = def.IdleConnTimeout
		cfg.MaxIdleConns = def.MaxIdleConns
		cfg.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
	}

	c := &Client{cfg: cfg, log: zerolog.Nop(), robotsCache: make(map[string]*robotsRules)}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = NewHTTPClient(cfg)
	}
	return c
}

// Used returns the number of attempts made so far.
func (c *Client) Used() int {
	return int(c.used.Load())
}

// Remaining returns the attempts left in the budget, or -1 when unlimited.
func (c *Client) Remaining() int {
	if c.cfg.MaxRequests <= 0 {
		return -1
	}
	left := c.cfg.MaxRequests - c.Used()
	if left < 0 {
		return 0
	}
	return left
}

func (c *Client) take() bool {
	n := c.used.Add(1)
	return c.cfg.MaxRequests <= 0 || n <= int64(c.cfg.MaxRequests)
}

// Get fetches url, retrying transient failures. With RespectRobots set, a URL
// refused by robots.txt fails with ErrDisallowed before any request to it.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	start := time.Now()
	var lastErr error

	if c.cfg.RespectRobots {
		if err := c.checkRobots(ctx, url); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.Backoff * time.Duration(attempt)
			c.log.Debug().Str("url", url).Int("attempt", attempt).Dur("delay", delay).Err(lastErr).Msg("retrying request")
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		if !c.take() {
			return nil, fmt.Errorf("GET %s: %w", url, ErrBudgetExhausted)
		}

		resp, err := c.do(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		switch {
		case resp.Status >= 200 && resp.Status < 300:
			resp.Attempts = attempt + 1
			resp.Duration = time.Since(start)
			return resp, nil
		case resp.Status == http.StatusUnauthorized || resp.Status == http.StatusForbidden:
			return nil, fmt.Errorf("GET %s: status %d: %w", url, resp.Status, ErrUnauthorized)
		case retryable(resp.Status):
			lastErr = &StatusError{URL: url, Status: resp.Status}
		default:
			return nil, &StatusError{URL: url, Status: resp.Status}
		}
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context, url string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept-Language", c.cfg.AcceptLanguage)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, err
	}

	return &Response{
		URL:     url,
		Status:  resp.StatusCode,
		Headers: resp.Header.Clone(),
		Body:    body,
	}, nil
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
