package httpclient

import (
	"context"
	"errors"
	"log/slog"
	randv2 "math/rand/v2"
	"net"
	stdhttp "net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

// Client wraps http.Client with request logging, token-safe URLs and optional retries.
// It satisfies the bot transport's Do(*http.Request) contract through Do.
type Client struct {
	hc          *stdhttp.Client
	log         *slog.Logger
	retries     int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	headers     map[string]string
	urlRedactor func(*url.URL) string
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the whole-request timeout. Long polls need it above the poll timeout.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = t }
}

// WithResponseHeaderTimeout bounds the wait for response headers (0 disables it).
func WithResponseHeaderTimeout(t time.Duration) Option {
	return func(c *Client) {
		if tr, ok := c.hc.Transport.(*stdhttp.Transport); ok {
			tr.ResponseHeaderTimeout = t
		}
	}
}

// WithLogger sets logger used by client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRetries enables retries of idempotent requests with exponential backoff and jitter.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		if backoff > 0 {
			c.baseBackoff = backoff
		}
	}
}

// WithMaxBackoff limits exponential backoff growth.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) { c.maxBackoff = d }
}

// WithHeaders adds default headers to each request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(map[string]string, len(h))
		}
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// WithURLRedactor sets URL redactor for logs.
func WithURLRedactor(f func(*url.URL) string) Option {
	return func(c *Client) { c.urlRedactor = f }
}

// WithTransport sets custom transport.
func WithTransport(rt stdhttp.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.hc.Transport = rt
		}
	}
}

// New creates configured Client.
func New(opts ...Option) *Client {
	tr := stdhttp.DefaultTransport.(*stdhttp.Transport).Clone()
	tr.MaxIdleConns = 100
	tr.MaxIdleConnsPerHost = 100
	tr.IdleConnTimeout = 90 * time.Second
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ExpectContinueTimeout = 1 * time.Second

	c := &Client{
		hc: &stdhttp.Client{
			Timeout:   15 * time.Second,
			Transport: tr,
		},
		log:         slog.Default(),
		baseBackoff: 200 * time.Millisecond,
		urlRedactor: RedactBotToken,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var tokenPath = regexp.MustCompile(`/bot[^/]+/`)

// RedactBotToken hides the token segment of Telegram Bot API paths (/bot<token>/method).
func RedactBotToken(u *url.URL) string {
	cp := *u
	cp.Path = tokenPath.ReplaceAllString(cp.Path, "/bot[REDACTED]/")
	// keeps the brackets unescaped when the rest of the path allows it
	cp.RawPath = cp.Path
	return cp.Redacted()
}

func (c *Client) redactURL(u *url.URL) string {
	if c.urlRedactor != nil {
		return c.urlRedactor(u)
	}
	return u.Redacted()
}

// retryAfter parses Retry-After header value.
func retryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := stdhttp.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func retryable(resp *stdhttp.Response, err error) (time.Duration, bool) {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, false
		}
		var ne net.Error
		return 0, errors.As(err, &ne)
	}
	switch {
	case resp.StatusCode == stdhttp.StatusTooManyRequests, resp.StatusCode >= 500:
		return retryAfter(resp.Header.Get("Retry-After")), true
	}
	return 0, false
}

func idempotent(method string) bool {
	switch method {
	case stdhttp.MethodGet, stdhttp.MethodHead, stdhttp.MethodOptions:
		return true
	}
	return false
}

// Do sends the request using its own context. It makes *Client usable as the
// HTTP client of github.com/go-telegram/bot.
func (c *Client) Do(req *stdhttp.Request) (*stdhttp.Response, error) {
	return c.DoContext(req.Context(), req)
}

// DoContext sends the request with ctx, logging every attempt.
// Only idempotent requests without a body are retried; Bot API calls are POSTs and go out once.
func (c *Client) DoContext(ctx context.Context, req *stdhttp.Request) (*stdhttp.Response, error) {
	retries := c.retries
	if !idempotent(req.Method) || req.Body != nil && req.Body != stdhttp.NoBody {
		retries = 0
	}

	var lastErr error
	for attempt := 1; attempt <= retries+1; attempt++ {
		r := req.Clone(ctx)
		for k, v := range c.headers {
			if r.Header.Get(k) == "" {
				r.Header.Set(k, v)
			}
		}
		u := c.redactURL(r.URL)
		st := time.Now()
		resp, err := c.hc.Do(r)
		dur := time.Since(st)

		delay, retry := retryable(resp, err)
		if !retry || attempt > retries {
			if err != nil {
				c.log.Warn("http request error", slog.String("method", r.Method), slog.String("url", u), slog.Int("attempt", attempt), slog.Any("error", err))
				return nil, err
			}
			c.log.Debug("http request", slog.String("method", r.Method), slog.String("url", u), slog.Int("status", resp.StatusCode), slog.Duration("dur", dur), slog.Int("attempt", attempt))
			return resp, nil
		}

		if resp != nil {
			_ = resp.Body.Close()
			lastErr = errors.New(r.Method + " " + u + ": unexpected status " + strconv.Itoa(resp.StatusCode))
		} else {
			lastErr = err
		}
		wait := delay
		if wait == 0 {
			wait = c.baseBackoff * time.Duration(1<<uint(attempt-1))
			wait += time.Duration(randv2.Int64N(int64(wait)))
		}
		if c.maxBackoff > 0 && wait > c.maxBackoff {
			wait = c.maxBackoff
		}
		c.log.Warn("http request retry", slog.String("method", r.Method), slog.String("url", u), slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Any("error", lastErr))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
