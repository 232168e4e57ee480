package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhl_stats/ingestion/internal/metrics"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxRetries    = 5
	DefaultBackoffFactor = time.Second
	DefaultTimeout       = 10 * time.Second

	maxErrorBody = 512
)

// Response is a fully read HTTP response
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Cached     bool
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err converts a non-2xx response into an *UpstreamError
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	body := string(r.Body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &UpstreamError{URL: r.URL, StatusCode: r.StatusCode, Body: body}
}

// ResponseCache stores successful response bodies keyed by URL
type ResponseCache interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Set(ctx context.Context, url string, body []byte) error
}

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher performs GET requests with exponential backoff and rate-limit handling
type Fetcher struct {
	session       *http.Client
	maxRetries    int
	backoffFactor time.Duration
	timeout       time.Duration
	limiter       *rate.Limiter
	cache         ResponseCache
	sleep         SleepFunc
	logger        zerolog.Logger
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithDefaultSession replaces the fetcher's own pooled http.Client
func WithDefaultSession(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.session = c }
}

// WithRetryPolicy sets the defaults used when a call does not override them
func WithRetryPolicy(maxRetries int, backoffFactor, timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.maxRetries = maxRetries
		f.backoffFactor = backoffFactor
		f.timeout = timeout
	}
}

// WithRateLimit enables a client-side limiter. rps <= 0 disables it.
func WithRateLimit(rps, burst int) FetcherOption {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCache enables the response cache
func WithCache(c ResponseCache) FetcherOption {
	return func(f *Fetcher) { f.cache = c }
}

// WithSleep replaces the wait between attempts
func WithSleep(s SleepFunc) FetcherOption {
	return func(f *Fetcher) { f.sleep = s }
}

// WithLogger sets the fetcher logger
func WithLogger(l zerolog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a fetcher with a pooled default session
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		session: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxRetries:    DefaultMaxRetries,
		backoffFactor: DefaultBackoffFactor,
		timeout:       DefaultTimeout,
		sleep:         sleepContext,
		logger:        log.Logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type fetchOptions struct {
	session       *http.Client
	maxRetries    int
	backoffFactor time.Duration
	timeout       time.Duration
}

// FetchOption overrides a setting for a single call
type FetchOption func(*fetchOptions)

// Session reuses an externally owned client for this call. The fetcher never closes it.
func Session(c *http.Client) FetchOption {
	return func(o *fetchOptions) { o.session = c }
}

// MaxRetries overrides the attempt budget
func MaxRetries(n int) FetchOption {
	return func(o *fetchOptions) { o.maxRetries = n }
}

// BackoffFactor overrides the base backoff delay
func BackoffFactor(d time.Duration) FetchOption {
	return func(o *fetchOptions) { o.backoffFactor = d }
}

// Timeout overrides the per-attempt timeout
func Timeout(d time.Duration) FetchOption {
	return func(o *fetchOptions) { o.timeout = d }
}

// Fetch performs a GET against url.
//
// Transport failures and 5xx responses are retried with a delay of
// backoffFactor * 2^(attempt-1). A 429 waits for an integer Retry-After when
// present, otherwise the same exponential delay. When the attempts run out a
// 429 or 5xx response is returned as-is with a nil error; a transport failure
// is returned as *TransportError. Any other status is returned immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts ...FetchOption) (*Response, error) {
	o := fetchOptions{
		session:       f.session,
		maxRetries:    f.maxRetries,
		backoffFactor: f.backoffFactor,
		timeout:       f.timeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxRetries < 1 {
		o.maxRetries = 1
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "nhl-stats-sync/1.0")

	endpoint := endpointLabel(url)

	if f.cache != nil {
		body, ok, err := f.cache.Get(ctx, url)
		switch {
		case err != nil:
			f.logger.Warn().Err(err).Str("url", url).Msg("Response cache read failed")
		case ok:
			metrics.RecordCacheHit()
			f.logger.Debug().Str("url", url).Msg("Serving response from cache")
			return &Response{URL: url, StatusCode: http.StatusOK, Header: http.Header{}, Body: body, Cached: true}, nil
		default:
			metrics.RecordCacheMiss()
		}
	}

	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		final := attempt == o.maxRetries

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		f.logger.Debug().
			Str("url", url).
			Int("attempt", attempt).
			Int("max", o.maxRetries).
			Msg("Making API request")

		start := time.Now()
		resp, err := f.do(ctx, o.session, req, o.timeout)
		elapsed := time.Since(start).Seconds()

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.RecordAPICall(endpoint, "transport_error", elapsed)
			if final {
				f.logger.Error().
					Err(err).
					Str("url", url).
					Int("attempt", attempt).
					Msg("Max retries reached on transport error")
				return nil, &TransportError{URL: url, Attempts: attempt, Err: err}
			}
			wait := backoff(o.backoffFactor, attempt)
			f.logger.Warn().
				Err(err).
				Str("url", url).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("Request failed, retrying after backoff")
			metrics.RecordRetry("transport")
			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		resp.URL = url
		metrics.RecordAPICall(endpoint, strconv.Itoa(resp.StatusCode), elapsed)

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := resp.Header.Get("Retry-After")
			wait := retryAfterDelay(retryAfter, backoff(o.backoffFactor, attempt))
			if final {
				f.logger.Warn().
					Str("url", url).
					Int("attempt", attempt).
					Msg("Max retries reached after 429, returning response")
				return resp, nil
			}
			f.logger.Warn().
				Str("url", url).
				Int("attempt", attempt).
				Str("retry_after", retryAfter).
				Dur("wait", wait).
				Msg("Rate limited, waiting before retry")
			metrics.RecordRetry("rate_limited")
			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 500 && resp.StatusCode < 600 && !final {
			wait := backoff(o.backoffFactor, attempt)
			f.logger.Warn().
				Str("url", url).
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("Server error, retrying after backoff")
			metrics.RecordRetry("server_error")
			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		f.logger.Debug().
			Str("url", url).
			Int("status", resp.StatusCode).
			Int("size", len(resp.Body)).
			Msg("Terminal response")

		if f.cache != nil && resp.StatusCode == http.StatusOK {
			if err := f.cache.Set(ctx, url, resp.Body); err != nil {
				f.logger.Warn().Err(err).Str("url", url).Msg("Response cache write failed")
			}
		}
		return resp, nil
	}

	// maxRetries >= 1 so the loop always returns
	return nil, fmt.Errorf("no attempts made for %s", url)
}

// do runs one attempt and reads the whole body so the connection can be reused
func (f *Fetcher) do(ctx context.Context, session *http.Client, req *http.Request, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := session.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// backoff returns factor * 2^(attempt-1)
func backoff(factor time.Duration, attempt int) time.Duration {
	return factor * time.Duration(1<<uint(attempt-1))
}

// retryAfterDelay honors an integer Retry-After in seconds, otherwise fallback
func retryAfterDelay(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// endpointLabel collapses ids, dates and team codes so metric labels stay bounded
func endpointLabel(rawURL string) string {
	path := rawURL
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+3:]
		if j := strings.Index(path, "/"); j >= 0 {
			path = path[j:]
		} else {
			path = "/"
		}
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if isVariableSegment(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func isVariableSegment(seg string) bool {
	if seg == "" {
		return false
	}
	allDigits, allUpper := true, true
	for _, r := range seg {
		if (r < '0' || r > '9') && r != '-' {
			allDigits = false
		}
		if r < 'A' || r > 'Z' {
			allUpper = false
		}
	}
	return allDigits || allUpper
}
