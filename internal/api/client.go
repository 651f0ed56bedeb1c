// Package api is the polling client for the backend REST API. It performs
// cached, timed, metered request/response calls against the four logical
// resources (health, latest, history, stats) and provides an aggregate fetch
// that tolerates partial failure.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ldrmon/ldrmon/internal/reading"
)

// History limits accepted by the backend.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// Config contains polling client settings.
type Config struct {
	BaseURL  string
	Timeout  time.Duration // bounded wait per request
	CacheTTL time.Duration // validity window for cached GET responses
}

// DefaultConfig returns the default polling configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:  baseURL,
		Timeout:  5 * time.Second,
		CacheTTL: 5 * time.Minute,
	}
}

// Client is the polled data client. Construct once per process with New.
type Client struct {
	httpClient *http.Client
	cache      *responseCache
	metrics    *requestMetrics

	mu      sync.Mutex
	baseURL string
	timeout time.Duration
}

// New creates a polling client from the given configuration.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Client{
		httpClient: &http.Client{},
		cache:      newResponseCache(cfg.CacheTTL),
		metrics:    &requestMetrics{},
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
	}
}

// Request issues a call against the given resource path. Safe (GET) calls are
// served from the response cache when a non-expired entry exists, bypassing
// the network entirely. The returned payload is the full response body.
func (c *Client) Request(ctx context.Context, method, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, method, path, query, true)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, useCache bool) (json.RawMessage, error) {
	target := c.targetURL(path, query)
	key := method + " " + target
	cacheable := useCache && method == http.MethodGet

	if cacheable {
		if payload := c.cache.get(key); payload != nil {
			log.Debug().Str("url", target).Msg("API cache hit")
			return payload, nil
		}
	}

	c.metrics.recordStart()
	start := time.Now()

	body, err := c.roundTrip(ctx, method, target, path)
	if err != nil {
		c.metrics.recordError()
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.metrics.recordError()
		return nil, &ParseError{Err: err}
	}
	if !env.Success {
		c.metrics.recordError()
		return nil, &ServerError{Message: env.Error}
	}

	c.metrics.recordSuccess(time.Since(start))
	if cacheable {
		c.cache.set(key, body)
	}
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, method, target, path string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.currentTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Path: path}
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	return errors.As(err, &uerr) && uerr.Timeout()
}

// CheckHealth fetches /api/health.
func (c *Client) CheckHealth(ctx context.Context) (*HealthInfo, error) {
	body, err := c.Request(ctx, http.MethodGet, pathHealth, nil)
	if err != nil {
		return nil, err
	}
	var info HealthInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &info, nil
}

// LatestReading fetches /api/latest. It returns nil without error when the
// backend reports no data yet.
func (c *Client) LatestReading(ctx context.Context) (*reading.Reading, error) {
	body, err := c.Request(ctx, http.MethodGet, pathLatest, nil)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}
	var w wireReading
	if err := json.Unmarshal(env.Data, &w); err != nil {
		return nil, &ParseError{Err: err}
	}
	r := w.normalize()
	return &r, nil
}

// History fetches /api/history. The limit is clamped to the backend's
// accepted 1..1000 window; zero or negative means the backend default.
func (c *Client) History(ctx context.Context, limit int) ([]reading.Reading, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	query := url.Values{"limit": []string{strconv.Itoa(limit)}}

	body, err := c.Request(ctx, http.MethodGet, pathHistory, query)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ParseError{Err: err}
	}
	var wire []wireReading
	if err := json.Unmarshal(env.Data, &wire); err != nil {
		return nil, &ParseError{Err: err}
	}
	out := make([]reading.Reading, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.normalize())
	}
	return out, nil
}

// Stats fetches /api/stats.
func (c *Client) Stats(ctx context.Context) (*reading.Stats, error) {
	body, err := c.Request(ctx, http.MethodGet, pathStats, nil)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ParseError{Err: err}
	}
	var s reading.Stats
	if err := json.Unmarshal(env.Data, &s); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &s, nil
}

// CompleteData issues latest, stats and history concurrently and waits for
// all three regardless of individual failure. It never fails as a whole:
// failed slots stay empty, each contributing one description to Errors in
// latest, stats, history order.
func (c *Client) CompleteData(ctx context.Context, historyLimit int) CompleteData {
	var (
		wg     sync.WaitGroup
		result CompleteData
		errs   [3]string
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		latest, err := c.LatestReading(ctx)
		if err != nil {
			errs[0] = fmt.Sprintf("latest: %v", err)
			return
		}
		result.Latest = latest
	}()
	go func() {
		defer wg.Done()
		stats, err := c.Stats(ctx)
		if err != nil {
			errs[1] = fmt.Sprintf("stats: %v", err)
			return
		}
		result.Stats = stats
	}()
	go func() {
		defer wg.Done()
		history, err := c.History(ctx, historyLimit)
		if err != nil {
			errs[2] = fmt.Sprintf("history: %v", err)
			return
		}
		result.History = history
	}()
	wg.Wait()

	for _, e := range errs {
		if e != "" {
			result.Errors = append(result.Errors, e)
		}
	}
	if result.History == nil {
		result.History = []reading.Reading{}
	}
	if len(result.Errors) > 0 {
		log.Warn().Strs("errors", result.Errors).Msg("Partial snapshot fetch")
	}
	return result
}

// Diagnostics probes every configured resource independently, bypassing the
// cache, and classifies overall backend health.
func (c *Client) Diagnostics(ctx context.Context) DiagnosticsReport {
	probes := []struct {
		name  string
		path  string
		query url.Values
	}{
		{name: "health", path: pathHealth},
		{name: "latest", path: pathLatest},
		{name: "history", path: pathHistory, query: url.Values{"limit": []string{"1"}}},
		{name: "stats", path: pathStats},
	}

	report := DiagnosticsReport{}
	available := 0
	for _, p := range probes {
		status := ResourceStatus{Resource: p.name}
		if _, err := c.do(ctx, http.MethodGet, p.path, p.query, false); err != nil {
			status.Error = err.Error()
		} else {
			status.Available = true
			available++
		}
		report.Resources = append(report.Resources, status)
	}

	report.Availability = float64(available) / float64(len(probes)) * 100
	switch {
	case available == len(probes):
		report.Overall = StatusHealthy
	case available > 0:
		report.Overall = StatusDegraded
	default:
		report.Overall = StatusDown
	}

	log.Info().
		Str("overall", string(report.Overall)).
		Float64("availability", report.Availability).
		Msg("API diagnostics complete")
	return report
}

// ClearCache drops every cached response.
func (c *Client) ClearCache() { c.cache.clear() }

// SetCacheTTL changes the cache validity window for future lookups.
func (c *Client) SetCacheTTL(ttl time.Duration) { c.cache.setTTL(ttl) }

// SetTimeout changes the bounded wait applied to future requests.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	c.timeout = timeout
	c.mu.Unlock()
}

// ResetMetrics zeroes all request counters.
func (c *Client) ResetMetrics() { c.metrics.reset() }

// Metrics returns a snapshot of the request counters.
func (c *Client) Metrics() Metrics { return c.metrics.snapshot() }

// Config returns the client's effective configuration.
func (c *Client) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Config{
		BaseURL:  c.baseURL,
		Timeout:  c.timeout,
		CacheTTL: c.cache.currentTTL(),
	}
}

func (c *Client) currentTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout
}

func (c *Client) targetURL(path string, query url.Values) string {
	c.mu.Lock()
	base := c.baseURL
	c.mu.Unlock()

	target := base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}
