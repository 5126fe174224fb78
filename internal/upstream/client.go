package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/nhalm/canonlog"
	"github.com/sony/gobreaker/v2"
	"github.com/yourorg/productproxy/internal/id"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	headerRequestID = "X-Request-Id"
	maxResponseBody = 10 << 20
	tracerName      = "github.com/yourorg/productproxy/internal/upstream"
)

// Config holds the outbound client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Breaker is optional; a nil value sends every call straight through.
	Breaker *BreakerConfig
}

// BreakerConfig holds configuration for the circuit breaker.
type BreakerConfig struct {
	// Name identifies this breaker (used in metrics and logs).
	Name string

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio is the ratio of failures to total requests that trips the breaker.
	FailureRatio float64

	// MinRequests is the minimum number of requests needed before the failure ratio is evaluated.
	MinRequests uint32

	// Interval is the cyclic period of the closed state after which counts are cleared.
	// Zero keeps counting from startup.
	Interval time.Duration
}

// DefaultBreakerConfig returns the breaker settings used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "upstream",
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
		Interval:     60 * time.Second,
	}
}

// Response is a fully read upstream answer.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client issues calls against the upstream base URL. It is safe for
// concurrent use; nothing in it changes after construction.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*Response]
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("upstream base url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base url %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid upstream base url %q: scheme must be http or https", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	c := &Client{
		baseURL: u,
		http: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
	if cfg.Breaker != nil {
		c.breaker = newBreaker(*cfg.Breaker)
	}
	return c, nil
}

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[*Response] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		IsSuccessful: func(err error) bool {
			var gone *callerGoneError
			return err == nil || errors.As(err, &gone)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			circuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	circuitBreakerState.WithLabelValues(cfg.Name).Set(0)
	return gobreaker.NewCircuitBreaker[*Response](settings)
}

// BreakerState returns the breaker state, or StateClosed when no breaker is configured.
func (c *Client) BreakerState() gobreaker.State {
	if c.breaker == nil {
		return gobreaker.StateClosed
	}
	return c.breaker.State()
}

// Close releases idle connections held by the shared transport.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Do performs one upstream call. body, when non-nil, is sent as JSON.
// A non-2xx answer is returned as *StatusError; a call that produced no
// answer is returned as *TransportError.
func (c *Client) Do(ctx context.Context, method string, segments []string, query url.Values, body any) (*Response, error) {
	u := c.resolve(segments)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal upstream request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName(method, segments),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", u.String()),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerRequestID, requestID(ctx))
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.send(req)
	elapsed := time.Since(start)

	statusCode := 0
	var statusErr *StatusError
	switch {
	case resp != nil:
		statusCode = resp.StatusCode
	case errors.As(err, &statusErr):
		statusCode = statusErr.StatusCode
	}

	if statusCode != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	upstreamRequestsTotal.WithLabelValues(method, resultLabel(statusCode)).Inc()
	upstreamRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	canonlog.AddRequestFields(ctx, map[string]any{
		"upstream_method":      method,
		"upstream_path":        u.Path,
		"upstream_status":      statusCode,
		"upstream_duration_ms": elapsed.Milliseconds(),
	})

	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, Path: u.Path, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) send(req *http.Request) (*Response, error) {
	if c.breaker == nil {
		return c.roundTrip(req)
	}

	resp, err := c.breaker.Execute(func() (*Response, error) {
		resp, err := c.roundTrip(req)
		if err != nil && req.Context().Err() != nil {
			return nil, &callerGoneError{err: err}
		}
		return resp, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &TransportError{Method: req.Method, Path: req.URL.Path, Err: err}
	}
	var gone *callerGoneError
	if errors.As(err, &gone) {
		return nil, gone.err
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// callerGoneError marks a failure caused by the caller's context ending
// (disconnect or handler timeout). The breaker does not count it against
// the upstream.
type callerGoneError struct {
	err error
}

func (e *callerGoneError) Error() string { return e.err.Error() }

func (e *callerGoneError) Unwrap() error { return e.err }

// roundTrip treats 5xx answers as errors so the breaker counts them as
// failures; 4xx answers are returned as responses.
func (c *Client) roundTrip(req *http.Request) (*Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, Path: req.URL.Path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &TransportError{Method: req.Method, Path: req.URL.Path, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode >= 500 {
		return nil, &StatusError{Method: req.Method, Path: req.URL.Path, StatusCode: resp.StatusCode}
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// resolve appends escaped path segments to the base URL so an id can never
// introduce extra segments.
func (c *Client) resolve(segments []string) *url.URL {
	u := *c.baseURL
	path := strings.TrimSuffix(u.Path, "/")
	rawPath := strings.TrimSuffix(u.EscapedPath(), "/")
	for _, s := range segments {
		path += "/" + s
		rawPath += "/" + url.PathEscape(s)
	}
	u.Path = path
	u.RawPath = rawPath
	u.RawQuery = ""
	return &u
}

// spanName keeps ids out of span names: GET /objects, GET /objects/{id}.
func spanName(method string, segments []string) string {
	if len(segments) == 0 {
		return method + " /"
	}
	name := method + " /" + segments[0]
	if len(segments) > 1 {
		name += "/{id}"
	}
	return name
}

func requestID(ctx context.Context) string {
	if rid := middleware.GetReqID(ctx); rid != "" {
		return rid
	}
	return id.NewRequestID()
}
