// Package client implements the read-through request client for the
// game-reference API: reads fall back to the session cache when the network
// fails, writes never do.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	catalog "github.com/eugener/arcscout/internal"
	"github.com/eugener/arcscout/internal/cache"
	"github.com/eugener/arcscout/internal/circuitbreaker"
	"github.com/eugener/arcscout/internal/telemetry"
)

const (
	defaultUserAgent = "arcscout"
	tracerName       = "github.com/eugener/arcscout/internal/client"

	headerSessionID = "X-Session-Id"
	headerRequestID = "X-Request-Id"
)

// Options configures a Client. Only Cache is required.
type Options struct {
	HTTPClient *http.Client
	Cache      cache.Cache
	Breakers   *circuitbreaker.Registry      // nil disables circuit breaking
	Metrics    *telemetry.Metrics            // nil disables metrics
	Tracer     trace.Tracer                  // nil uses the global provider
	Propagator propagation.TextMapPropagator // nil uses the global propagator
	Logger     *slog.Logger                  // nil discards
	SessionID  string                        // empty generates a UUID v7
	UserAgent  string
}

// Client issues API requests relative to a fixed root.
type Client struct {
	baseURL   string
	http      *http.Client
	cache     cache.Cache
	breakers  *circuitbreaker.Registry
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
	propagate propagation.TextMapPropagator
	logger    *slog.Logger
	sessionID string
	userAgent string
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("client: empty base URL")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("client: nil cache")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Tracer == nil {
		opts.Tracer = telemetry.Tracer(tracerName)
	}
	if opts.Propagator == nil {
		opts.Propagator = otel.GetTextMapPropagator()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.Must(uuid.NewV7()).String()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      opts.HTTPClient,
		cache:     opts.Cache,
		breakers:  opts.Breakers,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		propagate: opts.Propagator,
		logger:    opts.Logger,
		sessionID: opts.SessionID,
		userAgent: opts.UserAgent,
	}, nil
}

// SessionID returns the identifier sent with every request of this session.
func (c *Client) SessionID() string { return c.sessionID }

// Decoder turns a payload into a typed value. A payload the decoder rejects
// counts as a failed read: it is not cached and the cached entry is used.
type Decoder func(payload json.RawMessage) error

// Fetch performs the read described by sig. A successful response always
// refreshes the cache. On any failure the cached payload for sig is returned
// if one exists; otherwise the result is a *NetworkError.
func (c *Client) Fetch(ctx context.Context, sig catalog.Signature) (json.RawMessage, error) {
	return c.fetch(ctx, sig, nil)
}

// fetch is Fetch with an optional decoder applied to the network payload
// before it is cached, and to the cached payload on fallback.
func (c *Client) fetch(ctx context.Context, sig catalog.Signature, decode Decoder) (json.RawMessage, error) {
	endpoint := routePattern(sig.Path)
	ctx, span := c.tracer.Start(ctx, "GET "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("arcscout.signature", sig.String())),
	)
	defer span.End()

	payload, err := c.read(ctx, endpoint, sig, decode)
	if err == nil {
		c.cache.Put(ctx, sig, payload)
		c.logger.DebugContext(ctx, "cached response", "signature", sig.String(), "bytes", len(payload))
		c.record(http.MethodGet, endpoint, telemetry.OutcomeOK)
		c.updateCacheGauge()
		return payload, nil
	}
	span.RecordError(err)

	if e, ok := c.cache.Get(ctx, sig); ok && (decode == nil || decode(e.Payload) == nil) {
		c.logger.WarnContext(ctx, "serving cached response",
			"signature", sig.String(),
			"captured_at", e.CapturedAt.Format(time.RFC3339),
			"error", err,
		)
		span.SetAttributes(attribute.Bool("arcscout.cache_fallback", true))
		c.record(http.MethodGet, endpoint, telemetry.OutcomeFallback)
		if c.metrics != nil {
			c.metrics.CacheFallbacks.WithLabelValues(endpoint).Inc()
		}
		return e.Payload, nil
	}

	span.SetStatus(codes.Error, err.Error())
	c.record(http.MethodGet, endpoint, telemetry.OutcomeFailed)
	if c.metrics != nil {
		c.metrics.CacheMisses.WithLabelValues(endpoint).Inc()
	}
	return nil, &NetworkError{Signature: sig, Err: err}
}

// read goes to the network for sig, consulting the endpoint breaker. A
// payload rejected by decode is a failure for the breaker too.
func (c *Client) read(ctx context.Context, endpoint string, sig catalog.Signature, decode Decoder) (json.RawMessage, error) {
	var b *circuitbreaker.Breaker
	if c.breakers != nil {
		b = c.breakers.GetOrCreate(endpoint)
		if !b.Allow() {
			if c.metrics != nil {
				c.metrics.BreakerRejects.WithLabelValues(endpoint).Inc()
			}
			return nil, errCircuitOpen
		}
	}

	payload, err := c.do(ctx, http.MethodGet, endpoint, sig.String(), nil)
	if err == nil && decode != nil {
		if err = decode(payload); err != nil {
			payload = nil
		}
	}
	if b != nil {
		if err != nil {
			b.RecordError(circuitbreaker.ClassifyError(err))
		} else {
			b.RecordSuccess()
		}
	}
	return payload, err
}

// Post sends a write-style request. The cache is neither consulted nor
// updated; failures are returned as *ComputationError.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	endpoint := routePattern(path)
	ctx, span := c.tracer.Start(ctx, "POST "+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	data, err := json.Marshal(body)
	if err != nil {
		return nil, &ComputationError{Path: path, Err: fmt.Errorf("marshal request: %w", err)}
	}

	payload, err := c.do(ctx, http.MethodPost, endpoint, path, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.record(http.MethodPost, endpoint, telemetry.OutcomeFailed)
		return nil, &ComputationError{Path: path, Err: err}
	}
	c.record(http.MethodPost, endpoint, telemetry.OutcomeOK)
	return payload, nil
}

// do performs one HTTP exchange and returns the body if it is well-formed JSON.
func (c *Client) do(ctx context.Context, method, endpoint, uri string, body []byte) (json.RawMessage, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+uri, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, body != nil)

	if c.metrics != nil {
		c.metrics.InFlight.Inc()
		defer c.metrics.InFlight.Dec()
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if c.metrics != nil {
		c.metrics.RequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(uri, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("decode %s: %w", uri, catalog.ErrParse)
	}
	return data, nil
}

// setHeaders applies per-request headers.
func (c *Client) setHeaders(r *http.Request, hasBody bool) {
	r.Header.Set("Accept", "application/json")
	r.Header.Set("User-Agent", c.userAgent)
	r.Header.Set(headerSessionID, c.sessionID)
	r.Header.Set(headerRequestID, uuid.Must(uuid.NewV7()).String())
	if hasBody {
		r.Header.Set("Content-Type", "application/json")
	}
	c.propagate.Inject(r.Context(), propagation.HeaderCarrier(r.Header))
}

func (c *Client) record(method, endpoint, outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RequestsTotal.WithLabelValues(method, endpoint, outcome).Inc()
}

// updateCacheGauge reports the cache size when the implementation exposes it.
func (c *Client) updateCacheGauge() {
	if c.metrics == nil {
		return
	}
	if l, ok := c.cache.(interface{ Len() int }); ok {
		c.metrics.CacheEntries.Set(float64(l.Len()))
	}
}

// staticSegments are path segments that name a resource rather than an id.
var staticSegments = map[string]bool{
	"categories": true, "rarities": true, "related": true,
	"givers": true, "types": true, "locations": true, "chain": true, "requirements": true,
	"markers": true,
	"weapons": true, "armor": true, "tier-list": true, "calculate": true,
	"traders": true,
}

// routePattern collapses ids in path to "{id}" for bounded label and
// breaker-key cardinality, e.g. /items/abc/related -> /items/{id}/related.
func routePattern(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i := 1; i < len(segs); i++ {
		if !staticSegments[segs[i]] {
			segs[i] = "{id}"
		}
	}
	return "/" + strings.Join(segs, "/")
}
