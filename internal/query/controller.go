package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	catalog "github.com/eugener/arcscout/internal"
	"github.com/eugener/arcscout/internal/telemetry"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("query: controller closed")

// Source fetches one page of a list.
type Source[T any] interface {
	Fetch(ctx context.Context, p catalog.ListParams) (catalog.Page[T], error)
}

// SourceFunc adapts a function, typically a client method value such as
// (*client.Client).SearchItems, to Source.
type SourceFunc[T any] func(ctx context.Context, p catalog.ListParams) (catalog.Page[T], error)

// Fetch calls f.
func (f SourceFunc[T]) Fetch(ctx context.Context, p catalog.ListParams) (catalog.Page[T], error) {
	return f(ctx, p)
}

// Options configures a Controller.
type Options struct {
	Name    string              // label for logs and metrics
	Fields  []string            // accepted filter fields
	Params  *catalog.ListParams // nil uses catalog.DefaultListParams
	Logger  *slog.Logger        // nil discards
	Metrics *telemetry.Metrics  // nil disables metrics
}

// Controller owns one list view. Intent methods update state synchronously
// and start the resulting fetch on its own goroutine; results settle back
// through Settle, so only the latest issued request is ever applied.
type Controller[T any] struct {
	name    string
	src     Source[T]
	logger  *slog.Logger
	metrics *telemetry.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State[T]
	closed  bool
	changes chan struct{}
	once    sync.Once
}

// New creates a controller and issues the initial request.
func New[T any](src Source[T], opts Options) *Controller[T] {
	params := catalog.DefaultListParams()
	if opts.Params != nil {
		params = opts.Params.Clone()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller[T]{
		name:    opts.Name,
		src:     src,
		logger:  opts.Logger.With("controller", opts.Name),
		metrics: opts.Metrics,
		ctx:     ctx,
		cancel:  cancel,
		state:   NewState[T](params, opts.Fields),
		changes: make(chan struct{}, 1),
	}
	_ = c.Dispatch(Refresh{})
	return c
}

// Dispatch applies in and starts the fetch it produces, if any.
func (c *Controller[T]) Dispatch(in Intent) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if f, ok := in.(SetFilter); ok && !c.state.Allows(f.Field) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", catalog.ErrUnknownFilter, f.Field)
	}
	next, req := Reduce(c.state, in)
	c.state = next
	if req != nil {
		c.issue(req)
	}
	c.notify()
	c.mu.Unlock()
	return nil
}

// issue starts the fetch for req. Callers hold c.mu, which orders every
// wg.Go before Close's wg.Wait.
func (c *Controller[T]) issue(req *Request) {
	if c.metrics != nil {
		c.metrics.ControllerIssued.WithLabelValues(c.name).Inc()
	}
	c.logger.Debug("issuing request", "seq", req.Seq, "offset", req.Params.Offset)
	c.wg.Go(func() {
		page, err := c.src.Fetch(c.ctx, req.Params)
		c.settle(Outcome[T]{Seq: req.Seq, Page: page, Err: err})
	})
}

func (c *Controller[T]) settle(o Outcome[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	next, applied := Settle(c.state, o)
	if !applied {
		c.logger.Debug("discarded stale response", "seq", o.Seq, "latest", c.state.Seq)
		if c.metrics != nil {
			c.metrics.StaleDiscards.WithLabelValues(c.name).Inc()
		}
		return
	}
	c.state = next
	if o.Err != nil {
		c.logger.Warn("list request failed", "seq", o.Seq, "error", o.Err)
	}
	c.notify()
}

// notify signals Changes without blocking; pending signals coalesce.
// Callers hold c.mu.
func (c *Controller[T]) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// SetFreeText replaces the search text and returns to the first page.
func (c *Controller[T]) SetFreeText(text string) error { return c.Dispatch(SetFreeText{Text: text}) }

// SetFilter sets one filter and returns to the first page.
func (c *Controller[T]) SetFilter(field, value string) error {
	return c.Dispatch(SetFilter{Field: field, Value: value})
}

// NextPage advances one page.
func (c *Controller[T]) NextPage() error { return c.Dispatch(NextPage{}) }

// PrevPage goes back one page.
func (c *Controller[T]) PrevPage() error { return c.Dispatch(PrevPage{}) }

// Refresh re-issues the current query.
func (c *Controller[T]) Refresh() error { return c.Dispatch(Refresh{}) }

// DismissError clears the error banner.
func (c *Controller[T]) DismissError() error { return c.Dispatch(DismissError{}) }

// Name returns the controller label.
func (c *Controller[T]) Name() string { return c.name }

// Snapshot returns a copy of the current state.
func (c *Controller[T]) Snapshot() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Changes returns a channel that receives a value after state changes.
// It is closed by Close.
func (c *Controller[T]) Changes() <-chan struct{} { return c.changes }

// Close cancels in-flight fetches and waits for them to return. Outcomes
// arriving after Close are dropped.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.once.Do(func() { close(c.changes) })
}
