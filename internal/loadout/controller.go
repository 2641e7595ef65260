package loadout

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	catalog "github.com/eugener/arcscout/internal"
	"github.com/eugener/arcscout/internal/telemetry"
)

const controllerName = "loadout"

// ErrClosed is returned by intent methods after Close.
var ErrClosed = errors.New("loadout: controller closed")

// Calculator computes aggregate stats for a selection.
type Calculator interface {
	CalculateLoadout(ctx context.Context, req catalog.LoadoutRequest) (*catalog.LoadoutResult, error)
}

// State is the loadout view state.
type State struct {
	Selection Selection
	Result    *catalog.LoadoutResult // nil when there is nothing to show
	Loading   bool
	Err       string
	Seq       uint64
}

// Controller owns the selection. Every change with a non-empty selection
// triggers a calculation; emptying it clears the stats without one. Only the
// result for the latest selection is applied, and a failed calculation
// clears the stats instead of leaving numbers for a different selection.
type Controller struct {
	calc    Calculator
	logger  *slog.Logger
	metrics *telemetry.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State
	closed  bool
	changes chan struct{}
	once    sync.Once
}

// NewController creates a controller with an empty selection.
func NewController(calc Calculator, logger *slog.Logger, m *telemetry.Metrics) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		calc:    calc,
		logger:  logger.With("controller", controllerName),
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
		changes: make(chan struct{}, 1),
	}
}

// ToggleWeapon adds or removes a weapon and recalculates.
func (c *Controller) ToggleWeapon(id string) error {
	return c.update(func(s *Selection) { s.ToggleWeapon(id) })
}

// ToggleArmor adds or removes an armor piece and recalculates.
func (c *Controller) ToggleArmor(id string) error {
	return c.update(func(s *Selection) { s.ToggleArmor(id) })
}

// Clear empties the selection.
func (c *Controller) Clear() error {
	return c.update(func(s *Selection) { *s = Selection{} })
}

func (c *Controller) update(mutate func(*Selection)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	mutate(&c.state.Selection)
	c.state.Seq++
	c.state.Result = nil
	c.state.Err = ""
	if c.state.Selection.Empty() {
		c.state.Loading = false
		c.notify()
		return nil
	}

	c.state.Loading = true
	seq, req := c.state.Seq, c.state.Selection.Request()
	if c.metrics != nil {
		c.metrics.ControllerIssued.WithLabelValues(controllerName).Inc()
	}
	c.wg.Go(func() {
		res, err := c.calc.CalculateLoadout(c.ctx, req)
		c.settle(seq, res, err)
	})
	c.notify()
	return nil
}

func (c *Controller) settle(seq uint64, res *catalog.LoadoutResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if seq != c.state.Seq {
		c.logger.Debug("discarded stale calculation", "seq", seq, "latest", c.state.Seq)
		if c.metrics != nil {
			c.metrics.StaleDiscards.WithLabelValues(controllerName).Inc()
		}
		return
	}
	c.state.Loading = false
	if err != nil {
		c.logger.Warn("loadout calculation failed", "error", err)
		c.state.Result = nil
		c.state.Err = err.Error()
	} else {
		c.state.Result = res
	}
	c.notify()
}

func (c *Controller) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Selection = s.Selection.Clone()
	if s.Result != nil {
		r := *s.Result
		s.Result = &r
	}
	return s
}

// Changes returns a channel that receives a value after state changes.
// It is closed by Close.
func (c *Controller) Changes() <-chan struct{} { return c.changes }

// Close cancels an in-flight calculation and waits for it to return.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.once.Do(func() { close(c.changes) })
}
