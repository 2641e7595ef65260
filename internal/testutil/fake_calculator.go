package testutil

import (
	"context"
	"sync"

	catalog "github.com/eugener/arcscout/internal"
)

// FakeCalculator is a configurable loadout calculator for testing.
type FakeCalculator struct {
	CalculateFn func(ctx context.Context, req catalog.LoadoutRequest) (*catalog.LoadoutResult, error)

	mu    sync.Mutex
	calls []catalog.LoadoutRequest
}

// CalculateLoadout records req and delegates to CalculateFn, or returns
// stats with TotalDPS equal to the number of selected weapons.
func (f *FakeCalculator) CalculateLoadout(ctx context.Context, req catalog.LoadoutRequest) (*catalog.LoadoutResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.CalculateFn != nil {
		return f.CalculateFn(ctx, req)
	}
	return &catalog.LoadoutResult{Stats: catalog.LoadoutStats{TotalDPS: float64(len(req.WeaponIDs))}}, nil
}

// Calls returns every request received so far.
func (f *FakeCalculator) Calls() []catalog.LoadoutRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.LoadoutRequest, len(f.calls))
	copy(out, f.calls)
	return out
}
