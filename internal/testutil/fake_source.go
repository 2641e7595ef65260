// Package testutil provides configurable test fakes for arcscout interfaces.
package testutil

import (
	"context"
	"sync"

	catalog "github.com/eugener/arcscout/internal"
)

// FakeSource is a configurable list source for testing. It records the
// params of every call.
type FakeSource[T any] struct {
	FetchFn func(ctx context.Context, p catalog.ListParams) (catalog.Page[T], error)

	mu    sync.Mutex
	calls []catalog.ListParams
}

// Fetch records p and delegates to FetchFn or returns an empty page.
func (f *FakeSource[T]) Fetch(ctx context.Context, p catalog.ListParams) (catalog.Page[T], error) {
	f.mu.Lock()
	f.calls = append(f.calls, p.Clone())
	f.mu.Unlock()
	if f.FetchFn != nil {
		return f.FetchFn(ctx, p)
	}
	return catalog.Page[T]{Items: []T{}}, nil
}

// Calls returns the params of every Fetch so far, in call order.
func (f *FakeSource[T]) Calls() []catalog.ListParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.ListParams, len(f.calls))
	copy(out, f.calls)
	return out
}

// LastCall returns the params of the most recent Fetch.
func (f *FakeSource[T]) LastCall() (catalog.ListParams, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return catalog.ListParams{}, false
	}
	return f.calls[len(f.calls)-1], true
}
