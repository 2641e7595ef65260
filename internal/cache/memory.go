package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"

	catalog "github.com/eugener/arcscout/internal"
)

// Memory is an unbounded in-memory cache backed by otter. Entries never
// expire and are never evicted; its lifetime is one session.
type Memory struct {
	cache *otter.Cache[string, Entry]
	now   func() time.Time
}

// NewMemory creates an empty session cache. If now is nil, time.Now is used.
func NewMemory(now func() time.Time) (*Memory, error) {
	if now == nil {
		now = time.Now
	}
	// No MaximumSize and no ExpiryCalculator: unbounded, no expiry.
	c, err := otter.New[string, Entry](&otter.Options[string, Entry]{})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Memory{cache: c, now: now}, nil
}

// Get retrieves the entry for sig if present.
func (m *Memory) Get(_ context.Context, sig catalog.Signature) (Entry, bool) {
	return m.cache.GetIfPresent(sig.String())
}

// Put stores payload for sig, overwriting any previous entry.
func (m *Memory) Put(_ context.Context, sig catalog.Signature, payload json.RawMessage) {
	m.cache.Set(sig.String(), Entry{
		Signature:  sig,
		Payload:    payload,
		CapturedAt: m.now(),
	})
}

// Len returns the approximate number of cached signatures.
func (m *Memory) Len() int {
	return m.cache.EstimatedSize()
}
