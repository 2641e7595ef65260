// Package cache provides the session-scoped response cache used for offline
// fallback.
package cache

import (
	"context"
	"encoding/json"
	"time"

	catalog "github.com/eugener/arcscout/internal"
)

// Entry is the last successful payload captured for a signature.
type Entry struct {
	Signature  catalog.Signature
	Payload    json.RawMessage
	CapturedAt time.Time
}

// Cache is the interface for response caching.
type Cache interface {
	// Get returns the entry for sig. A miss is reported by ok=false, not an error.
	Get(ctx context.Context, sig catalog.Signature) (e Entry, ok bool)
	// Put unconditionally replaces the entry for sig and stamps it with the
	// current time.
	Put(ctx context.Context, sig catalog.Signature, payload json.RawMessage)
}
