package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/rs/dnscache"
)

const defaultDNSRefreshInterval = 5 * time.Minute

// DNSRefresher periodically re-resolves the hosts cached by the transport's
// resolver and drops hosts that were not dialled since the last pass.
type DNSRefresher struct {
	resolver *dnscache.Resolver
	interval time.Duration
}

// NewDNSRefresher creates a DNSRefresher. A non-positive interval uses five
// minutes.
func NewDNSRefresher(resolver *dnscache.Resolver, interval time.Duration) *DNSRefresher {
	if interval <= 0 {
		interval = defaultDNSRefreshInterval
	}
	return &DNSRefresher{resolver: resolver, interval: interval}
}

// Name returns the worker identifier.
func (w *DNSRefresher) Name() string { return "dns_refresh" }

// Run refreshes the resolver cache on every tick until ctx is cancelled.
func (w *DNSRefresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			w.resolver.Refresh(true)
			slog.LogAttrs(ctx, slog.LevelDebug, "dns cache refreshed",
				slog.Duration("took", time.Since(start)),
			)
		case <-ctx.Done():
			return nil
		}
	}
}
