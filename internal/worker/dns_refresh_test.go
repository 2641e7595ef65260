package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/dnscache"
)

type countingResolver struct {
	lookups atomic.Int32
}

func (r *countingResolver) LookupHost(context.Context, string) ([]string, error) {
	r.lookups.Add(1)
	return []string{"127.0.0.1"}, nil
}

func (r *countingResolver) LookupAddr(context.Context, string) ([]string, error) {
	return []string{"localhost"}, nil
}

func TestDNSRefresher_Run(t *testing.T) {
	t.Parallel()
	upstream := &countingResolver{}
	resolver := &dnscache.Resolver{Resolver: upstream}

	if _, err := resolver.LookupHost(context.Background(), "arc.example.com"); err != nil {
		t.Fatal(err)
	}
	if got := upstream.lookups.Load(); got != 1 {
		t.Fatalf("lookups = %d, want 1", got)
	}

	w := NewDNSRefresher(resolver, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for upstream.lookups.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("cached host was never re-resolved")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestNewDNSRefresher_DefaultInterval(t *testing.T) {
	t.Parallel()
	w := NewDNSRefresher(&dnscache.Resolver{}, 0)
	if w.interval != defaultDNSRefreshInterval {
		t.Errorf("interval = %v, want %v", w.interval, defaultDNSRefreshInterval)
	}
	if w.Name() != "dns_refresh" {
		t.Errorf("Name = %q", w.Name())
	}
}
