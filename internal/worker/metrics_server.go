package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eugener/arcscout/internal/circuitbreaker"
)

const metricsShutdownTimeout = 5 * time.Second

// MetricsServer exposes /metrics and /healthz on a local address.
type MetricsServer struct {
	srv *http.Server
}

// NewMetricsServer creates a MetricsServer. breakers may be nil.
func NewMetricsServer(addr string, g prometheus.Gatherer, breakers *circuitbreaker.Registry) *MetricsServer {
	return &MetricsServer{srv: &http.Server{
		Addr:              addr,
		Handler:           MetricsHandler(g, breakers),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// MetricsHandler returns the router served by MetricsServer.
func MetricsHandler(g prometheus.Gatherer, breakers *circuitbreaker.Registry) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		body := struct {
			Status   string            `json:"status"`
			Breakers map[string]string `json:"breakers,omitempty"`
		}{Status: "ok"}
		if breakers != nil {
			states := breakers.States()
			body.Breakers = make(map[string]string, len(states))
			for ep, s := range states {
				body.Breakers[ep] = s.String()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	return r
}

// Name returns the worker identifier.
func (m *MetricsServer) Name() string { return "metrics_server" }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (m *MetricsServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.srv.Addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", m.srv.Addr, err)
	}
	slog.Info("metrics listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	return m.srv.Shutdown(shutdownCtx)
}
