package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/dnscache"

	catalog "github.com/eugener/arcscout/internal"
	"github.com/eugener/arcscout/internal/cache"
	"github.com/eugener/arcscout/internal/circuitbreaker"
	"github.com/eugener/arcscout/internal/client"
	"github.com/eugener/arcscout/internal/config"
	"github.com/eugener/arcscout/internal/loadout"
	"github.com/eugener/arcscout/internal/query"
	"github.com/eugener/arcscout/internal/telemetry"
	"github.com/eugener/arcscout/internal/worker"
)

// run serves the session until the REPL exits, a worker fails, or ctx is
// cancelled.
func run(ctx context.Context, configPath string, in io.Reader, out io.Writer) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	// Telemetry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	sessionID := uuid.Must(uuid.NewV7()).String()
	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(ctx, telemetry.TracingOptions{
			Endpoint:   cfg.Telemetry.Tracing.Endpoint,
			SampleRate: cfg.Telemetry.Tracing.SampleRate,
			Version:    version,
			SessionID:  sessionID,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("tracing shutdown", "error", err)
			}
		}()
	}

	// Transport
	var resolver *dnscache.Resolver
	if cfg.HTTP.DNSCache {
		resolver = &dnscache.Resolver{}
	}
	httpClient := &http.Client{Transport: client.NewTransport(resolver, client.TransportOptions{
		MaxIdleConnsPerHost: cfg.HTTP.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.HTTP.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.HTTP.TLSHandshakeTimeout,
	})}

	// Session cache and request client
	mem, err := cache.NewMemory(nil)
	if err != nil {
		return err
	}
	var breakers *circuitbreaker.Registry
	if cfg.Breaker.Enabled {
		breakers = circuitbreaker.NewRegistry(circuitbreaker.Config{
			ErrorThreshold: cfg.Breaker.ErrorThreshold,
			MinSamples:     cfg.Breaker.MinSamples,
			WindowSeconds:  cfg.Breaker.WindowSeconds,
			OpenTimeout:    cfg.Breaker.OpenTimeout,
		})
	}
	api, err := client.New(cfg.API.BaseURL, client.Options{
		HTTPClient: httpClient,
		Cache:      mem,
		Breakers:   breakers,
		Metrics:    metrics,
		Logger:     logger,
		SessionID:  sessionID,
		UserAgent:  cfg.API.UserAgent + "/" + version,
	})
	if err != nil {
		return err
	}

	slog.Info("starting arcscout",
		"version", version,
		"api", cfg.API.BaseURL,
		"session", api.SessionID(),
		"metrics_addr", metricsAddr(cfg),
	)

	// Background workers
	var workers []worker.Worker
	if cfg.Telemetry.Metrics.Enabled {
		workers = append(workers, worker.NewMetricsServer(cfg.Telemetry.Metrics.Addr, reg, breakers))
	}
	if resolver != nil {
		workers = append(workers, worker.NewDNSRefresher(resolver, cfg.HTTP.DNSRefreshInterval))
	}
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	workerErr := make(chan error, 1)
	go func() { workerErr <- worker.NewRunner(workers...).Run(workerCtx) }()

	// Views
	s := newSession(api, cfg.API.PageSize, logger, metrics, out)
	defer s.close()

	replErr := make(chan error, 1)
	go func() { replErr <- s.repl(ctx, in) }()

	select {
	case err := <-replErr:
		cancelWorkers()
		if werr := <-workerErr; werr != nil {
			slog.Warn("worker exited with error", "error", werr)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case err := <-workerErr:
		if err != nil {
			return err
		}
		// All workers finished cleanly; keep serving the REPL.
		select {
		case err := <-replErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		case <-ctx.Done():
			slog.Info("shutting down", "cause", context.Cause(ctx))
		}
	case <-ctx.Done():
		slog.Info("shutting down", "cause", context.Cause(ctx))
		if werr := <-workerErr; werr != nil {
			slog.Warn("worker exited with error", "error", werr)
		}
	}

	slog.Info("arcscout stopped")
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func metricsAddr(cfg *config.Config) string {
	if !cfg.Telemetry.Metrics.Enabled {
		return ""
	}
	return cfg.Telemetry.Metrics.Addr
}

// session bundles the views driven by the REPL.
type session struct {
	api     *client.Client
	items   *query.Items
	quests  *query.Quests
	loadout *loadout.Controller
	options map[string]*query.OptionList
	out     io.Writer
	view    string // "items" or "quests"
}

func newSession(api *client.Client, pageSize int, logger *slog.Logger, m *telemetry.Metrics, out io.Writer) *session {
	return &session{
		api:     api,
		items:   query.NewItems(query.SourceFunc[catalog.Item](api.SearchItems), pageSize, logger, m),
		quests:  query.NewQuests(query.SourceFunc[catalog.Quest](api.SearchQuests), pageSize, logger, m),
		loadout: loadout.NewController(api, logger, m),
		options: map[string]*query.OptionList{
			catalog.FieldCategory: query.NewOptionList("categories", api.Categories, logger),
			catalog.FieldRarity:   query.NewOptionList("rarities", api.Rarities, logger),
			catalog.FieldGiver:    query.NewOptionList("givers", api.QuestGivers, logger),
			catalog.FieldType:     query.NewOptionList("quest types", api.QuestTypes, logger),
			catalog.FieldLocation: query.NewOptionList("quest locations", api.QuestLocations, logger),
		},
		out:  out,
		view: "items",
	}
}

func (s *session) close() {
	s.items.Close()
	s.quests.Close()
	s.loadout.Close()
}
