package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/peer-health-adapter/config"
	"github.com/angeloszaimis/peer-health-adapter/internal/handler"
	"github.com/angeloszaimis/peer-health-adapter/internal/httpserver"
	"github.com/angeloszaimis/peer-health-adapter/internal/metrics"
	"github.com/angeloszaimis/peer-health-adapter/internal/peercache"
	"github.com/angeloszaimis/peer-health-adapter/internal/probe"
	"github.com/angeloszaimis/peer-health-adapter/pkg/logger"
)

const (
	metricsBufferSize = 1000

	// writeTimeoutMargin is added on top of the probe timeout so a lookup
	// that waits out a hanging peer still gets its answer written.
	writeTimeoutMargin = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, true, cfg.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(metricsBufferSize, log)
	collector.Start(ctx)

	cache, err := newPeerCache(cfg, log, collector.EventChannel())
	if err != nil {
		log.Error("Failed to initialize peer cache", slog.Any("err", err))
		os.Exit(1)
	}

	metricHandler := handler.NewMetricHandler(log, cache, collector)

	srv, err := newServer(cfg, setupRouter(metricHandler, collector))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	if err := srv.Listen(); err != nil {
		log.Error("Failed to listen", slog.String("addr", cfg.Addr()), slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Peer health adapter listening",
		slog.String("addr", srv.Addr()),
		slog.String("probe_method", cfg.ProbeMethod),
		slog.Duration("probe_timeout", cfg.ProbeTimeout()),
		slog.Duration("cache_ttl", cfg.CacheTTL()),
		slog.Bool("verify_tls", cfg.VerifyTLS),
		slog.String("accept_status_regex", cfg.AcceptStatusRegex))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error serving metrics", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// newPeerCache builds the prober and the cache for both configured peers.
// Unconfigured peers are allowed and always report down.
func newPeerCache(cfg *config.Config, log *slog.Logger, events chan<- metrics.MetricEvent) (*peercache.Cache, error) {
	probeCfg, err := cfg.ProbeConfig()
	if err != nil {
		return nil, err
	}

	peers := cfg.Peers()
	for key, target := range peers {
		if target == "" {
			log.Warn("Peer health URL not configured, peer will be reported down",
				slog.String("peer", key))
		}
	}

	opts := []peercache.Option{peercache.WithLogger(log)}
	if events != nil {
		opts = append(opts, peercache.WithEvents(events))
	}

	return peercache.New(probe.New(probeCfg), peers, cfg.CacheTTL(), opts...), nil
}

// newServer builds the HTTP server with a write timeout that outlasts one
// probe of a hanging peer.
func newServer(cfg *config.Config, router http.Handler) (*httpserver.Server, error) {
	return httpserver.New(cfg.Addr(), router,
		httpserver.WithWriteTimeout(serverWriteTimeout(cfg.ProbeTimeout())))
}

func serverWriteTimeout(probeTimeout time.Duration) time.Duration {
	return max(httpserver.DefaultWriteTimeout, probeTimeout+writeTimeoutMargin)
}
