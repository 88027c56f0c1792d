// Package main runs the flash loan ledger service: the atomic account
// runtime with the lending pool, exchange, coordinator and arbitrage
// programs exposed over an HTTP JSON API, plus a WebSocket event feed
// and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chowpashing/flash-loan-project/internal/arbitrage"
	"github.com/chowpashing/flash-loan-project/internal/config"
	"github.com/chowpashing/flash-loan-project/internal/dex"
	"github.com/chowpashing/flash-loan-project/internal/flashloan"
	"github.com/chowpashing/flash-loan-project/internal/gateway"
	"github.com/chowpashing/flash-loan-project/internal/ledger"
	"github.com/chowpashing/flash-loan-project/internal/observability"
	"github.com/chowpashing/flash-loan-project/internal/pool"
	"github.com/chowpashing/flash-loan-project/internal/storage"
	chstore "github.com/chowpashing/flash-loan-project/internal/storage/clickhouse"
	"github.com/chowpashing/flash-loan-project/internal/storage/memory"
	"github.com/chowpashing/flash-loan-project/internal/storage/migrations"
	pgstore "github.com/chowpashing/flash-loan-project/internal/storage/postgres"
	"github.com/chowpashing/flash-loan-project/internal/stream"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	listenAddr := flag.String("listen-addr", "", "API listen address (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "Metrics listen address (overrides config)")
	backend := flag.String("storage-backend", "", "Audit store backend: memory, postgres or clickhouse (overrides config)")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Audit stores
	eventStore, txStore, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()
	logger.Printf("Using %s audit storage", cfg.Storage.Backend)

	// Ledger and programs
	l := ledger.New()
	poolProg := pool.New(l)
	dexProg := dex.New(l, dex.WithFeeBps(uint16(cfg.Dex.FeeBps)))
	coordinator := flashloan.New(l)
	agent := arbitrage.New(l, txStore)

	// Sinks: audit recorder, metrics, optional websocket feed
	l.RegisterSink(storage.NewEventRecorder(eventStore, logger))
	l.RegisterSink(observability.NewEventSink(nil))

	var feed *stream.Feed
	if cfg.Feed.Enabled {
		feedCfg := stream.DefaultFeedConfig()
		feedCfg.SendBuffer = cfg.Feed.SendBuffer
		feed = stream.NewFeed(&feedCfg, logger)
		l.RegisterSink(feed)
	}

	// API server
	gw := gateway.New(l, poolProg, dexProg, coordinator, agent, logger)
	apiMux := http.NewServeMux()
	apiMux.Handle("/", gw.Handler())
	if feed != nil {
		apiMux.HandleFunc("/ws", feed.HandleWS)
	}
	apiServer := &http.Server{Addr: cfg.Server.ListenAddr, Handler: apiMux}

	// Metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", observability.Handler())
	metricsMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	metricsServer := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: metricsMux}

	errCh := make(chan error, 2)
	go func() {
		logger.Printf("API listening on %s", cfg.Server.ListenAddr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Printf("Metrics listening on %s", cfg.Server.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, shutting down...", sig)
	case err := <-errCh:
		logger.Printf("Server error: %v, shutting down...", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("API shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Metrics shutdown: %v", err)
	}
	if feed != nil {
		if err := feed.Close(); err != nil {
			logger.Printf("Feed close: %v", err)
		}
	}

	logger.Println("Shutdown complete")
}

// createStores builds the audit stores for the configured backend.
// The returned cleanup closes whatever connections were opened.
func createStores(ctx context.Context, cfg *config.Config) (storage.LedgerEventStore, storage.TransactionRecordStore, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		return memory.NewLedgerEventStore(), memory.NewTransactionRecordStore(), func() {}, nil

	case "postgres":
		pgPool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pgPool); err != nil {
			pgPool.Close()
			return nil, nil, nil, err
		}
		return pgstore.NewLedgerEventStore(pgPool),
			pgstore.NewTransactionRecordStore(pgPool),
			func() { pgPool.Close() }, nil

	case "clickhouse":
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		// ClickHouse holds the event timeseries; round records stay in memory.
		return chstore.NewLedgerEventStore(conn),
			memory.NewTransactionRecordStore(),
			func() { conn.Close() }, nil

	default:
		return nil, nil, nil, errors.New("unknown storage backend " + cfg.Storage.Backend)
	}
}
