package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/marketsim/internal/broker"
	"github.com/efreitasn/marketsim/internal/bus"
	"github.com/efreitasn/marketsim/internal/client"
	"github.com/efreitasn/marketsim/internal/config"
	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/exchange"
	"github.com/efreitasn/marketsim/internal/handler"
	"github.com/efreitasn/marketsim/internal/logger"
)

func main() {
	role := flag.String("role", "all", "Process role: exchange, broker, client, or all")
	id := flag.String("id", "1", "Identity for broker/client roles")
	pairedBroker := flag.String("broker", "1", "Broker a client submits to (client role)")
	pretty := flag.Bool("pretty", false, "Console log output instead of JSON")
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running exchange")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	switch *role {
	case "exchange", "broker", "client", "all":
	default:
		slog.Error("invalid -role, must be one of: exchange, broker, client, all",
			slog.String("role", *role))
		os.Exit(1)
	}

	// The in-memory bus lives inside one process: split roles can't share it.
	if cfg.Transport == config.TransportMemory && *role != "all" {
		slog.Error("TRANSPORT=memory requires -role all")
		os.Exit(1)
	}

	log, flush := logger.New(cfg.LogLevel, !*pretty)
	defer func() { _ = flush() }()
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := newBus(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect message bus", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = b.Close() }()

	// The exchange role owns an HTTP server that must be shut down after the
	// signal; the other roles are pure bus loops on ctx.
	var srv *http.Server

	switch *role {
	case "exchange":
		srv = startExchange(ctx, cfg, b, log)
	case "broker":
		svc := broker.NewService(*id, b, log, cfg.TradeTimeout)
		go svc.Run(ctx)
	case "client":
		svc := client.NewService(*id, *pairedBroker, b, log, domain.CatalogSymbols(),
			cfg.OrderDelayMin, cfg.OrderDelayMax, cfg.OrderIntervalMin, cfg.OrderIntervalMax)
		go svc.Run(ctx)
	case "all":
		srv = startExchange(ctx, cfg, b, log)
		for _, brokerID := range []string{"1", "2"} {
			svc := broker.NewService(brokerID, b, log, cfg.TradeTimeout)
			go svc.Run(ctx)
		}
		// Client i submits to broker i.
		for _, clientID := range []string{"1", "2"} {
			svc := client.NewService(clientID, clientID, b, log, domain.CatalogSymbols(),
				cfg.OrderDelayMin, cfg.OrderDelayMax, cfg.OrderIntervalMin, cfg.OrderIntervalMax)
			go svc.Run(ctx)
		}
	}

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop the HTTP server first, then cancel the
	// context to drain the bus loops.
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.String("error", err.Error()))
		}
	}
	cancel()

	log.Info("stopped")
}

// newBus connects the configured transport.
func newBus(ctx context.Context, cfg *config.Config, log *slog.Logger) (bus.Bus, error) {
	if cfg.Transport == config.TransportMemory {
		return bus.NewMemBus(), nil
	}
	return bus.NewRedisBus(ctx, cfg.RedisAddr, log)
}

// startExchange seeds the registry, starts the engine loops, and serves the
// read-only market API. It returns the HTTP server for shutdown.
func startExchange(ctx context.Context, cfg *config.Config, b bus.Bus, log *slog.Logger) *http.Server {
	engine := exchange.New(exchange.NewRegistry(domain.Catalog()), b, log, cfg.TickInterval)
	go engine.Run(ctx)

	router := handler.NewRouter(engine.Registry(), log)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info("market API starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	return srv
}
