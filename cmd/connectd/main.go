package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	connecthttp "github.com/connecthq/connect-core/internal/adapter/http"
	"github.com/connecthq/connect-core/internal/adapter/litellm"
	"github.com/connecthq/connect-core/internal/adapter/mcp"
	connectnats "github.com/connecthq/connect-core/internal/adapter/nats"
	"github.com/connecthq/connect-core/internal/adapter/natskv"
	"github.com/connecthq/connect-core/internal/adapter/otel"
	"github.com/connecthq/connect-core/internal/adapter/postgres"
	"github.com/connecthq/connect-core/internal/adapter/ristretto"
	"github.com/connecthq/connect-core/internal/adapter/tiered"
	"github.com/connecthq/connect-core/internal/adapter/ws"
	"github.com/connecthq/connect-core/internal/config"
	"github.com/connecthq/connect-core/internal/logger"
	"github.com/connecthq/connect-core/internal/resilience"
	"github.com/connecthq/connect-core/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"graph_url", cfg.Graph.URL,
		"nats_url", cfg.NATS.URL,
		"log_level", cfg.Logging.Level,
	)

	ctx := context.Background()

	shutdownTracer := otel.InitTracer(cfg.Logging.Service)
	defer func() { _ = shutdownTracer(context.Background()) }()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL (query log)
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("postgres ready")

	// NATS JetStream (shared L2 cache)
	nc, err := connectnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = nc.Close() }()

	kv, err := nc.EnsureKV(ctx, cfg.Cache.L2Bucket, cfg.Cache.TTLStable)
	if err != nil {
		return fmt.Errorf("nats kv: %w", err)
	}

	// Tiered tool-response cache: in-process ristretto over NATS KV.
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	backend := tiered.New(l1, natskv.New(kv), cfg.Cache.L1Backfill)

	// Graph MCP service
	graph, err := mcp.Connect(ctx, mcp.Config{
		URL:       cfg.Graph.URL,
		Transport: cfg.Graph.Transport,
		Timeout:   cfg.Graph.Timeout,
	})
	if err != nil {
		return fmt.Errorf("graph service: %w", err)
	}
	defer func() { _ = graph.Close() }()
	log.Info("graph service connected", "url", cfg.Graph.URL, "transport", cfg.Graph.Transport)

	// LLM proxy oracles
	llm := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey)
	llm.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	planner := litellm.NewPlanner(llm, cfg.LiteLLM.PlannerModel)
	synthesizer := litellm.NewSynthesizer(llm, cfg.LiteLLM.SynthesisModel)

	// --- Services ---
	hub := ws.NewHub()
	toolCache := service.NewToolCache(backend, service.TTLsFromConfig(cfg.Cache))
	toolCache.SetFetchTimeout(cfg.Engine.ToolTimeout)
	executor := service.NewPlanExecutor(graph, toolCache, hub, metrics, cfg.Engine.ToolTimeout)
	queries := service.NewQueryService(planner, synthesizer, executor,
		postgres.NewStore(pool), hub, cfg.Engine.PlanTimeout, cfg.Engine.ProfileLimit)

	// --- HTTP ---
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(connecthttp.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(3 * time.Minute))
	r.Use(connecthttp.CORS(cfg.Server.CORSOrigin))
	r.Use(connecthttp.SecurityHeaders)
	r.Use(connecthttp.Logger)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))

	connecthttp.MountRoutes(r, connecthttp.NewHandlers(queries, toolCache, executor), hub)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
		}
	}()

	<-done
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
