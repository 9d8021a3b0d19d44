package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hykang/chorus/api/handlers"
	"github.com/hykang/chorus/catalog"
	"github.com/hykang/chorus/collaboration"
	"github.com/hykang/chorus/config"
	"github.com/hykang/chorus/conversation"
	"github.com/hykang/chorus/internal/metrics"
	"github.com/hykang/chorus/provider"
	"github.com/hykang/chorus/usage"
)

// Server assembles the engine: store, tracker, catalog, capability
// registry, orchestrator, ledger and the HTTP surface on top of them.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	store     conversation.Store
	registry  *provider.Registry
	collector *metrics.Collector
	ledger    *usage.Ledger

	httpServer *http.Server
	stopLimit  context.CancelFunc
}

// NewServer builds the full dependency graph from config. The caller
// registers capabilities on Registry() before Run.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := usage.Open(cfg.Usage.Path)
	if err != nil {
		return nil, err
	}
	ledger, err := usage.NewLedger(db, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		registry:  provider.NewRegistry(logger),
		collector: metrics.NewCollector("chorus", prometheus.DefaultRegisterer),
		ledger:    ledger,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s, nil
}

// Registry exposes the capability registry for provider wiring.
func (s *Server) Registry() *provider.Registry {
	return s.registry
}

func newStore(cfg *config.Config, logger *zap.Logger) (conversation.Store, error) {
	if !cfg.Redis.Enabled {
		logger.Info("using in-memory conversation store")
		return conversation.NewMemoryStore(), nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("parse redis addr %q: %w", cfg.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse redis port %q: %w", portStr, err)
	}

	store, err := conversation.NewRedisStore(conversation.RedisConfig{
		Host:     host,
		Port:     port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("using redis conversation store", zap.String("addr", cfg.Redis.Addr))
	return store, nil
}

func (s *Server) routes() http.Handler {
	cat := catalog.DefaultLibrary()
	tracker := conversation.NewTracker(s.store, s.logger)
	orchestrator := collaboration.NewOrchestrator(s.logger, s.collector)

	multiSend := handlers.NewMultiSendHandler(handlers.MultiSendConfig{
		Store:              s.store,
		Tracker:            tracker,
		Catalog:            cat,
		Providers:          s.registry,
		Orchestrator:       orchestrator,
		Ledger:             s.ledger,
		Logger:             s.logger,
		MaxContextMessages: s.cfg.Orchestration.MaxContextMessages,
		AgentTimeout:       s.cfg.Orchestration.AgentTimeout,
	})
	agents := handlers.NewAgentsHandler(cat, s.logger)
	conversations := handlers.NewConversationsHandler(s.store, s.logger)
	usageHandler := handlers.NewUsageHandler(s.ledger, s.logger)
	health := handlers.NewHealthHandler(s.store, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/multi-send", multiSend.HandleMultiSend)
	mux.HandleFunc("GET /v1/agents", agents.HandleList)
	mux.HandleFunc("POST /v1/conversations", conversations.HandleCreate)
	mux.HandleFunc("GET /v1/conversations/{id}", conversations.HandleGet)
	mux.HandleFunc("DELETE /v1/conversations/{id}", conversations.HandleDelete)
	mux.HandleFunc("GET /v1/usage", usageHandler.HandleSummary)
	mux.HandleFunc("GET /healthz", health.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	skipAuth := []string{"/healthz", "/metrics"}

	limitCtx, cancel := context.WithCancel(context.Background())
	s.stopLimit = cancel

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger),
		OTelTracing(),
		MetricsMiddleware(s.collector),
		JWTAuth(s.cfg.Auth, skipAuth, s.logger),
		RateLimiter(limitCtx, s.cfg.RateLimit.RPS, s.cfg.RateLimit.Burst, s.logger),
	)
}

// Run serves HTTP until ctx is cancelled, then drains connections
// within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		err := s.httpServer.Shutdown(shutdownCtx)
		if s.stopLimit != nil {
			s.stopLimit()
		}
		if closeErr := s.store.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		return err
	})

	return g.Wait()
}
