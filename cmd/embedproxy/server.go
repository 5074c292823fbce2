// Package main provides the embedding batch proxy server implementation.
package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vectorflow/embedbatch/api/handlers"
	"github.com/vectorflow/embedbatch/batch"
	"github.com/vectorflow/embedbatch/config"
	"github.com/vectorflow/embedbatch/internal/audit"
	cachepkg "github.com/vectorflow/embedbatch/internal/cache"
	"github.com/vectorflow/embedbatch/internal/database"
	"github.com/vectorflow/embedbatch/internal/embedcache"
	"github.com/vectorflow/embedbatch/internal/metrics"
	"github.com/vectorflow/embedbatch/internal/server"
	"github.com/vectorflow/embedbatch/upstream"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server is the embedding batch proxy's main process: it owns the batching
// coordinator and its collaborators, and the two HTTP listeners (API,
// metrics).
type Server struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	coordinator *batch.Coordinator
	recorder    audit.Recorder
	redisCache  *cachepkg.Manager
	dbPool      *database.PoolManager

	healthHandler *handlers.HealthHandler
	embedHandler  *handlers.EmbedHandler
	statsHandler  *handlers.StatsHandler

	metricsCollector *metrics.Collector

	wg sync.WaitGroup
}

// NewServer creates a new server instance. Call SetAuditRecorder before
// Start to wire a database-backed recorder; otherwise flights are not
// audited.
func NewServer(cfg *config.Config, configPath string, logger *zap.Logger) *Server {
	return &Server{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		recorder:   audit.NoOp{},
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start starts every collaborator and both HTTP listeners.
func (s *Server) Start() error {
	s.metricsCollector = metrics.NewCollector("embedproxy", s.logger)

	if err := s.initCollaborators(); err != nil {
		return fmt.Errorf("failed to init collaborators: %w", err)
	}

	if err := s.initHandlers(); err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initCollaborators wires the upstream client, the optional embedding
// cache, and the batching coordinator. The audit recorder is wired earlier,
// via SetAuditRecorder.
func (s *Server) initCollaborators() error {
	upstreamClient := upstream.NewHTTPClient(upstream.Config{
		Endpoint: s.cfg.Upstream.Endpoint,
		APIKey:   s.cfg.Upstream.APIKey,
		Timeout:  s.cfg.Upstream.Timeout,
	})

	opts := []batch.Option{
		batch.WithLogger(s.logger),
		batch.WithModel(s.cfg.Batch.Model),
		batch.WithRecorder(s.recorder),
		batch.WithMetrics(s.metricsCollector),
	}

	if s.cfg.Cache.Enabled {
		mgr, err := cachepkg.NewManager(cachepkg.Config{
			Addr:         s.cfg.Cache.Addr,
			Password:     s.cfg.Cache.Password,
			DB:           s.cfg.Cache.DB,
			PoolSize:     s.cfg.Cache.PoolSize,
			MinIdleConns: s.cfg.Cache.MinIdleConns,
			DefaultTTL:   s.cfg.Cache.TTL,
		}, s.logger)
		if err != nil {
			s.logger.Warn("embedding cache unavailable, continuing without it", zap.Error(err))
		} else {
			s.redisCache = mgr
			opts = append(opts, batch.WithCache(embedcache.New(mgr, s.cfg.Cache.TTL, s.logger)))
		}
	}

	s.coordinator = batch.NewCoordinator(batch.Config{
		MaxBatchSize:   s.cfg.Batch.MaxBatchSize,
		MaxTotalInputs: s.cfg.Batch.MaxTotalInputs,
		MaxWait:        s.cfg.Batch.MaxWait,
	}, upstreamClient, opts...)

	return nil
}

// SetAuditRecorder wires a non-default audit recorder before Start. Called
// by main after opening the database, since opening it is itself fallible
// and the caller decides how to degrade.
func (s *Server) SetAuditRecorder(r audit.Recorder) {
	s.recorder = r
}

// SetDBPool wires the connection pool backing the audit recorder's
// database, so Shutdown can close it after the recorder drains.
func (s *Server) SetDBPool(pool *database.PoolManager) {
	s.dbPool = pool
}

// initHandlers initializes all HTTP handlers.
func (s *Server) initHandlers() error {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.embedHandler = handlers.NewEmbedHandler(s.coordinator, s.logger)
	s.statsHandler = handlers.NewStatsHandler(s.coordinator, s.logger)

	s.logger.Info("Handlers initialized")
	return nil
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer starts the API HTTP listener.
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("/embed", s.embedHandler.HandleEmbed)
	mux.HandleFunc("/stats", s.statsHandler.HandleStats)

	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		MetricsMiddleware(s.metricsCollector),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(context.Background(), s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
		APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, s.logger),
	)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     120 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer starts the dedicated Prometheus metrics listener.
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown blocks until a shutdown signal arrives, then runs Shutdown.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown gracefully tears down every collaborator in dependency order:
// listeners first (stop admitting new work), then the coordinator (drain
// in-flight batches), then its storage backends.
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	if s.coordinator != nil {
		closeCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := s.coordinator.Close(closeCtx); err != nil {
			s.logger.Error("Coordinator shutdown error", zap.Error(err))
		}
	}

	if closer, ok := s.recorder.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("Audit recorder shutdown error", zap.Error(err))
		}
	}

	if s.dbPool != nil {
		if err := s.dbPool.Close(); err != nil {
			s.logger.Error("Database pool shutdown error", zap.Error(err))
		}
	}

	if s.redisCache != nil {
		if err := s.redisCache.Close(); err != nil {
			s.logger.Error("Cache manager shutdown error", zap.Error(err))
		}
	}

	s.wg.Wait()

	s.logger.Info("Graceful shutdown completed")
}
