package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnsphere/internal/completion"
	"learnsphere/internal/config"
	"learnsphere/internal/content"
	"learnsphere/internal/core"
	"learnsphere/internal/metrics"
	"learnsphere/internal/tts"

	"github.com/gin-gonic/gin"
)

// Server application server
type Server struct {
	port    string
	ginMode string

	httpClient *http.Client
	router     *gin.Engine

	completer      core.Completer
	models         []string
	generator      *content.Generator
	audio          *content.AudioStore
	metricsService *metrics.MetricsService

	config config.ServerConfig

	rateLimiter *rateLimiter

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// Option overrides a collaborator built by NewServer.
type Option func(*options)

type options struct {
	completer   core.Completer
	synthesizer core.SpeechSynthesizer
}

// WithCompleter replaces the OpenRouter completion client.
func WithCompleter(c core.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithSynthesizer replaces the Google Translate speech synthesizer.
func WithSynthesizer(s core.SpeechSynthesizer) Option {
	return func(o *options) { o.synthesizer = s }
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig, opts ...Option) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required in ServerConfig")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is required in ServerConfig")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := createOptimizedHTTPClient(cfg.HTTPClientSettings)

	metricsService := metrics.NewMetricsService(metrics.MetricsConfig{
		SaveInterval: core.MinSaveInterval,
		HistorySize:  core.HistoryBufferSize,
		Storage:      cfg.Storage,
		Logger:       cfg.Logger,
	})

	if err := metricsService.LoadStats(); err != nil {
		cfg.Logger.Warn("Failed to load historical stats: %v", err)
	}

	models := cfg.Models
	completer := o.completer
	if completer == nil {
		client := completion.NewClient(cfg.CompletionConfig(),
			completion.WithHTTPClient(httpClient),
			completion.WithLogger(cfg.Logger),
			completion.WithMetrics(metricsService),
		)
		models = client.Models()
		completer = client
	}

	synthesizer := o.synthesizer
	if synthesizer == nil {
		synthesizer = tts.NewGoogleTranslate(tts.Config{}, tts.WithLogger(cfg.Logger))
	}

	audio := content.NewAudioStore(cfg.AudioDir)
	generator := content.NewGenerator(content.Config{
		Completer:   completer,
		Synthesizer: synthesizer,
		Audio:       audio,
		Logger:      cfg.Logger,
	})

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	server := &Server{
		port:           cfg.Port,
		ginMode:        cfg.GinMode,
		httpClient:     httpClient,
		completer:      completer,
		models:         models,
		generator:      generator,
		audio:          audio,
		metricsService: metricsService,
		config:         cfg,
		rateLimiter:    newRateLimiter(shutdownCtx, cfg.RateLimit),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	server.setupRoutes()

	return server, nil
}

func createOptimizedHTTPClient(settings config.HTTPClientSettings) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          settings.MaxIdleConns,
		MaxIdleConnsPerHost:   settings.MaxIdleConnsPerHost,
		MaxConnsPerHost:       settings.MaxConnsPerHost,
		IdleConnTimeout:       settings.IdleConnTimeout,
		TLSHandshakeTimeout:   settings.TLSHandshakeTimeout,
		ExpectContinueTimeout: core.HTTPExpectContinueTimeout,
		ForceAttemptHTTP2:     true,
	}

	// per-attempt deadlines come from the completion client's context
	return &http.Client{Transport: transport}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run runs the server
func (s *Server) Run() error {
	s.setupGracefulShutdown()

	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// a generation walks every model with backoff and may also synthesize speech
		WriteTimeout: 10 * time.Minute,
	}

	go func() {
		<-s.shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.config.Logger.Error("Server shutdown error: %v", err)
		}
	}()

	s.config.Logger.Info("Server starting on port %s", s.port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) setupGracefulShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			s.config.Logger.Info("Shutdown signal received, shutting down gracefully...")
			s.shutdownCancel()
		case <-s.shutdownCtx.Done():
		}
		signal.Stop(quit)
	}()
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"configured": s.config.APIKey != "",
		"models":     s.models,
	})
}

func (s *Server) getStatsData(c *gin.Context) {
	stats := s.metricsService.GetRequestStats()
	c.JSON(http.StatusOK, metrics.BuildSummary(stats, s.metricsService.GetQPS(), time.Now()))
}

// Close closes the server
func (s *Server) Close() error {
	if s.shutdownCancel != nil {
		s.shutdownCancel()
	}

	var closeErr error

	if s.metricsService != nil {
		if err := s.metricsService.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close metrics service: %w", err))
		}
	}

	if s.httpClient != nil {
		s.httpClient.CloseIdleConnections()
	}

	return closeErr
}
