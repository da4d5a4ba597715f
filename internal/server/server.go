// Package server exposes the HTTP surface of the relay bot: the Bot API
// webhook, the challenge page and its token submission endpoint, and a
// health check.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/telegram"
	"github.com/edgard/relaybot/internal/verify"
)

var ginModeOnce sync.Once

// Gate advances a user who passed the external challenge.
type Gate interface {
	CompleteChallenge(ctx context.Context, userID int64) (bool, error)
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves webhook updates and the verification endpoints.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	engine   *gin.Engine
	handler  telegram.HandlerFunc
	gate     Gate
	verifier verify.Verifier
	store    Pinger
	page     *template.Template

	inflight sync.WaitGroup
}

// NewServer builds the gin engine and registers all routes.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	handler telegram.HandlerFunc,
	gate Gate,
	verifier verify.Verifier,
	store Pinger,
) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	page, err := template.ParseFS(templates, "templates/verify.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse verify page template: %w", err)
	}

	ginModeOnce.Do(func() { gin.SetMode(gin.ReleaseMode) })
	s := &Server{
		cfg:      cfg,
		logger:   logger.With("component", "http_server"),
		engine:   gin.New(),
		handler:  handler,
		gate:     gate,
		verifier: verifier,
		store:    store,
		page:     page,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.Use(requestID(), recovery(s.logger), requestLogger(s.logger))

	s.engine.POST("/", s.handleUpdate)
	s.engine.GET("/healthz", s.handleHealth)

	verification := s.engine.Group("/")
	verification.Use(cors.New(s.corsConfig()))
	verification.GET("/verify", s.handleVerifyPage)
	verification.POST("/submit_token", s.handleSubmitToken)
	verification.OPTIONS("/submit_token", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", requestIDHeader}
	if len(s.cfg.Server.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.Server.AllowedOrigins
	}
	return cfg
}

// Handler returns the HTTP handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down and waits for in-flight updates.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown failed", "error", err)
	}
	if err := s.Drain(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP server stopped.")
	return nil
}

// Drain waits for in-flight updates or until ctx is done.
func (s *Server) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("Timed out waiting for in-flight updates")
		return fmt.Errorf("drain in-flight updates: %w", ctx.Err())
	}
}
