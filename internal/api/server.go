// Package api serves the REST and HTML surface of the digest service.
package api

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/anatolykoptev/go_digest/internal/engine"
)

// Digester is the engine surface the handlers need.
type Digester interface {
	SummarizeChannel(ctx context.Context, channelID string, hours int) (engine.ChannelDigest, error)
	SummarizeURL(ctx context.Context, locator string) (engine.VideoSummary, error)
}

// Config holds server configuration.
type Config struct {
	Port         string
	StaticDir    string        // overrides the embedded templates/ and static/ when set
	WriteTimeout time.Duration // a channel digest makes several LLM calls per video
}

// DefaultConfig returns the listener defaults.
func DefaultConfig() Config {
	return Config{
		Port:         "8000",
		WriteTimeout: 10 * time.Minute,
	}
}

// Server is the HTTP front end.
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	digester   Digester
	pages      *template.Template
	static     fs.FS
}

// NewServer builds the server and its routes. Templates are parsed eagerly so
// a broken STATIC_DIR fails at startup.
func NewServer(cfg Config, d Digester) (*Server, error) {
	assets, err := assetFS(cfg.StaticDir)
	if err != nil {
		return nil, err
	}
	pages, err := parsePages(assets)
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}

	s := &Server{
		router:   http.NewServeMux(),
		digester: d,
		pages:    pages,
		static:   static,
	}
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           recoverMiddleware(logMiddleware(s.router)),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /{$}", s.handleIndex)
	s.router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(s.static)))

	s.router.HandleFunc("GET /api/summarize-videos/", s.handleSummarizeVideosJSON)
	s.router.HandleFunc("GET /summarize-videos/", s.handleSummarizeVideosHTML)
	s.router.HandleFunc("GET /api/summarize-video/", s.handleSummarizeVideoJSON)

	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /metrics", s.handleMetrics)
}

// Handler exposes the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func assetFS(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "assets")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("STATIC_DIR: %w", err)
	}
	return os.DirFS(dir), nil
}
