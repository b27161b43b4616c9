package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"captionsync/internal/logging"
	"captionsync/internal/pipeline"
	"captionsync/internal/transcriptcache"
)

// DefaultMaxUploadBytes bounds a single uploaded video.
const DefaultMaxUploadBytes int64 = 2 << 30

// Pipeline is the subset of pipeline.Runner the server drives.
type Pipeline interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Result
	CacheStats() transcriptcache.Stats
	ClearCache() pipeline.ClearResult
}

// Options configure a Server.
type Options struct {
	Bind           string
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Server exposes the pipeline and caption stream over HTTP.
type Server struct {
	opts     Options
	pipeline Pipeline
	cache    *transcriptcache.Cache
	logger   *slog.Logger
	router   chi.Router

	listener net.Listener
	server   *http.Server
}

// NewServer builds the router. cache serves transcript lookups and is usually
// the runner's own cache.
func NewServer(p Pipeline, cache *transcriptcache.Cache, opts Options, logger *slog.Logger) (*Server, error) {
	if p == nil || cache == nil {
		return nil, errors.New("api server requires a pipeline and a cache")
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{
		opts:     opts,
		pipeline: p,
		cache:    cache,
		logger:   logging.NewComponentLogger(logger, "api-server"),
	}
	s.router = s.routes()
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(cors.Handler(corsOptions(s.opts.AllowedOrigins)))

	r.Route("/api", func(r chi.Router) {
		r.Post("/transcriptions", s.handleTranscribe)
		r.Get("/cache", s.handleCacheStats)
		r.Delete("/cache", s.handleCacheClear)
		r.Get("/transcripts/{fingerprint}", s.handleTranscript)
		r.Get("/transcripts/{fingerprint}/subtitles", s.handleSubtitles)
	})
	r.Get("/ws/captions/{fingerprint}", s.handleCaptions)
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured bind address and serves until ctx is
// cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.opts.Bind)
	if bind == "" {
		return errors.New("api server bind address is empty")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the bind address is free"))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr is the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func corsOptions(allowed []string) cors.Options {
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	allowCreds := !allowsAnyOrigin(allowed)
	return cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: allowCreds,
		MaxAge:           300,
	}
}

func allowsAnyOrigin(allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, origin := range allowed {
		if origin == "*" {
			return true
		}
	}
	return false
}

// requestLogger logs each request at debug, or at warn for server errors.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []logging.Attr{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Duration("elapsed", time.Since(start)),
			}
			if status >= http.StatusInternalServerError {
				logging.WarnWithContext(logger, "request failed", "api_request_failed", attrs...)
				return
			}
			logger.Debug("request served", logging.Args(attrs...)...)
		})
	}
}
