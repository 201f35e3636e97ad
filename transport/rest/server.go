package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rocketscienceinc/crosszero-backend/internal/transport/origin"
)

const shutdownTimeout = 5 * time.Second

// pages maps client routes to the html files the static bundle ships.
var pages = map[string]string{
	"/":         "index.html",
	"/local":    "local.html",
	"/online":   "online.html",
	"/settings": "settings.html",
}

type RouterOptions struct {
	AllowedOrigins origin.AllowList
	StaticDir      string
	WebSocket      http.Handler
}

// NewRouter wires every HTTP route of the server.
func NewRouter(logger *slog.Logger, opts RouterOptions) http.Handler {
	h := NewHandlers()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, requestOrigin string) bool {
			return opts.AllowedOrigins.Allows(requestOrigin)
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/ping", h.PingHandler)
	router.Get("/api/health", h.HealthHandler)
	router.Handle("/metrics", promhttp.Handler())

	if opts.WebSocket != nil {
		router.Handle("/ws", opts.WebSocket)
	}

	if opts.StaticDir != "" {
		mountStatic(logger, router, opts.StaticDir)
	}

	return router
}

func mountStatic(logger *slog.Logger, router chi.Router, dir string) {
	log := logger.With("method", "mountStatic")

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Warn("static directory not found, skipping", "dir", dir)
		return
	}

	for route, page := range pages {
		path := filepath.Join(dir, page)
		router.Get(route, func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, path)
		})
	}

	router.Handle("/*", http.FileServer(http.Dir(dir)))
}

// requestLogger logs one line per request. Upgraded websocket requests are logged when they end.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With("component", "http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				log.Debug("request served",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration", time.Since(start),
					"requestID", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
}

func New(logger *slog.Logger, port string, handler http.Handler) *Server {
	return &Server{
		logger: logger.With("component", "http"),
		httpServer: &http.Server{
			Addr:         ":" + port,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (that *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := that.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := that.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	that.logger.Info("HTTP server stopped")

	return nil
}
