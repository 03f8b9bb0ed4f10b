// ABOUTME: HTTP server orchestrator wiring store, processor, broker, and routes
// ABOUTME: Manages listener setup, route registration, and graceful shutdown

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/attendhq/convo-gateway/internal/config"
	"github.com/attendhq/convo-gateway/internal/dedupe"
	"github.com/attendhq/convo-gateway/internal/event"
	"github.com/attendhq/convo-gateway/internal/fanout"
	"github.com/attendhq/convo-gateway/internal/store"
	"github.com/attendhq/convo-gateway/internal/web"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 5 * time.Second

// Server coordinates the convo-gateway HTTP components: the webhook
// endpoint, the REST API, the live push surfaces, and the HTML views.
type Server struct {
	config     *config.Config
	store      store.Store
	broker     *fanout.Broker
	processor  *event.Processor
	dedupe     *dedupe.Cache
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a server with all components wired. The store is owned by
// the caller; everything else (broker, processor, dedupe cache) is
// constructed here and closed on Shutdown.
func New(cfg *config.Config, st store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	broker := fanout.NewBroker(logger)
	s := &Server{
		config:    cfg,
		store:     st,
		broker:    broker,
		processor: event.NewProcessor(st, broker, logger),
		dedupe:    dedupe.New(cfg.Webhook.DedupeTTL, cfg.Webhook.DedupeMaxEntries),
		logger:    logger.With("component", "server"),
	}

	s.httpServer = &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: s.routes(),
	}

	return s
}

// routes builds the router for all HTTP surfaces
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	// Webhook ingestion
	r.Post("/webhook", s.handleWebhook)
	r.Post("/webhook/", s.handleWebhook)

	// REST resources
	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", s.handleListConversations)
		r.Get("/{id}", s.handleGetConversation)
		r.Delete("/{id}", s.handleDeleteConversation)
		r.Get("/{id}/events", s.handleConversationEvents)
	})
	r.Route("/messages", func(r chi.Router) {
		r.Get("/", s.handleListMessages)
		r.Post("/", s.handleCreateMessage)
		r.Get("/{id}", s.handleGetMessage)
	})

	// Live viewer WebSocket
	r.Get("/ws/conversations/{id}", s.handleLiveWebSocket)

	// HTML views
	web.NewViews(s.store, s.logger).Register(r)

	// Health
	r.Get("/healthz", s.handleHealth)

	if len(s.config.CORS.AllowedOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: s.config.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		})
		return c.Handler(r)
	}
	return r
}

// requestLogger logs each request at debug level with method, path,
// status, and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// Run serves HTTP until ctx is cancelled or the server fails, then shuts
// down gracefully. Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Server.HTTPAddr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the run context is
// already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server and releases all owned components.
// Live subscriber channels are closed so connected viewers disconnect.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	s.broker.Close()
	s.dedupe.Close()

	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server and its database are alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unreachable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
