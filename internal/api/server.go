package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"kaiju-arena/internal/combat"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	router    *chi.Mux
	wsHub     *WebSocketHub
	limiter   *RequestLimiter
	snapshots func() *combat.Snapshot
	interval  time.Duration
	log       zerolog.Logger

	httpServer *http.Server
	cancel     context.CancelFunc
}

// ServerOptions tunes a Server beyond the router dependencies.
type ServerOptions struct {
	// StateInterval is how often the arena snapshot is pushed over /ws.
	StateInterval time.Duration
	Logger        zerolog.Logger
}

// NewServer creates a new API server.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// Tests can construct the server and use Router() without goroutines or
// network listeners.
func NewServer(cfg RouterConfig, opts ServerOptions) *Server {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRequestLimiter(cfg.rateLimits())
	}
	origins := cfg.CORSOrigins
	if origins == nil {
		origins = DefaultCORSOrigins
	}

	s := &Server{
		wsHub:   NewWebSocketHub(NewOriginChecker(origins), cfg.rateLimits().TrustProxy, opts.Logger),
		limiter: cfg.Limiter,
		log:     opts.Logger.With().Str("component", "api").Logger(),
	}
	if cfg.Arena != nil {
		s.snapshots = cfg.Arena.Snapshot
	}
	s.router = NewRouter(cfg)
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	interval := opts.StateInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.interval = interval
	return s
}

// Hub returns the WebSocket hub so the scheduler callbacks can publish to it.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Start launches the hub workers and serves HTTP on addr until Shutdown.
// It returns nil after a graceful shutdown.
func (s *Server) Start(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.wsHub.Run(ctx)
	go s.limiter.Run(ctx)
	if s.snapshots != nil {
		s.wsHub.StartBroadcastLoop(ctx, s.snapshots, s.interval)
	}

	s.httpServer.Addr = addr
	s.log.Info().Str("addr", addr).Msg("api server starting")

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Router returns the HTTP handler for use with httptest.
//
//	server := api.NewServer(cfg, api.ServerOptions{})
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/state")
func (s *Server) Router() http.Handler {
	return s.router
}

// Shutdown stops accepting requests and the background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.httpServer.Shutdown(ctx)
}
