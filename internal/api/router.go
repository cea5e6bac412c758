package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"kaiju-arena/internal/combat"
	"kaiju-arena/internal/eventlog"
)

// ArenaInterface is the part of the combat scheduler the API uses.
// Keep this minimal so tests can mock it without running rounds.
type ArenaInterface interface {
	// Snapshot returns the latest immutable arena state
	Snapshot() *combat.Snapshot
	// Spawn registers a combatant, optionally equipping a weapon profile
	Spawn(spec combat.Spec, profile *combat.AttackProfile) (combat.CombatantSnapshot, error)
	// Remove tears down a combatant
	Remove(id string) error
	// Heal restores health to a living combatant
	Heal(id string, amount float64) (float64, error)
	// Revive resets a combatant to full health
	Revive(id string) error
	// Equip replaces a combatant's attack profile
	Equip(id string, profile combat.AttackProfile) error
}

// FrameRenderer draws arena snapshots.
type FrameRenderer interface {
	EncodePNG(w io.Writer, snap *combat.Snapshot) error
}

// EventSource exposes the recent combat event history.
type EventSource interface {
	Recent(n int) []eventlog.Record
	Stats() eventlog.Stats
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Arena: mockArena,
//	    RateLimits: &api.RateLimits{
//	        Reads:  api.Limit{Rate: 1000, Burst: 1000}, // High limits for tests
//	        Writes: api.Limit{Rate: 1000, Burst: 1000},
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Arena is the combat scheduler (required)
	Arena ArenaInterface

	// Renderer serves /api/arena.png; the route is omitted when nil
	Renderer FrameRenderer

	// Events serves /api/events; the route is omitted when nil
	Events EventSource

	// Limiter is an optional pre-configured request limiter.
	// If nil, a new one will be created using RateLimits.
	Limiter *RequestLimiter

	// RateLimits is only used if Limiter is nil. Defaults to DefaultRateLimits.
	RateLimits *RateLimits

	// CORSOrigins is an optional list of allowed CORS origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

func (cfg RouterConfig) rateLimits() RateLimits {
	if cfg.RateLimits != nil {
		return *cfg.RateLimits
	}
	return DefaultRateLimits()
}

// routerHandlers holds the dependencies of the handler functions.
type routerHandlers struct {
	arena    ArenaInterface
	renderer FrameRenderer
	events   EventSource
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// NewRouter has no side effects: no listeners are opened and no goroutines
// are started, so it is safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewRequestLimiter(cfg.rateLimits())
	}
	r.Use(limiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = DefaultCORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		arena:    cfg.Arena,
		renderer: cfg.Renderer,
		events:   cfg.Events,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)

		r.Route("/combatants", func(r chi.Router) {
			r.Get("/", h.handleListCombatants)
			r.Post("/", h.handleSpawn)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetCombatant)
				r.Delete("/", h.handleRemove)
				r.Post("/heal", h.handleHeal)
				r.Post("/revive", h.handleRevive)
				r.Put("/weapon", h.handleEquip)
			})
		})

		if cfg.Events != nil {
			r.Get("/events", h.handleEvents)
		}
		if cfg.Renderer != nil {
			r.Get("/arena.png", h.handleFrame)
		}
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"status": "ok", "time": time.Now().UTC()})
	})

	return r
}

// metricsMiddleware records latency per route pattern, never per raw path.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
