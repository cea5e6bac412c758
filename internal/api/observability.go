package api

import (
	"errors"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"kaiju-arena/internal/combat"
	"kaiju-arena/internal/eventlog"
)

// Metrics with bounded cardinality (no per-combatant labels)
var (
	roundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_rounds_total",
		Help: "Rounds resolved by the scheduler",
	})

	roundDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_round_duration_seconds",
		Help:    "Content-driven length of each round",
		Buckets: []float64{0.25, 0.5, 0.75, 1, 1.5, 2, 3, 5},
	})

	aliveCombatants = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_alive_combatants",
		Help: "Living combatants after the latest round",
	})

	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_actions_total",
		Help: "Actions executed, by kind",
	}, []string{"action"}) // Bounded: idle, move, attack, dodge

	damageTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_damage_total",
		Help: "Hit points removed by attacks",
	})

	hitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_hits_total",
		Help: "Attacks that dealt damage",
	}, []string{"critical"})

	deathsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_deaths_total",
		Help: "Combatants killed",
	})

	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_total",
		Help: "Events accepted by the event log",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "origin", "ws_total_limit", "ws_ip_limit"

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "API requests rejected by the per-client limiter",
	}, []string{"class"}) // Bounded: read, write

	rateLimitClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_rate_limit_clients",
		Help: "Clients tracked by the per-client limiter after the latest sweep",
	}, []string{"class"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // keep on localhost in production
	AllowExternal bool
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugHandler serves pprof, /metrics and /health.
func DebugHandler(cfg ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// StartDebugServer starts the observability server in the background and
// returns it for shutdown. It returns nil when disabled.
func StartDebugServer(cfg ObservabilityConfig, logger zerolog.Logger) *http.Server {
	if !cfg.Enabled {
		logger.Info().Msg("debug server disabled")
		return nil
	}

	if !cfg.AllowExternal && !isLoopback(cfg.ListenAddr) {
		logger.Warn().Str("requested", cfg.ListenAddr).Msg("debug server forced to localhost")
		cfg.ListenAddr = "127.0.0.1:6060"
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           DebugHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("debug server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("debug server error")
		}
	}()
	return srv
}

func isLoopback(addr string) bool {
	for _, prefix := range []string{"127.0.0.1:", "localhost:", "[::1]:"} {
		if strings.HasPrefix(addr, prefix) {
			return true
		}
	}
	return false
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ObserveRound records a completed round.
func ObserveRound(r combat.RoundReport) {
	roundsTotal.Inc()
	roundDuration.Observe(r.Duration.Seconds())
	aliveCombatants.Set(float64(r.Alive))
	for _, o := range r.Outcomes {
		actionsTotal.WithLabelValues(o.Action.String()).Inc()
	}
}

// ObserveEvent records damage and deaths from the event stream.
func ObserveEvent(e combat.Event) {
	switch e.Kind {
	case combat.EventDamage:
		damageTotal.Add(e.Amount)
		hitsTotal.WithLabelValues(strconv.FormatBool(e.Critical)).Inc()
	case combat.EventDeath:
		deathsTotal.Inc()
	}
}

// UpdateEventLogStats mirrors the event log counters.
func UpdateEventLogStats(s eventlog.Stats) {
	eventLogTotal.Set(float64(s.Total))
	eventLogDropped.Set(float64(s.Dropped))
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRateLimited counts a request rejected for its traffic class.
func RecordRateLimited(class string) {
	rateLimited.WithLabelValues(class).Inc()
}

// UpdateRateLimitClients sets the number of tracked clients of a class.
func UpdateRateLimitClients(class string, n int) {
	rateLimitClients.WithLabelValues(class).Set(float64(n))
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
