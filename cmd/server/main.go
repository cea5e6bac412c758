package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"kaiju-arena/internal/api"
	"kaiju-arena/internal/combat"
	"kaiju-arena/internal/config"
	"kaiju-arena/internal/eventlog"
	"kaiju-arena/internal/logging"
	"kaiju-arena/internal/render"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml, json or toml config file")
	flag.Parse()

	// Load .env file from parent directory, then the current one
	envErr := godotenv.Load("../.env")
	if envErr != nil {
		envErr = godotenv.Load(".env")
	}

	appConfig, err := config.Load(*configPath)
	if err != nil {
		fallback := logging.Setup("info", nil)
		fallback.Fatal().Err(err).Msg("load config")
	}
	logger := logging.Setup(appConfig.Log.Level, nil)
	if envErr != nil {
		logger.Debug().Msg("no .env file found, using environment variables only")
	}

	roster, err := loadRoster(appConfig.Arena.RosterPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load roster")
	}

	// Event log
	events := eventlog.New(appConfig.EventLog.EventsPerSecond, logger)
	if path := appConfig.EventLog.Path; path != "" {
		if err := events.Open(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("event log file disabled, keeping events in memory")
			events.Start(nil)
		} else {
			logger.Info().Str("path", path).Msg("event log enabled")
		}
	} else {
		events.Start(nil)
	}

	renderOpts := render.DefaultOptions()
	renderOpts.Width = appConfig.Server.FrameWidth
	renderOpts.Height = appConfig.Server.FrameHeight
	renderer := render.New(renderOpts)

	// Set once the server exists, before any round runs.
	var hub *api.WebSocketHub

	combatCfg := appConfig.CombatConfig()
	combatCfg.Logger = &logger
	combatCfg.OnEvent = combat.FanOut(
		events.Sink(),
		api.ObserveEvent,
		func(e combat.Event) {
			if hub != nil {
				hub.EventSink()(e)
			}
		},
	)
	combatCfg.OnRound = func(r combat.RoundReport) {
		api.ObserveRound(r)
		if hub != nil {
			hub.PublishRound(r)
		}
	}
	scheduler := combat.NewScheduler(combatCfg)

	server := api.NewServer(api.RouterConfig{
		Arena:    scheduler,
		Renderer: renderer,
		Events:   events,
		RateLimits: &api.RateLimits{
			Reads:      api.Limit{Rate: appConfig.Server.ReadRate, Burst: appConfig.Server.ReadBurst},
			Writes:     api.Limit{Rate: appConfig.Server.WriteRate, Burst: appConfig.Server.WriteBurst},
			TrustProxy: appConfig.Server.TrustProxy,
		},
		CORSOrigins: appConfig.Server.CORSOrigins,
	}, api.ServerOptions{Logger: logger})
	hub = server.Hub()

	n, err := roster.SpawnAll(scheduler)
	if err != nil {
		logger.Fatal().Err(err).Int("spawned", n).Msg("spawn roster")
	}
	logger.Info().
		Int("combatants", n).
		Int64("seed", combatCfg.Seed).
		Dur("minRound", combatCfg.MinRound).
		Msg("arena ready")

	debugCfg := api.DefaultObservabilityConfig()
	debugCfg.Enabled = appConfig.Debug.Enabled
	debugCfg.ListenAddr = appConfig.Debug.ListenAddr
	debugCfg.BasicAuthUser = os.Getenv("ARENA_DEBUG_USER")
	debugCfg.BasicAuthPass = os.Getenv("ARENA_DEBUG_PASS")
	debugServer := api.StartDebugServer(debugCfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reportEventLog(ctx, events)

	go func() {
		if err := server.Start(appConfig.Server.Addr()); err != nil {
			logger.Error().Err(err).Msg("api server stopped")
			stop()
		}
	}()

	logger.Info().Str("addr", appConfig.Server.Addr()).Msg("arena running, press Ctrl+C to stop")
	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("scheduler stopped")
	}

	logger.Info().Uint64("rounds", scheduler.Round()).Msg("shutting down")
	shutdown(logger, server, debugServer, events)
}

func loadRoster(path string) (config.Roster, error) {
	if path == "" {
		return config.DefaultRoster(), nil
	}
	return config.LoadRoster(path)
}

// reportEventLog mirrors event log counters into metrics.
func reportEventLog(ctx context.Context, events *eventlog.Log) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			api.UpdateEventLogStats(events.Stats())
		}
	}
}

func shutdown(logger zerolog.Logger, server *api.Server, debugServer *http.Server, events *eventlog.Log) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("api server shutdown")
	}
	if debugServer != nil {
		if err := debugServer.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("debug server shutdown")
		}
	}
	events.Stop()
	logger.Info().Msg("goodbye")
}
