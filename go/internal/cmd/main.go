package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/openmat/scorecast/go/clients/score_api_client"
	"github.com/openmat/scorecast/go/internal/channel"
	"github.com/openmat/scorecast/go/internal/gateway"
	"github.com/openmat/scorecast/go/internal/models"
	"github.com/openmat/scorecast/go/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	configPath := flag.String("config", "", "path to YAML config file")
	matchID := flag.String("match", "", "match to synchronize")
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *matchID == "" {
		*matchID = os.Getenv("MATCH_ID")
	}
	if *matchID == "" {
		log.Fatal().Msg("a match id is required (-match flag or MATCH_ID)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	channelCfg := channel.DefaultConfig()
	channelCfg.URL = config.NATS.URL
	push, err := channel.Acquire(channelCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to push channel")
	}
	defer channel.Shutdown()
	defer channel.Release()

	api := score_api_client.NewScoreApiClient(config.API.BaseURL)

	coordinator, err := session.Open(ctx, config.sessionConfig(), api, push, clockwork.NewRealClock(), session.NoConflictChecker{}, *matchID)
	if err != nil {
		log.Fatal().Err(err).Str("match_id", *matchID).Msg("failed to open session")
	}

	projection := gateway.NewService(gateway.DefaultConnectionConfig())
	wireProjection(coordinator, projection)

	server := setupServer(config.Server.Port, projection)

	go projection.Start(ctx)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("projection server listening")
		if err := server.ListenAndServe(); err != nil {
			log.Error().Err(err).Msg("projection server stopped")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := coordinator.Run(ctx); err != nil {
		log.Error().Err(err).Msg("session coordinator stopped")
	}
}

// wireProjection feeds every store mutation and countdown tick to the
// display gateway. Must run before the coordinator's dispatch loop starts.
func wireProjection(coordinator *session.Coordinator, projection *gateway.Service) {
	sessionID := coordinator.SessionID()
	projection.AttachSession(sessionID, coordinator)

	coordinator.SetTickObserver(func(remainingSec int) {
		projection.BroadcastTick(sessionID, remainingSec)
	})
	coordinator.SetNavigateHook(func() {
		log.Info().Str("session_id", sessionID).Msg("session complete, displays switching to result view")
	})

	coordinator.OnUpdate(func(s models.Session, remainingSec int) {
		projection.BroadcastState(sessionID, gateway.BuildSessionView(s, remainingSec))
	})
}
