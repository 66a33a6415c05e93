package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	approom "belote-lobby/internal/app/room"
	"belote-lobby/internal/config"
	"belote-lobby/internal/fanout"
	"belote-lobby/internal/game"
	"belote-lobby/internal/lobby"
	"belote-lobby/internal/logging"
	"belote-lobby/internal/store"
	httptransport "belote-lobby/internal/transport/http"
	"belote-lobby/internal/ws"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	closeLog := logging.Init(cfg.Log)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg.Server)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Server.StoreBackend).Msg("store init failed")
	}
	defer closeRepo()

	var actions store.ActionRecorder = store.NopActionLog{}
	if cfg.Server.PostgresDSN != "" {
		actionLog, err := store.NewActionLog(ctx, cfg.Server.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("action log init failed")
		}
		defer actionLog.Close()
		if err := actionLog.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("action log schema failed")
		}
		actions = actionLog
	}

	hub := fanout.NewHub()
	if cfg.Server.NATSURL != "" {
		nc, err := fanout.ConnectNATS(cfg.Server.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("nats connect failed")
		}
		origin := cfg.Server.InstanceID
		if origin == "" {
			origin = store.NewID()
		}
		relay := fanout.NewNATSRelay(nc, hub, origin)
		if err := relay.Start(); err != nil {
			log.Fatal().Err(err).Msg("nats relay start failed")
		}
		defer func() { _ = relay.Close() }()
		log.Info().Str("origin", origin).Msg("nats relay started")
	}

	table := game.DefaultTableConfig()
	if cfg.Server.DisconnectGrace > 0 {
		table.DisconnectGrace = cfg.Server.DisconnectGrace
	}
	coord := lobby.NewCoordinator(lobby.NewSessionStore(), repo, hub, lobby.Options{
		Actions:     actions,
		StartDelay:  cfg.Server.StartDelay,
		RoomTTL:     cfg.Server.RoomTTL,
		PersistMode: lobby.PersistMode(cfg.Server.PersistMode),
		TableConfig: table,
		OpTimeout:   cfg.Server.OpTimeout,
	})
	sockets := ws.NewServer(coord, ws.Options{
		MessageRate:  rate.Limit(cfg.Server.ChatRatePerSec),
		MessageBurst: cfg.Server.ChatBurst,
	})

	r := httptransport.NewRouter(httptransport.Deps{
		Rooms:       approom.NewService(coord),
		Sockets:     sockets,
		Store:       repo,
		ActiveRooms: coord.ActiveRooms,
	})
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown incomplete")
		}
		// Upgraded sockets are hijacked and invisible to Shutdown.
		if err := sockets.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("ws close incomplete")
		}
	}()

	log.Info().Str("addr", cfg.Server.HTTPAddr).Str("store", cfg.Server.StoreBackend).
		Str("persist_mode", cfg.Server.PersistMode).Msg("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	<-stopped
	log.Info().Msg("server shut down")
}

func openRepository(ctx context.Context, cfg config.ServerConfig) (store.RoomRepository, func(), error) {
	if cfg.StoreBackend == config.StoreMemory {
		log.Warn().Msg("memory store in use, rooms will not survive a restart")
		return store.NewMemoryStore(cfg.RoomTTL), func() {}, nil
	}
	client, err := store.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return store.NewRedisStore(client, cfg.RedisKeyPrefix, cfg.RoomTTL), func() { _ = client.Close() }, nil
}
