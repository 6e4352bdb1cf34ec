package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"claw-colosseum/internal/agentgateway"
	appqueue "claw-colosseum/internal/app/queue"
	"claw-colosseum/internal/arena"
	"claw-colosseum/internal/config"
	"claw-colosseum/internal/game"
	"claw-colosseum/internal/logging"
	"claw-colosseum/internal/matchmaking"
	"claw-colosseum/internal/spectatorgateway"
	"claw-colosseum/internal/spectatorpush"
	"claw-colosseum/internal/store"
	"claw-colosseum/internal/telemetry"
	httptransport "claw-colosseum/internal/transport/http"
	"claw-colosseum/internal/ws"
	"claw-colosseum/migrations"

	"github.com/rs/zerolog/log"
)

const (
	serviceName    = "claw-colosseum"
	serviceVersion = "0.1.0"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Server.OTELEndpoint, serviceName, serviceVersion, cfg.Server.OTELInsecure)
	if err != nil {
		log.Fatal().Err(err).Msg("telemetry init failed")
	}

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	if cfg.Server.RunMigrations {
		if err := st.RunMigrations(ctx, migrations.FS); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
	}

	hub := spectatorgateway.NewHub()
	inbox := agentgateway.NewInbox()
	inbox.StartJanitor(ctx, time.Minute)

	pushCfg, err := spectatorpush.ConfigFromServer(cfg.Server)
	if err != nil {
		log.Fatal().Err(err).Msg("spectator push config invalid")
	}
	push := spectatorpush.NewManager(pushCfg)
	push.Start(ctx)

	runner := arena.NewRunner(arena.Config{
		MoltDir:       cfg.Server.MoltDir,
		PreMatchDelay: cfg.Server.PreMatchDelay,
		PhaseDelay:    cfg.Server.PhaseDelay,
	}, st, newExecutor(cfg.Server), hub, inbox, push)

	jobs := matchmaking.NewWorkQueue(cfg.Queue.JobBuffer, runner.Run)
	go jobs.Run(ctx)
	scheduler := matchmaking.NewScheduler(schedulerConfig(cfg.Queue), st, jobs)
	scheduler.Start(ctx)

	wsSrv := ws.NewServer(appqueue.NewService(st, scheduler, inbox), hub)
	wsSrv.StartQueueBroadcast(ctx, cfg.Server.QueueBroadcastInterval)

	r := httptransport.NewRouter(httptransport.Deps{
		Store: st,
		Cfg:   cfg.Server,
		Pool:  scheduler,
		Hub:   hub,
		Inbox: inbox,
		WS:    wsSrv,
	})
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	jobs.Close()
	wsSrv.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown failed")
	}
}

func schedulerConfig(q config.QueueConfig) matchmaking.Config {
	return matchmaking.Config{
		BaseRange:          q.BaseRange,
		RangeStep:          q.RangeStep,
		RangeStepEvery:     q.RangeStepEvery,
		CategoryRelaxAfter: q.CategoryRelaxAfter,
		ForcePairAfter:     q.ForcePairAfter,
		TickInterval:       q.TickInterval,
	}
}

// newExecutor talks to the sandbox when one is configured and otherwise
// simulates every attempt locally.
func newExecutor(cfg config.ServerConfig) game.Executor {
	sim := game.NewSimulatedExecutor(nil)
	if cfg.ExecutorURL == "" {
		log.Warn().Msg("EXECUTOR_URL not set; attacks are simulated")
		return sim
	}
	return game.NewHTTPExecutor(cfg.ExecutorURL, cfg.ExecutorTimeout, sim)
}
