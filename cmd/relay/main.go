package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcfg "github.com/park285/chess-relay/internal/config"
	"github.com/park285/chess-relay/internal/match"
	"github.com/park285/chess-relay/internal/notify"
	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/internal/relay"
	"github.com/park285/chess-relay/internal/topic"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()

	// Topic bus: redis backplane when configured, in-process otherwise
	var bus topic.Bus
	var redisBus *topic.RedisBus
	var roomCodes match.CodeReserver
	if cfg.RedisURL != "" {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err := topic.NewRedisClient(rctx, cfg.RedisURL)
		if err != nil {
			cancel()
			log.Fatalf("redis init error: %v", err)
		}
		redisBus, err = topic.NewRedisBus(rctx, rdb, topic.DefaultChannel)
		cancel()
		if err != nil {
			log.Fatalf("redis bus init error: %v", err)
		}
		defer func() {
			_ = redisBus.Close()
			_ = rdb.Close()
		}()
		bus = redisBus
		roomCodes = match.NewRedisCodes(rdb, match.DefaultCodesKey)
	} else {
		bus = topic.NewLocalBus()
	}

	reg := match.NewRegistry(bus)
	if roomCodes != nil {
		reg.UseCodeReserver(roomCodes)
	}
	coord := match.NewCoordinator(reg)

	var notifier *notify.Notifier
	if cfg.ResultWebhookURL != "" {
		notifier = notify.NewNotifier(notify.NewClient(cfg.ResultWebhookURL, notify.WithHeaderProvider(notify.BearerToken(cfg.ResultWebhookToken))), 64)
		coord.OnGameOver(notifier.Enqueue)
	}

	srv := relay.NewServer(reg, coord, bus, relay.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		SendQueue:      cfg.SendQueue,
		EventRate:      cfg.EventRate,
		EventBurst:     cfg.EventBurst,
		PingInterval:   time.Duration(cfg.PingIntervalSec) * time.Second,
		DebugOps:       cfg.DebugOps,
	})

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(cfg.StaticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		obslog.L().Info("relay_listen",
			zap.String("addr", cfg.ListenAddr),
			zap.Bool("redis", redisBus != nil),
			zap.Bool("webhook", notifier != nil),
			zap.Bool("debug_ops", cfg.DebugOps),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(sctx)
	if err := srv.Close(sctx); err != nil {
		obslog.L().Warn("relay_shutdown_timeout", zap.Error(err))
	}
	if notifier != nil {
		notifier.Close()
	}
	obslog.L().Info("relay_stopped", zap.Int("rooms", reg.Stats().Rooms))
}
