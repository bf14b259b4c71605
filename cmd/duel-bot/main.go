package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ethanyoon/verseduel/internal/adapter/botduel"
	"github.com/ethanyoon/verseduel/internal/adapter/duelpresent"
	appcfg "github.com/ethanyoon/verseduel/internal/config"
	"github.com/ethanyoon/verseduel/internal/duel"
	"github.com/ethanyoon/verseduel/internal/duelroom"
	"github.com/ethanyoon/verseduel/internal/msgcat"
	"github.com/ethanyoon/verseduel/internal/obslog"
	"github.com/ethanyoon/verseduel/internal/tgbot"
	"github.com/ethanyoon/verseduel/internal/versebank"
	"github.com/ethanyoon/verseduel/internal/webgw"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	store, err := duel.NewStore(cfg.RedisURL)
	if err != nil {
		obslog.L().Fatal("store init error", zap.Error(err))
	}
	defer store.Close()

	bank, err := versebank.Load()
	if err != nil {
		obslog.L().Fatal("verse bank error", zap.Error(err))
	}

	catalog, err := msgcat.New(cfg.MessageOverrideDir)
	if err != nil {
		obslog.L().Fatal("message catalog error", zap.Error(err))
	}

	rooms := duelroom.NewManager(store, bank)
	games := duel.NewManager(store)

	if cfg.DatabaseURL != "" {
		repo, err := duel.NewRepository(cfg.DatabaseURL)
		if err != nil {
			obslog.L().Fatal("repository init error", zap.Error(err))
		}
		defer repo.Close()
		games.AttachRepository(repo)
	}

	client := tgbot.NewClient(cfg.APIBaseURL, cfg.BotToken)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	me, err := client.GetMe(ctx)
	if err != nil {
		obslog.L().Fatal("telegram getMe error", zap.Error(err))
	}
	obslog.L().Info("bot online", zap.String("username", me.Username), zap.Int64("id", me.ID))

	formatter := duelpresent.NewFormatter(catalog)
	bot := botduel.New(client, rooms, games, formatter, cfg.BotUsername)
	poller := tgbot.NewPoller(client, cfg.PollTimeoutSec)

	gateway := webgw.New(rooms, games)
	server := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           gateway.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return poller.Run(gctx, func(u *tgbot.Update) {
			go bot.HandleUpdate(gctx, *u)
		})
	})
	g.Go(func() error {
		obslog.L().Info("web gateway listening", zap.String("addr", cfg.WebAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		obslog.L().Error("shutdown error", zap.Error(err))
	}
	obslog.L().Info("bye")
}
