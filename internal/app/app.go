// Package app wires the engine together: store, event bus, delivery
// chain, per-user poll scheduler, chat debounce service and the HTTP
// surface, plus lifecycle and graceful shutdown.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/haseebgb92/blooms-journey-sub000/internal/chatbot"
	"github.com/haseebgb92/blooms-journey-sub000/internal/config"
	"github.com/haseebgb92/blooms-journey-sub000/internal/content"
	"github.com/haseebgb92/blooms-journey-sub000/internal/eventbus"
	"github.com/haseebgb92/blooms-journey-sub000/internal/httpapi"
	"github.com/haseebgb92/blooms-journey-sub000/internal/notify"
	"github.com/haseebgb92/blooms-journey-sub000/internal/scheduler"
	"github.com/haseebgb92/blooms-journey-sub000/internal/store"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	httpSrv *http.Server
	repo    *store.SQLiteRepo
	sched   *scheduler.Service
	chat    *chatbot.Service
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	repo, err := store.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	log.Info("sqlite ready", zap.String("path", cfg.DBPath))

	table, err := content.Load()
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	clock := clockwork.NewRealClock()
	bus := eventbus.New()

	channels := []notify.Channel{}
	if cfg.PushBotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.PushBotToken)
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		bot.Debug = false
		channels = append(channels,
			notify.NewPushChannel(bot, settingsResolver{repo: repo}, clock, log))
		log.Info("push channel enabled", zap.String("bot", bot.Self.UserName))
	} else {
		log.Info("push channel disabled, no bot token")
	}
	channels = append(channels,
		notify.NewToneChannel(bus, log),
		notify.NewPopupChannel(bus, nil, 0, clock),
	)

	chain := notify.NewChain(repo, bus, clock, log, channels...)

	sched, err := scheduler.New(repo, chain, table, log, clock, cfg.PollInterval,
		scheduler.WithDefaultTimezone(cfg.DefaultTZ))
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	chat := chatbot.New(repo, nil, bus, clock, log, chatbot.Config{
		Deadline:   cfg.ChatDebounce,
		StaleAfter: cfg.ChatStaleAfter,
		Cooldown:   cfg.ChatCooldown,
	})

	server := httpapi.NewServer(repo, sched, chat, chain, bus, clock, log)
	httpSrv := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     server.Router(),
		ReadTimeout: 5 * time.Second,
		// No WriteTimeout: the events endpoint holds long-lived SSE
		// streams open.
	}

	return &App{
		cfg:     cfg,
		log:     log,
		httpSrv: httpSrv,
		repo:    repo,
		sched:   sched,
		chat:    chat,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Duration("poll_interval", a.cfg.PollInterval),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		a.log.Error("http server error", zap.Error(err))
		a.shutdown()
		return err
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		a.shutdown()
		return nil
	}
}

func (a *App) shutdown() {
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := a.httpSrv.Shutdown(shCtx); err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	cancel()

	if err := a.sched.Shutdown(); err != nil {
		a.log.Warn("scheduler shutdown error", zap.Error(err))
	}
	a.chat.Shutdown()

	if err := a.repo.Close(); err != nil {
		a.log.Warn("store close error", zap.Error(err))
	}
}

// settingsResolver maps a user to their linked push chat through the
// settings record. Users with no settings or no linked chat resolve to 0.
type settingsResolver struct {
	repo store.Repo
}

func (r settingsResolver) PushChatID(ctx context.Context, userID string) (int64, error) {
	s, err := r.repo.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return s.PushChatID, nil
}
