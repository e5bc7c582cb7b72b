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
	"go.uber.org/zap"

	"github.com/qatestsmith/medicinereminderbot/internal/access"
	"github.com/qatestsmith/medicinereminderbot/internal/config"
	"github.com/qatestsmith/medicinereminderbot/internal/dispatch"
	"github.com/qatestsmith/medicinereminderbot/internal/scheduler"
	"github.com/qatestsmith/medicinereminderbot/internal/store"
	"github.com/qatestsmith/medicinereminderbot/internal/telegram"
	"github.com/qatestsmith/medicinereminderbot/internal/tz"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
	engine  *scheduler.Engine
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting medicine-reminder-bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("db", a.cfg.DBPath),
	)

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	catalog, err := tz.Load(a.cfg.TimezonesPath)
	if err != nil {
		a.log.Error("load timezone catalog failed", zap.Error(err))
		return err
	}

	gate := access.NewGate(a.cfg.AllowedUsersPath, a.log)

	a.router = telegram.NewRouter(a.bot, a.log, a.repo, gate, catalog)
	disp := dispatch.New(a.router, a.log)
	a.engine = scheduler.New(a.repo, disp, a.log)
	a.router.BindScheduler(a.engine)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.engine.Run(ctx)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.cfg.PollTimeoutSec
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			// Create a short-lived shutdown context and cancel it immediately after use.
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
