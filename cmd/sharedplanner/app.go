package main

import (
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"shared-planner/internal/config"
	"shared-planner/internal/logger"
	"shared-planner/internal/push"
	"shared-planner/internal/repository"
	"shared-planner/internal/service"
)

// app holds what every command needs after startup.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	db       *gorm.DB
	location *time.Location
	svc      *service.Services
	botAPI   *tgbotapi.BotAPI
}

// bootstrap loads config, opens storage and wires services. The Telegram
// client is only created when withTelegram is set and a token is configured.
func bootstrap(withTelegram bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logCfg := logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Log.Environment,
		File:        cfg.Log.File,
	}
	out := logger.Writer(logCfg)
	log, err := logger.New(logCfg, out)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	slog.SetDefault(log)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDB(cfg.DatabaseURL, out)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: db, location: loc}

	var notifier push.Notifier = push.NopNotifier{}
	if withTelegram {
		if cfg.TelegramToken == "" {
			log.Warn("TELEGRAM_TOKEN is not set, bot and push notifications are disabled")
		} else {
			api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
			if err != nil {
				a.close()
				return nil, fmt.Errorf("create bot api: %w", err)
			}
			log.Info("bot authorized", "account", api.Self.UserName)
			a.botAPI = api
			notifier = push.NewTelegramNotifier(api)
		}
	}

	calendar := service.NewCalendar(time.Now, loc, cfg.HorizonDays)
	a.svc = service.New(db, notifier, calendar, log)
	return a, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
