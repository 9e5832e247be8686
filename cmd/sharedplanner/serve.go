package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"shared-planner/internal/api"
	"shared-planner/internal/auth"
	"shared-planner/internal/bot"
	"shared-planner/internal/service"
)

const (
	jobTimeout      = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the Telegram bot and the scheduled jobs",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.cfg.RequireJWTSecret(); err != nil {
		return err
	}
	if strings.EqualFold(a.cfg.Log.Environment, "prod") {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler, err := a.schedule()
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	go a.sweep(ctx)

	tokens := auth.NewTokens(a.cfg.JWTSecret, auth.DefaultTTL)
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           api.NewRouter(a.svc, tokens, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("http server listening", "addr", a.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if a.botAPI != nil {
		telegramBot := bot.New(a.botAPI, a.svc, a.log)
		g.Go(func() error {
			if err := telegramBot.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	a.log.Info("shared planner started", "timezone", a.location.String(), "horizon_days", a.cfg.HorizonDays)
	if err := g.Wait(); err != nil {
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}

// schedule registers the daily sweep, the optional extra sweep interval and
// the 24 hourly summary triggers.
func (a *app) schedule() (*service.SchedulerService, error) {
	scheduler := service.NewSchedulerService(a.location, a.log)

	sweep := func() { a.sweep(context.Background()) }
	if _, err := scheduler.ScheduleDaily(a.cfg.SweepAt, sweep); err != nil {
		return nil, err
	}
	if a.cfg.SweepInterval > 0 {
		if _, err := scheduler.ScheduleInterval(a.cfg.SweepInterval, sweep); err != nil {
			return nil, err
		}
	}

	if _, err := scheduler.RegisterHourlyTriggers(func(hour int) {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		sent, err := a.svc.Reminders.SendHourlySummaries(ctx, hour)
		if err != nil {
			a.log.Error("hourly summaries", "hour", hour, "err", err)
			return
		}
		a.log.Debug("hourly summaries", "hour", hour, "sent", sent)
	}); err != nil {
		return nil, err
	}
	return scheduler, nil
}

func (a *app) sweep(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, jobTimeout)
	defer cancel()
	if _, err := a.svc.Generation.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Error("sweep", "err", err)
	}
}
