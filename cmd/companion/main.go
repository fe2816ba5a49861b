// Package main boots the companion HTTP service and the scheduled sweep.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/easeaico/memorify/internal/app"
	"github.com/easeaico/memorify/internal/auth"
	"github.com/easeaico/memorify/internal/config"
	"github.com/easeaico/memorify/internal/handler"
	"github.com/easeaico/memorify/internal/logging"
	"github.com/easeaico/memorify/internal/scheduler"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	logger, closer := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer closer.Close()
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "llm_provider", cfg.LLMProvider, "llm_model", cfg.LLMModel, "http_addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize companion: %v", err)
	}
	defer a.Close()

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("failed to create token verifier: %v", err)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.New(a.Companion, verifier, a.Store.Diary, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	sweeper := scheduler.New(scheduler.Config{
		Runner:      a.Orchestrator,
		Engine:      a.Companion,
		Owners:      a.Store.Settings,
		Diary:       a.Store.Diary,
		Schedule:    cfg.SweepSchedule,
		Concurrency: cfg.SweepConcurrency,
		Logger:      logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("companion stopped with error", "error", err)
		return
	}
	logger.Info("companion shutdown complete")
}
