package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ellecpu/king-of-hills/internal/archive"
	appcfg "github.com/ellecpu/king-of-hills/internal/config"
	"github.com/ellecpu/king-of-hills/internal/httpapi"
	"github.com/ellecpu/king-of-hills/internal/match"
	"github.com/ellecpu/king-of-hills/internal/obslog"
	"github.com/ellecpu/king-of-hills/internal/render"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(obslog.Settings{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		ToConsole: cfg.LogToConsole,
		ToFile:    cfg.LogToFile,
		FilePath:  cfg.LogFile,
	}); err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer obslog.Sync()

	mgr, err := match.NewManager(cfg.RedisURL, time.Duration(cfg.MatchTTL))
	if err != nil {
		obslog.L().Fatal("match manager init", zap.Error(err))
	}
	defer mgr.Close()

	// Long-term result storage is optional; matches live in Redis either way.
	if cfg.DatabaseURL != "" {
		repo, err := archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			obslog.L().Fatal("archive init", zap.Error(err))
		}
		defer repo.Close()
		mgr.AttachArchive(repo)
	}

	srv := httpapi.NewServer(mgr, render.NewRenderer(cfg.RenderSquarePx))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(cfg.ListenAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			obslog.L().Fatal("http server", zap.Error(err))
		}
	case sig := <-sigCh:
		obslog.L().Info("shutdown_signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Close(ctx); err != nil {
			obslog.L().Warn("shutdown", zap.Error(err))
		}
	}
}
