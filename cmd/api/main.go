package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/imgmeta/internal/app"
	"github.com/abduss/imgmeta/internal/config"
	"github.com/abduss/imgmeta/internal/logger"
	"github.com/abduss/imgmeta/internal/metrics"
	"github.com/abduss/imgmeta/internal/server"
	"github.com/abduss/imgmeta/internal/trigger"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer logg.Sync()

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.InitMetrics()
	gin.SetMode(gin.ReleaseMode)

	deps, err := app.Open(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("open backends", zap.Error(err))
	}
	defer deps.Close()

	if cfg.Trigger.Enabled {
		listener := trigger.NewListener(deps.MinIO, deps.Metadata, cfg.Trigger.Bucket, cfg.Trigger.Prefix, cfg.Trigger.Suffix, logg)
		go func() {
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error("upload listener stopped", zap.Error(err))
			}
		}()
	}

	router := server.NewRouter(server.Dependencies{
		Config:      cfg,
		Table:       deps.Table,
		ObjectStore: deps.Objects,
		Metadata:    deps.Metadata,
		Logger:      logg,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("imgmeta API listening",
			zap.String("address", cfg.Server.Address()),
			zap.String("table_backend", cfg.Table.Backend),
			zap.String("object_backend", cfg.Retrieval.ObjectBackend),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown error", zap.Error(err))
	}
}
