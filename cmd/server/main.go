package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"peerbridge/config"
	"peerbridge/internal/api/handler"
	"peerbridge/internal/api/middleware"
	"peerbridge/internal/api/router"
	"peerbridge/internal/repository"
	"peerbridge/internal/scheduler"
	"peerbridge/internal/service"
	"peerbridge/pkg/database"
	applogger "peerbridge/pkg/logger"
	"peerbridge/pkg/redis"
)

func main() {
	// 1. config
	cfg, err := config.Load(os.Getenv("PEERBRIDGE_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Int("max_matches_per_tutor", cfg.Matching.MaxMatchesPerTutor),
		zap.Int("max_matches_per_tutee", cfg.Matching.MaxMatchesPerTutee),
	)

	// 3. database + migrations
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("get sql.DB", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	// 4. redis (optional): sweep lock, match events, rate limiting
	var (
		rdb       *redis.Client
		locker    service.SweepLocker
		publisher service.MatchEventPublisher
		limiter   middleware.RateLimiter
	)
	if cfg.Redis.Addr == "" {
		logger.Info("redis not configured, using in-process sweep lock without events or rate limiting")
	} else if rdb, err = redis.NewClient(&cfg.Redis, logger); err != nil {
		logger.Warn("redis unavailable, using in-process sweep lock without events or rate limiting", zap.Error(err))
		rdb = nil
	} else {
		locker, publisher, limiter = rdb, rdb, rdb
	}

	// 5. repository → service → handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, locker, publisher, logger)
	h := handler.NewHandler(svc)

	// 6. scheduler
	var sched *scheduler.Scheduler
	if cfg.Matching.Schedule.Enabled {
		sched, err = scheduler.New(cfg.Matching.Schedule, svc.Matching, logger)
		if err != nil {
			logger.Fatal("init scheduler", zap.Error(err))
		}
		sched.Start()
	}

	// 7. HTTP server
	engine := router.Setup(cfg, h, limiter, logger)
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		// sweeps can take up to sweep_timeout
		WriteTimeout: cfg.Matching.SweepTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	// 8. graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if sched != nil {
		if err := sched.Stop(ctx); err != nil {
			logger.Warn("scheduler did not stop in time", zap.Error(err))
		}
	}

	if err := sqlDB.Close(); err != nil {
		logger.Warn("close database", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("stopped")
}
