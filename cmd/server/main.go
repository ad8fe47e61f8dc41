package main

import (
	"contest_room/internal/api"
	"contest_room/internal/app/executor"
	"contest_room/internal/app/service"
	"contest_room/internal/domain/repository"
	"contest_room/internal/platform/cache"
	"contest_room/internal/platform/config"
	"contest_room/internal/platform/logging"
	"contest_room/internal/platform/metrics"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig

	// 2. Logging & Metrics
	logger := logging.New(cfg.LogLevel)
	m := metrics.New()
	logger.Info("configuration loaded", "port", cfg.APIPort, "store", cfg.StoreBackend, "judge_concurrency", cfg.JudgeConcurrency)

	// 3. Initialize Repositories
	var (
		roomRepo        repository.RoomRepository
		leaderboardRepo repository.LeaderboardRepository
	)
	switch cfg.StoreBackend {
	case config.StoreRedis:
		rdb, err := cache.ConnectRedis(context.Background(), cfg, logger)
		if err != nil {
			logger.Error("could not connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer cache.CloseRedis(rdb, logger)
		roomRepo = repository.NewRedisRoomRepository(rdb, cfg.RedisKeyPrefix)
		leaderboardRepo = repository.NewRedisLeaderboardRepository(rdb, cfg.RedisKeyPrefix)
	case config.StoreMemory:
		roomRepo = repository.NewMemoryRoomRepository()
		leaderboardRepo = repository.NewMemoryLeaderboardRepository()
	default:
		logger.Error("unknown store backend", "store", cfg.StoreBackend)
		os.Exit(1)
	}

	// 4. Initialize Services
	judge := executor.NewClient(cfg.JudgeURL, cfg.JudgeTimeout, logger)
	contestService := service.NewContestService(roomRepo, leaderboardRepo, judge, logger,
		service.WithRoomDuration(cfg.RoomDuration),
		service.WithConcurrency(cfg.JudgeConcurrency),
		service.WithMetrics(m),
	)

	// 5. Initialize Router & HTTP Server
	router := api.NewRouter(contestService, m, logger, api.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})

	writeTimeout := cfg.ServerWriteTimeout(service.TestCasesPerRoom())
	logger.Info("http server timeouts", "request", cfg.RequestTimeout, "judge", cfg.JudgeTimeout, "write", writeTimeout)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// 6. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		logger.Error("could not listen", "port", cfg.APIPort, "error", err)
		return
	}

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		return
	}
	logger.Info("server stopped gracefully")
}
