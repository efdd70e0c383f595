package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"ivr-gateway/internal/audit"
	"ivr-gateway/internal/auth"
	"ivr-gateway/internal/calls"
	"ivr-gateway/internal/config"
	"ivr-gateway/internal/events"
	"ivr-gateway/internal/ivr"
	"ivr-gateway/internal/migrations"
	"ivr-gateway/internal/replay"
	"ivr-gateway/pkg/logger"
	"ivr-gateway/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing .env is normal outside local runs.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenDB(rootCtx, cfg.DB.Driver, cfg.DSN(), utils.PoolConfig{})
	if err != nil {
		log.Error("database init failed", "driver", cfg.DB.Driver, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Run(rootCtx, db, cfg.DB.Driver); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	var guard replay.Guard = replay.NewMemoryGuard(replay.DefaultTTL)
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer func(rdb *redis.Client) { _ = rdb.Close() }(rdb)
		guard = replay.NewRedisGuard(rdb, replay.DefaultTTL)
	} else {
		log.Warn("REDIS_HOST not set; replay guard is process-local")
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL, "ivr-gateway")
		if err != nil {
			log.Error("nats connect failed", "err", err)
			os.Exit(1)
		}
		defer nc.Drain()
		publisher = events.NewNATSPublisher(nc, cfg.NATS.Subject)
	}

	machine, err := ivr.NewMachine(cfg.IVR.Menu)
	if err != nil {
		log.Error("ivr menu invalid", "err", err)
		os.Exit(1)
	}

	deps := routeDeps{
		cfg:       cfg,
		db:        db,
		ledger:    calls.NewSQLRepo(db, cfg.DB.Driver),
		audit:     audit.NewService(audit.NewSQLRepo(db, cfg.DB.Driver)),
		guard:     guard,
		publisher: publisher,
		machine:   machine,
		auth:      authManager,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "db", cfg.DB.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

type routeDeps struct {
	cfg       config.Config
	db        *sql.DB
	ledger    *calls.SQLRepo
	audit     *audit.Service
	guard     replay.Guard
	publisher events.Publisher
	machine   *ivr.Machine
	auth      *auth.Manager
}
