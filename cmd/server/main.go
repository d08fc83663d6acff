package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/QRHub/config"
	appmodel "github.com/sifan077/QRHub/internal/app/model"
	apprepository "github.com/sifan077/QRHub/internal/app/repository"
	appserver "github.com/sifan077/QRHub/internal/app/server"
	appservice "github.com/sifan077/QRHub/internal/app/service"
	"github.com/sifan077/QRHub/internal/app/shortid"
	inthttp "github.com/sifan077/QRHub/internal/http/handler"
	"github.com/sifan077/QRHub/internal/http/middleware"
	httpUtil "github.com/sifan077/QRHub/internal/http/util"
	"github.com/sifan077/QRHub/internal/infra/logger"
	infraNATS "github.com/sifan077/QRHub/internal/infra/nats"
	infraPostgres "github.com/sifan077/QRHub/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/QRHub/internal/infra/prometheus"
	infraRedis "github.com/sifan077/QRHub/internal/infra/redis"
	infraSQLite "github.com/sifan077/QRHub/internal/infra/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.MustInit(logger.ForEnv(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"), "qrhub"))
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("env", cfg.App.Env),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.Int("sweep_hour", cfg.Mapping.SweepHour),
	)

	gormDB, dbPinger, closeDB, err := openDatabase(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer closeDB()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.Mapping{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
	log.Info("Database ready", zap.String("driver", cfg.Database.Driver))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := infraPrometheus.NewMetrics(registry)

	repo := apprepository.NewMappingRepository(gormDB)

	var rateLimitStore redis.Cmdable
	if cfg.Redis.Enabled {
		redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()

		repo = apprepository.NewCachedMappingRepository(repo, redisClient, infraRedis.CacheTTL(cfg.Redis), log.Named("cache"))
		rateLimitStore = redisClient
		log.Info("Connected to Redis successfully", zap.String("addr", infraRedis.Addr(cfg.Redis)))
	}

	var (
		publisher appservice.EventPublisher
		reporters = []appservice.SweepReporter{appservice.NewLogSweepReporter(log.Named("sweep"))}
	)
	if cfg.NATS.Enabled {
		natsConn, js, err := infraNATS.Connect(cfg.NATS, cfg.App.Name)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Drain()

		jsPublisher := appservice.NewJetStreamPublisher(js)
		if err := jsPublisher.EnsureStream(); err != nil {
			log.Fatal("Failed to prepare mapping stream", zap.Error(err))
		}
		publisher = jsPublisher
		reporters = append(reporters, jsPublisher)
		log.Info("Connected to NATS successfully")
	}

	if cfg.App.IsProduction() {
		promServer := infraPrometheus.NewServer(cfg.Prometheus, registry)
		go func() {
			log.Info("Starting Prometheus metrics server", zap.String("addr", promServer.Addr))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server outside production")
	}

	mappingService := appservice.NewMappingService(appservice.MappingDeps{
		Repo:             repo,
		IDs:              shortid.NewGenerator(cfg.Mapping.IDLength, cfg.Mapping.BloomCapacity),
		Publisher:        publisher,
		Metrics:          metrics,
		Logger:           log.Named("mappings"),
		GenerateAttempts: cfg.Mapping.GenerateAttempts,
	})

	if n, err := mappingService.PrimeIDFilter(ctx); err != nil {
		log.Warn("Failed to prime id filter", zap.Error(err))
	} else {
		log.Info("Primed id filter", zap.Int("ids", n))
	}

	sweeper := appservice.NewExpirySweeper(appservice.SweeperDeps{
		Logger:           log.Named("sweep"),
		Repo:             repo,
		Reporters:        reporters,
		Metrics:          metrics,
		Hour:             &cfg.Mapping.SweepHour,
		ExpiringSoonDays: cfg.Mapping.ExpiringSoonDays,
	})
	sweeper.Start()
	defer sweeper.Stop()

	server := appserver.New(appserver.Dependencies{
		Name:     cfg.App.Name,
		Logger:   log.Named("http"),
		Mappings: mappingService,
		Database: dbPinger,
		Redis:    rateLimitStore,
		RateLimit: middleware.RateLimitConfig{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.WindowDuration(),
		},
		Sessions:      httpUtil.NewSessionSigner(sessionSecret(cfg, log), cfg.Auth.SessionDuration()),
		AdminPassword: cfg.Auth.AdminPassword,
		SecureCookie:  cfg.App.IsProduction(),
		CORSOrigins:   cfg.API.CORSOrigins,
		MaxPageSize:   cfg.API.MaxPageSize,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		log.Info("Starting HTTP server", zap.String("addr", addr))
		if err := server.Listen(addr); err != nil {
			log.Error("Fiber server exited", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", zap.Error(err))
	}
}

// openDatabase connects the configured driver and returns the handle used by
// the repository, a health pinger and a close function.
func openDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, inthttp.Pinger, func(), error) {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := infraSQLite.NewGorm(cfg.Database.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("sqlite: retrieve sql db: %w", err)
		}
		return db, inthttp.PingFunc(sqlDB.PingContext), func() { _ = sqlDB.Close() }, nil

	default:
		db, err := infraPostgres.NewGorm(cfg.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres: retrieve sql db: %w", err)
		}

		pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			_ = sqlDB.Close()
			return nil, nil, nil, err
		}

		closeFn := func() {
			pool.Close()
			_ = sqlDB.Close()
		}
		return db, pool, closeFn, nil
	}
}

// sessionSecret returns the configured secret. Outside production a random
// per-process secret is generated when none is set.
func sessionSecret(cfg *config.Config, log *zap.Logger) []byte {
	if cfg.Auth.SessionSecret != "" {
		return []byte(cfg.Auth.SessionSecret)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatal("Failed to generate session secret", zap.Error(err))
	}
	log.Warn("auth.session_secret is not set; sessions will not survive a restart")
	return secret
}
