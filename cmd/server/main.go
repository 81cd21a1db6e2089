package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/field-interventions/internal/blobstore"
	"github.com/iliyamo/field-interventions/internal/config"
	"github.com/iliyamo/field-interventions/internal/database"
	"github.com/iliyamo/field-interventions/internal/handler"
	"github.com/iliyamo/field-interventions/internal/logger"
	"github.com/iliyamo/field-interventions/internal/middleware"
	"github.com/iliyamo/field-interventions/internal/queue"
	"github.com/iliyamo/field-interventions/internal/repository"
	"github.com/iliyamo/field-interventions/internal/router"
	"github.com/iliyamo/field-interventions/internal/service"
)

const serviceName = "field-interventions"

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: serviceName,
		Version:     version,
	})

	db, err := database.Open(database.Settings{
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("schema migration failed")
		}
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	records := repository.NewInterventionRepo(db)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		id, created, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			log.Fatal().Err(err).Msg("bootstrap administrator failed")
		}
		if created {
			log.Info().Uint64("user_id", id).Str("email", cfg.AdminEmail).Msg("bootstrap administrator created")
		}
	}

	blobs, err := openBlobs(ctx, config.LoadBlobConfig(), db, log)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("signature storage unavailable")
	}

	qcfg := config.LoadQueueConfig()
	var events service.EventPublisher
	if qcfg.Enabled {
		events = queue.NewPublisher(qcfg.URL, qcfg.Queue, qcfg.DialTimeout, log)
		log.Info().Str("queue", qcfg.Queue).Msg("lifecycle events enabled")
	}

	taxRate := cfg.DefaultTaxRatePercent
	svc := service.NewInterventionService(records, blobs, events, log, service.Options{
		DefaultTaxRatePercent: &taxRate,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.BodyLimit("4M"))

	var guards router.Guards
	if rdb := config.NewRedisClient(config.LoadRedisConfig()); rdb != nil {
		defer rdb.Close()
		guards.RateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
		guards.Cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log)
	} else {
		log.Warn().Msg("redis unreachable, rate limiting and caching disabled")
	}

	ih := handler.NewInterventionHandler(svc, log, cfg.RequestTimeout)
	router.RegisterRoutes(e, handler.Health(db.PingContext))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, log), cfg.JWTSecret, guards)
	router.RegisterInterventions(e, ih, cfg.JWTSecret, guards)
	router.RegisterAdmin(e, handler.NewAdminHandler(ih, users, cfg.BcryptCost, log), cfg.JWTSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

// openBlobs picks the signature image backend.
func openBlobs(ctx context.Context, cfg config.BlobConfig, db *sql.DB, log zerolog.Logger) (service.Blobs, error) {
	switch cfg.Backend {
	case config.BlobBackendS3:
		store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("signatures stored in S3")
		return store, nil
	case config.BlobBackendMySQL, "":
		log.Info().Msg("signatures stored in MySQL")
		return blobstore.NewMySQLStore(db), nil
	}
	return nil, errors.New("unknown BLOB_BACKEND " + cfg.Backend)
}
