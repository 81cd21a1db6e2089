// Command worker consumes intervention lifecycle events and appends them to
// the audit log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/field-interventions/internal/config"
	"github.com/iliyamo/field-interventions/internal/logger"
	"github.com/iliyamo/field-interventions/internal/queue"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: os.Getenv("APP_ENV"),
		ServiceName: "field-interventions-worker",
		Version:     version,
	})

	qcfg := config.LoadQueueConfig()
	if err := os.MkdirAll(qcfg.AuditLogDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", qcfg.AuditLogDir).Msg("cannot create audit log dir")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: qcfg.URL, Queue: qcfg.Queue, LogDir: qcfg.AuditLogDir, Log: log}
	log.Info().Str("queue", qcfg.Queue).Str("dir", qcfg.AuditLogDir).Msg("audit worker started")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("audit worker failed")
	}
	log.Info().Msg("audit worker stopped")
}
