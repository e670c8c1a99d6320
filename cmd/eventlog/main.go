// Command eventlog consumes the domain events published by the API and
// appends them to an audit log file.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/backoffice-api/internal/config"
	"github.com/iliyamo/backoffice-api/internal/queue"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}
	if cfg.RabbitMQ.URL == "" {
		logger.Error("RABBITMQ_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := &queue.AuditConsumer{
		URL:      cfg.RabbitMQ.URL,
		Exchange: cfg.RabbitMQ.Exchange,
		Queue:    cfg.RabbitMQ.Queue,
		Dir:      cfg.RabbitMQ.LogDir,
		Logger:   logger,
	}
	logger.Info("audit consumer started", "queue", consumer.Queue, "dir", consumer.Dir)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("audit consumer", "err", err)
		os.Exit(1)
	}
	logger.Info("audit consumer stopped")
}
