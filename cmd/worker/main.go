package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/logger"
	"github.com/iliyamo/studio-booking/internal/queue"
)

func main() {
	cfg := config.LoadWorker()

	lg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	audit, err := logger.NewAudit(cfg.AuditLogPath)
	if err != nil {
		lg.Fatal("audit log open failed", zap.String("path", cfg.AuditLogPath), zap.Error(err))
	}
	defer func() { _ = audit.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info("worker started", zap.String("audit_log", cfg.AuditLogPath))
	c := queue.NewConsumer(cfg.AMQPURL, lg, audit)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Error("worker stopped", zap.Error(err))
		return
	}
	lg.Info("worker stopped")
}
