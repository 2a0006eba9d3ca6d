package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prperemyshlev/account-service/internal/config"
	"github.com/prperemyshlev/account-service/internal/mail"
	"github.com/prperemyshlev/account-service/internal/queue"
	"github.com/prperemyshlev/account-service/internal/sms"
	"github.com/prperemyshlev/account-service/pkg/observability"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	mailer, err := mail.NewMailer(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
		cfg.SMTP.From,
		cfg.SMTP.FromName,
	)
	if err != nil {
		logger.Fatal("Failed to initialize mailer", zap.Error(err))
	}

	smsClient, err := sms.NewClient(
		cfg.SMS.AccountSID,
		cfg.SMS.AuthToken,
		cfg.SMS.FromNumber,
		cfg.SMS.BaseURL,
	)
	if err != nil {
		logger.Fatal("Failed to initialize sms client", zap.Error(err))
	}

	consumer := queue.NewConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.JobTopic,
		cfg.Kafka.ConsumerGroup,
		mailer,
		smsClient,
		logger,
	)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Received shutdown signal")
		cancel()
	}()

	logger.Info("Delivery worker starting",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.JobTopic),
		zap.String("group", cfg.Kafka.ConsumerGroup),
	)

	if err := consumer.Listen(ctx); err != nil {
		logger.Fatal("Worker failed", zap.Error(err))
	}

	logger.Info("Delivery worker stopped")
}
