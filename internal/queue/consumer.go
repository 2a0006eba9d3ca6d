package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EmailSender executes email jobs
type EmailSender interface {
	Send(ctx context.Context, job EmailJob) error
}

// SMSSender executes SMS jobs
type SMSSender interface {
	Send(ctx context.Context, job SMSJob) error
}

// Consumer reads delivery jobs from Kafka and executes them.
// Offsets commit after handling, so a crashed worker re-attempts the job.
type Consumer struct {
	reader *kafka.Reader
	email  EmailSender
	sms    SMSSender
	logger *zap.Logger
}

// NewConsumer creates a new job consumer
func NewConsumer(brokers []string, topic, groupID string, email EmailSender, sms SMSSender, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	return &Consumer{
		reader: reader,
		email:  email,
		sms:    sms,
		logger: logger,
	}
}

// Listen consumes jobs until the context is cancelled.
// Handler failures are logged, not fatal; the job is not re-enqueued here -
// redelivery happens only via uncommitted offsets.
func (c *Consumer) Listen(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("failed to read job: %w", err)
		}

		if err := c.handle(ctx, msg.Value); err != nil {
			c.logger.Error("Job handling failed",
				zap.String("key", string(msg.Key)),
				zap.Error(err),
			)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, value []byte) error {
	var job Job
	if err := json.Unmarshal(value, &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	switch job.Type {
	case JobSendEmail:
		var email EmailJob
		if err := json.Unmarshal(job.Payload, &email); err != nil {
			return fmt.Errorf("failed to unmarshal email job: %w", err)
		}
		c.logger.Info("Sending email",
			zap.String("recipient", email.Recipient),
			zap.String("template", email.Template),
		)
		return c.email.Send(ctx, email)

	case JobSendSMS:
		var sms SMSJob
		if err := json.Unmarshal(job.Payload, &sms); err != nil {
			return fmt.Errorf("failed to unmarshal sms job: %w", err)
		}
		c.logger.Info("Sending SMS", zap.String("to", sms.ToNumber))
		return c.sms.Send(ctx, sms)
	}

	return fmt.Errorf("unknown job type %q", job.Type)
}

// Close closes the underlying reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
