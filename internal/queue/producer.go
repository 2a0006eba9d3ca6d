package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const writeTimeout = 10 * time.Second

// Producer enqueues deferred delivery jobs onto Kafka.
// Enqueue success means the job will eventually be attempted at least once;
// it says nothing about actual delivery.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a new job producer
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: writeTimeout,
		},
	}
}

// EnqueueEmail enqueues an email delivery job
func (p *Producer) EnqueueEmail(ctx context.Context, job EmailJob) error {
	return p.publish(ctx, JobSendEmail, job.Recipient, job)
}

// EnqueueSMS enqueues an SMS delivery job
func (p *Producer) EnqueueSMS(ctx context.Context, job SMSJob) error {
	return p.publish(ctx, JobSendSMS, job.ToNumber, job)
}

func (p *Producer) publish(ctx context.Context, jobType JobType, key string, payload any) error {
	job, err := newJob(jobType, payload)
	if err != nil {
		return err
	}

	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  job.EnqueuedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue %s job: %w", jobType, err)
	}

	return nil
}

// Close closes the underlying writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
