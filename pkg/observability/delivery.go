package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DeliveryMetrics counts notification delivery attempts per channel and outcome
type DeliveryMetrics struct {
	attempts metric.Int64Counter
}

// NewDeliveryMetrics registers delivery counters on the global meter provider
func NewDeliveryMetrics(serviceName string) (*DeliveryMetrics, error) {
	meter := otel.Meter(serviceName)

	attempts, err := meter.Int64Counter(
		"notification_channel_attempts_total",
		metric.WithDescription("Notification delivery attempts by channel kind and resulting status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create delivery counter: %w", err)
	}

	return &DeliveryMetrics{attempts: attempts}, nil
}

// RecordAttempt counts one delivery attempt outcome
func (m *DeliveryMetrics) RecordAttempt(ctx context.Context, kind, status string) {
	if m == nil {
		return
	}
	m.attempts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		))
}
