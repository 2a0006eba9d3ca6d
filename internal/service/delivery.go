package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/queue"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/pkg/observability"
)

// EmailChannelHandler hands notifications to the mail queue. Enqueueing is the
// delivery boundary: a queued job marks the channel sent, a queue error marks
// it failed.
type EmailChannelHandler struct {
	jobs     repository.NotificationRepository
	enqueuer JobEnqueuer
	metrics  *observability.DeliveryMetrics
	logger   *zap.Logger
}

func NewEmailChannelHandler(notifications repository.NotificationRepository, enqueuer JobEnqueuer, metrics *observability.DeliveryMetrics, logger *zap.Logger) *EmailChannelHandler {
	return &EmailChannelHandler{
		jobs:     notifications,
		enqueuer: enqueuer,
		metrics:  metrics,
		logger:   logger,
	}
}

func (h *EmailChannelHandler) Handle(ctx context.Context, user *domain.User, n *domain.Notification, ch *domain.NotificationChannel) error {
	job := queue.EmailJob{
		Recipient: user.Email,
		Subject:   "You have a new notification",
		Template:  n.Verb.EmailTemplate(),
		Context: map[string]string{
			"user_name": user.FullName,
			"message":   n.Message,
		},
	}

	if err := h.enqueuer.EnqueueEmail(ctx, job); err != nil {
		h.markStatus(ctx, ch, domain.ChannelFailed)
		return fmt.Errorf("failed to enqueue notification email: %w", err)
	}

	h.markStatus(ctx, ch, domain.ChannelSent)
	return nil
}

func (h *EmailChannelHandler) markStatus(ctx context.Context, ch *domain.NotificationChannel, status domain.ChannelStatus) {
	if err := h.jobs.UpdateChannelStatus(ctx, ch.ID, status); err != nil {
		h.logger.Error("failed to update email channel status",
			zap.String("channel_id", ch.ID),
			zap.Error(err))
		return
	}
	ch.Status = status
	h.metrics.RecordAttempt(ctx, string(domain.ChannelEmail), string(status))
}

// SMSChannelHandler hands notifications to the SMS queue. A user without a
// phone number fails the channel quietly so the remaining channels still run.
type SMSChannelHandler struct {
	notifications repository.NotificationRepository
	enqueuer      JobEnqueuer
	metrics       *observability.DeliveryMetrics
	logger        *zap.Logger
}

func NewSMSChannelHandler(notifications repository.NotificationRepository, enqueuer JobEnqueuer, metrics *observability.DeliveryMetrics, logger *zap.Logger) *SMSChannelHandler {
	return &SMSChannelHandler{
		notifications: notifications,
		enqueuer:      enqueuer,
		metrics:       metrics,
		logger:        logger,
	}
}

func (h *SMSChannelHandler) Handle(ctx context.Context, user *domain.User, n *domain.Notification, ch *domain.NotificationChannel) error {
	if user.PhoneNumber == nil || *user.PhoneNumber == "" {
		h.logger.Info("sms channel skipped, user has no phone number",
			zap.String("user_id", user.ID),
			zap.String("notification_id", n.ID))
		h.markStatus(ctx, ch, domain.ChannelFailed)
		return nil
	}

	job := queue.SMSJob{
		ToNumber: *user.PhoneNumber,
		Message:  n.Message,
	}
	if err := h.enqueuer.EnqueueSMS(ctx, job); err != nil {
		h.markStatus(ctx, ch, domain.ChannelFailed)
		return fmt.Errorf("failed to enqueue notification sms: %w", err)
	}

	h.markStatus(ctx, ch, domain.ChannelSent)
	return nil
}

func (h *SMSChannelHandler) markStatus(ctx context.Context, ch *domain.NotificationChannel, status domain.ChannelStatus) {
	if err := h.notifications.UpdateChannelStatus(ctx, ch.ID, status); err != nil {
		h.logger.Error("failed to update sms channel status",
			zap.String("channel_id", ch.ID),
			zap.Error(err))
		return
	}
	ch.Status = status
	h.metrics.RecordAttempt(ctx, string(domain.ChannelSMS), string(status))
}

// PushChannelHandler publishes to the user's live sessions. The channel is
// marked sent only when at least one connected session received the payload;
// with nobody connected it stays pending for a later retry.
type PushChannelHandler struct {
	notifications repository.NotificationRepository
	sender        PushSender
	metrics       *observability.DeliveryMetrics
	logger        *zap.Logger
}

func NewPushChannelHandler(notifications repository.NotificationRepository, sender PushSender, metrics *observability.DeliveryMetrics, logger *zap.Logger) *PushChannelHandler {
	return &PushChannelHandler{
		notifications: notifications,
		sender:        sender,
		metrics:       metrics,
		logger:        logger,
	}
}

func (h *PushChannelHandler) Handle(ctx context.Context, user *domain.User, n *domain.Notification, ch *domain.NotificationChannel) error {
	payload := map[string]any{
		"id":         n.ID,
		"verb":       n.Verb,
		"message":    n.Message,
		"source_app": n.SourceApp,
		"created_at": n.CreatedAt,
	}

	received, err := h.sender.SendToUser(ctx, user.ID, payload)
	if err != nil {
		h.markStatus(ctx, ch, domain.ChannelFailed)
		return fmt.Errorf("failed to publish push notification: %w", err)
	}
	if !received {
		h.logger.Debug("push notification had no connected sessions",
			zap.String("user_id", user.ID),
			zap.String("notification_id", n.ID))
		h.metrics.RecordAttempt(ctx, string(domain.ChannelPush), string(domain.ChannelPending))
		return nil
	}

	h.markStatus(ctx, ch, domain.ChannelSent)
	return nil
}

func (h *PushChannelHandler) markStatus(ctx context.Context, ch *domain.NotificationChannel, status domain.ChannelStatus) {
	if err := h.notifications.UpdateChannelStatus(ctx, ch.ID, status); err != nil {
		h.logger.Error("failed to update push channel status",
			zap.String("channel_id", ch.ID),
			zap.Error(err))
		return
	}
	ch.Status = status
	h.metrics.RecordAttempt(ctx, string(domain.ChannelPush), string(status))
}
