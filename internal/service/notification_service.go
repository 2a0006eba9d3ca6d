package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/repository"
)

// NotificationInput carries everything needed to create one notification.
type NotificationInput struct {
	UserID     string
	Verb       domain.NotificationVerb
	Message    string
	SourceApp  string
	ActorID    *string
	TargetKind *string
	TargetID   *string
}

// NotificationService creates notifications with a channel snapshot taken from
// the user's preferences at creation time, then drives each pending channel
// through its handler. A failing channel never blocks its siblings.
type NotificationService struct {
	notifications repository.NotificationRepository
	preferences   repository.PreferenceRepository
	users         repository.UserRepository
	handlers      map[domain.ChannelKind]ChannelHandler
	logger        *zap.Logger
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	preferences repository.PreferenceRepository,
	users repository.UserRepository,
	handlers map[domain.ChannelKind]ChannelHandler,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		preferences:   preferences,
		users:         users,
		handlers:      handlers,
		logger:        logger,
	}
}

// Create persists the notification with one channel row per enabled channel
// kind and dispatches the pending channels. Channel delivery failures are
// recorded on the channel rows and returned alongside the notification; the
// notification itself stays committed.
func (s *NotificationService) Create(ctx context.Context, input NotificationInput) (*domain.Notification, error) {
	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification recipient: %w", err)
	}

	kinds, err := s.channelSnapshot(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	n := &domain.Notification{
		UserID:     user.ID,
		Verb:       input.Verb,
		Message:    input.Message,
		SourceApp:  input.SourceApp,
		ActorID:    input.ActorID,
		TargetKind: input.TargetKind,
		TargetID:   input.TargetID,
	}
	if err := s.notifications.CreateWithChannels(ctx, n, kinds); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if err := s.dispatch(ctx, user, n); err != nil {
		s.logger.Warn("notification delivered with channel failures",
			zap.String("notification_id", n.ID),
			zap.String("user_id", user.ID),
			zap.Error(err))
		return n, err
	}
	return n, nil
}

// CreateBatch persists one notification per input inside a single
// transaction, then dispatches the pending channels of everything that
// committed. A failing input is reported under its index in the returned map
// and never blocks the rest; a transaction-level failure fails every input.
func (s *NotificationService) CreateBatch(ctx context.Context, inputs []NotificationInput) ([]*domain.Notification, map[int]error) {
	failed := map[int]error{}
	recipients := make([]*domain.User, len(inputs))

	var items []repository.NotificationBatch
	var itemIdx []int
	for i, input := range inputs {
		user, err := s.users.GetByID(ctx, input.UserID)
		if err != nil {
			failed[i] = fmt.Errorf("failed to load notification recipient: %w", err)
			continue
		}
		kinds, err := s.channelSnapshot(ctx, user.ID)
		if err != nil {
			failed[i] = err
			continue
		}
		recipients[i] = user
		items = append(items, repository.NotificationBatch{
			Notification: &domain.Notification{
				UserID:     user.ID,
				Verb:       input.Verb,
				Message:    input.Message,
				SourceApp:  input.SourceApp,
				ActorID:    input.ActorID,
				TargetKind: input.TargetKind,
				TargetID:   input.TargetID,
			},
			Kinds: kinds,
		})
		itemIdx = append(itemIdx, i)
	}

	if len(items) == 0 {
		return nil, failed
	}

	batchFailed, err := s.notifications.CreateBatchWithChannels(ctx, items)
	if err != nil {
		for _, i := range itemIdx {
			failed[i] = err
		}
		return nil, failed
	}

	var created []*domain.Notification
	for pos, item := range items {
		i := itemIdx[pos]
		if itemErr, ok := batchFailed[pos]; ok {
			failed[i] = itemErr
			continue
		}
		n := item.Notification
		created = append(created, n)
		if err := s.dispatch(ctx, recipients[i], n); err != nil {
			s.logger.Warn("notification delivered with channel failures",
				zap.String("notification_id", n.ID),
				zap.String("user_id", n.UserID),
				zap.Error(err))
		}
	}
	return created, failed
}

// channelSnapshot resolves the channel kinds for a new notification from the
// user's preference row, or the fallback set when no row exists.
func (s *NotificationService) channelSnapshot(ctx context.Context, userID string) ([]domain.ChannelKind, error) {
	pref, err := s.preferences.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.FallbackChannels(), nil
		}
		return nil, fmt.Errorf("failed to load notification preferences: %w", err)
	}
	return pref.EnabledChannels(), nil
}

// dispatch runs every pending channel of the notification through its handler.
// Per-channel errors are collected so one channel cannot starve the rest.
func (s *NotificationService) dispatch(ctx context.Context, user *domain.User, n *domain.Notification) error {
	channels, err := s.notifications.ChannelsByStatus(ctx, n.ID, domain.ChannelPending)
	if err != nil {
		return fmt.Errorf("failed to list pending channels: %w", err)
	}

	var errs []error
	for _, ch := range channels {
		handler, ok := s.handlers[ch.Kind]
		if !ok {
			if updateErr := s.notifications.UpdateChannelStatus(ctx, ch.ID, domain.ChannelFailed); updateErr != nil {
				errs = append(errs, updateErr)
			}
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownChannelKind, ch.Kind))
			continue
		}
		if err := handler.Handle(ctx, user, n, ch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PreferenceUpdate carries a partial settings change; nil fields stay as they are.
type PreferenceUpdate struct {
	Email *bool
	SMS   *bool
	Push  *bool
}

// GetPreferences returns the user's notification settings row.
func (s *NotificationService) GetPreferences(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	return s.preferences.GetByUserID(ctx, userID)
}

// UpdatePreferences applies a partial settings change. Enabling SMS requires
// a phone number on the account.
func (s *NotificationService) UpdatePreferences(ctx context.Context, userID string, update PreferenceUpdate) (*domain.NotificationPreference, error) {
	pref, err := s.preferences.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.SMS != nil && *update.SMS {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load user for settings update: %w", err)
		}
		if user.PhoneNumber == nil || *user.PhoneNumber == "" {
			return nil, ErrPhoneNumberRequired
		}
	}

	if update.Email != nil {
		pref.Email = *update.Email
	}
	if update.SMS != nil {
		pref.SMS = *update.SMS
	}
	if update.Push != nil {
		pref.Push = *update.Push
	}

	if err := s.preferences.Update(ctx, pref); err != nil {
		return nil, fmt.Errorf("failed to update notification settings: %w", err)
	}
	return pref, nil
}

// ListByUser returns the user's notifications, optionally filtered by read state.
func (s *NotificationService) ListByUser(ctx context.Context, userID string, read *bool, limit int) ([]*domain.Notification, error) {
	return s.notifications.ListByUser(ctx, userID, read, limit)
}

// UnreadCount returns the number of unread notifications for the user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifications.UnreadCount(ctx, userID)
}

// MarkRead marks one notification read. Returns false when it was already
// read, which callers treat as success.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return false, err
	}
	if n.UserID != userID {
		return false, repository.ErrNotFound
	}
	return s.notifications.MarkRead(ctx, notificationID)
}

// MarkAllRead marks every unread notification of the user read and returns
// the count updated.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}

// RetryFailedChannels resets the notification's failed channels to pending
// and dispatches them again. Returns the number of channels retried.
func (s *NotificationService) RetryFailedChannels(ctx context.Context, userID, notificationID string) (int, error) {
	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return 0, err
	}
	if n.UserID != userID {
		return 0, repository.ErrNotFound
	}

	count, err := s.notifications.ResetFailedChannels(ctx, notificationID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed channels: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	user, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to load notification recipient: %w", err)
	}
	if err := s.dispatch(ctx, user, n); err != nil {
		s.logger.Warn("notification retry finished with channel failures",
			zap.String("notification_id", n.ID),
			zap.Error(err))
	}
	return count, nil
}
