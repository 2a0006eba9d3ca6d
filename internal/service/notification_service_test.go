package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/repository"
)

type notificationFixture struct {
	svc      *NotificationService
	repo     *fakeNotificationRepo
	prefs    *fakePreferenceRepo
	users    *fakeUserRepo
	handlers map[domain.ChannelKind]*countingHandler
}

func newNotificationFixture(prefs ...*domain.NotificationPreference) *notificationFixture {
	user := &domain.User{
		ID:       "user-1",
		Email:    "customer@example.com",
		FullName: "Test Customer",
		Role:     domain.RoleCustomer,
	}

	handlers := map[domain.ChannelKind]*countingHandler{
		domain.ChannelEmail: {},
		domain.ChannelSMS:   {},
		domain.ChannelPush:  {},
	}
	handlerMap := map[domain.ChannelKind]ChannelHandler{}
	for kind, h := range handlers {
		handlerMap[kind] = h
	}

	f := &notificationFixture{
		repo:     newFakeNotificationRepo(),
		prefs:    newFakePreferenceRepo(prefs...),
		users:    newFakeUserRepo(user),
		handlers: handlers,
	}
	f.svc = NewNotificationService(f.repo, f.prefs, f.users, handlerMap, zap.NewNop())
	return f
}

func TestNotification_Create_PreferenceSnapshot(t *testing.T) {
	f := newNotificationFixture(&domain.NotificationPreference{
		UserID: "user-1", Email: true, SMS: false, Push: true,
	})

	n, err := f.svc.Create(context.Background(), NotificationInput{
		UserID:  "user-1",
		Verb:    domain.VerbLike,
		Message: "Someone liked your listing",
	})
	require.NoError(t, err)

	statuses := f.repo.channelStatuses(n.ID)
	assert.Len(t, statuses, 2)
	assert.Contains(t, statuses, domain.ChannelEmail)
	assert.Contains(t, statuses, domain.ChannelPush)
	assert.NotContains(t, statuses, domain.ChannelSMS)

	assert.Len(t, f.handlers[domain.ChannelEmail].handled, 1)
	assert.Len(t, f.handlers[domain.ChannelPush].handled, 1)
	assert.Empty(t, f.handlers[domain.ChannelSMS].handled)
}

func TestNotification_Create_FallbackWithoutPreference(t *testing.T) {
	f := newNotificationFixture()

	n, err := f.svc.Create(context.Background(), NotificationInput{
		UserID:  "user-1",
		Verb:    domain.VerbFollow,
		Message: "You have a new follower",
	})
	require.NoError(t, err)

	statuses := f.repo.channelStatuses(n.ID)
	assert.Len(t, statuses, 2)
	assert.Contains(t, statuses, domain.ChannelEmail)
	assert.Contains(t, statuses, domain.ChannelPush)
}

func TestNotification_Create_AllChannelsDisabled(t *testing.T) {
	f := newNotificationFixture(&domain.NotificationPreference{UserID: "user-1"})

	n, err := f.svc.Create(context.Background(), NotificationInput{
		UserID:  "user-1",
		Verb:    domain.VerbOther,
		Message: "Quiet message",
	})
	require.NoError(t, err)

	assert.Empty(t, f.repo.channelStatuses(n.ID))
	for kind, h := range f.handlers {
		assert.Empty(t, h.handled, "handler %s must not run", kind)
	}
}

func TestNotification_Create_FailingSiblingDoesNotBlock(t *testing.T) {
	f := newNotificationFixture(&domain.NotificationPreference{
		UserID: "user-1", Email: true, SMS: true, Push: true,
	})
	f.handlers[domain.ChannelEmail].err = errBoom

	n, err := f.svc.Create(context.Background(), NotificationInput{
		UserID:  "user-1",
		Verb:    domain.VerbMention,
		Message: "You were mentioned",
	})
	require.NotNil(t, n, "channel failures must not roll back the notification")
	assert.ErrorIs(t, err, errBoom)

	assert.Len(t, f.handlers[domain.ChannelSMS].handled, 1)
	assert.Len(t, f.handlers[domain.ChannelPush].handled, 1)
}

func TestNotification_Create_UnknownChannelKind(t *testing.T) {
	f := newNotificationFixture(&domain.NotificationPreference{
		UserID: "user-1", Email: true, SMS: false, Push: false,
	})
	f.svc = NewNotificationService(f.repo, f.prefs, f.users, map[domain.ChannelKind]ChannelHandler{}, zap.NewNop())

	n, err := f.svc.Create(context.Background(), NotificationInput{
		UserID:  "user-1",
		Verb:    domain.VerbLike,
		Message: "hello",
	})
	require.NotNil(t, n)
	assert.ErrorIs(t, err, ErrUnknownChannelKind)
	assert.Equal(t, domain.ChannelFailed, f.repo.channelStatuses(n.ID)[domain.ChannelEmail])
}

func TestNotification_Create_UnknownRecipient(t *testing.T) {
	f := newNotificationFixture()

	_, err := f.svc.Create(context.Background(), NotificationInput{
		UserID:  "ghost",
		Verb:    domain.VerbLike,
		Message: "hello",
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestNotification_Settings_PartialUpdate(t *testing.T) {
	f := newNotificationFixture(&domain.NotificationPreference{
		UserID: "user-1", Email: true, SMS: false, Push: true,
	})
	ctx := context.Background()

	push := false
	pref, err := f.svc.UpdatePreferences(ctx, "user-1", PreferenceUpdate{Push: &push})
	require.NoError(t, err)
	assert.True(t, pref.Email)
	assert.False(t, pref.SMS)
	assert.False(t, pref.Push)

	// the change is persisted, untouched fields survive
	got, err := f.svc.GetPreferences(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, got.Email)
	assert.False(t, got.Push)
}

func TestNotification_Settings_SMSRequiresPhone(t *testing.T) {
	f := newNotificationFixture(&domain.NotificationPreference{
		UserID: "user-1", Email: true, SMS: false, Push: true,
	})
	ctx := context.Background()

	sms := true
	_, err := f.svc.UpdatePreferences(ctx, "user-1", PreferenceUpdate{SMS: &sms})
	assert.ErrorIs(t, err, ErrPhoneNumberRequired)

	phone := "+15550100"
	f.users.users["user-1"].PhoneNumber = &phone

	pref, err := f.svc.UpdatePreferences(ctx, "user-1", PreferenceUpdate{SMS: &sms})
	require.NoError(t, err)
	assert.True(t, pref.SMS)
}

func TestNotification_Settings_MissingRow(t *testing.T) {
	f := newNotificationFixture()

	_, err := f.svc.GetPreferences(context.Background(), "user-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	email := false
	_, err = f.svc.UpdatePreferences(context.Background(), "user-1", PreferenceUpdate{Email: &email})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestNotification_MarkRead_Idempotent(t *testing.T) {
	f := newNotificationFixture()
	ctx := context.Background()

	n, err := f.svc.Create(ctx, NotificationInput{
		UserID:  "user-1",
		Verb:    domain.VerbComment,
		Message: "New comment",
	})
	require.NoError(t, err)

	updated, err := f.svc.MarkRead(ctx, "user-1", n.ID)
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = f.svc.MarkRead(ctx, "user-1", n.ID)
	require.NoError(t, err)
	assert.False(t, updated, "second mark-read reports no change")
}

func TestNotification_MarkRead_WrongOwner(t *testing.T) {
	f := newNotificationFixture()
	ctx := context.Background()

	n, err := f.svc.Create(ctx, NotificationInput{
		UserID:  "user-1",
		Verb:    domain.VerbComment,
		Message: "New comment",
	})
	require.NoError(t, err)

	_, err = f.svc.MarkRead(ctx, "someone-else", n.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestNotification_UnreadCountAndMarkAllRead(t *testing.T) {
	f := newNotificationFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, NotificationInput{
			UserID:  "user-1",
			Verb:    domain.VerbOther,
			Message: "msg",
		})
		require.NoError(t, err)
	}

	count, err := f.svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	updated, err := f.svc.MarkAllRead(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	count, err = f.svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotification_RetryFailedChannels(t *testing.T) {
	f := newNotificationFixture(&domain.NotificationPreference{
		UserID: "user-1", Email: true, SMS: false, Push: false,
	})
	f.handlers[domain.ChannelEmail].err = errBoom
	ctx := context.Background()

	n, err := f.svc.Create(ctx, NotificationInput{
		UserID:  "user-1",
		Verb:    domain.VerbIssue,
		Message: "Delivery trouble",
	})
	require.NotNil(t, n)
	require.ErrorIs(t, err, errBoom)

	// counting handler returns the error without touching status, so fail it
	// the way a real handler would
	chs, err := f.repo.ChannelsByStatus(ctx, n.ID, domain.ChannelPending)
	require.NoError(t, err)
	require.Len(t, chs, 1)
	require.NoError(t, f.repo.UpdateChannelStatus(ctx, chs[0].ID, domain.ChannelFailed))

	f.handlers[domain.ChannelEmail].err = nil

	retried, err := f.svc.RetryFailedChannels(ctx, "user-1", n.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, retried)
	assert.Len(t, f.handlers[domain.ChannelEmail].handled, 1)
}

func TestNotification_Retry_NothingFailed(t *testing.T) {
	f := newNotificationFixture()
	ctx := context.Background()

	n, err := f.svc.Create(ctx, NotificationInput{
		UserID:  "user-1",
		Verb:    domain.VerbResolved,
		Message: "All good",
	})
	require.NoError(t, err)

	retried, err := f.svc.RetryFailedChannels(ctx, "user-1", n.ID)
	require.NoError(t, err)
	assert.Zero(t, retried)
}
