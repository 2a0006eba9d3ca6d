package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/queue"
	"github.com/prperemyshlev/account-service/internal/repository"
)

// In-memory repository fakes backing the service tests.

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.TrackedToken // keyed by id
	// jtis blacklisted, keyed by userID+":"+jtiHash
	blacklisted map[string]bool
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{
		tokens:      map[string]*domain.TrackedToken{},
		blacklisted: map[string]bool{},
	}
}

func (f *fakeTokenRepo) GetOrCreate(ctx context.Context, token *domain.TrackedToken) (*domain.TrackedToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.UserID == token.UserID && t.JTIHash == token.JTIHash {
			return t, nil
		}
	}
	cp := *token
	cp.ID = uuid.New().String()
	cp.CreatedAt = time.Now()
	f.tokens[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeTokenRepo) GetByJTIHash(ctx context.Context, userID, jtiHash string) (*domain.TrackedToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.UserID == userID && t.JTIHash == jtiHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTokenRepo) GetByUserID(ctx context.Context, userID string) ([]*domain.TrackedToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.TrackedToken
	for _, t := range f.tokens {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTokenRepo) Revoke(ctx context.Context, userID, tokenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[tokenID]
	if !ok || t.UserID != userID {
		return repository.ErrNotFound
	}
	key := userID + ":" + t.JTIHash
	if f.blacklisted[key] {
		return repository.ErrAlreadyBlacklisted
	}
	f.blacklisted[key] = true
	now := time.Now()
	t.RevokedAt = &now
	return nil
}

func (f *fakeTokenRepo) RevokeAll(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	now := time.Now()
	for _, t := range f.tokens {
		key := userID + ":" + t.JTIHash
		if t.UserID == userID && t.RevokedAt == nil && !f.blacklisted[key] {
			f.blacklisted[key] = true
			t.RevokedAt = &now
			count++
		}
	}
	return count, nil
}

func (f *fakeTokenRepo) IsBlacklisted(ctx context.Context, userID, jtiHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blacklisted[userID+":"+jtiHash], nil
}

type fakeRevocationCache struct {
	mu      sync.Mutex
	entries map[string]bool
	addErr  error
}

func newFakeRevocationCache() *fakeRevocationCache {
	return &fakeRevocationCache{entries: map[string]bool{}}
}

func (f *fakeRevocationCache) Add(ctx context.Context, userID, jtiHash string, expiry time.Duration) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[userID+":"+jtiHash] = true
	return nil
}

func (f *fakeRevocationCache) Contains(ctx context.Context, userID, jtiHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[userID+":"+jtiHash], nil
}

type fakeOtpRepo struct {
	mu   sync.Mutex
	otps []*domain.Otp
}

func (f *fakeOtpRepo) CreateInvalidatingPrior(ctx context.Context, otp *domain.Otp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.otps {
		if o.UserID == otp.UserID && o.Purpose == otp.Purpose && !o.IsUsed {
			o.IsUsed = true
		}
	}
	cp := *otp
	cp.ID = uuid.New().String()
	cp.CreatedAt = time.Now()
	otp.ID = cp.ID
	f.otps = append(f.otps, &cp)
	return nil
}

func (f *fakeOtpRepo) GetUnused(ctx context.Context, userID, code string, purpose domain.OtpPurpose) (*domain.Otp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.otps {
		if o.UserID == userID && o.Code == code && o.Purpose == purpose && !o.IsUsed {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeOtpRepo) MarkUsed(ctx context.Context, otpID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.otps {
		if o.ID == otpID {
			o.IsUsed = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeOtpRepo) unusedCount(userID string, purpose domain.OtpPurpose) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, o := range f.otps {
		if o.UserID == userID && o.Purpose == purpose && !o.IsUsed {
			count++
		}
	}
	return count
}

type fakeUserRepo struct {
	mu           sync.Mutex
	users        map[string]*domain.User
	broadcastIDs []string
	broadcastErr error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[string]*domain.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	if u, ok := f.users[userID]; ok {
		u.LastLoginAt = &now
	}
	return nil
}

func (f *fakeUserRepo) SetPassword(ctx context.Context, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserRepo) MarkVerified(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsActive = true
	u.IsVerified = true
	return nil
}

func (f *fakeUserRepo) ListBroadcastIDs(ctx context.Context, target string) ([]string, error) {
	if f.broadcastErr != nil {
		return nil, f.broadcastErr
	}
	return f.broadcastIDs, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications map[string]*domain.Notification
	channels      map[string]*domain.NotificationChannel
	createErrFor  map[string]error // by user id
	batchErr      error            // fails whole CreateBatchWithChannels calls
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{
		notifications: map[string]*domain.Notification{},
		channels:      map[string]*domain.NotificationChannel{},
		createErrFor:  map[string]error{},
	}
}

func (f *fakeNotificationRepo) CreateBatchWithChannels(ctx context.Context, items []repository.NotificationBatch) (map[int]error, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	failed := map[int]error{}
	for i, item := range items {
		if err := f.CreateWithChannels(ctx, item.Notification, item.Kinds); err != nil {
			failed[i] = err
		}
	}
	return failed, nil
}

func (f *fakeNotificationRepo) CreateWithChannels(ctx context.Context, n *domain.Notification, kinds []domain.ChannelKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErrFor[n.UserID]; err != nil {
		return err
	}
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()
	cp := *n
	f.notifications[n.ID] = &cp
	for _, kind := range kinds {
		ch := &domain.NotificationChannel{
			ID:             uuid.New().String(),
			NotificationID: n.ID,
			Kind:           kind,
			Status:         domain.ChannelPending,
			CreatedAt:      n.CreatedAt,
		}
		f.channels[ch.ID] = ch
	}
	return nil
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID string, read *bool, limit int) ([]*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Notification
	for _, n := range f.notifications {
		if n.UserID != userID {
			continue
		}
		if read != nil && n.Read != *read {
			continue
		}
		cp := *n
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, notificationID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[notificationID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if n.Read {
		return false, nil
	}
	n.Read = true
	for _, ch := range f.channels {
		if ch.NotificationID == notificationID {
			ch.IsRead = true
		}
	}
	return true, nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) ChannelsByStatus(ctx context.Context, notificationID string, status domain.ChannelStatus) ([]*domain.NotificationChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.NotificationChannel
	for _, kind := range domain.AllChannelKinds {
		for _, ch := range f.channels {
			if ch.NotificationID == notificationID && ch.Status == status && ch.Kind == kind {
				cp := *ch
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) UpdateChannelStatus(ctx context.Context, channelID string, status domain.ChannelStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return repository.ErrNotFound
	}
	ch.Status = status
	return nil
}

func (f *fakeNotificationRepo) ResetFailedChannels(ctx context.Context, notificationID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, ch := range f.channels {
		if ch.NotificationID == notificationID && ch.Status == domain.ChannelFailed {
			ch.Status = domain.ChannelPending
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) channelStatuses(notificationID string) map[domain.ChannelKind]domain.ChannelStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[domain.ChannelKind]domain.ChannelStatus{}
	for _, ch := range f.channels {
		if ch.NotificationID == notificationID {
			out[ch.Kind] = ch.Status
		}
	}
	return out
}

type fakePreferenceRepo struct {
	mu    sync.Mutex
	prefs map[string]*domain.NotificationPreference
}

func newFakePreferenceRepo(prefs ...*domain.NotificationPreference) *fakePreferenceRepo {
	f := &fakePreferenceRepo{prefs: map[string]*domain.NotificationPreference{}}
	for _, p := range prefs {
		f.prefs[p.UserID] = p
	}
	return f
}

func (f *fakePreferenceRepo) Create(ctx context.Context, pref *domain.NotificationPreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.prefs[pref.UserID]; ok {
		return nil
	}
	cp := *pref
	f.prefs[pref.UserID] = &cp
	return nil
}

func (f *fakePreferenceRepo) GetByUserID(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prefs[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePreferenceRepo) Update(ctx context.Context, pref *domain.NotificationPreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *pref
	f.prefs[pref.UserID] = &cp
	return nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[string]*domain.Profile{}}
}

func (f *fakeProfileRepo) Create(ctx context.Context, profile *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[profile.UserID]; ok {
		return nil
	}
	cp := *profile
	cp.ID = uuid.New().String()
	f.profiles[profile.UserID] = &cp
	return nil
}

func (f *fakeProfileRepo) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeEnqueuer struct {
	mu       sync.Mutex
	emails   []queue.EmailJob
	sms      []queue.SMSJob
	emailErr error
	smsErr   error
}

func (f *fakeEnqueuer) EnqueueEmail(ctx context.Context, job queue.EmailJob) error {
	if f.emailErr != nil {
		return f.emailErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, job)
	return nil
}

func (f *fakeEnqueuer) EnqueueSMS(ctx context.Context, job queue.SMSJob) error {
	if f.smsErr != nil {
		return f.smsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sms = append(f.sms, job)
	return nil
}

type fakePushSender struct {
	received bool
	err      error
	sent     int
}

func (f *fakePushSender) SendToUser(ctx context.Context, userID string, payload any) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.sent++
	return f.received, nil
}

type countingHandler struct {
	mu      sync.Mutex
	handled []string // notification ids
	err     error
}

func (h *countingHandler) Handle(ctx context.Context, user *domain.User, n *domain.Notification, ch *domain.NotificationChannel) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.handled = append(h.handled, fmt.Sprintf("%s/%s", n.ID, ch.Kind))
	return nil
}

var errBoom = errors.New("boom")
