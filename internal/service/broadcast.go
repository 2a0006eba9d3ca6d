package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/repository"
)

// BroadcastInput describes one fan-out request. ActorID is the admin who
// triggered the run; it is stamped on every created notification.
type BroadcastInput struct {
	Verb      domain.NotificationVerb
	Message   string
	Target    string
	SourceApp string
	ActorID   *string
	ChunkSize int
}

// BroadcastResult summarizes a finished fan-out.
type BroadcastResult struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Failed  int `json:"failed"`
}

// BroadcastService fans one message out to a resolved user population in
// chunks. Each user is processed independently; one failing user never stops
// the run.
type BroadcastService struct {
	users            repository.UserRepository
	notifications    *NotificationService
	defaultChunkSize int
	logger           *zap.Logger
}

func NewBroadcastService(users repository.UserRepository, notifications *NotificationService, defaultChunkSize int, logger *zap.Logger) *BroadcastService {
	return &BroadcastService{
		users:            users,
		notifications:    notifications,
		defaultChunkSize: defaultChunkSize,
		logger:           logger,
	}
}

// Send resolves the target population and creates one notification per user,
// chunk by chunk. An empty population is not an error.
func (s *BroadcastService) Send(ctx context.Context, input BroadcastInput) (*BroadcastResult, error) {
	chunkSize := input.ChunkSize
	if chunkSize <= 0 {
		chunkSize = s.defaultChunkSize
	}

	userIDs, err := s.users.ListBroadcastIDs(ctx, input.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve broadcast target %q: %w", input.Target, err)
	}

	result := &BroadcastResult{Total: len(userIDs)}
	if len(userIDs) == 0 {
		s.logger.Info("broadcast matched no users", zap.String("target", input.Target))
		return result, nil
	}

	for start := 0; start < len(userIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		s.sendChunk(ctx, userIDs[start:end], input, result)
	}

	s.logger.Info("broadcast finished",
		zap.String("target", input.Target),
		zap.Int("total", result.Total),
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed))
	return result, nil
}

// sendChunk creates the chunk's notifications in one transaction; a user
// failing inside the chunk is skipped without losing the rest.
func (s *BroadcastService) sendChunk(ctx context.Context, userIDs []string, input BroadcastInput, result *BroadcastResult) {
	inputs := make([]NotificationInput, len(userIDs))
	for i, userID := range userIDs {
		id := userID
		kind := "user"
		inputs[i] = NotificationInput{
			UserID:     userID,
			Verb:       input.Verb,
			Message:    input.Message,
			SourceApp:  input.SourceApp,
			ActorID:    input.ActorID,
			TargetKind: &kind,
			TargetID:   &id,
		}
	}

	created, failed := s.notifications.CreateBatch(ctx, inputs)
	result.Created += len(created)
	result.Failed += len(failed)
	for i, err := range failed {
		s.logger.Error("broadcast skipped user",
			zap.String("user_id", userIDs[i]),
			zap.Error(err))
	}
}
