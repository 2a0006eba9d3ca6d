package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prperemyshlev/account-service/pkg/database"
)

// userChannel is the Redis pub/sub channel carrying one user's push messages.
func userChannel(userID string) string {
	return fmt.Sprintf("notifications:user:%s", userID)
}

// Notifier fans push payloads out to a user's currently-connected sessions
// via Redis pub/sub. Delivery is fire-and-forget: there is no redelivery for
// sessions that connect later.
type Notifier struct {
	redis *database.Redis
}

// NewNotifier creates a new push notifier
func NewNotifier(redis *database.Redis) *Notifier {
	return &Notifier{redis: redis}
}

// SendToUser publishes a payload to the user's channel.
// Returns true when at least one connected session received it.
func (n *Notifier) SendToUser(ctx context.Context, userID string, payload any) (bool, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal push payload: %w", err)
	}

	receivers, err := n.redis.Client.Publish(ctx, userChannel(userID), data).Result()
	if err != nil {
		return false, fmt.Errorf("failed to publish push payload: %w", err)
	}

	return receivers > 0, nil
}
