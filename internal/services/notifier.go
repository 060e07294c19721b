package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"conversa-backend/internal/models"
)

const EventChatUpdated = "chat_updated"

// UpdateChannel is the Redis pub/sub channel carrying a user's live events.
func UpdateChannel(userID uuid.UUID) string {
	return "chat_updates:" + userID.String()
}

// RedisNotifier publishes chat events for the websocket hub to fan out.
type RedisNotifier struct {
	redis *redis.Client
	log   *zap.Logger
}

func NewRedisNotifier(redisClient *redis.Client, log *zap.Logger) *RedisNotifier {
	return &RedisNotifier{redis: redisClient, log: log.Named("notifier")}
}

// ChatUpdated is best-effort: failures are logged and dropped.
func (n *RedisNotifier) ChatUpdated(ctx context.Context, chat *models.Chat) {
	data, err := json.Marshal(models.WSMessage{
		Type: EventChatUpdated,
		Payload: models.ChatUpdatedEvent{
			ChatID:    chat.ID,
			Title:     chat.Title,
			Messages:  len(chat.Messages),
			UpdatedAt: chat.UpdatedAt,
		},
	})
	if err != nil {
		n.log.Error("encode chat event", zap.Error(err))
		return
	}

	if err := n.redis.Publish(ctx, UpdateChannel(chat.UserID), data).Err(); err != nil {
		n.log.Warn("publish chat event", zap.Stringer("chat_id", chat.ID), zap.Error(err))
	}
}
