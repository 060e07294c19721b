package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"conversa-backend/internal/models"
	"conversa-backend/internal/repository"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb, mr
}

type chatEvent struct {
	Type    string                  `json:"type"`
	Payload models.ChatUpdatedEvent `json:"payload"`
}

func subscribe(t *testing.T, rdb *redis.Client, userID uuid.UUID) <-chan *redis.Message {
	t.Helper()
	sub := rdb.Subscribe(context.Background(), UpdateChannel(userID))
	t.Cleanup(func() { sub.Close() })

	_, err := sub.Receive(context.Background())
	require.NoError(t, err)
	return sub.Channel()
}

func nextEvent(t *testing.T, ch <-chan *redis.Message) chatEvent {
	t.Helper()
	select {
	case msg := <-ch:
		var ev chatEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
		return chatEvent{}
	}
}

func TestUpdateChannel(t *testing.T) {
	id := uuid.MustParse("6f1c2b1e-7c1d-4d55-9a39-0c1f6f0c9a10")
	require.Equal(t, "chat_updates:6f1c2b1e-7c1d-4d55-9a39-0c1f6f0c9a10", UpdateChannel(id))
}

func TestRedisNotifier_PublishesOnOwnersChannel(t *testing.T) {
	rdb, _ := newTestRedis(t)
	owner, other := uuid.New(), uuid.New()
	ownerEvents := subscribe(t, rdb, owner)
	otherEvents := subscribe(t, rdb, other)

	chat := &models.Chat{
		ID:        uuid.New(),
		UserID:    owner,
		Title:     "recipes",
		Messages:  []models.Message{{Role: models.RoleUser, Text: "soup?"}, {Role: models.RoleAssistant, Text: "sure"}},
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	NewRedisNotifier(rdb, zap.NewNop()).ChatUpdated(context.Background(), chat)

	ev := nextEvent(t, ownerEvents)
	require.Equal(t, EventChatUpdated, ev.Type)
	require.Equal(t, chat.ID, ev.Payload.ChatID)
	require.Equal(t, "recipes", ev.Payload.Title)
	require.Equal(t, 2, ev.Payload.Messages)
	require.True(t, chat.UpdatedAt.Equal(ev.Payload.UpdatedAt))

	select {
	case msg := <-otherEvents:
		t.Fatalf("unexpected event for another user: %s", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisNotifier_SendPublishesPersistedThread(t *testing.T) {
	rdb, _ := newTestRedis(t)
	user := uuid.New()
	events := subscribe(t, rdb, user)

	svc := NewChatService(repository.NewMemoryChatRepo(), &stubOracle{reply: "pong"}, NewRedisNotifier(rdb, zap.NewNop()), zap.NewNop())
	resp, err := svc.Send(context.Background(), user, "", "ping")
	require.NoError(t, err)

	ev := nextEvent(t, events)
	require.Equal(t, resp.ChatID, ev.Payload.ChatID)
	require.Equal(t, "ping", ev.Payload.Title)
	require.Equal(t, 2, ev.Payload.Messages)
	require.True(t, resp.Chat.UpdatedAt.Equal(ev.Payload.UpdatedAt))
}

func TestRedisNotifier_PublishFailureDoesNotFailSend(t *testing.T) {
	rdb, mr := newTestRedis(t)
	mr.Close()

	svc := NewChatService(repository.NewMemoryChatRepo(), &stubOracle{reply: "pong"}, NewRedisNotifier(rdb, zap.NewNop()), zap.NewNop())
	resp, err := svc.Send(context.Background(), uuid.New(), "", "ping")
	require.NoError(t, err)
	require.Equal(t, "pong", resp.Reply)
}
