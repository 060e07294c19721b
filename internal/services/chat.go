package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"conversa-backend/internal/models"
	"conversa-backend/internal/repository"
)

const (
	// FallbackEmptyReply replaces a completion that carried no text.
	FallbackEmptyReply = "I'm sorry, I couldn't generate a response."
	// FallbackOracleDown replaces a completion that failed outright.
	FallbackOracleDown = "I'm having trouble responding right now."

	titleMaxRunes = 40
)

type ChatStore interface {
	Create(ctx context.Context, chat *models.Chat) error
	Update(ctx context.Context, chat *models.Chat) error
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Chat, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error)
}

// Oracle turns a flattened transcript into the assistant's next line.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type updateNotifier interface {
	ChatUpdated(ctx context.Context, chat *models.Chat)
}

type ChatService struct {
	store    ChatStore
	oracle   Oracle
	notifier updateNotifier
	log      *zap.Logger
}

// NewChatService wires the send cycle. notifier may be nil.
func NewChatService(store ChatStore, oracle Oracle, notifier updateNotifier, log *zap.Logger) *ChatService {
	return &ChatService{
		store:    store,
		oracle:   oracle,
		notifier: notifier,
		log:      log.Named("chat"),
	}
}

// Send runs one send cycle: resolve or create the thread, append the user
// message, ask the oracle, append the reply, sanitize and persist.
// Oracle failures never fail the call; they degrade to a fallback reply.
func (s *ChatService) Send(ctx context.Context, userID uuid.UUID, chatID, message string) (*models.SendMessageResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, &ValidationError{Fields: map[string]string{"message": "Message is required"}}
	}

	// A client disconnect must not drop the user's message half way through.
	ctx = context.WithoutCancel(ctx)

	chat, isNew, err := s.resolveThread(ctx, userID, chatID, message)
	if err != nil {
		return nil, err
	}

	chat.Messages = append(chat.Messages, models.Message{Role: models.RoleUser, Text: message})

	reply := s.complete(ctx, chat.ID, BuildPrompt(chat.Messages))

	chat.Messages = append(chat.Messages, models.Message{Role: models.RoleAssistant, Text: reply})
	chat.Messages = SanitizeMessages(chat.Messages)

	if isNew {
		err = s.store.Create(ctx, chat)
	} else {
		err = s.store.Update(ctx, chat)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Message: "Chat not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save chat: %w", err)
	}

	if s.notifier != nil {
		s.notifier.ChatUpdated(ctx, chat)
	}

	return &models.SendMessageResponse{
		ChatID: chat.ID,
		Reply:  reply,
		Chat:   chat,
	}, nil
}

func (s *ChatService) resolveThread(ctx context.Context, userID uuid.UUID, chatID, message string) (*models.Chat, bool, error) {
	if chatID == "" {
		return &models.Chat{
			UserID:   userID,
			Title:    DeriveTitle(message),
			Messages: []models.Message{},
		}, true, nil
	}

	chat, err := s.getOwned(ctx, userID, chatID)
	if err != nil {
		return nil, false, err
	}
	return chat, false, nil
}

func (s *ChatService) complete(ctx context.Context, chatID uuid.UUID, prompt string) string {
	text, err := s.oracle.Complete(ctx, prompt)
	if err != nil {
		s.log.Warn("completion failed, using fallback reply",
			zap.Stringer("chat_id", chatID), zap.Error(err))
		return FallbackOracleDown
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.log.Warn("completion was empty, using fallback reply", zap.Stringer("chat_id", chatID))
		return FallbackEmptyReply
	}
	return text
}

// ListThreads returns the user's threads, most recently updated first.
func (s *ChatService) ListThreads(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error) {
	chats, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	for _, c := range chats {
		c.Messages = SanitizeMessages(c.Messages)
	}
	return chats, nil
}

// GetThread returns one thread owned by userID. Threads owned by others are
// indistinguishable from missing ones.
func (s *ChatService) GetThread(ctx context.Context, userID uuid.UUID, chatID string) (*models.Chat, error) {
	chat, err := s.getOwned(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	chat.Messages = SanitizeMessages(chat.Messages)
	return chat, nil
}

func (s *ChatService) getOwned(ctx context.Context, userID uuid.UUID, chatID string) (*models.Chat, error) {
	id, err := uuid.Parse(chatID)
	if err != nil {
		return nil, &NotFoundError{Message: "Chat not found"}
	}

	chat, err := s.store.GetByIDForUser(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Message: "Chat not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}
	return chat, nil
}

// DeriveTitle returns the first 40 characters of the opening message.
func DeriveTitle(message string) string {
	runes := []rune(message)
	if len(runes) > titleMaxRunes {
		runes = runes[:titleMaxRunes]
	}
	return string(runes)
}

// BuildPrompt flattens the conversation into "<Role>: <text>" lines and
// leaves a trailing "Assistant:" for the model to continue.
func BuildPrompt(messages []models.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Role.Label())
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteByte('\n')
	}
	b.WriteString("Assistant:")
	return b.String()
}

// SanitizeMessages drops entries without usable text, keeping order.
func SanitizeMessages(messages []models.Message) []models.Message {
	out := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if m.HasText() {
			out = append(out, m)
		}
	}
	return out
}
