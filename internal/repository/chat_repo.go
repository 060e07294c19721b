package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"conversa-backend/internal/models"
)

// ErrNotFound is returned by every store when a row does not exist or is
// owned by somebody else.
var ErrNotFound = errors.New("not found")

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) Create(ctx context.Context, chat *models.Chat) error {
	query := `
		INSERT INTO chat_threads (id, user_id, title, messages)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	messages, err := encodeMessages(chat.Messages)
	if err != nil {
		return err
	}

	chat.ID = uuid.New()
	return r.pool.QueryRow(ctx, query,
		chat.ID, chat.UserID, chat.Title, messages,
	).Scan(&chat.CreatedAt, &chat.UpdatedAt)
}

// Update replaces the message sequence of a thread owned by chat.UserID and
// stamps updated_at.
func (r *ChatRepo) Update(ctx context.Context, chat *models.Chat) error {
	query := `
		UPDATE chat_threads SET messages = $1, title = $2, updated_at = NOW()
		WHERE id = $3 AND user_id = $4
		RETURNING updated_at`

	messages, err := encodeMessages(chat.Messages)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx, query, messages, chat.Title, chat.ID, chat.UserID).Scan(&chat.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *ChatRepo) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Chat, error) {
	query := `SELECT id, user_id, title, messages, created_at, updated_at
		FROM chat_threads WHERE id = $1 AND user_id = $2`

	chat, err := scanChat(r.pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return chat, err
}

func (r *ChatRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error) {
	query := `SELECT id, user_id, title, messages, created_at, updated_at
		FROM chat_threads WHERE user_id = $1
		ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []*models.Chat{}
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

func scanChat(row pgx.Row) (*models.Chat, error) {
	chat := &models.Chat{}
	var raw []byte
	if err := row.Scan(&chat.ID, &chat.UserID, &chat.Title, &raw, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &chat.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages of chat %s: %w", chat.ID, err)
	}
	return chat, nil
}

func encodeMessages(messages []models.Message) ([]byte, error) {
	if messages == nil {
		messages = []models.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to encode messages: %w", err)
	}
	return data, nil
}
