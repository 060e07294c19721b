package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"conversa-backend/internal/models"
)

// MemoryChatRepo is a process-local chat store used when CHAT_STORE=memory
// and by tests. Stored threads are copied on the way in and out so callers
// never share message slices with the store.
type MemoryChatRepo struct {
	mu    sync.RWMutex
	chats map[uuid.UUID]*models.Chat
	now   func() time.Time
}

func NewMemoryChatRepo() *MemoryChatRepo {
	return &MemoryChatRepo{
		chats: make(map[uuid.UUID]*models.Chat),
		now:   time.Now,
	}
}

// WithClock replaces the timestamp source.
func (r *MemoryChatRepo) WithClock(now func() time.Time) *MemoryChatRepo {
	r.now = now
	return r
}

func (r *MemoryChatRepo) Create(ctx context.Context, chat *models.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat.ID = uuid.New()
	chat.CreatedAt = r.now()
	chat.UpdatedAt = chat.CreatedAt
	r.chats[chat.ID] = cloneChat(chat)
	return nil
}

func (r *MemoryChatRepo) Update(ctx context.Context, chat *models.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.chats[chat.ID]
	if !ok || stored.UserID != chat.UserID {
		return ErrNotFound
	}
	chat.CreatedAt = stored.CreatedAt
	chat.UpdatedAt = r.now()
	r.chats[chat.ID] = cloneChat(chat)
	return nil
}

func (r *MemoryChatRepo) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.chats[id]
	if !ok || stored.UserID != userID {
		return nil, ErrNotFound
	}
	return cloneChat(stored), nil
}

func (r *MemoryChatRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chats := []*models.Chat{}
	for _, c := range r.chats {
		if c.UserID == userID {
			chats = append(chats, cloneChat(c))
		}
	}
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

// Put stores chat as-is, bypassing timestamps. Used to seed legacy data.
func (r *MemoryChatRepo) Put(chat *models.Chat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[chat.ID] = cloneChat(chat)
}

func cloneChat(c *models.Chat) *models.Chat {
	out := *c
	out.Messages = append([]models.Message(nil), c.Messages...)
	return &out
}

// MemoryUserRepo pairs with MemoryChatRepo for database-less runs.
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (r *MemoryUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicateEmail
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *MemoryUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *MemoryUserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}
