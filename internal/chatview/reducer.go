// Package chatview holds the client-side state of a chat session as a value
// with pure transitions. Callers own the State; every transition returns a
// new one and never mutates its input.
package chatview

import (
	"fmt"
	"strings"
	"time"

	"conversa-backend/internal/models"
)

// FailureLine is shown in place of a reply when the send request fails.
const FailureLine = "🤔 AI is thinking… try again."

const placeholderPrefix = "tmp-"

// Thread is one entry of the sidebar. Key is the client-side identity and
// never changes; ID is the server id and stays empty until the first send
// of a placeholder succeeds.
type Thread struct {
	Key       string
	ID        string
	Title     string
	Messages  []models.Message
	UpdatedAt time.Time
}

// IsPlaceholder reports whether the server has not assigned an id yet.
func (t Thread) IsPlaceholder() bool { return t.ID == "" }

type State struct {
	Threads   []Thread
	ActiveKey string
	Messages  []models.Message
	Busy      bool
	Input     string
}

// Pending describes the request a caller must issue after SendStarted.
type Pending struct {
	Key    string
	ChatID string
	Text   string
}

// Active returns the active thread, if any.
func (s State) Active() (Thread, bool) {
	i := s.indexOf(s.ActiveKey)
	if i < 0 {
		return Thread{}, false
	}
	return s.Threads[i], true
}

// ThreadsLoaded merges the server's history into the sidebar. Threads
// already known keep their Key; placeholders that the server does not know
// about yet stay on top.
func ThreadsLoaded(s State, chats []*models.Chat) State {
	next := s.clone()

	keyByID := make(map[string]string, len(s.Threads))
	var placeholders []Thread
	for _, t := range s.Threads {
		if t.IsPlaceholder() {
			placeholders = append(placeholders, t)
			continue
		}
		keyByID[t.ID] = t.Key
	}

	threads := append([]Thread(nil), placeholders...)
	for _, c := range chats {
		id := c.ID.String()
		key, ok := keyByID[id]
		if !ok {
			key = id
		}
		threads = append(threads, Thread{
			Key:       key,
			ID:        id,
			Title:     c.Title,
			Messages:  cloneMessages(c.Messages),
			UpdatedAt: c.UpdatedAt,
		})
	}
	next.Threads = threads

	if active, ok := next.Active(); ok {
		next.Messages = cloneMessages(active.Messages)
	}
	return next
}

// ThreadSelected makes key the active thread. Unknown keys are ignored.
func ThreadSelected(s State, key string) State {
	i := s.indexOf(key)
	if i < 0 {
		return s
	}
	next := s.clone()
	next.ActiveKey = key
	next.Messages = cloneMessages(next.Threads[i].Messages)
	return next
}

// MessagesLoaded replaces a thread's messages with a freshly fetched copy.
func MessagesLoaded(s State, key string, messages []models.Message) State {
	i := s.indexOf(key)
	if i < 0 {
		return s
	}
	next := s.clone()
	next.Threads[i].Messages = cloneMessages(messages)
	if key == next.ActiveKey {
		next.Messages = cloneMessages(messages)
	}
	return next
}

// NewChat adds an empty placeholder thread on top and activates it.
func NewChat(s State, now time.Time) State {
	next := s.clone()
	t := Thread{Key: next.placeholderKey(now), Title: "New chat", UpdatedAt: now}
	next.Threads = append([]Thread{t}, next.Threads...)
	next.ActiveKey = t.Key
	next.Messages = nil
	return next
}

// InputChanged records the text being typed.
func InputChanged(s State, text string) State {
	next := s.clone()
	next.Input = text
	return next
}

// SendStarted optimistically appends the user's message and marks the view
// busy. It returns ok=false, leaving s unchanged, while a send is already in
// flight or when text is blank. Without an active thread a placeholder is
// created first.
func SendStarted(s State, text string, now time.Time) (State, Pending, bool) {
	if s.Busy || strings.TrimSpace(text) == "" {
		return s, Pending{}, false
	}

	next := s
	if _, ok := s.Active(); !ok {
		next = NewChat(s, now)
	} else {
		next = s.clone()
	}

	i := next.indexOf(next.ActiveKey)
	msg := models.Message{Role: models.RoleUser, Text: text}
	t := &next.Threads[i]
	t.Messages = append(cloneMessages(t.Messages), msg)
	if t.IsPlaceholder() && len(t.Messages) == 1 {
		t.Title = text
	}

	next.Messages = cloneMessages(t.Messages)
	next.Busy = true
	next.Input = ""

	return next, Pending{Key: t.Key, ChatID: t.ID, Text: text}, true
}

// SendSucceeded commits the server's canonical thread. The thread keeps its
// Key, learns its server ID, and its messages are replaced rather than
// merged so optimistic entries are never duplicated. It moves to the top.
func SendSucceeded(s State, key string, resp *models.SendMessageResponse) State {
	next := s.clone()
	next.Busy = false
	if resp == nil {
		return next
	}

	t := Thread{Key: key}
	if i := next.indexOf(key); i >= 0 {
		t = next.Threads[i]
		next.Threads = append(next.Threads[:i], next.Threads[i+1:]...)
	}

	t.ID = resp.ChatID.String()
	if resp.Chat != nil {
		t.Title = resp.Chat.Title
		t.Messages = cloneMessages(resp.Chat.Messages)
		t.UpdatedAt = resp.Chat.UpdatedAt
	} else {
		t.Messages = append(cloneMessages(t.Messages), models.Message{Role: models.RoleAssistant, Text: resp.Reply})
	}

	// A history reload may have raced in a copy of the same server thread.
	if j := next.indexOfID(t.ID); j >= 0 {
		next.Threads = append(next.Threads[:j], next.Threads[j+1:]...)
	}
	next.Threads = append([]Thread{t}, next.Threads...)

	if key == next.ActiveKey {
		next.Messages = cloneMessages(t.Messages)
	}
	return next
}

// SendFailed appends FailureLine, keeping the optimistic user message.
func SendFailed(s State, key string) State {
	next := s.clone()
	next.Busy = false

	i := next.indexOf(key)
	if i < 0 {
		return next
	}
	line := models.Message{Role: models.RoleAssistant, Text: FailureLine}
	next.Threads[i].Messages = append(cloneMessages(next.Threads[i].Messages), line)
	if key == next.ActiveKey {
		next.Messages = cloneMessages(next.Threads[i].Messages)
	}
	return next
}

func (s State) indexOf(key string) int {
	if key == "" {
		return -1
	}
	for i, t := range s.Threads {
		if t.Key == key {
			return i
		}
	}
	return -1
}

func (s State) indexOfID(id string) int {
	for i, t := range s.Threads {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s State) placeholderKey(now time.Time) string {
	base := fmt.Sprintf("%s%d", placeholderPrefix, now.UnixMilli())
	key := base
	for n := 1; s.indexOf(key) >= 0; n++ {
		key = fmt.Sprintf("%s-%d", base, n)
	}
	return key
}

func (s State) clone() State {
	next := s
	next.Threads = make([]Thread, len(s.Threads))
	for i, t := range s.Threads {
		t.Messages = cloneMessages(t.Messages)
		next.Threads[i] = t
	}
	next.Messages = cloneMessages(s.Messages)
	return next
}

func cloneMessages(in []models.Message) []models.Message {
	if in == nil {
		return nil
	}
	return append([]models.Message(nil), in...)
}
