package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"conversa-backend/internal/models"
)

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client talks to the Conversa HTTP API. When Token is set it is sent as a
// bearer credential on every request.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		// No overall timeout: a send lasts as long as the model takes.
		// Callers bound requests through ctx.
		HTTP: &http.Client{},
	}
}

func (c *Client) Signup(ctx context.Context, req models.SignupRequest) error {
	return c.do(ctx, http.MethodPost, "/api/auth/signup", req, nil)
}

func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	var tokens models.AuthTokens
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (c *Client) History(ctx context.Context) ([]*models.Chat, error) {
	var chats []*models.Chat
	if err := c.do(ctx, http.MethodGet, "/api/chat/history", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (c *Client) Chat(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	if err := c.do(ctx, http.MethodGet, "/api/chat/"+url.PathEscape(id), nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// Send posts a message. An empty chatID starts a new thread.
func (c *Client) Send(ctx context.Context, chatID, message string) (*models.SendMessageResponse, error) {
	var resp models.SendMessageResponse
	req := models.SendMessageRequest{Message: message, ChatID: chatID}
	if err := c.do(ctx, http.MethodPost, "/api/chat/send", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var er models.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&er) == nil {
			apiErr.Code = er.Error.Code
			apiErr.Message = er.Message
			if apiErr.Message == "" {
				apiErr.Message = er.Error.Message
			}
			apiErr.Fields = er.Error.Fields
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
