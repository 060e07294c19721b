package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"conversa-backend/internal/models"
)

func TestClient_SendAttachesBearerToken(t *testing.T) {
	chatID := uuid.New()
	var gotAuth string
	var gotBody models.SendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/send", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(models.SendMessageResponse{
			ChatID: chatID,
			Reply:  "hi",
			Chat:   &models.Chat{ID: chatID, Title: "hello"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "tok")
	resp, err := c.Send(context.Background(), "", "hello")
	require.NoError(t, err)

	require.Equal(t, "Bearer tok", gotAuth)
	require.Equal(t, models.SendMessageRequest{Message: "hello"}, gotBody)
	require.Equal(t, chatID, resp.ChatID)
	require.Equal(t, "hi", resp.Reply)
}

func TestClient_DecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(models.ErrorResponse{
			Message: "Chat not found",
			Error:   models.APIError{Code: "NOT_FOUND", Message: "Chat not found"},
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok").Chat(context.Background(), "missing")

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "NOT_FOUND", apiErr.Code)
	require.Equal(t, "Chat not found", apiErr.Message)
}

func TestClient_HistoryWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":"` + uuid.NewString() + `","title":"a","messages":[{"role":"user","text":"x"}]}]`))
	}))
	defer srv.Close()

	chats, err := New(srv.URL, "").History(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Equal(t, "a", chats[0].Title)
	require.True(t, chats[0].Messages[0].HasText())
}

func TestClient_LoginAndSignup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/signup":
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"message":"ok","user_id":"x"}`))
		case "/api/auth/login":
			w.Write([]byte(`{"token":"jwt","expires_in":60}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	require.NoError(t, c.Signup(context.Background(), models.SignupRequest{Username: "u", Email: "e", Password: "p"}))

	tokens, err := c.Login(context.Background(), models.LoginRequest{Email: "e", Password: "p"})
	require.NoError(t, err)
	require.Equal(t, "jwt", tokens.Token)
}

func TestNew_NoOverallTimeout(t *testing.T) {
	require.Zero(t, New("http://localhost:8080", "").HTTP.Timeout)
}

func TestClient_SendBoundedByContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, "tok").Send(ctx, "", "hello")
	require.ErrorIs(t, err, context.Canceled)
}
