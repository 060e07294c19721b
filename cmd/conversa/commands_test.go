package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"conversa-backend/internal/apiclient"
	"conversa-backend/internal/chatview"
	"conversa-backend/internal/models"
)

func TestRunChat_SendsTwiceOnSameThread(t *testing.T) {
	chatID := uuid.New()
	var sentChatIDs []string
	var msgs []models.Message

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat/history":
			w.Write([]byte(`[]`))
		case "/api/chat/send":
			var req models.SendMessageRequest
			json.NewDecoder(r.Body).Decode(&req)
			sentChatIDs = append(sentChatIDs, req.ChatID)
			msgs = append(msgs,
				models.Message{Role: models.RoleUser, Text: req.Message},
				models.Message{Role: models.RoleAssistant, Text: "echo " + req.Message})
			json.NewEncoder(w).Encode(models.SendMessageResponse{
				ChatID: chatID,
				Reply:  "echo " + req.Message,
				Chat:   &models.Chat{ID: chatID, Title: "first", Messages: msgs},
			})
		}
	}))
	defer srv.Close()

	stdin = bufio.NewReader(strings.NewReader("first\nsecond\n/quit\n"))
	var out bytes.Buffer

	err := runChat(context.Background(), apiclient.New(srv.URL, "tok"), "", &out)
	require.NoError(t, err)

	require.Equal(t, []string{"", chatID.String()}, sentChatIDs)
	require.Contains(t, out.String(), "echo first")
	require.Contains(t, out.String(), "echo second")
}

func TestRunChat_FailureShowsFallbackLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/chat/history" {
			w.Write([]byte(`[]`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"Server error","error":{"code":"INTERNAL_ERROR","message":"An unexpected error occurred"}}`))
	}))
	defer srv.Close()

	stdin = bufio.NewReader(strings.NewReader("hello\n"))
	var out bytes.Buffer

	require.NoError(t, runChat(context.Background(), apiclient.New(srv.URL, "tok"), "", &out))
	require.Contains(t, out.String(), chatview.FailureLine)
	require.Contains(t, out.String(), "Server error")
}

func TestRunChat_UnknownChatID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	stdin = bufio.NewReader(strings.NewReader(""))
	err := runChat(context.Background(), apiclient.New(srv.URL, "tok"), uuid.NewString(), &bytes.Buffer{})
	require.Error(t, err)
}

func TestDescribe_FieldErrors(t *testing.T) {
	err := describe(&apiclient.Error{
		Status:  http.StatusBadRequest,
		Message: "Validation failed",
		Fields:  map[string]string{"email": "Invalid email format"},
	})
	require.EqualError(t, err, "Validation failed (email: Invalid email format)")
}
