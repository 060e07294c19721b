package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"conversa-backend/internal/apiclient"
	"conversa-backend/internal/chatview"
	"conversa-backend/internal/models"
)

func newSignupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req models.SignupRequest
			var err error
			if req.Username, err = prompt("Username: "); err != nil {
				return err
			}
			if req.Email, err = prompt("Email: "); err != nil {
				return err
			}
			if req.Password, err = promptPassword("Password: "); err != nil {
				return err
			}

			if err := apiclient.New(serverURL, "").Signup(cmd.Context(), req); err != nil {
				return describe(err)
			}
			fmt.Println("Account created. Run `conversa login` to sign in.")
			return nil
		},
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req models.LoginRequest
			var err error
			if req.Email, err = prompt("Email: "); err != nil {
				return err
			}
			if req.Password, err = promptPassword("Password: "); err != nil {
				return err
			}

			tokens, err := apiclient.New(serverURL, "").Login(cmd.Context(), req)
			if err != nil {
				return describe(err)
			}
			if err := saveToken(tokens.Token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}

			name := req.Email
			if tokens.User != nil {
				name = tokens.User.Username
			}
			fmt.Printf("Logged in as %s.\n", name)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearToken()
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List your chats, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := authedClient()
			if err != nil {
				return err
			}
			chats, err := client.History(cmd.Context())
			if err != nil {
				return describe(err)
			}
			renderHistory(os.Stdout, chats)
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Print a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := authedClient()
			if err != nil {
				return err
			}
			chat, err := client.Chat(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			renderChat(os.Stdout, chat)
			return nil
		},
	}
}

func newChatCmd() *cobra.Command {
	var chatID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively",
		Long: `Chat interactively. Type a message and press enter.

Commands:
  /new        start a new chat
  /list       show your chats
  /open <n>   switch to chat number n from /list
  /quit       leave`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := authedClient()
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), client, chatID, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&chatID, "chat-id", "", "continue an existing chat")
	return cmd
}

func runChat(ctx context.Context, client *apiclient.Client, chatID string, out io.Writer) error {
	state := chatview.State{}

	chats, err := client.History(ctx)
	if err != nil {
		return describe(err)
	}
	state = chatview.ThreadsLoaded(state, chats)

	if chatID != "" {
		next := chatview.ThreadSelected(state, chatID)
		if next.ActiveKey != chatID {
			return fmt.Errorf("chat %s not found", chatID)
		}
		state = next
		for _, m := range state.Messages {
			renderMessage(out, m)
		}
	}

	fmt.Fprintln(out, dimStyle.Render("Type /quit to leave, /new for a new chat."))

	for {
		line, err := prompt("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/new":
			state = chatview.NewChat(state, time.Now())
			fmt.Fprintln(out, dimStyle.Render("Started a new chat."))
			continue
		case line == "/list":
			renderSidebar(out, state)
			continue
		case strings.HasPrefix(line, "/open "):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "/open ")))
			if err != nil || n < 1 || n > len(state.Threads) {
				fmt.Fprintln(out, errorStyle.Render("no such chat"))
				continue
			}
			state = chatview.ThreadSelected(state, state.Threads[n-1].Key)
			for _, m := range state.Messages {
				renderMessage(out, m)
			}
			continue
		}

		var pending chatview.Pending
		var ok bool
		state, pending, ok = chatview.SendStarted(state, line, time.Now())
		if !ok {
			continue
		}

		fmt.Fprintln(out, dimStyle.Render("Thinking..."))
		resp, err := client.Send(ctx, pending.ChatID, pending.Text)
		if err != nil {
			state = chatview.SendFailed(state, pending.Key)
			fmt.Fprintln(out, errorStyle.Render(describe(err).Error()))
		} else {
			state = chatview.SendSucceeded(state, pending.Key, resp)
		}

		if n := len(state.Messages); n > 0 {
			renderMessage(out, state.Messages[n-1])
		}
	}
}

// describe turns API errors into something readable.
func describe(err error) error {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) || apiErr.Message == "" {
		return err
	}
	if len(apiErr.Fields) == 0 {
		return errors.New(apiErr.Message)
	}
	parts := make([]string, 0, len(apiErr.Fields))
	for field, msg := range apiErr.Fields {
		parts = append(parts, field+": "+msg)
	}
	return fmt.Errorf("%s (%s)", apiErr.Message, strings.Join(parts, "; "))
}
