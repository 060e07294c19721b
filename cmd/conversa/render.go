package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"conversa-backend/internal/chatview"
	"conversa-backend/internal/models"
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	titleStyle     = lipgloss.NewStyle().Bold(true).Underline(true)
	activeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFDF5")).Background(lipgloss.Color("62"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func renderMessage(w io.Writer, m models.Message) {
	style := assistantStyle
	if m.Role == models.RoleUser {
		style = userStyle
	}
	fmt.Fprintf(w, "%s %s\n", style.Render(m.Role.Label()+":"), m.Text)
}

func renderChat(w io.Writer, chat *models.Chat) {
	fmt.Fprintln(w, titleStyle.Render(chat.Title))
	fmt.Fprintln(w, dimStyle.Render(chat.ID.String()+"  updated "+chat.UpdatedAt.Local().Format(time.DateTime)))
	for _, m := range chat.Messages {
		renderMessage(w, m)
	}
}

func renderHistory(w io.Writer, chats []*models.Chat) {
	if len(chats) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No chats yet."))
		return
	}
	for _, c := range chats {
		fmt.Fprintf(w, "%s  %s  %s\n",
			dimStyle.Render(c.ID.String()),
			c.Title,
			dimStyle.Render(fmt.Sprintf("(%d messages, %s)", len(c.Messages), c.UpdatedAt.Local().Format(time.DateTime))))
	}
}

func renderSidebar(w io.Writer, s chatview.State) {
	for i, t := range s.Threads {
		line := fmt.Sprintf("%2d. %s", i+1, t.Title)
		if t.IsPlaceholder() {
			line += " (unsaved)"
		}
		if t.Key == s.ActiveKey {
			line = activeStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}
}
