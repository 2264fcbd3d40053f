package tui

import (
	"context"

	"github.com/Veraticus/the-receipts-must-flow/internal/voice"
	tea "github.com/charmbracelet/bubbletea"
)

// replyMsg carries the assistant's answer back into the update loop.
type replyMsg struct {
	err   error
	reply voice.Reply
}

func processCmd(ctx context.Context, assistant Assistant, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := assistant.Process(ctx, text)
		return replyMsg{reply: reply, err: err}
	}
}

func listenCmd(ctx context.Context, assistant Assistant) tea.Cmd {
	return func() tea.Msg {
		reply, err := assistant.Listen(ctx)
		return replyMsg{reply: reply, err: err}
	}
}
