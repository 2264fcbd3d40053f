// Package tui is the interactive chat with the receipts assistant.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/voice"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// visibleMessages is how many recent turns the panel shows.
const visibleMessages = 3

// Assistant is the conversation backend.
type Assistant interface {
	Process(ctx context.Context, utterance string) (voice.Reply, error)
	Listen(ctx context.Context) (voice.Reply, error)
	Messages() []model.Message
	LastMessage() model.Message
	Speak(text string)
}

// Model holds the chat state.
type Model struct {
	ctx       context.Context
	assistant Assistant
	theme     Theme
	keymap    KeyMap
	input     textinput.Model
	messages  []model.Message
	lastError error
	logged    int
	width     int
	busy      bool
	quitting  bool
}

// NewModel creates a chat model bound to assistant.
func NewModel(ctx context.Context, assistant Assistant) Model {
	input := textinput.New()
	input.Placeholder = "Type a question or log an expense…"
	input.Prompt = "› "
	input.CharLimit = 280
	input.Focus()

	return Model{
		ctx:       ctx,
		assistant: assistant,
		theme:     Default,
		keymap:    DefaultKeyMap(),
		input:     input,
		messages:  assistant.Messages(),
		width:     80,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-8, 10)
		return m, nil

	case replyMsg:
		m.busy = false
		m.messages = m.assistant.Messages()
		m.lastError = msg.err
		if msg.err == nil && msg.reply.Receipt != nil {
			m.logged++
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case m.busy:
			return m, nil
		case key.Matches(msg, m.keymap.Send):
			text := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if text == "" {
				return m, nil
			}
			m.busy = true
			m.lastError = nil
			return m, processCmd(m.ctx, m.assistant, text)
		case key.Matches(msg, m.keymap.Listen):
			m.busy = true
			m.lastError = nil
			return m, listenCmd(m.ctx, m.assistant)
		case key.Matches(msg, m.keymap.Repeat):
			m.assistant.Speak(m.assistant.LastMessage().Content)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.Title.Render("AI Voice Concierge"))
	b.WriteString("\n")
	b.WriteString(m.theme.Subtitle.Render("Speak to Aurora, your conversational finance co-pilot"))
	b.WriteString("\n")

	panelWidth := max(m.width-4, 20)
	b.WriteString(m.theme.Panel.Width(panelWidth).Render(m.renderMessages()))
	b.WriteString("\n")
	b.WriteString(m.theme.Input.Width(panelWidth).Render(m.input.View()))
	b.WriteString("\n")

	switch {
	case m.lastError != nil:
		b.WriteString(m.theme.Error.Render("✗ " + m.lastError.Error()))
	case m.busy:
		b.WriteString(m.theme.Status.Render("Thinking…"))
	case m.logged > 0:
		b.WriteString(m.theme.Status.Render(pluralReceipts(m.logged) + " logged this session"))
	}
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderMessages() string {
	recent := m.messages
	if len(recent) > visibleMessages {
		recent = recent[len(recent)-visibleMessages:]
	}
	lines := make([]string, 0, len(recent))
	for _, msg := range recent {
		if msg.Role == model.RoleAssistant {
			lines = append(lines, m.theme.Assistant.Render("🤖 "+msg.Content))
		} else {
			lines = append(lines, m.theme.User.Render("🎙️ "+msg.Content))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderHelp() string {
	parts := make([]string, 0, len(m.keymap.ShortHelp()))
	for _, b := range m.keymap.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.theme.Help.Render(strings.Join(parts, " • "))
}

func pluralReceipts(n int) string {
	if n == 1 {
		return "1 receipt"
	}
	return fmt.Sprintf("%d receipts", n)
}
