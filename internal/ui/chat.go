package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Messages the chat screen accepts on its Events channel.
type (
	// ChatLine is one message to show. Self lines are added by the screen
	// itself when the user sends.
	ChatLine struct {
		From string
		Text string
		Self bool
		At   time.Time
	}

	// ChatNotice is a system line, e.g. someone joining.
	ChatNotice string

	// ChatStatus replaces the header's status text.
	ChatStatus string

	// ChatEnded closes the screen with a reason.
	ChatEnded struct {
		Reason string
	}
)

// Reason used when the event source closes without a ChatEnded.
const ReasonDisconnected = "disconnected"

// ChatOptions wires the screen to a conversation.
type ChatOptions struct {
	Title  string
	Status string
	Me     string

	// Events feeds ChatLine, ChatNotice, ChatStatus and ChatEnded values.
	Events <-chan tea.Msg

	// OnSend is called with each non-command line the user enters.
	OnSend func(text string) error

	// OnCommand is called with slash commands such as "/report" or "/end".
	OnCommand func(command string) error

	// OnLeave is called once when the user quits with Esc or Ctrl+C.
	OnLeave func()
}

// ChatModel is a bubbletea model with a scrolling log and an input line.
type ChatModel struct {
	opts     ChatOptions
	status   string
	lines    []string
	viewport viewport.Model
	input    textinput.Model
	left     bool
	ended    string
}

// NewChat builds the chat screen.
func NewChat(opts ChatOptions) *ChatModel {
	ti := textinput.New()
	ti.Placeholder = "Say something… (/report, /end, Esc to leave)"
	ti.CharLimit = 2000
	ti.Prompt = "› "
	ti.Focus()

	return &ChatModel{
		opts:     opts,
		status:   opts.Status,
		viewport: viewport.New(80, 20),
		input:    ti,
	}
}

// Ended returns the reason the conversation ended, or "" if the user left.
func (m *ChatModel) Ended() string { return m.ended }

// Left reports whether the user quit the screen.
func (m *ChatModel) Left() bool { return m.left }

func (m *ChatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitEvent())
}

func (m *ChatModel) waitEvent() tea.Cmd {
	events := m.opts.Events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return ChatEnded{Reason: ReasonDisconnected}
		}
		return msg
	}
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			m.leave()
			return m, tea.Quit
		case tea.KeyEnter:
			m.submit()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()
		return m, nil

	case ChatLine:
		m.appendLine(m.formatLine(msg))
		return m, m.waitEvent()

	case ChatNotice:
		m.appendLine(SystemStyle.Render("· " + string(msg)))
		return m, m.waitEvent()

	case ChatStatus:
		m.status = string(msg)
		return m, m.waitEvent()

	case ChatEnded:
		m.ended = msg.Reason
		m.appendLine(SystemStyle.Render("· conversation ended: " + msg.Reason))
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *ChatModel) submit() {
	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		if m.opts.OnCommand == nil {
			return
		}
		if err := m.opts.OnCommand(text); err != nil {
			m.appendLine(ErrorStyle.Render("· " + err.Error()))
		}
		return
	}

	if m.opts.OnSend != nil {
		if err := m.opts.OnSend(text); err != nil {
			m.appendLine(ErrorStyle.Render("· not sent: " + err.Error()))
			return
		}
	}
	m.appendLine(m.formatLine(ChatLine{From: m.opts.Me, Text: text, Self: true, At: time.Now()}))
}

func (m *ChatModel) leave() {
	if m.left {
		return
	}
	m.left = true
	if m.opts.OnLeave != nil {
		m.opts.OnLeave()
	}
}

func (m *ChatModel) formatLine(l ChatLine) string {
	style := PeerStyle
	if l.Self {
		style = SelfStyle
	}
	from := l.From
	if from == "" {
		from = "stranger"
	}
	at := l.At
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("%s %s %s",
		MutedStyle.Render(at.Local().Format("15:04")),
		style.Render(from+":"),
		l.Text,
	)
}

func (m *ChatModel) appendLine(s string) {
	m.lines = append(m.lines, s)
	m.refresh()
}

func (m *ChatModel) refresh() {
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(strings.Join(m.lines, "\n")))
	m.viewport.GotoBottom()
}

func (m *ChatModel) View() string {
	header := HeaderStyle.Render(fmt.Sprintf("%s %s", IconMoon, m.opts.Title))
	if m.status != "" {
		header += " " + MutedStyle.Render(m.status)
	}
	return header + "\n" + m.viewport.View() + "\n" + m.input.View() + "\n" +
		FooterStyle.Render("enter send · esc leave")
}

// RunChat runs the chat screen until the conversation ends or the user
// leaves.
func RunChat(opts ChatOptions) (*ChatModel, error) {
	m := NewChat(opts)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return m, fmt.Errorf("chat screen: %w", err)
	}
	return m, nil
}
