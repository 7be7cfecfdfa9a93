package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/client"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/config"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/ui"
)

const connectTimeout = 15 * time.Second

// ConnectionContext is a live relay connection with its event router.
type ConnectionContext struct {
	Client  *client.Client
	Handler *client.Handler
	Config  *config.Config
}

func NewConnectionContext(ctx context.Context, cfg *config.Config) (*ConnectionContext, error) {
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	c := client.NewClient(cfg.WebSocketURL)
	if err := c.Connect(dialCtx); err != nil {
		return nil, client.NewError("connect to server", err)
	}

	handler := client.NewHandler(c.Incoming())
	go handler.Start()

	return &ConnectionContext{
		Client:  c,
		Handler: handler,
		Config:  cfg,
	}, nil
}

func (c *ConnectionContext) Close() {
	if c.Handler != nil {
		c.Handler.Stop()
	}
	if c.Client != nil {
		c.Client.Close()
	}
}

// Connect loads config from the root flags plus extra options and dials the
// relay behind a spinner.
func Connect(ctx context.Context, opts config.Options) (*ConnectionContext, error) {
	opts.Server = flagServer
	opts.Insecure = flagInsecure

	cfg, err := config.Load(opts)
	if err != nil {
		return nil, client.NewError("load config", err)
	}

	stop := ui.RunConnectionSpinner(fmt.Sprintf("Connecting to %s...", cfg.Server))
	cc, err := NewConnectionContext(ctx, cfg)
	stop()
	return cc, err
}

// roomChat drives the chat screen for a relayed conversation in roomID.
type roomChat struct {
	cc     *ConnectionContext
	roomID string
	me     string
}

func (r *roomChat) run(title, status string) (*ui.ChatModel, error) {
	events := make(chan tea.Msg, 16)
	quit := make(chan struct{})
	defer close(quit)
	go r.pump(events, quit)

	return ui.RunChat(ui.ChatOptions{
		Title:  title,
		Status: status,
		Me:     r.me,
		Events: events,
		OnSend: func(text string) error {
			return r.cc.Client.SendMessage(protocol.NewChatFrame(r.roomID, r.me, text))
		},
		OnCommand: r.command,
		OnLeave: func() {
			_ = r.cc.Client.SendMessage(protocol.Request{Type: protocol.TypeLeaveRoom})
		},
	})
}

func (r *roomChat) command(line string) error {
	switch strings.Fields(line)[0] {
	case "/report":
		reason := strings.TrimSpace(strings.TrimPrefix(line, "/report"))
		return r.cc.Client.SendMessage(protocol.Request{Type: protocol.TypeUserReport, Reason: reason})
	case "/end":
		return r.cc.Client.SendMessage(protocol.Request{Type: protocol.TypeEndSession, SessionID: r.roomID})
	default:
		return fmt.Errorf("unknown command %s (try /report or /end)", line)
	}
}

// pump turns handler channels into chat screen messages.
func (r *roomChat) pump(events chan<- tea.Msg, quit <-chan struct{}) {
	h := r.cc.Handler
	emit := func(msg tea.Msg) bool {
		select {
		case events <- msg:
			return true
		case <-quit:
			return false
		}
	}

	for {
		var msg tea.Msg
		select {
		case <-quit:
			return
		case f := <-h.Chat:
			msg = ui.ChatLine{From: f.Message.Sender, Text: f.Message.Content, At: parseTime(f.Message.Timestamp)}
		case ev := <-h.Presence:
			if !emit(ui.ChatStatus(memberStatus(ev.MemberCount))) {
				return
			}
			if ev.Type == protocol.TypeUserJoined {
				msg = ui.ChatNotice(ev.Username + " joined")
			} else {
				msg = ui.ChatNotice("someone left")
			}
		case <-h.PartnerLeft:
			msg = ui.ChatEnded{Reason: "your partner disconnected"}
		case reason := <-h.Ended:
			msg = ui.ChatEnded{Reason: endedReason(reason)}
		case <-h.Done:
			msg = ui.ChatEnded{Reason: ui.ReasonDisconnected}
		}
		if !emit(msg) {
			return
		}
		if _, ended := msg.(ui.ChatEnded); ended {
			return
		}
	}
}

func memberStatus(n int) string {
	if n == 1 {
		return "1 member"
	}
	return fmt.Sprintf("%d members", n)
}

func endedReason(reason string) string {
	switch reason {
	case protocol.ReasonReported:
		return "the conversation was reported"
	case protocol.ReasonUserEnded:
		return "the conversation was ended"
	case "":
		return "session ended"
	}
	return reason
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now()
	}
	return t
}

// printOutcome reports how a chat screen finished.
func printOutcome(m *ui.ChatModel) {
	switch {
	case m.Left():
		ui.PrintInfo("You left the conversation.")
	case m.Ended() != "":
		ui.PrintWarning(m.Ended())
	}
}
