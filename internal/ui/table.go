package ui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	pretty "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// HistoryItem is one recorded chat payload as returned by the history API.
type HistoryItem struct {
	SessionID string          `json:"sessionId"`
	Sender    string          `json:"sender"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Content pulls message.content and message.sender out of a chat_message
// payload. Payloads of other shapes are shown raw.
func (h HistoryItem) Content() (sender, content string) {
	var frame struct {
		Message struct {
			Content string `json:"content"`
			Sender  string `json:"sender"`
		} `json:"message"`
	}
	if err := json.Unmarshal(h.Payload, &frame); err != nil || frame.Message.Content == "" {
		return "", string(h.Payload)
	}
	return frame.Message.Sender, frame.Message.Content
}

// HistoryView renders a session's messages as a lipgloss table.
func HistoryView(sessionID string, items []HistoryItem) string {
	if len(items) == 0 {
		return MutedStyle.Render("No messages recorded for " + sessionID)
	}

	rows := make([][]string, 0, len(items))
	for i, item := range items {
		sender, content := item.Content()
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			item.CreatedAt.Local().Format("15:04:05"),
			truncate(sender, 20),
			truncate(content, 60),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("#", "Time", "Sender", "Message").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return TitleStyle.Render(fmt.Sprintf("%s %s", IconChat, sessionID)) + "\n" + tbl.Render()
}

// SessionsView lists session ids that have history.
func SessionsView(ids []string) string {
	if len(ids) == 0 {
		return MutedStyle.Render("No sessions with history")
	}
	rows := make([][]string, 0, len(ids))
	for i, id := range ids {
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), id})
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("#", "Session").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableRowStyle
		})
	return tbl.Render()
}

// Stats mirrors the relay's /stats body.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	Waiting     int `json:"waiting"`
}

// StatsView renders relay stats with go-pretty.
func StatsView(server string, s Stats) string {
	t := pretty.NewWriter()
	t.SetTitle(fmt.Sprintf("%s %s", IconStats, server))
	t.AppendHeader(pretty.Row{"Metric", "Value"})
	t.AppendRows([]pretty.Row{
		{"Connections", s.Connections},
		{"Rooms", s.Rooms},
		{"Waiting for a pair", s.Waiting},
	})
	t.SetColumnConfigs([]pretty.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	t.SetStyle(pretty.StyleRounded)
	return t.Render()
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
