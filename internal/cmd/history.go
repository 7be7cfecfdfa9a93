package cmd

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/client"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/ui"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List recorded sessions, or show one session's messages",
	Long: `Without an argument, list the sessions the relay holds history for.
With a session (room) id, print its messages oldest first.

Examples:
  nocturne history
  nocturne history insomniacs --limit 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			var body struct {
				Sessions []string `json:"sessions"`
			}
			if err := getJSON(cmd.Context(), cfg.Endpoint("/api/sessions"), &body); err != nil {
				return client.NewError("list sessions", err)
			}
			fmt.Println(ui.SessionsView(body.Sessions))
			return nil
		}

		endpoint := cfg.Endpoint("/api/sessions/" + url.PathEscape(args[0]) + "/messages")
		if flagHistoryLimit > 0 {
			endpoint += "?limit=" + strconv.Itoa(flagHistoryLimit)
		}
		var body struct {
			SessionID string           `json:"sessionId"`
			Messages  []ui.HistoryItem `json:"messages"`
		}
		if err := getJSON(cmd.Context(), endpoint, &body); err != nil {
			return client.NewError("fetch history", err)
		}
		fmt.Println(ui.HistoryView(args[0], body.Messages))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "l", 0, "show at most this many recent messages")
	rootCmd.AddCommand(historyCmd)
}
