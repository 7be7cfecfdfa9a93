package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/ui"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/version"
)

var (
	flagServer   string
	flagInsecure bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nocturne",
	Short: "Anonymous late-night chat from the terminal",
	Long: `Nocturne connects you to a stranger or a named room through the Nocturne relay.

Chat is relayed by the server, or sent peer-to-peer over WebRTC with "call".`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "s", "", "relay host[:port] (env NOCTURNE_SERVER)")
	rootCmd.PersistentFlags().BoolVar(&flagInsecure, "insecure", false, "use ws:// and http:// (env NOCTURNE_INSECURE)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
