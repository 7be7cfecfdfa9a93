package cmd

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/call"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/client"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/config"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/ui"
)

const openTimeout = 30 * time.Second

var (
	flagCallName     string
	flagCallSTUN     string
	flagCallTURN     string
	flagCallTURNUser string
	flagCallTURNPass string
)

var callCmd = &cobra.Command{
	Use:     "call",
	Aliases: []string{"c"},
	Short:   "Chat with a random stranger over a direct WebRTC channel",
	Long: `Get paired like "random", then open a peer-to-peer data channel.
The relay only forwards the connection setup; messages go directly
between the two of you.

Examples:
  nocturne call
  nocturne call --turn turn:turn.example.com:3478 --turn-user u --turn-pass p`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd.Context())
	},
}

func init() {
	callCmd.Flags().StringVarP(&flagCallName, "name", "n", "", "display name shown to your partner")
	callCmd.Flags().StringVar(&flagCallSTUN, "stun", "", "STUN server URL (env STUN_SERVER)")
	callCmd.Flags().StringVar(&flagCallTURN, "turn", "", "TURN server URL (env TURN_SERVER)")
	callCmd.Flags().StringVar(&flagCallTURNUser, "turn-user", "", "TURN username (env TURN_USERNAME)")
	callCmd.Flags().StringVar(&flagCallTURNPass, "turn-pass", "", "TURN password (env TURN_PASSWORD)")
	rootCmd.AddCommand(callCmd)
}

func runCall(ctx context.Context) error {
	cc, err := Connect(ctx, config.Options{
		STUNServer: flagCallSTUN,
		TURNServer: flagCallTURN,
		TURNUser:   flagCallTURNUser,
		TURNPass:   flagCallTURNPass,
	})
	if err != nil {
		return err
	}
	defer cc.Close()

	pair, err := waitForPair(ctx, cc, flagCallName)
	if err != nil || pair == nil {
		return err
	}
	ui.PrintSuccessf("%s Paired with %s", ui.IconCall, partnerName(pair.Partner))

	pc, err := call.NewPeerConnection(cc.Config)
	if err != nil {
		return err
	}
	me := displayName(flagCallName)
	sess := call.New(pc, cc.Client, me)
	defer sess.Close()

	quit := make(chan struct{})
	defer close(quit)
	go forwardSignals(cc.Handler, sess, quit)

	sp := ui.NewConnectionSpinner("Opening a direct channel...")
	sp.Start()

	// The side that waited in the queue opens the channel.
	if pair.Waited {
		if err := sess.Offer(); err != nil {
			sp.Stop()
			return err
		}
		sp.UpdateMessage("Waiting for your partner to answer...")
	} else {
		sp.UpdateMessage("Waiting for your partner's offer...")
	}
	openCtx, cancel := context.WithTimeout(ctx, openTimeout)
	err = sess.WaitOpen(openCtx)
	cancel()
	if err != nil {
		sp.Error("Could not reach your partner directly")
		_ = cc.Client.SendMessage(protocol.Request{Type: protocol.TypeLeaveRoom})
		return err
	}
	sp.Success("Direct channel open")

	relay := &roomChat{cc: cc, roomID: pair.RoomID, me: me}
	events := make(chan tea.Msg, 16)
	go pumpCall(cc.Handler, sess, events, quit)

	m, err := ui.RunChat(ui.ChatOptions{
		Title:     "call with " + partnerName(pair.Partner),
		Status:    "peer-to-peer",
		Me:        me,
		Events:    events,
		OnSend:    sess.Send,
		OnCommand: relay.command,
		OnLeave: func() {
			_ = sess.Close()
			_ = cc.Client.SendMessage(protocol.Request{Type: protocol.TypeLeaveRoom})
		},
	})
	if err != nil {
		return err
	}
	printOutcome(m)
	return nil
}

// forwardSignals feeds relayed call-setup frames into the session.
func forwardSignals(h *client.Handler, sess *call.Session, quit <-chan struct{}) {
	for {
		select {
		case f := <-h.Signal:
			if err := sess.HandleSignal(f); err != nil {
				slog.Warn("call.signal", "type", f.Type, "err", err)
			}
		case <-h.Done:
			return
		case <-quit:
			return
		}
	}
}

// pumpCall turns data-channel frames and relay teardown into chat screen
// messages.
func pumpCall(h *client.Handler, sess *call.Session, events chan<- tea.Msg, quit <-chan struct{}) {
	for {
		var msg tea.Msg
		select {
		case <-quit:
			return
		case f := <-sess.Incoming():
			msg = ui.ChatLine{From: f.From, Text: f.Text, At: f.Time()}
		case <-sess.Closed():
			msg = ui.ChatEnded{Reason: "the call ended"}
		case <-h.PartnerLeft:
			msg = ui.ChatEnded{Reason: "your partner disconnected"}
		case reason := <-h.Ended:
			msg = ui.ChatEnded{Reason: endedReason(reason)}
		}

		select {
		case events <- msg:
		case <-quit:
			return
		}
		if _, ended := msg.(ui.ChatEnded); ended {
			return
		}
	}
}
