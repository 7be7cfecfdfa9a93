package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/client"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/config"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/ui"
)

var flagRandomName string

var randomCmd = &cobra.Command{
	Use:     "random",
	Aliases: []string{"r"},
	Short:   "Chat with a random stranger",
	Long: `Join the waiting queue and chat with the next stranger who does the same.

Inside the chat, /report flags the conversation, /end closes it for both
sides and Esc leaves. Ctrl+C while waiting leaves the queue.

Examples:
  nocturne random
  nocturne random --name owl`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRandom(cmd.Context(), flagRandomName)
	},
}

func init() {
	randomCmd.Flags().StringVarP(&flagRandomName, "name", "n", "", "display name shown to your partner")
	rootCmd.AddCommand(randomCmd)
}

func runRandom(ctx context.Context, name string) error {
	cc, err := Connect(ctx, config.Options{})
	if err != nil {
		return err
	}
	defer cc.Close()

	pair, err := waitForPair(ctx, cc, name)
	if err != nil || pair == nil {
		return err
	}

	ui.PrintSuccessf("Paired with %s", partnerName(pair.Partner))
	chat := &roomChat{cc: cc, roomID: pair.RoomID, me: displayName(name)}
	m, err := chat.run("with "+partnerName(pair.Partner), pair.RoomID)
	if err != nil {
		return err
	}
	printOutcome(m)
	return nil
}

// pairing is the outcome of join_random.
type pairing struct {
	RoomID  string
	Partner string

	// Waited is true when this side sat in the queue before being matched.
	Waited bool
}

// waitForPair sends join_random and blocks until paired. If ctx is
// cancelled while queued it sends cancel_wait and returns nil, nil.
func waitForPair(ctx context.Context, cc *ConnectionContext, name string) (*pairing, error) {
	h := cc.Handler
	if err := cc.Client.SendMessage(protocol.Request{Type: protocol.TypeJoinRandom, Username: name}); err != nil {
		return nil, client.NewError("join random", err)
	}

	waited := false
	stopSpinner := func() {}
	defer func() { stopSpinner() }()

	for {
		select {
		case <-h.Waiting:
			if !waited {
				stopSpinner = ui.RunWaitingSpinner("Waiting for a stranger... (Ctrl+C to give up)")
			}
			waited = true
		case ev := <-h.Paired:
			// waiting_for_pair is routed before random_paired, so a pending
			// one means this side was queued.
			select {
			case <-h.Waiting:
				waited = true
			default:
			}
			return &pairing{RoomID: ev.RoomID, Partner: ev.PartnerUsername, Waited: waited}, nil
		case <-h.Done:
			return nil, client.NewError("wait for partner", client.ErrServerClosed)
		case <-ctx.Done():
			stopSpinner()
			_ = cc.Client.SendMessage(protocol.Request{Type: protocol.TypeCancelWait})
			ui.PrintInfo("Left the queue.")
			return nil, nil
		}
	}
}

func partnerName(n string) string {
	if n == "" {
		return "a stranger"
	}
	return n
}

func displayName(n string) string {
	if n == "" {
		return "you"
	}
	return n
}
