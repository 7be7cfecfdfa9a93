package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/client"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/config"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/ui"
)

const joinTimeout = 10 * time.Second

var flagJoinName string

var joinCmd = &cobra.Command{
	Use:     "join <room-id>",
	Aliases: []string{"j"},
	Short:   "Join a named room",
	Long: `Join a named multi-party room. Everyone who joins the same id sees
each other's messages.

Examples:
  nocturne join insomniacs
  nocturne join insomniacs --name owl`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJoin(cmd.Context(), args[0], flagJoinName)
	},
}

func init() {
	joinCmd.Flags().StringVarP(&flagJoinName, "name", "n", "", "display name shown to the room")
	rootCmd.AddCommand(joinCmd)
}

func runJoin(ctx context.Context, roomID, name string) error {
	cc, err := Connect(ctx, config.Options{})
	if err != nil {
		return err
	}
	defer cc.Close()

	count, err := joinRoom(ctx, cc, roomID, name)
	if err != nil {
		return err
	}

	ui.PrintSuccessf("%s Joined %s", ui.IconRoom, roomID)
	chat := &roomChat{cc: cc, roomID: roomID, me: displayName(name)}
	m, err := chat.run(roomID, memberStatus(count))
	if err != nil {
		return err
	}
	printOutcome(m)
	return nil
}

// joinRoom sends join_room and waits for room_joined. The relay refuses
// joins into a full paired room silently, so silence ends in ErrRoomRefused.
func joinRoom(ctx context.Context, cc *ConnectionContext, roomID, name string) (int, error) {
	req := protocol.Request{Type: protocol.TypeJoinRoom, RoomID: roomID, Username: name}
	if err := cc.Client.SendMessage(req); err != nil {
		return 0, client.NewError("join room", err)
	}

	timer := time.NewTimer(joinTimeout)
	defer timer.Stop()

	for {
		select {
		case ev := <-cc.Handler.Joined:
			if ev.RoomID == roomID {
				return ev.MemberCount, nil
			}
		case <-timer.C:
			return 0, client.WrapError("join room", client.ErrRoomRefused, roomID)
		case <-cc.Handler.Done:
			return 0, client.NewError("join room", client.ErrServerClosed)
		case <-ctx.Done():
			return 0, client.NewError("join room", ctx.Err())
		}
	}
}
