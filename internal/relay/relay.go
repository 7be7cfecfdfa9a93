// Package relay forwards opaque payloads between the members of a room.
package relay

import (
	"log/slog"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/metrics"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/rooms"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/store"
)

// Relay passes frames through untouched. Chat frames are also handed to the
// history writer, which never blocks.
type Relay struct {
	log     *slog.Logger
	dir     *rooms.Directory
	history *store.Writer
}

// New returns a relay over dir. history may be nil.
func New(dir *rooms.Directory, history *store.Writer, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{log: log, dir: dir, history: history}
}

// Forward delivers msg.Raw to every other member of the sender's room and
// returns the number of recipients. A sender outside any room is a no-op.
func (r *Relay) Forward(sender *session.State, msg protocol.Relay) int {
	if !sender.InRoom() {
		r.log.Debug("relay.no_room", "conn", sender.ID(), "type", msg.Kind)
		return 0
	}

	n := r.dir.Broadcast(sender, protocol.Forward{Kind: msg.Kind, Raw: msg.Raw})
	metrics.Relayed.WithLabelValues(msg.Kind).Inc()

	if msg.Kind == protocol.TypeChatMessage {
		r.history.Append(store.Message{
			SessionID: sender.RoomID,
			Sender:    sender.Name,
			Payload:   msg.Raw,
		})
	}
	return n
}
