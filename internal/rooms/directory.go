// Package rooms owns the mapping from room ids to member connections.
//
// A Directory is driven by a single goroutine and keeps two views in step:
// each Room's member set and each member's State.RoomID. A connection is in
// at most one room, and a room with no members does not exist.
package rooms

import (
	"log/slog"
	"time"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session"
)

// Directory is the set of live rooms.
type Directory struct {
	log   *slog.Logger
	rooms map[string]*Room
	now   func() time.Time
}

// NewDirectory returns an empty directory.
func NewDirectory(log *slog.Logger) *Directory {
	if log == nil {
		log = slog.Default()
	}
	return &Directory{
		log:   log,
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
}

// Join puts st into roomID, creating the room with the given kind if it does
// not exist yet. A connection already in another room leaves it first.
//
// Existing members get user_joined with the new count, then the joiner gets
// room_joined. Joining the room one is already in only repeats room_joined.
// Joins that would break a paired room (a third member, or an explicit join
// into a room the matchmaker created) are refused and reported as false, as
// is an empty roomID.
func (d *Directory) Join(roomID string, st *session.State, name string, kind Kind) bool {
	if roomID == "" {
		return false
	}
	if st.RoomID == roomID {
		if room, ok := d.rooms[roomID]; ok {
			d.send(st, protocol.RoomJoined{RoomID: roomID, MemberCount: room.Len()})
			return true
		}
	}

	if !d.Joinable(roomID, st, kind) {
		room := d.rooms[roomID]
		d.log.Debug("rooms.join.refused", "room", roomID, "conn", st.ID(), "kind", room.Kind, "members", room.Len())
		return false
	}

	d.Leave(st)

	room, ok := d.rooms[roomID]
	if !ok {
		room = newRoom(roomID, kind)
		d.rooms[roomID] = room
		d.log.Info("rooms.created", "room", roomID, "kind", kind)
	}

	room.members[st.ID()] = st
	st.RoomID = roomID
	count := room.Len()

	d.log.Debug("rooms.joined", "room", roomID, "conn", st.ID(), "members", count)

	for id, member := range room.members {
		if id == st.ID() {
			continue
		}
		d.send(member, protocol.UserJoined{Username: name, MemberCount: count})
	}
	d.send(st, protocol.RoomJoined{RoomID: roomID, MemberCount: count})
	return true
}

// Joinable reports whether Join(roomID, st, _, kind) would admit st. A room
// that does not exist yet is always joinable; an existing one must be of the
// same kind with a free seat, unless st is already a member.
func (d *Directory) Joinable(roomID string, st *session.State, kind Kind) bool {
	if roomID == "" {
		return false
	}
	room, ok := d.rooms[roomID]
	if !ok || st.RoomID == roomID {
		return true
	}
	return !room.full() && room.Kind == kind
}

// Leave takes st out of its current room. It is a no-op when st is in no
// room.
//
// Remaining members of a multi-party room get user_left. The last member of a
// paired room instead gets partner_disconnected and is taken out too, so a
// paired room never lingers with one member. An emptied room is deleted.
func (d *Directory) Leave(st *session.State) {
	if st.RoomID == "" {
		return
	}
	roomID := st.RoomID
	st.RoomID = ""

	room, ok := d.rooms[roomID]
	if !ok {
		return
	}
	delete(room.members, st.ID())

	d.log.Debug("rooms.left", "room", roomID, "conn", st.ID(), "members", room.Len())

	switch {
	case room.Len() == 0:
		d.remove(room)

	case room.Kind == Paired:
		for _, member := range room.members {
			d.send(member, protocol.PartnerDisconnected{})
			member.RoomID = ""
		}
		d.remove(room)

	default:
		count := room.Len()
		for _, member := range room.members {
			d.send(member, protocol.UserLeft{MemberCount: count})
		}
	}
}

// Broadcast delivers ev to every member of the sender's room except the
// sender and returns how many members accepted it. A sender outside any
// room is a no-op. A failing recipient is skipped.
func (d *Directory) Broadcast(sender *session.State, ev protocol.Outbound) int {
	if sender.RoomID == "" {
		return 0
	}
	room, ok := d.rooms[sender.RoomID]
	if !ok {
		return 0
	}

	delivered := 0
	for id, member := range room.members {
		if id == sender.ID() {
			continue
		}
		if d.send(member, ev) {
			delivered++
		}
	}
	return delivered
}

// End sends session_ended with reason to every member of st's room,
// including st, and deletes the room. It reports false if st was in no room.
func (d *Directory) End(st *session.State, reason string) bool {
	if st.RoomID == "" {
		return false
	}
	room, ok := d.rooms[st.RoomID]
	if !ok {
		st.RoomID = ""
		return false
	}

	for _, member := range room.members {
		d.send(member, protocol.SessionEnded{Reason: reason})
		member.RoomID = ""
	}
	d.remove(room)
	d.log.Info("rooms.ended", "room", room.ID, "by", st.ID(), "reason", reason)
	return true
}

// MemberCount returns the size of roomID, with ok=false if no such room.
func (d *Directory) MemberCount(roomID string) (int, bool) {
	room, ok := d.rooms[roomID]
	if !ok {
		return 0, false
	}
	return room.Len(), true
}

// Members returns the ids of roomID's members, in no particular order.
func (d *Directory) Members(roomID string) []session.ID {
	room, ok := d.rooms[roomID]
	if !ok {
		return nil
	}
	ids := make([]session.ID, 0, room.Len())
	for id := range room.members {
		ids = append(ids, id)
	}
	return ids
}

// Lookup returns the room with the given id.
func (d *Directory) Lookup(roomID string) (*Room, bool) {
	room, ok := d.rooms[roomID]
	return room, ok
}

// Len returns the number of live rooms.
func (d *Directory) Len() int { return len(d.rooms) }

// NewPairedID returns an id that no live room uses.
func (d *Directory) NewPairedID() string {
	for {
		id := generatePairedID(d.now())
		if _, taken := d.rooms[id]; !taken {
			return id
		}
	}
}

func (d *Directory) remove(room *Room) {
	delete(d.rooms, room.ID)
	d.log.Info("rooms.deleted", "room", room.ID, "kind", room.Kind)
}

func (d *Directory) send(st *session.State, ev protocol.Outbound) bool {
	if !st.Peer.Alive() {
		return false
	}
	if err := st.Send(ev); err != nil {
		d.log.Debug("rooms.send.dropped", "conn", st.ID(), "type", ev.Type(), "err", err)
		return false
	}
	return true
}
