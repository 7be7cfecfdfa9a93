package matchmaker

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/rooms"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session/sessiontest"
)

type harness struct {
	mm    *Matchmaker
	dir   *rooms.Directory
	reg   *session.Registry
	peers map[string]*sessiontest.Peer
}

func newHarness(ids ...string) *harness {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := rooms.NewDirectory(log)
	reg := session.NewRegistry()
	h := &harness{
		mm:    New(dir, reg, log),
		dir:   dir,
		reg:   reg,
		peers: map[string]*sessiontest.Peer{},
	}
	for _, id := range ids {
		p := sessiontest.NewPeer(id)
		h.peers[id] = p
		h.reg.Register(p)
	}
	return h
}

func (h *harness) st(id string) *session.State {
	st, _ := h.reg.Lookup(session.ID(id))
	return st
}

// queue puts ids straight into the waiting queue, in order, without pairing
// them with each other.
func (h *harness) queue(ids ...string) {
	for _, id := range ids {
		h.reg.SetDisplayName(session.ID(id), id)
		h.mm.enqueue(h.st(id))
	}
}

func pairedWith(t *testing.T, p *sessiontest.Peer) protocol.RandomPaired {
	t.Helper()
	ev, ok := p.Last(protocol.TypeRandomPaired).(protocol.RandomPaired)
	require.True(t, ok, "no random_paired received")
	return ev
}

func TestRequestPairing_EmptyQueueWaits(t *testing.T) {
	h := newHarness("a")

	roomID, paired := h.mm.RequestPairing(h.st("a"), "Alice")

	assert.False(t, paired)
	assert.Empty(t, roomID)
	assert.True(t, h.st("a").Waiting)
	assert.False(t, h.st("a").InRoom())
	assert.Equal(t, []string{protocol.TypeWaitingForPair}, h.peers["a"].Types())
	assert.Equal(t, 1, h.mm.Len())
}

func TestRequestPairing_PairsWithWaiter(t *testing.T) {
	h := newHarness("a", "b")
	h.mm.RequestPairing(h.st("a"), "Alice")

	roomID, paired := h.mm.RequestPairing(h.st("b"), "Bob")

	require.True(t, paired)
	assert.Equal(t, roomID, h.st("a").RoomID)
	assert.Equal(t, roomID, h.st("b").RoomID)
	assert.False(t, h.st("a").Waiting)
	assert.False(t, h.st("b").Waiting)
	assert.Zero(t, h.mm.Len())

	count, ok := h.dir.MemberCount(roomID)
	require.True(t, ok)
	assert.Equal(t, 2, count)

	assert.Equal(t, protocol.RandomPaired{RoomID: roomID, PartnerUsername: "Bob"}, pairedWith(t, h.peers["a"]))
	assert.Equal(t, protocol.RandomPaired{RoomID: roomID, PartnerUsername: "Alice"}, pairedWith(t, h.peers["b"]))

	room, ok := h.dir.Lookup(roomID)
	require.True(t, ok)
	assert.Equal(t, rooms.Paired, room.Kind)
}

func TestRequestPairing_FIFO(t *testing.T) {
	h := newHarness("a", "b", "c", "d")
	h.queue("a", "b", "c")
	require.Equal(t, []session.ID{"a", "b", "c"}, h.mm.Waiting())

	roomID, paired := h.mm.RequestPairing(h.st("d"), "d")

	require.True(t, paired)
	assert.Equal(t, roomID, h.st("a").RoomID)
	assert.Equal(t, roomID, h.st("d").RoomID)
	assert.Equal(t, []session.ID{"b", "c"}, h.mm.Waiting())
	assert.False(t, h.st("b").InRoom())
	assert.False(t, h.st("c").InRoom())
}

func TestRequestPairing_DeadHeadIsSkipped(t *testing.T) {
	h := newHarness("a", "b", "c", "d")
	h.queue("a", "b", "c")
	h.peers["a"].Kill()

	roomID, paired := h.mm.RequestPairing(h.st("d"), "d")

	require.True(t, paired)
	assert.Equal(t, roomID, h.st("b").RoomID)
	assert.Equal(t, roomID, h.st("d").RoomID)
	assert.False(t, h.st("a").Waiting, "dead waiter is removed as a side effect")
	assert.False(t, h.st("a").InRoom())
	assert.Equal(t, []session.ID{"c"}, h.mm.Waiting())
}

func TestRequestPairing_AllWaitersDead(t *testing.T) {
	h := newHarness("a", "b", "c")
	h.queue("a", "b")
	h.peers["a"].Kill()
	h.peers["b"].Kill()

	_, paired := h.mm.RequestPairing(h.st("c"), "c")

	assert.False(t, paired)
	assert.Equal(t, []session.ID{"c"}, h.mm.Waiting())
	assert.Equal(t, 0, h.dir.Len())
	assert.False(t, h.st("a").Waiting)
	assert.False(t, h.st("b").Waiting)
}

func TestRequestPairing_RepeatWhileWaiting(t *testing.T) {
	h := newHarness("a")
	h.mm.RequestPairing(h.st("a"), "Alice")

	_, paired := h.mm.RequestPairing(h.st("a"), "Alice")

	assert.False(t, paired, "never matched against itself")
	assert.Equal(t, 1, h.mm.Len())
	assert.Equal(t, 1, h.peers["a"].Count(protocol.TypeWaitingForPair))
}

func TestRequestPairing_LeavesCurrentRoomFirst(t *testing.T) {
	h := newHarness("a", "b")
	h.dir.Join("circle", h.st("a"), "Alice", rooms.MultiParty)
	h.dir.Join("circle", h.st("b"), "Bob", rooms.MultiParty)

	h.mm.RequestPairing(h.st("a"), "Alice")

	assert.False(t, h.st("a").InRoom())
	assert.True(t, h.st("a").Waiting)
	assert.Equal(t, protocol.UserLeft{MemberCount: 1}, h.peers["b"].Last(protocol.TypeUserLeft))
}

func TestCancelWait(t *testing.T) {
	h := newHarness("a", "b")
	h.mm.RequestPairing(h.st("a"), "Alice")
	h.peers["a"].Reset()

	assert.True(t, h.mm.CancelWait(h.st("a")))
	assert.False(t, h.mm.CancelWait(h.st("a")))
	assert.False(t, h.mm.CancelWait(h.st("b")))

	assert.False(t, h.st("a").Waiting)
	assert.Zero(t, h.mm.Len())
	assert.Empty(t, h.peers["a"].Types(), "cancel sends nothing back")

	_, paired := h.mm.RequestPairing(h.st("b"), "Bob")
	assert.False(t, paired, "cancelled waiter must not be matched")
}

func TestCancelWait_MiddleOfQueue(t *testing.T) {
	h := newHarness("a", "b", "c", "d")
	h.queue("a", "b", "c")

	h.mm.CancelWait(h.st("b"))
	h.mm.CancelWait(h.st("a"))

	roomID, paired := h.mm.RequestPairing(h.st("d"), "d")
	require.True(t, paired)
	assert.Equal(t, roomID, h.st("c").RoomID)
	assert.Zero(t, h.mm.Len())
}

func TestRequestPairing_RecordsDisplayName(t *testing.T) {
	h := newHarness("a", "b")
	h.mm.RequestPairing(h.st("a"), "Alice")
	assert.Equal(t, "Alice", h.st("a").Name)

	h.mm.RequestPairing(h.st("b"), "")
	assert.Empty(t, h.st("b").Name)
	assert.Equal(t, protocol.RandomPaired{RoomID: h.st("a").RoomID, PartnerUsername: ""}, pairedWith(t, h.peers["a"]))
}
