package rooms

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session/sessiontest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	dir   *Directory
	reg   *session.Registry
	peers map[string]*sessiontest.Peer
}

func newFixture(ids ...string) *fixture {
	f := &fixture{
		dir:   NewDirectory(quietLogger()),
		reg:   session.NewRegistry(),
		peers: map[string]*sessiontest.Peer{},
	}
	for _, id := range ids {
		f.add(id)
	}
	return f
}

func (f *fixture) add(id string) *session.State {
	p := sessiontest.NewPeer(id)
	f.peers[id] = p
	return f.reg.Register(p)
}

// joinAll puts ids into a multi-party room, then clears what every peer
// received on the way in.
func (f *fixture) joinAll(roomID string, ids ...string) {
	for _, id := range ids {
		f.dir.Join(roomID, f.st(id), id, MultiParty)
	}
	for _, id := range ids {
		f.peers[id].Reset()
	}
}

func (f *fixture) st(id string) *session.State {
	st, ok := f.reg.Lookup(session.ID(id))
	if !ok {
		panic("unknown peer " + id)
	}
	return st
}

// checkConsistency verifies that room member sets and State.RoomID agree,
// that rooms are disjoint and that no room is empty.
func (f *fixture) checkConsistency(t *testing.T) {
	t.Helper()

	inRoom := map[session.ID]string{}
	for id, room := range f.dir.rooms {
		require.NotZero(t, room.Len(), "orphan room %s", id)
		for member := range room.members {
			prev, dup := inRoom[member]
			require.False(t, dup, "%s is in both %s and %s", member, prev, id)
			inRoom[member] = id
		}
	}

	f.reg.Each(func(st *session.State) {
		if st.RoomID == "" {
			_, listed := inRoom[st.ID()]
			require.False(t, listed, "%s has no room but is listed", st.ID())
			return
		}
		require.Equal(t, st.RoomID, inRoom[st.ID()], "room mismatch for %s", st.ID())
	})
}

func TestDirectory_JoinNotifications(t *testing.T) {
	f := newFixture("a", "b", "c")

	require.True(t, f.dir.Join("circle", f.st("a"), "Alice", MultiParty))
	require.True(t, f.dir.Join("circle", f.st("b"), "Bob", MultiParty))
	require.True(t, f.dir.Join("circle", f.st("c"), "Cara", MultiParty))

	assert.Equal(t, []string{
		protocol.TypeRoomJoined,
		protocol.TypeUserJoined,
		protocol.TypeUserJoined,
	}, f.peers["a"].Types())
	assert.Equal(t, []string{protocol.TypeRoomJoined, protocol.TypeUserJoined}, f.peers["b"].Types())
	assert.Equal(t, []string{protocol.TypeRoomJoined}, f.peers["c"].Types())

	assert.Equal(t, protocol.UserJoined{Username: "Cara", MemberCount: 3}, f.peers["a"].Last(protocol.TypeUserJoined))
	assert.Equal(t, protocol.RoomJoined{RoomID: "circle", MemberCount: 3}, f.peers["c"].Last(protocol.TypeRoomJoined))

	count, ok := f.dir.MemberCount("circle")
	require.True(t, ok)
	assert.Equal(t, 3, count)
	f.checkConsistency(t)
}

func TestDirectory_JoinSwitchesRooms(t *testing.T) {
	f := newFixture("a", "b")

	f.dir.Join("one", f.st("a"), "Alice", MultiParty)
	f.dir.Join("one", f.st("b"), "Bob", MultiParty)
	f.dir.Join("two", f.st("a"), "Alice", MultiParty)

	assert.Equal(t, "two", f.st("a").RoomID)
	assert.ElementsMatch(t, []session.ID{"b"}, f.dir.Members("one"))
	assert.ElementsMatch(t, []session.ID{"a"}, f.dir.Members("two"))
	assert.Equal(t, protocol.UserLeft{MemberCount: 1}, f.peers["b"].Last(protocol.TypeUserLeft))
	f.checkConsistency(t)
}

func TestDirectory_JoinSameRoomOnlyReconfirms(t *testing.T) {
	f := newFixture("a", "b")
	f.dir.Join("circle", f.st("a"), "Alice", MultiParty)
	f.dir.Join("circle", f.st("b"), "Bob", MultiParty)
	f.peers["a"].Reset()
	f.peers["b"].Reset()

	require.True(t, f.dir.Join("circle", f.st("b"), "Bob", MultiParty))

	assert.Empty(t, f.peers["a"].Types())
	assert.Equal(t, []string{protocol.TypeRoomJoined}, f.peers["b"].Types())
	count, _ := f.dir.MemberCount("circle")
	assert.Equal(t, 2, count)
}

func TestDirectory_LeaveRemovesEmptyRoom(t *testing.T) {
	f := newFixture("a")
	f.dir.Join("circle", f.st("a"), "Alice", MultiParty)

	f.dir.Leave(f.st("a"))

	_, ok := f.dir.MemberCount("circle")
	assert.False(t, ok, "empty room must be gone, not zero-sized")
	assert.Equal(t, 0, f.dir.Len())
	assert.False(t, f.st("a").InRoom())
}

func TestDirectory_LeaveIsIdempotent(t *testing.T) {
	f := newFixture("a", "b", "c")
	for _, id := range []string{"a", "b", "c"} {
		f.dir.Join("circle", f.st(id), id, MultiParty)
	}
	f.peers["b"].Reset()

	f.dir.Leave(f.st("a"))
	f.dir.Leave(f.st("a"))

	assert.Equal(t, 1, f.peers["b"].Count(protocol.TypeUserLeft), "no duplicate notification")
	assert.Equal(t, protocol.UserLeft{MemberCount: 2}, f.peers["b"].Last(protocol.TypeUserLeft))
	f.checkConsistency(t)
}

func TestDirectory_PairedTeardown(t *testing.T) {
	f := newFixture("a", "b")
	f.dir.Join("random_1", f.st("a"), "Alice", Paired)
	f.dir.Join("random_1", f.st("b"), "Bob", Paired)
	f.peers["b"].Reset()

	f.dir.Leave(f.st("a"))

	assert.Equal(t, []string{protocol.TypePartnerDisconnected}, f.peers["b"].Types())
	_, ok := f.dir.MemberCount("random_1")
	assert.False(t, ok)
	assert.False(t, f.st("b").InRoom())
	f.checkConsistency(t)

	f.dir.Leave(f.st("a"))
	f.dir.Leave(f.st("b"))
	assert.Equal(t, 1, f.peers["b"].Count(protocol.TypePartnerDisconnected))
}

func TestDirectory_PairedRoomRefusesThirdMember(t *testing.T) {
	f := newFixture("a", "b", "c")
	f.dir.Join("random_1", f.st("a"), "Alice", Paired)
	f.dir.Join("random_1", f.st("b"), "Bob", Paired)

	assert.False(t, f.dir.Join("random_1", f.st("c"), "Cara", Paired))
	assert.False(t, f.dir.Join("random_1", f.st("c"), "Cara", MultiParty))

	count, _ := f.dir.MemberCount("random_1")
	assert.Equal(t, 2, count)
	assert.False(t, f.st("c").InRoom())
	assert.Empty(t, f.peers["c"].Types())
}

func TestDirectory_RefusedJoinKeepsCurrentRoom(t *testing.T) {
	f := newFixture("a", "b", "c")
	f.dir.Join("random_1", f.st("a"), "Alice", Paired)
	f.dir.Join("random_1", f.st("b"), "Bob", Paired)
	f.dir.Join("circle", f.st("c"), "Cara", MultiParty)

	assert.False(t, f.dir.Join("random_1", f.st("c"), "Cara", MultiParty))
	assert.Equal(t, "circle", f.st("c").RoomID)
	f.checkConsistency(t)
}

func TestDirectory_Joinable(t *testing.T) {
	f := newFixture("a", "b", "c")
	f.dir.Join("random_1", f.st("a"), "Alice", Paired)
	f.dir.Join("circle", f.st("b"), "Bob", MultiParty)

	tests := []struct {
		name string
		room string
		who  string
		kind Kind
		want bool
	}{
		{"new room", "lounge", "c", MultiParty, true},
		{"empty id", "", "c", MultiParty, false},
		{"open multi-party", "circle", "c", MultiParty, true},
		{"kind mismatch", "random_1", "c", MultiParty, false},
		{"paired seat free", "random_1", "c", Paired, true},
		{"already a member", "random_1", "a", MultiParty, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.dir.Joinable(tt.room, f.st(tt.who), tt.kind))
		})
	}

	f.dir.Join("random_1", f.st("c"), "Cara", Paired)
	assert.False(t, f.dir.Joinable("random_1", f.st("b"), Paired), "full")
}

func TestDirectory_BroadcastExcludesSender(t *testing.T) {
	f := newFixture("x", "y", "z")
	f.joinAll("circle", "x", "y", "z")

	msg := protocol.Forward{Kind: protocol.TypeChatMessage, Raw: []byte(`{"type":"chat_message"}`)}
	n := f.dir.Broadcast(f.st("x"), msg)

	assert.Equal(t, 2, n)
	assert.Empty(t, f.peers["x"].Received())
	assert.Equal(t, []protocol.Outbound{msg}, f.peers["y"].Received())
	assert.Equal(t, []protocol.Outbound{msg}, f.peers["z"].Received())
}

func TestDirectory_BroadcastBestEffort(t *testing.T) {
	f := newFixture("x", "dead", "failing", "ok")
	f.joinAll("circle", "x", "dead", "failing", "ok")
	f.peers["dead"].Kill()
	f.peers["failing"].FailSends()

	n := f.dir.Broadcast(f.st("x"), protocol.Forward{Kind: protocol.TypeChatMessage, Raw: []byte(`{}`)})

	assert.Equal(t, 1, n)
	assert.Len(t, f.peers["ok"].Received(), 1)
	assert.Empty(t, f.peers["dead"].Received())
}

func TestDirectory_BroadcastOutsideRoom(t *testing.T) {
	f := newFixture("x")
	assert.Zero(t, f.dir.Broadcast(f.st("x"), protocol.Forward{Kind: protocol.TypeChatMessage}))
}

func TestDirectory_End(t *testing.T) {
	f := newFixture("a", "b", "c")
	f.joinAll("circle", "a", "b", "c")

	require.True(t, f.dir.End(f.st("b"), protocol.ReasonReported))

	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, []protocol.Outbound{protocol.SessionEnded{Reason: protocol.ReasonReported}}, f.peers[id].Received(), id)
		assert.False(t, f.st(id).InRoom())
	}
	_, ok := f.dir.MemberCount("circle")
	assert.False(t, ok)

	assert.False(t, f.dir.End(f.st("b"), protocol.ReasonReported))
}

func TestDirectory_NewPairedID(t *testing.T) {
	f := newFixture()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := f.dir.NewPairedID()
		assert.True(t, strings.HasPrefix(id, "random_"), id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestDirectory_RandomSequencesStayConsistent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ids := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7"}
	f := newFixture(ids...)
	roomIDs := []string{"r0", "r1", "r2"}

	for step := 0; step < 2000; step++ {
		st := f.st(ids[rng.Intn(len(ids))])
		switch rng.Intn(5) {
		case 0, 1:
			f.dir.Join(roomIDs[rng.Intn(len(roomIDs))], st, string(st.ID()), MultiParty)
		case 2:
			f.dir.Join(fmt.Sprintf("pair%d", rng.Intn(2)), st, string(st.ID()), Paired)
		case 3:
			f.dir.Leave(st)
		case 4:
			f.dir.End(st, protocol.ReasonUserEnded)
		}
		f.checkConsistency(t)
	}
}

func TestDirectory_EmptyRoomIDRefused(t *testing.T) {
	f := newFixture("a")
	assert.False(t, f.dir.Join("", f.st("a"), "Alice", MultiParty))
	assert.Equal(t, 0, f.dir.Len())
	assert.False(t, f.st("a").InRoom())
}
