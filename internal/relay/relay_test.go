package relay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/rooms"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session/sessiontest"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/store"
)

func setup(t *testing.T, ids ...string) (*rooms.Directory, *session.Registry, map[string]*sessiontest.Peer) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := rooms.NewDirectory(log)
	reg := session.NewRegistry()
	peers := map[string]*sessiontest.Peer{}
	for _, id := range ids {
		p := sessiontest.NewPeer(id)
		peers[id] = p
		st := reg.Register(p)
		st.Name = "user-" + id
		dir.Join("circle", st, st.Name, rooms.MultiParty)
	}
	// Later joins notify earlier members, so clear only once all are in.
	for _, p := range peers {
		p.Reset()
	}
	return dir, reg, peers
}

func lookup(reg *session.Registry, id string) *session.State {
	st, _ := reg.Lookup(session.ID(id))
	return st
}

func TestForward_VerbatimToOthers(t *testing.T) {
	dir, reg, peers := setup(t, "x", "y", "z")
	r := New(dir, nil, nil)

	raw := json.RawMessage(`{"type":"video_offer","sdp":{"type":"offer","sdp":"v=0 whatever"},"extra":[1,2]}`)
	n := r.Forward(lookup(reg, "x"), protocol.Relay{Kind: protocol.TypeVideoOffer, Raw: raw})

	assert.Equal(t, 2, n)
	assert.Empty(t, peers["x"].Received())
	for _, id := range []string{"y", "z"} {
		got := peers[id].Received()
		require.Len(t, got, 1)
		b, err := protocol.Encode(got[0])
		require.NoError(t, err)
		assert.Equal(t, string(raw), string(b), "payload must not be re-encoded")
	}
}

func TestForward_OutsideRoom(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := session.NewRegistry()
	st := reg.Register(sessiontest.NewPeer("lonely"))

	r := New(rooms.NewDirectory(log), nil, log)
	assert.Zero(t, r.Forward(st, protocol.Relay{Kind: protocol.TypeChatMessage, Raw: json.RawMessage(`{}`)}))
}

func TestForward_ChatGoesToHistory(t *testing.T) {
	dir, reg, _ := setup(t, "x", "y")
	sink := store.NewMemory(10, 0)
	w := store.NewWriter(sink, 8, nil)
	r := New(dir, w, nil)

	chat := json.RawMessage(`{"type":"chat_message","message":{"content":"hi"}}`)
	r.Forward(lookup(reg, "x"), protocol.Relay{Kind: protocol.TypeChatMessage, Raw: chat})
	r.Forward(lookup(reg, "x"), protocol.Relay{Kind: protocol.TypeICECandidate, Raw: json.RawMessage(`{"type":"ice_candidate"}`)})
	w.Close()

	got, err := sink.History(context.Background(), "circle", 0)
	require.NoError(t, err)
	require.Len(t, got, 1, "only chat frames are recorded")
	assert.Equal(t, "user-x", got[0].Sender)
	assert.JSONEq(t, string(chat), string(got[0].Payload))
}
