package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session/sessiontest"
)

func TestRegistry_RegisterLookup(t *testing.T) {
	r := session.NewRegistry()
	p := sessiontest.NewPeer("c1")

	st := r.Register(p)
	require.NotNil(t, st)
	assert.Equal(t, session.ID("c1"), st.ID())
	assert.False(t, st.InRoom())
	assert.False(t, st.Waiting)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Lookup("c1")
	require.True(t, ok)
	assert.Same(t, st, got)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_SetDisplayName(t *testing.T) {
	tests := []struct {
		name string
		set  string
	}{
		{name: "plain", set: "Alice"},
		{name: "empty is accepted", set: ""},
		{name: "unicode", set: "月の旅人"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := session.NewRegistry()
			st := r.Register(sessiontest.NewPeer("c1"))
			st.Name = "before"

			assert.True(t, r.SetDisplayName("c1", tt.set))
			assert.Equal(t, tt.set, st.Name)
		})
	}

	r := session.NewRegistry()
	assert.False(t, r.SetDisplayName("ghost", "x"))
}

func TestRegistry_UnregisterRunsCascadesOnce(t *testing.T) {
	r := session.NewRegistry()

	var leaves, dequeues []session.ID
	r.OnUnregister(func(st *session.State) { leaves = append(leaves, st.ID()) })
	r.OnUnregister(func(st *session.State) { dequeues = append(dequeues, st.ID()) })

	r.Register(sessiontest.NewPeer("c1"))
	r.Register(sessiontest.NewPeer("c2"))

	assert.True(t, r.Unregister("c1"))
	assert.False(t, r.Unregister("c1"), "second teardown is a no-op")
	assert.False(t, r.Unregister("never-registered"))

	assert.Equal(t, []session.ID{"c1"}, leaves)
	assert.Equal(t, []session.ID{"c1"}, dequeues)
	assert.Equal(t, 1, r.Len())

	_, ok := r.Lookup("c1")
	assert.False(t, ok)
}

func TestRegistry_CascadeSeesIntactState(t *testing.T) {
	r := session.NewRegistry()
	st := r.Register(sessiontest.NewPeer("c1"))
	st.RoomID = "circle"
	st.Name = "Alice"

	var seenRoom, seenName string
	r.OnUnregister(func(s *session.State) {
		seenRoom, seenName = s.RoomID, s.Name
		_, stillThere := r.Lookup(s.ID())
		assert.True(t, stillThere)
	})

	r.Unregister("c1")
	assert.Equal(t, "circle", seenRoom)
	assert.Equal(t, "Alice", seenName)
}

func TestRegistry_Each(t *testing.T) {
	r := session.NewRegistry()
	for _, id := range []string{"a", "b", "c"} {
		r.Register(sessiontest.NewPeer(id))
	}

	seen := map[session.ID]bool{}
	r.Each(func(st *session.State) { seen[st.ID()] = true })
	assert.Len(t, seen, 3)
}

func TestNewID_Unique(t *testing.T) {
	seen := map[session.ID]bool{}
	for i := 0; i < 100; i++ {
		id := session.NewID()
		require.NotEmpty(t, id)
		require.False(t, seen[id])
		seen[id] = true
	}
}
