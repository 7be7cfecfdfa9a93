// Package session keeps the bookkeeping attached to every live connection.
//
// A Registry is owned by a single goroutine (the signaling hub) and does no
// locking of its own. Absent ids are reported through ok/false results and
// are never errors.
package session

import (
	"github.com/google/uuid"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
)

// ID identifies a connection for its whole lifetime.
type ID string

// NewID returns a fresh random connection id.
func NewID() ID { return ID(uuid.NewString()) }

// Peer is the transport side of a connection as seen by the relay core.
type Peer interface {
	ID() ID

	// Send queues ev for delivery without blocking. An error means the
	// event was dropped for this peer only.
	Send(ev protocol.Outbound) error

	// Alive reports whether the transport can still deliver. It turns false
	// as soon as the reader or writer notices the connection is gone, which
	// may be before the registry hears about it.
	Alive() bool
}

// State is the per-connection session record.
type State struct {
	Peer Peer

	// Name is the self-reported display name. Any string is accepted.
	Name string

	// RoomID is the room the connection is in, or "".
	RoomID string

	// Waiting is true while the connection sits in the pairing queue.
	Waiting bool
}

// ID is shorthand for s.Peer.ID().
func (s *State) ID() ID { return s.Peer.ID() }

// InRoom reports whether the connection is currently a room member.
func (s *State) InRoom() bool { return s.RoomID != "" }

// Send forwards to the underlying peer.
func (s *State) Send(ev protocol.Outbound) error { return s.Peer.Send(ev) }

// Registry maps connection ids to their session state.
type Registry struct {
	sessions map[ID]*State
	cascades []func(*State)
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[ID]*State)}
}

// OnUnregister adds a cleanup step run for every connection that is
// unregistered, while its state is still intact. Steps must tolerate a
// connection that never joined a room or queue.
func (r *Registry) OnUnregister(fn func(*State)) {
	r.cascades = append(r.cascades, fn)
}

// Register creates the record for a freshly upgraded connection. The
// gateway calls it exactly once per connection.
func (r *Registry) Register(p Peer) *State {
	st := &State{Peer: p}
	r.sessions[p.ID()] = st
	return st
}

// Unregister runs the cleanup cascade and forgets the connection. It
// returns false, doing nothing, if the id is unknown, which makes a second
// teardown for the same connection harmless.
func (r *Registry) Unregister(id ID) bool {
	st, ok := r.sessions[id]
	if !ok {
		return false
	}
	for _, fn := range r.cascades {
		fn(st)
	}
	delete(r.sessions, id)
	return true
}

// Lookup returns the state for id.
func (r *Registry) Lookup(id ID) (*State, bool) {
	st, ok := r.sessions[id]
	return st, ok
}

// SetDisplayName records name for id. It reports whether id was known.
func (r *Registry) SetDisplayName(id ID, name string) bool {
	st, ok := r.sessions[id]
	if !ok {
		return false
	}
	st.Name = name
	return true
}

// Len returns the number of live connections.
func (r *Registry) Len() int { return len(r.sessions) }

// Each calls fn for every registered connection, in no particular order.
func (r *Registry) Each(fn func(*State)) {
	for _, st := range r.sessions {
		fn(st)
	}
}
