package rooms

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session"
)

// Kind says how a room was formed.
type Kind int

const (
	// MultiParty rooms are named by clients and hold any number of members.
	MultiParty Kind = iota

	// Paired rooms are created by the matchmaker, hold at most two members
	// and are torn down as soon as one of them leaves.
	Paired
)

// MaxPairedMembers caps paired rooms.
const MaxPairedMembers = 2

func (k Kind) String() string {
	switch k {
	case MultiParty:
		return "multi-party"
	case Paired:
		return "paired"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Room is a named set of connections that see each other's broadcasts.
type Room struct {
	// ID is the unique identifier for the room.
	ID string

	// Kind is fixed at creation.
	Kind Kind

	// CreatedAt is when the first member joined.
	CreatedAt time.Time

	members map[session.ID]*session.State
}

func newRoom(id string, kind Kind) *Room {
	return &Room{
		ID:        id,
		Kind:      kind,
		CreatedAt: time.Now(),
		members:   make(map[session.ID]*session.State),
	}
}

// Len returns the member count.
func (r *Room) Len() int { return len(r.members) }

// Has reports whether id is a member.
func (r *Room) Has(id session.ID) bool {
	_, ok := r.members[id]
	return ok
}

func (r *Room) full() bool {
	return r.Kind == Paired && len(r.members) >= MaxPairedMembers
}

// generatePairedID builds an id from the current time plus a few random words,
// e.g. "random_1760572800000_misty-owl-harbor".
func generatePairedID(now time.Time) string {
	return fmt.Sprintf("random_%d_%s-%s-%s",
		now.UnixMilli(),
		moods[randomIndex(len(moods))],
		nightThings[randomIndex(len(nightThings))],
		places[randomIndex(len(places))],
	)
}

// randomIndex returns a cryptographically secure random index in [0, max).
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(fmt.Sprintf("rooms: random source failed: %v", err))
	}
	return int(n.Int64())
}
