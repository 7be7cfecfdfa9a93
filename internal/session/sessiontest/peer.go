// Package sessiontest provides an in-memory session.Peer for tests.
package sessiontest

import (
	"errors"
	"sync"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session"
)

// ErrSendFailed is returned by Send when the peer is set to fail.
var ErrSendFailed = errors.New("send failed")

// Peer records every event sent to it.
type Peer struct {
	id session.ID

	mu       sync.Mutex
	received []protocol.Outbound
	dead     bool
	failing  bool
}

// NewPeer returns a live peer with the given id.
func NewPeer(id string) *Peer {
	return &Peer{id: session.ID(id)}
}

func (p *Peer) ID() session.ID { return p.id }

func (p *Peer) Send(ev protocol.Outbound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing {
		return ErrSendFailed
	}
	p.received = append(p.received, ev)
	return nil
}

func (p *Peer) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.dead
}

// Kill marks the transport as gone without unregistering it.
func (p *Peer) Kill() {
	p.mu.Lock()
	p.dead = true
	p.mu.Unlock()
}

// FailSends makes every later Send return ErrSendFailed.
func (p *Peer) FailSends() {
	p.mu.Lock()
	p.failing = true
	p.mu.Unlock()
}

// Received returns a copy of everything sent so far.
func (p *Peer) Received() []protocol.Outbound {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]protocol.Outbound(nil), p.received...)
}

// Types returns the wire type of every event received, in order.
func (p *Peer) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.received))
	for i, ev := range p.received {
		out[i] = ev.Type()
	}
	return out
}

// Count returns how many events of type t were received.
func (p *Peer) Count(t string) int {
	n := 0
	for _, typ := range p.Types() {
		if typ == t {
			n++
		}
	}
	return n
}

// Last returns the most recent event of type t, or nil.
func (p *Peer) Last(t string) protocol.Outbound {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.received) - 1; i >= 0; i-- {
		if p.received[i].Type() == t {
			return p.received[i]
		}
	}
	return nil
}

// Reset forgets received events.
func (p *Peer) Reset() {
	p.mu.Lock()
	p.received = nil
	p.mu.Unlock()
}
