// Package matchmaker pairs anonymous connections in strict arrival order.
package matchmaker

import (
	"container/list"
	"log/slog"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/rooms"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session"
)

// Matchmaker holds the waiting queue. Like the Directory it materialises
// pairs into, it is driven by a single goroutine.
type Matchmaker struct {
	log   *slog.Logger
	dir   *rooms.Directory
	names *session.Registry
	queue *list.List
	index map[session.ID]*list.Element
}

// New returns a matchmaker with an empty queue. Display names given with a
// pairing request are recorded through names.
func New(dir *rooms.Directory, names *session.Registry, log *slog.Logger) *Matchmaker {
	if log == nil {
		log = slog.Default()
	}
	return &Matchmaker{
		log:   log,
		dir:   dir,
		names: names,
		queue: list.New(),
		index: make(map[session.ID]*list.Element),
	}
}

// RequestPairing matches st with the oldest live waiter, or queues it.
//
// A waiter whose transport is already gone is dropped from the queue and the
// next one is tried. On a match both connections land in a fresh paired room
// and each gets random_paired naming the other. Otherwise st is appended and
// gets waiting_for_pair. It returns the room id when a pair was formed.
//
// A request from a connection that is already waiting changes nothing.
func (m *Matchmaker) RequestPairing(st *session.State, name string) (string, bool) {
	if _, queued := m.index[st.ID()]; queued {
		m.log.Debug("match.duplicate_request", "conn", st.ID())
		return "", false
	}

	m.names.SetDisplayName(st.ID(), name)
	m.dir.Leave(st)

	partner := m.popLive()
	if partner == nil {
		m.enqueue(st)
		if err := st.Send(protocol.WaitingForPair{}); err != nil {
			m.log.Debug("match.send.dropped", "conn", st.ID(), "err", err)
		}
		m.log.Info("match.waiting", "conn", st.ID(), "queue", m.queue.Len())
		return "", false
	}

	roomID := m.dir.NewPairedID()
	m.dir.Join(roomID, partner, partner.Name, rooms.Paired)
	m.dir.Join(roomID, st, st.Name, rooms.Paired)

	m.notify(partner, protocol.RandomPaired{RoomID: roomID, PartnerUsername: st.Name})
	m.notify(st, protocol.RandomPaired{RoomID: roomID, PartnerUsername: partner.Name})

	m.log.Info("match.paired", "room", roomID, "waiter", partner.ID(), "requester", st.ID())
	return roomID, true
}

// CancelWait removes st from the queue. It reports whether st was queued;
// calling it for a connection that is not waiting is a no-op.
func (m *Matchmaker) CancelWait(st *session.State) bool {
	el, ok := m.index[st.ID()]
	if !ok {
		return false
	}
	m.queue.Remove(el)
	delete(m.index, st.ID())
	st.Waiting = false
	m.log.Debug("match.cancelled", "conn", st.ID(), "queue", m.queue.Len())
	return true
}

// Len returns the queue length.
func (m *Matchmaker) Len() int { return m.queue.Len() }

// Waiting returns the queued connection ids, oldest first.
func (m *Matchmaker) Waiting() []session.ID {
	ids := make([]session.ID, 0, m.queue.Len())
	for el := m.queue.Front(); el != nil; el = el.Next() {
		ids = append(ids, el.Value.(*session.State).ID())
	}
	return ids
}

func (m *Matchmaker) enqueue(st *session.State) {
	m.index[st.ID()] = m.queue.PushBack(st)
	st.Waiting = true
}

// popLive dequeues waiters until it finds one whose transport is alive.
func (m *Matchmaker) popLive() *session.State {
	for el := m.queue.Front(); el != nil; el = m.queue.Front() {
		st := m.queue.Remove(el).(*session.State)
		delete(m.index, st.ID())
		st.Waiting = false

		if st.Peer.Alive() {
			return st
		}
		m.log.Info("match.dead_waiter_dropped", "conn", st.ID())
	}
	return nil
}

func (m *Matchmaker) notify(st *session.State, ev protocol.Outbound) {
	if !st.Peer.Alive() {
		return
	}
	if err := st.Send(ev); err != nil {
		m.log.Debug("match.send.dropped", "conn", st.ID(), "type", ev.Type(), "err", err)
	}
}
