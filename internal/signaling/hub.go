// Package signaling is the websocket gateway of the relay.
//
// Every connection feeds one inbox. A single goroutine, Hub.Run, drains it
// and is the only code that touches the registry, the rooms and the pairing
// queue, so none of them need locks.
package signaling

import (
	"context"
	"errors"
	"log/slog"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/matchmaker"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/metrics"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/relay"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/rooms"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/store"
)

// inboxSize buffers bursts between the pumps and the hub loop.
const inboxSize = 1024

// ErrHubStopped is returned by Stats once Run has returned.
var ErrHubStopped = errors.New("signaling: hub stopped")

type eventKind int

const (
	evRegister eventKind = iota
	evFrame
	evUnregister
	evStats
)

// event is everything the hub loop reacts to. Register, frames and
// unregister for one connection travel through the same channel, which keeps
// them in order.
type event struct {
	kind   eventKind
	client *Client
	data   []byte
	reply  chan Stats
}

// Stats is a snapshot of the hub state.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	Waiting     int `json:"waiting"`
}

// Hub is the central brain of the relay.
type Hub struct {
	log   *slog.Logger
	inbox chan event
	done  chan struct{}

	// Owned by the Run goroutine.
	clients  map[session.ID]*Client
	registry *session.Registry
	rooms    *rooms.Directory
	matcher  *matchmaker.Matchmaker
	relay    *relay.Relay
}

// NewHub creates a hub. history receives chat payloads and may be nil.
func NewHub(log *slog.Logger, history *store.Writer) *Hub {
	if log == nil {
		log = slog.Default()
	}
	dir := rooms.NewDirectory(log)
	reg := session.NewRegistry()
	h := &Hub{
		log:      log,
		inbox:    make(chan event, inboxSize),
		done:     make(chan struct{}),
		clients:  make(map[session.ID]*Client),
		registry: reg,
		rooms:    dir,
		matcher:  matchmaker.New(dir, reg, log),
		relay:    relay.New(dir, history, log),
	}

	// Teardown cascade for a closed connection.
	h.registry.OnUnregister(func(st *session.State) { h.matcher.CancelWait(st) })
	h.registry.OnUnregister(h.rooms.Leave)
	return h
}

// Register hands a freshly upgraded client to the hub. It reports false if
// the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	return h.push(event{kind: evRegister, client: c})
}

// Unregister tells the hub the client is gone.
func (h *Hub) Unregister(c *Client) {
	h.push(event{kind: evUnregister, client: c})
}

// Deliver queues one inbound frame from c. It reports false if the hub has
// stopped.
func (h *Hub) Deliver(c *Client, data []byte) bool {
	return h.push(event{kind: evFrame, client: c, data: data})
}

// Stats asks the hub loop for a snapshot.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if !h.pushContext(ctx, event{kind: evStats, reply: reply}) {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		return Stats{}, ErrHubStopped
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case <-h.done:
		return Stats{}, ErrHubStopped
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Run starts the hub's main processing loop. It returns when ctx is
// cancelled, after closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.log.Info("hub.started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case ev := <-h.inbox:
			h.handle(ev)
		}
	}
}

func (h *Hub) push(ev event) bool {
	return h.pushContext(context.Background(), ev)
}

func (h *Hub) pushContext(ctx context.Context, ev event) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.inbox <- ev:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) shutdown() {
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
	h.log.Info("hub.stopped")
}

// handle applies one event. Only the Run goroutine calls it.
func (h *Hub) handle(ev event) {
	switch ev.kind {
	case evRegister:
		h.clients[ev.client.ID()] = ev.client
		h.registry.Register(ev.client)
		ev.client.log.Info("hub.register")

	case evUnregister:
		// Either pump may report the same connection; the registry ignores
		// the second teardown.
		if h.registry.Unregister(ev.client.ID()) {
			ev.client.log.Info("hub.unregister")
		}
		delete(h.clients, ev.client.ID())
		ev.client.close()

	case evFrame:
		h.dispatch(ev.client, ev.data)

	case evStats:
		ev.reply <- h.snapshot()
	}
	h.observe()
}

// dispatch decodes one frame and routes it by type.
func (h *Hub) dispatch(c *Client, data []byte) {
	st, ok := h.registry.Lookup(c.ID())
	if !ok {
		// Frame raced with teardown.
		return
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		c.log.Warn("hub.malformed_frame", "err", err, "bytes", len(data))
		metrics.Dropped.WithLabelValues("malformed").Inc()
		return
	}

	switch m := msg.(type) {
	case protocol.JoinRoom:
		if m.RoomID == "" {
			c.log.Warn("hub.join_room.empty_id")
			metrics.Dropped.WithLabelValues("malformed").Inc()
			return
		}
		if !h.rooms.Joinable(m.RoomID, st, rooms.MultiParty) {
			c.log.Debug("hub.join_room.refused", "room", m.RoomID)
			return
		}
		h.matcher.CancelWait(st)
		h.registry.SetDisplayName(st.ID(), m.Username)
		h.rooms.Join(m.RoomID, st, m.Username, rooms.MultiParty)

	case protocol.LeaveRoom:
		h.rooms.Leave(st)

	case protocol.Relay:
		h.relay.Forward(st, m)

	case protocol.JoinRandom:
		if _, paired := h.matcher.RequestPairing(st, m.Username); paired {
			metrics.Pairs.Inc()
		}

	case protocol.CancelWait:
		h.matcher.CancelWait(st)

	case protocol.UserReport:
		if h.rooms.End(st, protocol.ReasonReported) {
			c.log.Warn("hub.user_report", "name", st.Name)
		}

	case protocol.EndSession:
		h.rooms.End(st, protocol.ReasonUserEnded)

	case protocol.Unknown:
		c.log.Debug("hub.unknown_type", "type", m.Kind)
		metrics.Dropped.WithLabelValues("unknown_type").Inc()
	}
}

func (h *Hub) snapshot() Stats {
	return Stats{
		Connections: h.registry.Len(),
		Rooms:       h.rooms.Len(),
		Waiting:     h.matcher.Len(),
	}
}

func (h *Hub) observe() {
	s := h.snapshot()
	metrics.Connections.Set(float64(s.Connections))
	metrics.Rooms.Set(float64(s.Rooms))
	metrics.Waiting.Set(float64(s.Waiting))
}
