package client

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
)

// Handler routes incoming server frames to typed channels.
//
// Channels for conversation traffic (Chat, Signal, Paired) apply
// backpressure. Notifications (Joined, Presence, Waiting, PartnerLeft, Ended)
// are dropped when their buffer is full.
type Handler struct {
	source <-chan []byte

	Joined      chan *protocol.Event
	Presence    chan *protocol.Event
	Waiting     chan struct{}
	Paired      chan *protocol.Event
	PartnerLeft chan struct{}
	Ended       chan string
	Chat        chan *protocol.ChatFrame
	Signal      chan *protocol.SignalFrame

	// Done is closed when the source is exhausted or Stop is called.
	Done chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// NewHandler creates a handler reading from source, usually
// Client.Incoming().
func NewHandler(source <-chan []byte) *Handler {
	return &Handler{
		source:      source,
		Joined:      make(chan *protocol.Event, 4),
		Presence:    make(chan *protocol.Event, 16),
		Waiting:     make(chan struct{}, 1),
		Paired:      make(chan *protocol.Event, 1),
		PartnerLeft: make(chan struct{}, 1),
		Ended:       make(chan string, 1),
		Chat:        make(chan *protocol.ChatFrame, 32),
		Signal:      make(chan *protocol.SignalFrame, 32),
		Done:        make(chan struct{}),
		stop:        make(chan struct{}),
	}
}

// Start begins listening to incoming frames and routing them. It returns
// when the source closes or Stop is called.
func (h *Handler) Start() {
	defer close(h.Done)

	for {
		var (
			data []byte
			ok   bool
		)
		select {
		case data, ok = <-h.source:
			if !ok {
				return
			}
		case <-h.stop:
			return
		}

		ev, err := protocol.DecodeEvent(data)
		if err != nil {
			slog.Warn("client.bad_frame", "err", err)
			continue
		}
		h.route(ev)
	}
}

func (h *Handler) route(ev *protocol.Event) {
	switch ev.Type {
	case protocol.TypeRoomJoined:
		offer(h.Joined, ev)

	case protocol.TypeUserJoined, protocol.TypeUserLeft:
		offer(h.Presence, ev)

	case protocol.TypeWaitingForPair:
		offer(h.Waiting, struct{}{})

	case protocol.TypeRandomPaired:
		deliver(h, h.Paired, ev)

	case protocol.TypePartnerDisconnected:
		offer(h.PartnerLeft, struct{}{})

	case protocol.TypeSessionEnded:
		offer(h.Ended, ev.Reason)

	case protocol.TypeChatMessage:
		var frame protocol.ChatFrame
		if err := json.Unmarshal(ev.Raw, &frame); err != nil {
			slog.Warn("client.bad_chat", "err", err)
			return
		}
		deliver(h, h.Chat, &frame)

	case protocol.TypeVideoOffer, protocol.TypeVideoAnswer, protocol.TypeICECandidate:
		var frame protocol.SignalFrame
		if err := json.Unmarshal(ev.Raw, &frame); err != nil {
			slog.Warn("client.bad_signal", "err", err)
			return
		}
		deliver(h, h.Signal, &frame)

	default:
		slog.Debug("client.unhandled", "type", ev.Type)
	}
}

// Stop ends Start early.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func deliver[T any](h *Handler, ch chan T, v T) {
	select {
	case ch <- v:
	case <-h.stop:
	}
}

func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}
