// Package call runs a peer-to-peer chat over a WebRTC data channel. The relay
// only carries the offer, the answer and ICE candidates, as opaque frames.
package call

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/client"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/config"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
)

const channelLabel = "nocturne-chat"

// Signaler sends frames to the other room member through the relay.
type Signaler interface {
	SendMessage(v any) error
}

// Session is one side of a data-channel chat.
type Session struct {
	pc  *pion.PeerConnection
	sig Signaler
	me  string
	log *slog.Logger

	incoming chan Frame
	open     chan struct{}
	closed   chan struct{}

	mu        sync.Mutex
	dc        *pion.DataChannel
	remoteSet bool
	pending   []pion.ICECandidateInit
	openOnce  sync.Once
	closeOnce sync.Once
}

// NewPeerConnection builds a peer connection with the configured ICE
// servers.
func NewPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}
	if turn := cfg.GetTURNServers(); turn != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, client.NewError("create peer connection", err)
	}
	return pc, nil
}

// New wraps pc. Candidates are sent through sig as they are gathered.
func New(pc *pion.PeerConnection, sig Signaler, me string) *Session {
	s := &Session{
		pc:       pc,
		sig:      sig,
		me:       me,
		log:      slog.Default().With("component", "call"),
		incoming: make(chan Frame, 32),
		open:     make(chan struct{}),
		closed:   make(chan struct{}),
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		if err := sig.SendMessage(protocol.SignalFrame{Type: protocol.TypeICECandidate, Candidate: raw}); err != nil {
			s.log.Debug("call.candidate.send", "err", err)
		}
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		s.log.Debug("call.state", "state", state.String())
		if state == pion.PeerConnectionStateFailed || state == pion.PeerConnectionStateClosed {
			s.markClosed()
		}
	})

	pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() == channelLabel {
			s.attach(dc)
		}
	})
	return s
}

// Offer creates the data channel and sends a video_offer. Exactly one side
// of the pair calls it.
func (s *Session) Offer() error {
	ordered := true
	dc, err := s.pc.CreateDataChannel(channelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return client.NewError("create data channel", err)
	}
	s.attach(dc)

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return client.NewError("create offer", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return client.NewError("set local description", err)
	}
	return s.sendDescription(protocol.TypeVideoOffer, s.pc.LocalDescription())
}

// HandleSignal applies one relayed call-setup frame.
func (s *Session) HandleSignal(f *protocol.SignalFrame) error {
	switch f.Type {
	case protocol.TypeVideoOffer:
		desc, err := parseDescription(f.SDP)
		if err != nil {
			return err
		}
		if err := s.setRemote(desc); err != nil {
			return err
		}
		answer, err := s.pc.CreateAnswer(nil)
		if err != nil {
			return client.NewError("create answer", err)
		}
		if err := s.pc.SetLocalDescription(answer); err != nil {
			return client.NewError("set local description", err)
		}
		return s.sendDescription(protocol.TypeVideoAnswer, s.pc.LocalDescription())

	case protocol.TypeVideoAnswer:
		desc, err := parseDescription(f.SDP)
		if err != nil {
			return err
		}
		return s.setRemote(desc)

	case protocol.TypeICECandidate:
		if len(f.Candidate) == 0 {
			return nil
		}
		var ice pion.ICECandidateInit
		if err := json.Unmarshal(f.Candidate, &ice); err != nil {
			return client.NewError("parse ICE candidate", err)
		}

		s.mu.Lock()
		if !s.remoteSet {
			s.pending = append(s.pending, ice)
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		if err := s.pc.AddICECandidate(ice); err != nil {
			return client.NewError("add ICE candidate", err)
		}
	}
	return nil
}

// WaitOpen blocks until the data channel is open.
func (s *Session) WaitOpen(ctx context.Context) error {
	select {
	case <-s.open:
		return nil
	case <-s.closed:
		return client.NewError("open data channel", client.ErrChannelClosed)
	case <-ctx.Done():
		return client.WrapError("open data channel", client.ErrTimeout, ctx.Err().Error())
	}
}

// Send writes a chat frame to the peer.
func (s *Session) Send(text string) error {
	return s.write(Frame{Kind: KindChat, From: s.me, Text: text, SentAt: time.Now().UnixMilli()})
}

// Incoming returns frames from the peer.
func (s *Session) Incoming() <-chan Frame { return s.incoming }

// Closed is closed when the peer connection or data channel ends.
func (s *Session) Closed() <-chan struct{} { return s.closed }

// Close says goodbye to the peer and tears the connection down.
func (s *Session) Close() error {
	_ = s.write(Frame{Kind: KindBye, From: s.me, SentAt: time.Now().UnixMilli()})
	s.markClosed()
	return s.pc.Close()
}

func (s *Session) write(f Frame) error {
	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()

	if dc == nil || dc.ReadyState() != pion.DataChannelStateOpen {
		return client.NewError("send", client.ErrChannelClosed)
	}
	data, err := EncodeFrame(f)
	if err != nil {
		return err
	}
	return dc.Send(data)
}

func (s *Session) attach(dc *pion.DataChannel) {
	s.mu.Lock()
	s.dc = dc
	s.mu.Unlock()

	dc.OnOpen(func() {
		s.openOnce.Do(func() { close(s.open) })
	})
	dc.OnClose(s.markClosed)
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		f, err := DecodeFrame(msg.Data)
		if err != nil {
			s.log.Warn("call.bad_frame", "err", err)
			return
		}
		if f.Kind == KindBye {
			s.markClosed()
			return
		}
		select {
		case s.incoming <- f:
		case <-s.closed:
		}
	})
}

func (s *Session) setRemote(desc pion.SessionDescription) error {
	if err := s.pc.SetRemoteDescription(desc); err != nil {
		return client.NewError("set remote description", err)
	}

	s.mu.Lock()
	s.remoteSet = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, ice := range pending {
		if err := s.pc.AddICECandidate(ice); err != nil {
			s.log.Debug("call.candidate.add", "err", err)
		}
	}
	return nil
}

func (s *Session) sendDescription(typ string, desc *pion.SessionDescription) error {
	raw, err := json.Marshal(desc)
	if err != nil {
		return client.NewError("encode description", err)
	}
	return s.sig.SendMessage(protocol.SignalFrame{Type: typ, SDP: raw})
}

func (s *Session) markClosed() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func parseDescription(raw json.RawMessage) (pion.SessionDescription, error) {
	var desc pion.SessionDescription
	if len(raw) == 0 {
		return desc, client.WrapError("parse description", client.ErrBadSignal, "empty sdp")
	}
	if err := json.Unmarshal(raw, &desc); err != nil {
		return desc, client.NewError("parse description", err)
	}
	return desc, nil
}
