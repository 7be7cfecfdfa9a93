package call

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/client"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/config"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
)

func TestFrame(t *testing.T) {
	in := Frame{Kind: KindChat, From: "Alice", Text: "the moon is out", SentAt: 1714600000000}

	data, err := EncodeFrame(in)
	require.NoError(t, err)
	out, err := DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, int64(1714600000000), out.Time().UnixMilli())

	_, err = DecodeFrame([]byte{0xc1})
	assert.Error(t, err)

	empty, _ := EncodeFrame(Frame{})
	_, err = DecodeFrame(empty)
	assert.ErrorContains(t, err, "missing kind")
}

// recorder keeps every frame sent through it.
type recorder struct {
	mu     sync.Mutex
	frames []protocol.SignalFrame
}

func (r *recorder) SendMessage(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, v.(protocol.SignalFrame))
	return nil
}

func (r *recorder) first(typ string) (protocol.SignalFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.frames {
		if f.Type == typ {
			return f, true
		}
	}
	return protocol.SignalFrame{}, false
}

func newTestPC(t *testing.T) *pion.PeerConnection {
	t.Helper()
	pc, err := NewPeerConnection(&config.Config{})
	require.NoError(t, err)
	return pc
}

func TestOffer_SendsDescription(t *testing.T) {
	sig := &recorder{}
	s := New(newTestPC(t), sig, "Alice")
	defer s.Close()

	require.NoError(t, s.Offer())

	f, ok := sig.first(protocol.TypeVideoOffer)
	require.True(t, ok)
	var desc pion.SessionDescription
	require.NoError(t, json.Unmarshal(f.SDP, &desc))
	assert.Equal(t, pion.SDPTypeOffer, desc.Type)
	assert.Contains(t, desc.SDP, "webrtc-datachannel")
}

func TestHandleSignal_Rejects(t *testing.T) {
	s := New(newTestPC(t), &recorder{}, "Bob")
	defer s.Close()

	err := s.HandleSignal(&protocol.SignalFrame{Type: protocol.TypeVideoAnswer})
	assert.ErrorIs(t, err, client.ErrBadSignal)

	err = s.HandleSignal(&protocol.SignalFrame{Type: protocol.TypeICECandidate, Candidate: json.RawMessage(`"nope"`)})
	assert.Error(t, err)

	// Candidates before the remote description are held back.
	err = s.HandleSignal(&protocol.SignalFrame{Type: protocol.TypeICECandidate, Candidate: json.RawMessage(`{"candidate":"candidate:1 1 udp 1 192.0.2.1 9 typ host"}`)})
	assert.NoError(t, err)
	assert.Len(t, s.pending, 1)
}

func TestSend_BeforeOpen(t *testing.T) {
	s := New(newTestPC(t), &recorder{}, "Bob")
	defer s.Close()
	assert.ErrorIs(t, s.Send("hi"), client.ErrChannelClosed)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitOpen(ctx), client.ErrTimeout)
}

// pipe relays frames from one session to the other, in order.
type pipe struct {
	frames chan protocol.SignalFrame
	done   chan struct{}
}

func newPipe() *pipe {
	return &pipe{frames: make(chan protocol.SignalFrame, 64), done: make(chan struct{})}
}

func (p *pipe) SendMessage(v any) error {
	select {
	case p.frames <- v.(protocol.SignalFrame):
	case <-p.done:
	}
	return nil
}

func (p *pipe) run(to *Session) {
	for {
		select {
		case f := <-p.frames:
			_ = to.HandleSignal(&f)
		case <-p.done:
			return
		}
	}
}

func TestLoopbackChat(t *testing.T) {
	if testing.Short() {
		t.Skip("needs a usable network interface for ICE")
	}

	ab, ba := newPipe(), newPipe()
	alice := New(newTestPC(t), ab, "Alice")
	bob := New(newTestPC(t), ba, "Bob")
	go ab.run(bob)
	go ba.run(alice)
	defer func() {
		close(ab.done)
		close(ba.done)
		alice.Close()
		bob.Close()
	}()

	require.NoError(t, alice.Offer())

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	require.NoError(t, alice.WaitOpen(ctx))
	require.NoError(t, bob.WaitOpen(ctx))

	require.NoError(t, alice.Send("psst"))
	select {
	case f := <-bob.Incoming():
		assert.Equal(t, "psst", f.Text)
		assert.Equal(t, "Alice", f.From)
	case <-ctx.Done():
		t.Fatal("no frame over the data channel")
	}
}
