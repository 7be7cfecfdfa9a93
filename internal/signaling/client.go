package signaling

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/metrics"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/protocol"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// DefaultMaxMessageSize is the inbound frame limit when none is configured.
	DefaultMaxMessageSize = 64 * 1024 // enough for SDP offers with many candidates

	// DefaultSendBuffer is the outbound queue depth when none is configured.
	DefaultSendBuffer = 256
)

// Client is a wrapper for a single websocket connection.
//
// The hub goroutine is the only caller of Send and close, so the send
// channel is never written after it is closed.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   session.ID
	log  *slog.Logger

	// send is a bounded queue of encoded frames. WritePump drains it.
	send chan []byte

	maxMessageSize int64

	alive  atomic.Bool
	closed bool
}

// ClientOptions tunes per-connection limits. Zero values mean defaults.
type ClientOptions struct {
	SendBuffer     int
	MaxMessageSize int64
}

// NewClient wraps conn. conn may be nil for a client that is only driven
// through the hub, as in tests.
func NewClient(hub *Hub, conn *websocket.Conn, opts ClientOptions) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}

	id := session.NewID()
	log := hub.log.With("conn", id)
	if conn != nil {
		log = log.With("remote", conn.RemoteAddr().String())
	}

	c := &Client{
		hub:            hub,
		conn:           conn,
		id:             id,
		log:            log,
		send:           make(chan []byte, opts.SendBuffer),
		maxMessageSize: opts.MaxMessageSize,
	}
	c.alive.Store(true)
	return c
}

// ID returns the connection id.
func (c *Client) ID() session.ID { return c.id }

// Alive reports whether neither pump has seen the connection fail.
func (c *Client) Alive() bool { return c.alive.Load() }

// Send encodes ev and queues it without blocking.
func (c *Client) Send(ev protocol.Outbound) error {
	if c.closed {
		return ErrClientClosed
	}
	data, err := protocol.Encode(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type(), err)
	}
	select {
	case c.send <- data:
		return nil
	default:
		metrics.Dropped.WithLabelValues("buffer_full").Inc()
		return ErrSendBufferFull
	}
}

// close stops the write pump. Safe to call more than once.
func (c *Client) close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump pumps frames from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	// When this function exits (e.g., connection closes), unregister the client
	defer func() {
		c.alive.Store(false)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Frames are read raw so a bad one is dropped by the hub instead of
		// failing the read loop.
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("client.read", "err", err)
			}
			return
		}
		if !c.hub.Deliver(c, data) {
			return
		}
	}
}

// WritePump pumps frames from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	// When this function exits, stop the ticker and close the connection
	defer func() {
		ticker.Stop()
		c.alive.Store(false)
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("client.write", "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
