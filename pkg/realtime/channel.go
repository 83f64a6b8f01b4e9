// Package realtime provides the transport layer for a live session
// with the realtime AI peer: HTTP negotiation of short-lived session
// credentials, and a websocket channel carrying the JSON control
// protocol defined in the protocol subpackage.
package realtime

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kezlabs/taboo-live/pkg/realtime/protocol"
)

// ChannelConfig configures a Channel.
type ChannelConfig struct {
	// URL is the websocket endpoint of the realtime peer.
	URL string

	// Header carries authentication headers for the dial.
	Header http.Header

	// DialTimeout bounds connection establishment. Defaults to 15s.
	DialTimeout time.Duration

	// EventBuffer is the inbound event channel capacity. Defaults to 64.
	EventBuffer int

	// Logger receives transport diagnostics. Defaults to zap.NewNop().
	Logger *zap.Logger

	// OnRedial, if set, is called each time EnsureOpen attempts a
	// reconnect.
	OnRedial func()
}

// Channel is a bidirectional message channel to the realtime peer.
//
// Writes are serialized; inbound frames are decoded on a reader
// goroutine and delivered on Events. If the consumer falls behind and
// the buffer fills, frames are dropped rather than stalling the reader.
// A channel that loses its connection can be redialed exactly once via
// EnsureOpen; after that, failures are terminal.
type Channel struct {
	cfg    ChannelConfig
	logger *zap.Logger

	mu       sync.Mutex // guards conn, redialed, and readers
	conn     *websocket.Conn
	redialed bool
	readers  int

	writeMu sync.Mutex

	events  chan protocol.ServerEvent
	alive   atomic.Bool
	dropped atomic.Int64

	closeOnce  sync.Once
	eventsOnce sync.Once
	done       chan struct{}

	errMu   sync.Mutex
	lastErr error
}

// Dial connects to the peer endpoint and starts the read loop.
func Dial(ctx context.Context, cfg ChannelConfig) (*Channel, error) {
	if cfg.URL == "" {
		return nil, NewNegotiationError("channel URL is required", nil)
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 15 * time.Second
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ch := &Channel{
		cfg:    cfg,
		logger: cfg.Logger,
		events: make(chan protocol.ServerEvent, cfg.EventBuffer),
		done:   make(chan struct{}),
	}
	if err := ch.connect(ctx); err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *Channel) connect(ctx context.Context) error {
	dialer := &websocket.Dialer{HandshakeTimeout: c.cfg.DialTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return NewTransportError("dial peer: "+resp.Status, err)
		}
		return NewTransportError("dial peer", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		conn.Close()
		return NewClosedError("channel closed")
	default:
	}
	c.conn = conn
	c.readers++
	c.mu.Unlock()
	c.alive.Store(true)

	go c.readLoop(conn)
	c.logger.Debug("channel connected", zap.String("url", c.cfg.URL))
	return nil
}

// Send encodes msg as JSON and writes it to the peer.
func (c *Channel) Send(msg any) error {
	select {
	case <-c.done:
		return NewClosedError("send on closed channel")
	default:
	}
	if !c.alive.Load() {
		return NewTransportError("send on dead connection", nil)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return NewClosedError("send before dial")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		c.alive.Store(false)
		return NewTransportError("write frame", err)
	}
	return nil
}

// EnsureOpen verifies the connection is alive, redialing once if it is
// not. A second loss after the redial is terminal.
func (c *Channel) EnsureOpen(ctx context.Context) error {
	select {
	case <-c.done:
		return NewClosedError("channel closed")
	default:
	}
	if c.alive.Load() {
		return nil
	}

	c.mu.Lock()
	if c.redialed {
		c.mu.Unlock()
		return NewTransportError("connection lost after reconnect", c.Err())
	}
	c.redialed = true
	old := c.conn
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	c.logger.Warn("connection lost, redialing once")
	if c.cfg.OnRedial != nil {
		c.cfg.OnRedial()
	}
	if err := c.connect(ctx); err != nil {
		return err
	}
	return nil
}

// Events returns the inbound event stream. The channel is closed when
// the session ends.
func (c *Channel) Events() <-chan protocol.ServerEvent {
	return c.events
}

// Dropped reports how many inbound frames were discarded because the
// consumer fell behind.
func (c *Channel) Dropped() int64 {
	return c.dropped.Load()
}

// Err returns the terminal transport error, if any. Only meaningful
// after the events channel closes or EnsureOpen fails.
func (c *Channel) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

// Close tears down the connection and closes the event stream. The
// events channel is closed by whichever side exits last: the read loop
// if one is still running, otherwise Close itself.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.alive.Store(false)
		c.mu.Lock()
		conn := c.conn
		idle := c.readers == 0
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		if idle {
			c.eventsOnce.Do(func() { close(c.events) })
		}
	})
	return nil
}

// readerExit retires one read loop. The last reader after Close owns
// closing the events channel, keeping close on the sender side.
func (c *Channel) readerExit() {
	c.mu.Lock()
	c.readers--
	last := c.readers == 0
	c.mu.Unlock()
	if !last {
		return
	}
	select {
	case <-c.done:
		c.eventsOnce.Do(func() { close(c.events) })
	default:
		// Connection lost without Close; keep the stream open for a
		// possible redial.
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	defer c.readerExit()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.alive.Store(false)
			select {
			case <-c.done:
			default:
				c.setErr(NewTransportError("read frame", err))
				c.logger.Debug("read loop ended", zap.Error(err))
			}
			return
		}

		event, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warn("undecodable frame", zap.Error(err),
				zap.ByteString("frame", truncateFrame(data)))
			continue
		}
		c.emit(event)
	}
}

func (c *Channel) emit(event protocol.ServerEvent) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.events <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("event buffer full, dropping frame",
			zap.String("type", protocol.EventType(event)))
	}
}

func (c *Channel) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.lastErr == nil {
		c.lastErr = err
	}
}

func truncateFrame(data []byte) []byte {
	const max = 256
	if len(data) <= max {
		return data
	}
	return data[:max]
}
