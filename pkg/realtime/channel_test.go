package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kezlabs/taboo-live/pkg/realtime/protocol"
)

// fakePeer is a websocket echo endpoint that records inbound frames and
// can push outbound ones.
type fakePeer struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	received []map[string]any
}

func (p *fakePeer) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.conns = append(p.conns, conn)
	p.mu.Unlock()

	for {
		var frame map[string]any
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		p.mu.Lock()
		p.received = append(p.received, frame)
		p.mu.Unlock()
	}
}

func (p *fakePeer) push(t *testing.T, frame string) {
	t.Helper()
	p.mu.Lock()
	conn := p.conns[len(p.conns)-1]
	p.mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("push frame: %v", err)
	}
}

func (p *fakePeer) dropAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, conn := range p.conns {
		conn.Close()
	}
}

func newTestChannel(t *testing.T) (*Channel, *fakePeer) {
	t.Helper()
	peer := &fakePeer{}
	srv := httptest.NewServer(http.HandlerFunc(peer.handler))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ch, err := Dial(context.Background(), ChannelConfig{URL: url})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { ch.Close() })
	return ch, peer
}

func waitEvent(t *testing.T, ch *Channel) protocol.ServerEvent {
	t.Helper()
	select {
	case event, ok := <-ch.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func TestChannelSendAndReceive(t *testing.T) {
	ch, peer := newTestChannel(t)

	if err := ch.Send(protocol.NewUserMessage("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		peer.mu.Lock()
		n := len(peer.received)
		peer.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("peer never received frame")
		}
		time.Sleep(10 * time.Millisecond)
	}

	peer.mu.Lock()
	frame := peer.received[0]
	peer.mu.Unlock()
	if frame["type"] != protocol.TypeItemCreate {
		t.Errorf("frame type = %v", frame["type"])
	}

	peer.push(t, `{"type":"response.created","response":{"id":"resp_1"}}`)
	event := waitEvent(t, ch)
	created, ok := event.(protocol.ResponseCreatedEvent)
	if !ok {
		t.Fatalf("expected ResponseCreatedEvent, got %T", event)
	}
	if created.ResponseID != "resp_1" {
		t.Errorf("ResponseID = %q", created.ResponseID)
	}
}

func TestChannelUnknownFrameDelivered(t *testing.T) {
	ch, peer := newTestChannel(t)

	peer.push(t, `{"type":"some.future.event","payload":1}`)
	event := waitEvent(t, ch)
	unknown, ok := event.(protocol.UnknownEvent)
	if !ok {
		t.Fatalf("expected UnknownEvent, got %T", event)
	}
	if unknown.Type != "some.future.event" {
		t.Errorf("Type = %q", unknown.Type)
	}
}

func TestChannelEnsureOpenRedialsOnce(t *testing.T) {
	ch, peer := newTestChannel(t)

	peer.dropAll()
	deadline := time.Now().Add(2 * time.Second)
	for ch.alive.Load() {
		if time.Now().After(deadline) {
			t.Fatal("connection never marked dead")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := ch.EnsureOpen(context.Background()); err != nil {
		t.Fatalf("EnsureOpen after first loss: %v", err)
	}
	if err := ch.Send(protocol.NewResponseCancel()); err != nil {
		t.Fatalf("Send after redial: %v", err)
	}

	peer.dropAll()
	deadline = time.Now().Add(2 * time.Second)
	for ch.alive.Load() {
		if time.Now().After(deadline) {
			t.Fatal("connection never marked dead after redial")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := ch.EnsureOpen(context.Background()); err == nil {
		t.Fatal("expected terminal error after second loss")
	}
}

func TestChannelSendAfterClose(t *testing.T) {
	ch, _ := newTestChannel(t)
	ch.Close()

	err := ch.Send(protocol.NewResponseCancel())
	if err == nil {
		t.Fatal("expected error sending on closed channel")
	}
	var rtErr *Error
	if !errors.As(err, &rtErr) || rtErr.Type != ErrClosed {
		t.Errorf("error = %v, want closed_error", err)
	}

	if _, ok := <-ch.Events(); ok {
		t.Error("events channel should be closed")
	}
}

func TestChannelCloseDuringDelivery(t *testing.T) {
	ch, peer := newTestChannel(t)

	// A writer hammers the channel while it is torn down; the stream
	// must terminate cleanly instead of panicking on a closed channel.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			peer.mu.Lock()
			conn := peer.conns[len(peer.conns)-1]
			peer.mu.Unlock()
			if conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"type":"response.text.delta","delta":"x"}`)) != nil {
				return
			}
		}
	}()
	defer func() {
		close(stop)
		wg.Wait()
	}()

	waitEvent(t, ch)
	ch.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel never closed after Close")
		}
	}
}

func TestChannelCloseAfterConnectionLost(t *testing.T) {
	ch, peer := newTestChannel(t)

	peer.dropAll()
	deadline := time.Now().Add(2 * time.Second)
	for ch.alive.Load() {
		if time.Now().After(deadline) {
			t.Fatal("connection never marked dead")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// No read loop is left to hand the close to; Close must still end
	// the stream.
	ch.Close()
	select {
	case _, ok := <-ch.Events():
		if ok {
			t.Fatal("unexpected event after connection loss")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel never closed")
	}
}

func TestChannelMarshalRoundTrip(t *testing.T) {
	msg := protocol.NewSessionUpdate(protocol.SessionPatch{
		Instructions: "play",
		TurnDetection: &protocol.TurnDetection{
			Type:              "server_vad",
			Threshold:         0.8,
			SilenceDurationMS: 3500,
		},
	})
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"silence_duration_ms":3500`) {
		t.Errorf("payload = %s", data)
	}
}
