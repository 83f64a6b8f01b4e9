package game

import (
	"sync"
	"time"

	"github.com/kezlabs/taboo-live/pkg/realtime/protocol"
)

type schedState int

const (
	schedIdle schedState = iota
	schedCancelling
)

// ResponseScheduler serializes response requests to the peer. A
// request while a response is in flight first cancels it, waits for
// the cancel to settle, and only then asks for the new response.
// Requests inside the cooldown window are dropped, not queued.
type ResponseScheduler struct {
	send     func(any) error
	activeFn func() bool
	onErr    func(error)

	cooldown time.Duration
	settle   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	last    time.Time
	state   schedState
	pending string
	timer   *time.Timer
	closed  bool
}

// NewResponseScheduler wires a scheduler to the session's transport.
// activeFn reports whether a peer response is currently in flight;
// onErr receives send failures from the settle timer (may be nil).
func NewResponseScheduler(send func(any) error, activeFn func() bool, onErr func(error), cooldown, settle time.Duration) *ResponseScheduler {
	if onErr == nil {
		onErr = func(error) {}
	}
	return &ResponseScheduler{
		send:     send,
		activeFn: activeFn,
		onErr:    onErr,
		cooldown: cooldown,
		settle:   settle,
		now:      time.Now,
	}
}

// Request asks for a response with the given per-turn instructions.
// It reports whether the request was accepted. Only the
// response.create itself is rate limited; an in-flight response is
// always cancelled first, even inside the cooldown window, so pause
// transitions can silence the peer immediately.
func (s *ResponseScheduler) Request(instructions string) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, nil
	}

	if s.state == schedCancelling {
		// A cancel is settling; the new instructions replace whatever
		// was pending behind it.
		s.pending = instructions
		s.mu.Unlock()
		return true, nil
	}

	if s.activeFn() {
		s.state = schedCancelling
		s.pending = instructions
		s.timer = time.AfterFunc(s.settle, s.firePending)
		s.mu.Unlock()
		return true, s.send(protocol.NewResponseCancel())
	}

	now := s.now()
	if !s.last.IsZero() && now.Sub(s.last) < s.cooldown {
		s.mu.Unlock()
		return false, nil
	}
	s.last = now
	s.mu.Unlock()
	return true, s.send(protocol.NewResponseCreate(instructions))
}

// CancelActive cancels the in-flight response without requesting a new
// one. A no-op when nothing is active.
func (s *ResponseScheduler) CancelActive() error {
	if !s.activeFn() {
		return nil
	}
	return s.send(protocol.NewResponseCancel())
}

// Close stops any pending settle timer.
func (s *ResponseScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *ResponseScheduler) firePending() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	instructions := s.pending
	s.pending = ""
	s.state = schedIdle
	s.timer = nil
	s.last = s.now()
	s.mu.Unlock()

	if err := s.send(protocol.NewResponseCreate(instructions)); err != nil {
		s.onErr(err)
	}
}
