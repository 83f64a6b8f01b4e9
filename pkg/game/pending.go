package game

import (
	"sync"
	"time"
)

// PendingBuffer defers game-logic actions until the AI message that
// triggered them has finished rendering, so the user sees the message
// before its consequences. Each action carries a dedupe key (the
// triggering message content); pushing the same key twice is a no-op.
// A safety timer drains the buffer even if the completion signal never
// arrives.
type PendingBuffer struct {
	mu       sync.Mutex
	queue    []func()
	seen     map[string]bool
	draining bool
	safety   time.Duration
	timer    *time.Timer
}

// NewPendingBuffer returns a buffer with the given safety drain delay.
func NewPendingBuffer(safety time.Duration) *PendingBuffer {
	return &PendingBuffer{
		seen:   make(map[string]bool),
		safety: safety,
	}
}

// Push queues fn under the dedupe key and arms the safety timer. It
// reports whether the action was queued (false for a duplicate key).
func (b *PendingBuffer) Push(key string, fn func()) bool {
	b.mu.Lock()
	if key != "" && b.seen[key] {
		b.mu.Unlock()
		return false
	}
	if key != "" {
		b.seen[key] = true
	}
	b.queue = append(b.queue, fn)
	if b.timer == nil && b.safety > 0 {
		b.timer = time.AfterFunc(b.safety, b.Drain)
	}
	b.mu.Unlock()
	return true
}

// Drain runs all queued actions in push order. Re-entrant calls (an
// action pushing and draining again) are absorbed by the running drain.
func (b *PendingBuffer) Drain() {
	b.mu.Lock()
	if b.draining {
		b.mu.Unlock()
		return
	}
	b.draining = true
	for len(b.queue) > 0 {
		queue := b.queue
		b.queue = nil
		b.stopTimerLocked()
		b.mu.Unlock()

		for _, fn := range queue {
			fn()
		}

		b.mu.Lock()
	}
	b.draining = false
	b.mu.Unlock()
}

// Reset discards queued actions and forgets seen keys. Called when a
// new round starts so earlier message keys can trigger again.
func (b *PendingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = nil
	b.seen = make(map[string]bool)
	b.stopTimerLocked()
}

// Len returns the number of queued actions.
func (b *PendingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *PendingBuffer) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
