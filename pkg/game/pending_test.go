package game

import (
	"sync"
	"testing"
	"time"
)

func TestPendingBufferDedupe(t *testing.T) {
	buf := NewPendingBuffer(0)
	count := 0
	fn := func() { count++ }

	if !buf.Push("msg-a", fn) {
		t.Fatal("first push rejected")
	}
	if buf.Push("msg-a", fn) {
		t.Fatal("duplicate key accepted")
	}
	buf.Drain()
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestPendingBufferDrainOrder(t *testing.T) {
	buf := NewPendingBuffer(0)
	var order []int
	buf.Push("a", func() { order = append(order, 1) })
	buf.Push("b", func() { order = append(order, 2) })
	buf.Drain()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v", order)
	}
}

func TestPendingBufferReentrantDrain(t *testing.T) {
	buf := NewPendingBuffer(0)
	count := 0
	buf.Push("outer", func() {
		count++
		// An action may itself queue and drain more work.
		buf.Push("inner", func() { count++ })
		buf.Drain()
	})
	buf.Drain()

	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestPendingBufferResetAllowsKeyAgain(t *testing.T) {
	buf := NewPendingBuffer(0)
	count := 0
	buf.Push("msg-a", func() { count++ })
	buf.Reset()
	if buf.Len() != 0 {
		t.Error("queue not cleared")
	}
	if !buf.Push("msg-a", func() { count++ }) {
		t.Error("key should be reusable after reset")
	}
	buf.Drain()
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestPendingBufferSafetyTimer(t *testing.T) {
	buf := NewPendingBuffer(20 * time.Millisecond)
	var mu sync.Mutex
	fired := false
	buf.Push("msg-a", func() {
		mu.Lock()
		fired = true
		mu.Unlock()
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := fired
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("safety timer never drained the buffer")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
