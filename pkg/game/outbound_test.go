package game

import (
	"sync"
	"testing"
	"time"

	"github.com/kezlabs/taboo-live/pkg/realtime/protocol"
)

type sendRecorder struct {
	mu   sync.Mutex
	msgs []any
}

func (r *sendRecorder) send(msg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *sendRecorder) snapshot() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func TestSchedulerImmediateWhenIdle(t *testing.T) {
	rec := &sendRecorder{}
	sched := NewResponseScheduler(rec.send, func() bool { return false }, nil,
		time.Second, 10*time.Millisecond)
	defer sched.Close()

	ok, err := sched.Request("say hi")
	if err != nil || !ok {
		t.Fatalf("Request = %v, %v", ok, err)
	}
	msgs := rec.snapshot()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	create, isCreate := msgs[0].(protocol.ResponseCreate)
	if !isCreate || create.Response.Instructions != "say hi" {
		t.Errorf("msgs[0] = %#v", msgs[0])
	}
}

func TestSchedulerCooldownDropsRequest(t *testing.T) {
	rec := &sendRecorder{}
	sched := NewResponseScheduler(rec.send, func() bool { return false }, nil,
		time.Hour, 10*time.Millisecond)
	defer sched.Close()

	if ok, _ := sched.Request("first"); !ok {
		t.Fatal("first request dropped")
	}
	if ok, _ := sched.Request("second"); ok {
		t.Fatal("request inside cooldown accepted")
	}
	if len(rec.snapshot()) != 1 {
		t.Errorf("sent %d messages, want 1", len(rec.snapshot()))
	}
}

func TestSchedulerCancelsActiveThenCreates(t *testing.T) {
	rec := &sendRecorder{}
	var mu sync.Mutex
	active := true
	sched := NewResponseScheduler(rec.send, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return active
	}, nil, 0, 20*time.Millisecond)
	defer sched.Close()

	if ok, err := sched.Request("new turn"); !ok || err != nil {
		t.Fatalf("Request = %v, %v", ok, err)
	}

	msgs := rec.snapshot()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages immediately, want cancel only", len(msgs))
	}
	if _, isCancel := msgs[0].(protocol.ResponseCancel); !isCancel {
		t.Fatalf("msgs[0] = %#v, want ResponseCancel", msgs[0])
	}

	mu.Lock()
	active = false
	mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.snapshot()) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("create never followed cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
	msgs = rec.snapshot()
	create, isCreate := msgs[1].(protocol.ResponseCreate)
	if !isCreate || create.Response.Instructions != "new turn" {
		t.Errorf("msgs[1] = %#v", msgs[1])
	}
}

func TestSchedulerCancelBypassesCooldown(t *testing.T) {
	rec := &sendRecorder{}
	var mu sync.Mutex
	active := false
	sched := NewResponseScheduler(rec.send, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return active
	}, nil, time.Hour, 10*time.Millisecond)
	defer sched.Close()

	if ok, _ := sched.Request("first"); !ok {
		t.Fatal("first request dropped")
	}

	// A response is now in flight; a request well inside the cooldown
	// window must still cancel it and later create the follow-up.
	mu.Lock()
	active = true
	mu.Unlock()
	if ok, err := sched.Request("pause notice"); !ok || err != nil {
		t.Fatalf("Request = %v, %v", ok, err)
	}

	msgs := rec.snapshot()
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages, want create then cancel", len(msgs))
	}
	if _, isCancel := msgs[1].(protocol.ResponseCancel); !isCancel {
		t.Fatalf("msgs[1] = %#v, want ResponseCancel", msgs[1])
	}

	mu.Lock()
	active = false
	mu.Unlock()
	deadline := time.Now().Add(2 * time.Second)
	for len(rec.snapshot()) < 3 {
		if time.Now().After(deadline) {
			t.Fatal("follow-up create never sent")
		}
		time.Sleep(5 * time.Millisecond)
	}
	create, isCreate := rec.snapshot()[2].(protocol.ResponseCreate)
	if !isCreate || create.Response.Instructions != "pause notice" {
		t.Errorf("msgs[2] = %#v", rec.snapshot()[2])
	}
}

func TestSchedulerCancelActiveNoop(t *testing.T) {
	rec := &sendRecorder{}
	sched := NewResponseScheduler(rec.send, func() bool { return false }, nil,
		0, 10*time.Millisecond)
	defer sched.Close()

	if err := sched.CancelActive(); err != nil {
		t.Fatalf("CancelActive: %v", err)
	}
	if len(rec.snapshot()) != 0 {
		t.Error("cancel sent with nothing active")
	}
}

func TestSchedulerClosedDropsRequests(t *testing.T) {
	rec := &sendRecorder{}
	sched := NewResponseScheduler(rec.send, func() bool { return false }, nil,
		0, 10*time.Millisecond)
	sched.Close()

	if ok, _ := sched.Request("late"); ok {
		t.Error("request accepted after close")
	}
}
