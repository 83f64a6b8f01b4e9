package game

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one entry in the conversation log.
type Turn struct {
	ID        string
	Seq       uint64
	Role      string
	Content   string
	Final     bool
	Timestamp time.Time
}

// TranscriptLog orders conversation turns with a single monotonic
// sequence counter shared by all roles. Speech events begin placeholder
// turns at onset so ordering reflects when speech happened, not when
// transcription finished.
type TranscriptLog struct {
	mu    sync.Mutex
	seq   uint64
	turns []Turn
}

// NewTranscriptLog returns an empty log.
func NewTranscriptLog() *TranscriptLog {
	return &TranscriptLog{}
}

// Begin opens a placeholder turn and returns its sequence number. The
// placeholder text is shown until Complete fills in the transcript.
func (l *TranscriptLog) Begin(role, placeholder string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.turns = append(l.turns, Turn{
		ID:        uuid.NewString(),
		Seq:       l.seq,
		Role:      role,
		Content:   placeholder,
		Timestamp: time.Now(),
	})
	return l.seq
}

// Complete finalizes the turn opened at seq with its real content. It
// reports whether the turn was found and still pending.
func (l *TranscriptLog) Complete(seq uint64, content string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.turns {
		if l.turns[i].Seq == seq {
			if l.turns[i].Final {
				return false
			}
			l.turns[i].Content = content
			l.turns[i].Final = true
			return true
		}
	}
	return false
}

// Append adds an already-final turn and returns its sequence number.
func (l *TranscriptLog) Append(role, content string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.turns = append(l.turns, Turn{
		ID:        uuid.NewString(),
		Seq:       l.seq,
		Role:      role,
		Content:   content,
		Final:     true,
		Timestamp: time.Now(),
	})
	return l.seq
}

// Discard removes a still-pending turn, e.g. the placeholder of a
// response that was cancelled before it produced a transcript. Final
// turns are never removed.
func (l *TranscriptLog) Discard(seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.turns {
		if l.turns[i].Seq == seq {
			if l.turns[i].Final {
				return
			}
			l.turns = append(l.turns[:i], l.turns[i+1:]...)
			return
		}
	}
}

// Seq returns the current sequence counter value.
func (l *TranscriptLog) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Turns returns a copy of the log ordered by sequence number.
func (l *TranscriptLog) Turns() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// HasFinalAssistant reports whether a final assistant turn with exactly
// this content already exists, guarding against duplicate delivery of
// the same response via different frame types.
func (l *TranscriptLog) HasFinalAssistant(content string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.turns {
		if t.Role == RoleAssistant && t.Final && t.Content == content {
			return true
		}
	}
	return false
}

// UserTextSince joins the final user turns recorded after the given
// sequence number, oldest first. Used to collect the user's round
// description for coach feedback.
func (l *TranscriptLog) UserTextSince(seq uint64) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var parts []string
	for _, t := range l.turns {
		if t.Seq > seq && t.Role == RoleUser && t.Final && t.Content != "" {
			parts = append(parts, t.Content)
		}
	}
	return strings.Join(parts, " ")
}

// Clear empties the log but keeps the sequence counter monotonic.
func (l *TranscriptLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
}
