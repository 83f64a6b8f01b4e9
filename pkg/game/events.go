package game

import (
	"time"

	"github.com/kezlabs/taboo-live/pkg/realtime/protocol"
)

// Event is emitted by the Session to observers (UI, logging, metrics).
type Event interface {
	EventType() string
}

// StateChangedEvent reports a controller state transition.
type StateChangedEvent struct {
	From State
	To   State
}

func (e StateChangedEvent) EventType() string { return "state_changed" }

// RoundStartedEvent reports a new round with a freshly drawn word.
type RoundStartedEvent struct {
	Word      string
	Forbidden []string
}

func (e RoundStartedEvent) EventType() string { return "round_started" }

// WordUnlockedEvent reports that the AI peer spoke a forbidden word,
// permanently unlocking it for the user.
type WordUnlockedEvent struct {
	Word string
}

func (e WordUnlockedEvent) EventType() string { return "word_unlocked" }

// ViolationEvent reports that the user spoke a locked forbidden word.
type ViolationEvent struct {
	Word string
}

func (e ViolationEvent) EventType() string { return "violation" }

// CorrectGuessEvent reports that the AI peer guessed the target word.
// Source is "tool_call" or "heuristic".
type CorrectGuessEvent struct {
	Word   string
	Score  int
	Source string
}

func (e CorrectGuessEvent) EventType() string { return "correct_guess" }

// TurnEvent reports a finalized conversation turn.
type TurnEvent struct {
	Turn Turn
}

func (e TurnEvent) EventType() string { return "turn" }

// AssistantDeltaEvent streams partial AI output text as it arrives.
type AssistantDeltaEvent struct {
	Delta string
}

func (e AssistantDeltaEvent) EventType() string { return "assistant_delta" }

// SpeechActivityEvent reports voice activity edges from the peer VAD.
type SpeechActivityEvent struct {
	Speaking bool
}

func (e SpeechActivityEvent) EventType() string { return "speech_activity" }

// UsageEvent reports cumulative token usage and estimated cost after a
// response completes.
type UsageEvent struct {
	Usage protocol.Usage
	Cost  CostReport
}

func (e UsageEvent) EventType() string { return "usage" }

// FeedbackReadyEvent reports that coach feedback for the last round was
// received and stored.
type FeedbackReadyEvent struct {
	Word     string
	Feedback string
}

func (e FeedbackReadyEvent) EventType() string { return "feedback_ready" }

// SessionEndedEvent reports session shutdown with summary figures.
type SessionEndedEvent struct {
	Score    int
	Duration time.Duration
}

func (e SessionEndedEvent) EventType() string { return "session_ended" }

// ErrorEvent reports a non-fatal session error.
type ErrorEvent struct {
	Err error
}

func (e ErrorEvent) EventType() string { return "error" }
