package game

import (
	"fmt"
	"time"
)

// State identifies the controller's position in the round lifecycle.
type State int

const (
	// StateIdle means no round is in progress.
	StateIdle State = iota
	// StateRoundActive means a word is assigned and play is live.
	StateRoundActive
	// StatePausedForbidden means play stopped after the user spoke a
	// locked forbidden word.
	StatePausedForbidden
	// StatePausedCorrect means play stopped after a correct guess.
	StatePausedCorrect
	// StateFeedback means the session is collecting coach feedback and
	// game detection is suspended.
	StateFeedback
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRoundActive:
		return "round_active"
	case StatePausedForbidden:
		return "paused_forbidden"
	case StatePausedCorrect:
		return "paused_correct"
	case StateFeedback:
		return "feedback"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Mode selects the conversational frame for the session.
type Mode string

const (
	// ModeCasual is free conversation practice.
	ModeCasual Mode = "casual"
	// ModeRoleplay is scenario-driven conversation practice.
	ModeRoleplay Mode = "roleplay"
	// ModeTaboo is the word-guessing game.
	ModeTaboo Mode = "taboo"
)

// Pace controls how quickly and loosely the AI peer speaks.
type Pace string

const (
	PaceSlow   Pace = "slow"
	PaceMedium Pace = "medium"
	PaceFast   Pace = "fast"
)

// Temperature maps the pace to a sampling temperature.
func (p Pace) Temperature() float64 {
	switch p {
	case PaceSlow:
		return 0.6
	case PaceFast:
		return 1.0
	default:
		return 0.8
	}
}

// SilenceDurationMS maps the pace to the VAD silence window, giving
// slower speakers more room to finish a thought.
func (p Pace) SilenceDurationMS() int {
	switch p {
	case PaceSlow:
		return 4500
	case PaceFast:
		return 2500
	default:
		return 3500
	}
}

// Strictness controls how the guess detector weighs evidence.
type Strictness int

const (
	// StrictnessNormal requires both guess framing and the target word.
	StrictnessNormal Strictness = iota
	// StrictnessLenient also accepts a bare mention of the target while
	// a round is active.
	StrictnessLenient
)

// Config holds the tunables for a session controller.
type Config struct {
	// Mode selects the conversational frame. Defaults to ModeTaboo.
	Mode Mode

	// Pace controls speech speed and VAD patience.
	Pace Pace

	// Voice is the peer voice name.
	Voice string

	// Strictness tunes guess detection.
	Strictness Strictness

	// MatchSubstring reverts forbidden-word matching to plain substring
	// containment instead of word-boundary matching.
	MatchSubstring bool

	// VADThreshold is the speech detection threshold.
	VADThreshold float64

	// PrefixPaddingMS is audio retained before detected speech onset.
	PrefixPaddingMS int

	// ResponseCooldown is the minimum spacing between requested
	// responses.
	ResponseCooldown time.Duration

	// CancelSettleDelay is how long to wait after cancelling an active
	// response before requesting a new one.
	CancelSettleDelay time.Duration

	// PendingSafetyDelay bounds how long buffered game logic may wait
	// for the triggering message to finish.
	PendingSafetyDelay time.Duration

	// SessionSettleDelay is the pause after session.update before the
	// opening prompt is sent.
	SessionSettleDelay time.Duration

	// GreetingDelay is the pause between the opening prompt item and
	// the greeting response request.
	GreetingDelay time.Duration

	// TranscriptionLanguage is the user-audio transcription language.
	TranscriptionLanguage string
}

// DefaultConfig returns the standard session tuning.
func DefaultConfig() Config {
	return Config{
		Mode:                  ModeTaboo,
		Pace:                  PaceMedium,
		Voice:                 "alloy",
		Strictness:            StrictnessNormal,
		VADThreshold:          0.8,
		PrefixPaddingMS:       500,
		ResponseCooldown:      1500 * time.Millisecond,
		CancelSettleDelay:     100 * time.Millisecond,
		PendingSafetyDelay:    50 * time.Millisecond,
		SessionSettleDelay:    500 * time.Millisecond,
		GreetingDelay:         200 * time.Millisecond,
		TranscriptionLanguage: "en",
	}
}
