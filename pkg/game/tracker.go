package game

import (
	"regexp"
	"strings"
)

// Speaker identifies who produced a transcript.
type Speaker int

const (
	SpeakerUser Speaker = iota
	SpeakerAI
)

// String returns a human-readable speaker name.
func (s Speaker) String() string {
	if s == SpeakerAI {
		return "ai"
	}
	return "user"
}

// EffectKind classifies the outcome of a forbidden-word scan.
type EffectKind int

const (
	// EffectNone means the text touched no locked forbidden word.
	EffectNone EffectKind = iota
	// EffectUnlock means the AI peer spoke a locked word, unlocking it.
	EffectUnlock
	// EffectViolation means the user spoke a locked word.
	EffectViolation
)

// Effect is the result of scanning one transcript.
type Effect struct {
	Kind EffectKind
	Word string
}

// Tracker holds the lock state of the current word's forbidden list.
// Unlocks are permanent for the life of the word: once the AI peer
// speaks a forbidden word, the user may say it freely.
type Tracker struct {
	word     string
	entries  []trackerEntry
	substr   bool
	prepared bool
}

type trackerEntry struct {
	word     string
	lower    string
	pattern  *regexp.Regexp
	unlocked bool
}

// NewTracker returns an empty tracker. matchSubstring selects plain
// containment instead of word-boundary matching.
func NewTracker(matchSubstring bool) *Tracker {
	return &Tracker{substr: matchSubstring}
}

// Initialize arms the tracker for a word. If the word is unchanged the
// call is a no-op, preserving unlock state across mid-round session
// reconfiguration.
func (t *Tracker) Initialize(w Word) {
	if t.prepared && strings.EqualFold(t.word, w.Word) {
		return
	}
	t.word = w.Word
	t.entries = make([]trackerEntry, 0, len(w.Forbidden))
	for _, f := range w.Forbidden {
		entry := trackerEntry{word: f, lower: strings.ToLower(f)}
		if !t.substr {
			entry.pattern = regexp.MustCompile(`\b` + regexp.QuoteMeta(entry.lower) + `\b`)
		}
		t.entries = append(t.entries, entry)
	}
	t.prepared = true
}

// CheckText scans a transcript against the locked forbidden words in
// list order and returns the effect of the first match. Already
// unlocked words never match. AI matches unlock; user matches violate.
func (t *Tracker) CheckText(text string, speaker Speaker) Effect {
	if !t.prepared || text == "" {
		return Effect{Kind: EffectNone}
	}
	lower := strings.ToLower(text)
	for i := range t.entries {
		entry := &t.entries[i]
		if entry.unlocked {
			continue
		}
		if !t.matches(entry, lower) {
			continue
		}
		if speaker == SpeakerAI {
			entry.unlocked = true
			return Effect{Kind: EffectUnlock, Word: entry.word}
		}
		return Effect{Kind: EffectViolation, Word: entry.word}
	}
	return Effect{Kind: EffectNone}
}

// Unlocked reports whether a forbidden word has been unlocked.
func (t *Tracker) Unlocked(word string) bool {
	lower := strings.ToLower(word)
	for _, entry := range t.entries {
		if entry.lower == lower {
			return entry.unlocked
		}
	}
	return false
}

// Locked returns the forbidden words still locked, in list order.
func (t *Tracker) Locked() []string {
	var out []string
	for _, entry := range t.entries {
		if !entry.unlocked {
			out = append(out, entry.word)
		}
	}
	return out
}

// Word returns the word the tracker is armed for.
func (t *Tracker) Word() string {
	return t.word
}

func (t *Tracker) matches(entry *trackerEntry, lower string) bool {
	if t.substr {
		return strings.Contains(lower, entry.lower)
	}
	return entry.pattern.MatchString(lower)
}
