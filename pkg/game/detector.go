package game

import (
	"regexp"
	"strings"
)

// guessFramings are phrases that frame an utterance as a guess. The
// peer is prompted to report guesses via a tool call; this heuristic is
// the fallback path for transcripts when the call never arrives.
var guessFramings = []string{
	"is it",
	"it's",
	"it is",
	"the word is",
	"the answer is",
	"my guess",
	"i think it",
	"i guess",
	"it must be",
	"could it be",
	"maybe it's",
	"sounds like",
	"are you describing",
	"are you talking about",
	"you mean",
}

// Detector decides whether an AI transcript is a guess of the target
// word. It matches the target with several surface variations so
// plurals, possessives, and compounds still count.
type Detector struct {
	target     string
	patterns   []*regexp.Regexp
	strictness Strictness
}

// NewDetector compiles variation patterns for the target word.
func NewDetector(target string, strictness Strictness) *Detector {
	lower := regexp.QuoteMeta(strings.ToLower(target))
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`\b` + lower + `\b`),
		regexp.MustCompile(`\b` + lower + `(s|es)\b`),
		regexp.MustCompile(`\b` + lower + `'s\b`),
		regexp.MustCompile(`\w+` + lower + `\b`),
		regexp.MustCompile(`\b` + lower + `\w+`),
		regexp.MustCompile(`\b(a|an|the)\s+` + lower + `\b`),
	}
	return &Detector{
		target:     strings.ToLower(target),
		patterns:   patterns,
		strictness: strictness,
	}
}

// ContainsTarget reports whether the text mentions the target word in
// any recognized variation.
func (d *Detector) ContainsTarget(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range d.patterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// IsGuess reports whether the text reads as a guess of the target.
// Normal strictness requires both guess framing and the target word;
// lenient strictness accepts a bare mention of the target.
func (d *Detector) IsGuess(text string) bool {
	if !d.ContainsTarget(text) {
		return false
	}
	if d.strictness == StrictnessLenient {
		return true
	}
	return hasGuessFraming(text)
}

func hasGuessFraming(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range guessFramings {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	// A trailing question is guess framing by itself: "Football?".
	trimmed := strings.TrimSpace(lower)
	return strings.HasSuffix(trimmed, "?")
}
