// Package coach turns the AI peer's spoken language feedback into
// structured records for progress tracking.
package coach

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FeedbackSession is one stored round of coach feedback.
type FeedbackSession struct {
	ID              string
	Word            string
	Difficulty      string
	UserDescription string
	Feedback        string
	Categories      []string
	Improvements    []string
	CreatedAt       time.Time
}

// NewFeedbackSession builds a record from raw feedback text, deriving
// categories and improvement points.
func NewFeedbackSession(word, difficulty, userDescription, feedback string) FeedbackSession {
	categories, improvements := Categorize(feedback)
	return FeedbackSession{
		ID:              uuid.NewString(),
		Word:            word,
		Difficulty:      difficulty,
		UserDescription: userDescription,
		Feedback:        feedback,
		Categories:      categories,
		Improvements:    improvements,
		CreatedAt:       time.Now(),
	}
}

// categoryKeywords maps a feedback category to surface cues in the
// coach's prose.
var categoryKeywords = map[string][]string{
	"grammar":    {"grammar", "tense", "verb", "article", "plural", "conjugat"},
	"vocabulary": {"vocabulary", "word choice", "phrase", "expression", "synonym"},
	"fluency":    {"fluency", "fluent", "pace", "hesitat", "pause", "smooth", "natural"},
	"structure":  {"structure", "sentence", "order", "organize", "clear"},
}

// categoryOrder keeps category output deterministic.
var categoryOrder = []string{"grammar", "vocabulary", "fluency", "structure"}

// improvementCues mark sentences that carry actionable advice.
var improvementCues = []string{"try ", "instead", "better to", "you could", "next time", "consider "}

// Categorize scans feedback prose for the language areas it touches
// and extracts the sentences that carry concrete advice.
func Categorize(feedback string) (categories, improvements []string) {
	lower := strings.ToLower(feedback)
	for _, cat := range categoryOrder {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lower, kw) {
				categories = append(categories, cat)
				break
			}
		}
	}

	for _, sentence := range splitSentences(feedback) {
		lowerSentence := strings.ToLower(sentence)
		for _, cue := range improvementCues {
			if strings.Contains(lowerSentence, cue) {
				improvements = append(improvements, strings.TrimSpace(sentence))
				break
			}
		}
	}
	return categories, improvements
}

func splitSentences(text string) []string {
	var out []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				out = append(out, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		out = append(out, s)
	}
	return out
}
