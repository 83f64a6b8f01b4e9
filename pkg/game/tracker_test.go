package game

import (
	"testing"
)

func testWord() Word {
	return Word{Word: "football", Forbidden: []string{"sport", "ball", "kick", "team", "goal"}}
}

func TestTrackerUserViolation(t *testing.T) {
	tr := NewTracker(false)
	tr.Initialize(testWord())

	effect := tr.CheckText("It's a sport you play outside", SpeakerUser)
	if effect.Kind != EffectViolation || effect.Word != "sport" {
		t.Errorf("effect = %+v, want violation on sport", effect)
	}
}

func TestTrackerFirstMatchWins(t *testing.T) {
	tr := NewTracker(false)
	tr.Initialize(testWord())

	// "sport" precedes "ball" in the forbidden list.
	effect := tr.CheckText("you kick a ball in this sport", SpeakerUser)
	if effect.Word != "sport" {
		t.Errorf("matched %q, want sport (list order)", effect.Word)
	}
}

func TestTrackerAIUnlockIsPermanent(t *testing.T) {
	tr := NewTracker(false)
	tr.Initialize(testWord())

	effect := tr.CheckText("Is it some kind of ball game?", SpeakerAI)
	if effect.Kind != EffectUnlock || effect.Word != "ball" {
		t.Fatalf("effect = %+v, want unlock of ball", effect)
	}
	if !tr.Unlocked("ball") {
		t.Fatal("ball should be unlocked")
	}

	// The user may now say it freely.
	effect = tr.CheckText("yes, you use a ball", SpeakerUser)
	if effect.Kind != EffectNone {
		t.Errorf("effect after unlock = %+v, want none", effect)
	}

	// A second AI mention of the same word is a no-op.
	effect = tr.CheckText("a ball, right", SpeakerAI)
	if effect.Kind != EffectNone {
		t.Errorf("repeat AI mention = %+v, want none", effect)
	}
}

func TestTrackerWordBoundary(t *testing.T) {
	tr := NewTracker(false)
	tr.Initialize(Word{Word: "football", Forbidden: []string{"ball"}})

	if effect := tr.CheckText("I love basketball", SpeakerUser); effect.Kind != EffectNone {
		t.Errorf("substring inside another word matched: %+v", effect)
	}
	if effect := tr.CheckText("I love the ball", SpeakerUser); effect.Kind != EffectViolation {
		t.Errorf("whole word did not match: %+v", effect)
	}
}

func TestTrackerSubstringMode(t *testing.T) {
	tr := NewTracker(true)
	tr.Initialize(Word{Word: "football", Forbidden: []string{"ball"}})

	if effect := tr.CheckText("I love basketball", SpeakerUser); effect.Kind != EffectViolation {
		t.Errorf("substring mode should match inside words: %+v", effect)
	}
}

func TestTrackerReinitSameWordKeepsUnlocks(t *testing.T) {
	tr := NewTracker(false)
	w := testWord()
	tr.Initialize(w)
	tr.CheckText("ball", SpeakerAI)

	tr.Initialize(w)
	if !tr.Unlocked("ball") {
		t.Error("re-initializing the same word should keep unlock state")
	}

	tr.Initialize(Word{Word: "pizza", Forbidden: []string{"food", "cheese"}})
	if tr.Unlocked("ball") {
		t.Error("new word should reset the tracker")
	}
	if got := len(tr.Locked()); got != 2 {
		t.Errorf("locked count = %d, want 2", got)
	}
}

func TestTrackerCaseInsensitive(t *testing.T) {
	tr := NewTracker(false)
	tr.Initialize(testWord())

	if effect := tr.CheckText("SPORT!", SpeakerUser); effect.Kind != EffectViolation {
		t.Errorf("uppercase did not match: %+v", effect)
	}
}

func TestTrackerEmptyText(t *testing.T) {
	tr := NewTracker(false)
	tr.Initialize(testWord())
	if effect := tr.CheckText("", SpeakerUser); effect.Kind != EffectNone {
		t.Errorf("empty text = %+v", effect)
	}
}
