package game

import (
	"testing"
)

func TestTranscriptLogOrdering(t *testing.T) {
	log := NewTranscriptLog()

	// User starts speaking first; the AI reply begins before the user
	// transcript finishes. Order must follow speech onset, not
	// transcription completion.
	userSeq := log.Begin(RoleUser, "...")
	aiSeq := log.Begin(RoleAssistant, "...")
	if !log.Complete(aiSeq, "Is it a sport?") {
		t.Fatal("completing assistant turn failed")
	}
	if !log.Complete(userSeq, "You play it outside") {
		t.Fatal("completing user turn failed")
	}

	turns := log.Turns()
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d", len(turns))
	}
	if turns[0].Role != RoleUser || turns[0].Content != "You play it outside" {
		t.Errorf("turns[0] = %+v", turns[0])
	}
	if turns[1].Role != RoleAssistant {
		t.Errorf("turns[1] = %+v", turns[1])
	}
	if turns[0].Seq >= turns[1].Seq {
		t.Errorf("sequence not monotonic: %d >= %d", turns[0].Seq, turns[1].Seq)
	}
}

func TestTranscriptLogCompleteTwice(t *testing.T) {
	log := NewTranscriptLog()
	seq := log.Begin(RoleUser, "...")
	if !log.Complete(seq, "first") {
		t.Fatal("first completion failed")
	}
	if log.Complete(seq, "second") {
		t.Error("second completion should be rejected")
	}
	if turns := log.Turns(); turns[0].Content != "first" {
		t.Errorf("content = %q", turns[0].Content)
	}
}

func TestTranscriptLogHasFinalAssistant(t *testing.T) {
	log := NewTranscriptLog()
	log.Append(RoleAssistant, "Is it football?")

	if !log.HasFinalAssistant("Is it football?") {
		t.Error("exact duplicate not detected")
	}
	if log.HasFinalAssistant("Is it pizza?") {
		t.Error("different content flagged as duplicate")
	}

	seq := log.Begin(RoleAssistant, "...")
	_ = seq
	if log.HasFinalAssistant("...") {
		t.Error("pending placeholder should not count as final")
	}
}

func TestTranscriptLogUserTextSince(t *testing.T) {
	log := NewTranscriptLog()
	log.Append(RoleUser, "old round text")
	mark := log.Seq()
	log.Append(RoleUser, "it is round")
	log.Append(RoleAssistant, "hmm")
	log.Append(RoleUser, "you kick it")

	got := log.UserTextSince(mark)
	want := "it is round you kick it"
	if got != want {
		t.Errorf("UserTextSince = %q, want %q", got, want)
	}
}

func TestTranscriptLogClearKeepsCounter(t *testing.T) {
	log := NewTranscriptLog()
	log.Append(RoleUser, "one")
	before := log.Seq()
	log.Clear()
	if len(log.Turns()) != 0 {
		t.Error("log not cleared")
	}
	if next := log.Append(RoleUser, "two"); next <= before {
		t.Errorf("counter reset: %d <= %d", next, before)
	}
}
