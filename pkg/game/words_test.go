package game

import (
	"math/rand"
	"testing"
)

func TestDefaultBankLoads(t *testing.T) {
	bank, err := DefaultBank()
	if err != nil {
		t.Fatalf("DefaultBank: %v", err)
	}
	if bank.Size() < 10 {
		t.Errorf("bank size = %d, want at least 10", bank.Size())
	}
}

func TestBankDrawNoRepeatsUntilExhausted(t *testing.T) {
	words := []Word{
		{Word: "alpha", Forbidden: []string{"a"}},
		{Word: "beta", Forbidden: []string{"b"}},
		{Word: "gamma", Forbidden: []string{"c"}},
	}
	bank, err := NewBank(words, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	seen := map[string]bool{}
	prev := ""
	for i := 0; i < 3; i++ {
		w := bank.Draw(prev)
		if seen[w.Word] {
			t.Errorf("word %q repeated before pool exhausted", w.Word)
		}
		seen[w.Word] = true
		prev = w.Word
	}

	// Pool exhausted; the next draw resets but must not repeat the
	// immediately preceding word.
	w := bank.Draw(prev)
	if w.Word == prev {
		t.Errorf("draw after reset repeated previous word %q", prev)
	}
}

func TestBankRejectsEmpty(t *testing.T) {
	if _, err := NewBank(nil, nil); err == nil {
		t.Error("expected error for empty bank")
	}
	if _, err := LoadBank([]byte("words: []")); err == nil {
		t.Error("expected error for empty YAML list")
	}
}

func TestWordDifficulty(t *testing.T) {
	tests := []struct {
		forbidden int
		want      string
	}{
		{2, "easy"},
		{3, "easy"},
		{4, "medium"},
		{5, "medium"},
		{6, "hard"},
	}
	for _, tt := range tests {
		w := Word{Word: "x", Forbidden: make([]string, tt.forbidden)}
		if got := w.Difficulty(); got != tt.want {
			t.Errorf("Difficulty with %d forbidden = %q, want %q", tt.forbidden, got, tt.want)
		}
	}
}
