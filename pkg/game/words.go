package game

import (
	_ "embed"
	"fmt"
	"math/rand"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed words.yaml
var defaultWordsYAML []byte

// Word is one playable entry: a target word and the describer's
// forbidden list.
type Word struct {
	Word      string   `yaml:"word"`
	Forbidden []string `yaml:"forbidden"`
}

// Difficulty buckets a word by how constrained its description is.
func (w Word) Difficulty() string {
	switch n := len(w.Forbidden); {
	case n <= 3:
		return "easy"
	case n <= 5:
		return "medium"
	default:
		return "hard"
	}
}

// Bank draws words uniformly without repeats until the pool is
// exhausted, then resets the used set and keeps drawing.
type Bank struct {
	words []Word
	used  map[string]bool
	rng   *rand.Rand
}

// NewBank builds a bank over the given words. A nil rng falls back to
// the package-level source.
func NewBank(words []Word, rng *rand.Rand) (*Bank, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("word bank is empty")
	}
	for _, w := range words {
		if strings.TrimSpace(w.Word) == "" {
			return nil, fmt.Errorf("word bank entry missing word")
		}
	}
	return &Bank{
		words: words,
		used:  make(map[string]bool),
		rng:   rng,
	}, nil
}

// DefaultBank loads the embedded word list.
func DefaultBank() (*Bank, error) {
	return LoadBank(defaultWordsYAML)
}

// LoadBank parses a YAML word list.
func LoadBank(data []byte) (*Bank, error) {
	var doc struct {
		Words []Word `yaml:"words"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse word list: %w", err)
	}
	return NewBank(doc.Words, nil)
}

// Draw returns a word not used this cycle, avoiding an immediate repeat
// of the previous word when the pool resets.
func (b *Bank) Draw(previous string) Word {
	available := b.available(previous)
	if len(available) == 0 {
		b.used = make(map[string]bool)
		available = b.available(previous)
		if len(available) == 0 {
			// Single-word bank; repeats are unavoidable.
			available = b.words
		}
	}
	w := available[b.intn(len(available))]
	b.used[strings.ToLower(w.Word)] = true
	return w
}

// Size returns the number of words in the bank.
func (b *Bank) Size() int {
	return len(b.words)
}

func (b *Bank) available(previous string) []Word {
	prev := strings.ToLower(previous)
	var out []Word
	for _, w := range b.words {
		key := strings.ToLower(w.Word)
		if b.used[key] || key == prev {
			continue
		}
		out = append(out, w)
	}
	return out
}

func (b *Bank) intn(n int) int {
	if b.rng != nil {
		return b.rng.Intn(n)
	}
	return rand.Intn(n)
}
