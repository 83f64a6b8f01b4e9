package coach

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name           string
		feedback       string
		wantCategories []string
	}{
		{
			name:           "grammar and structure",
			feedback:       "Watch your verb tense. Your sentence order was clear though.",
			wantCategories: []string{"grammar", "structure"},
		},
		{
			name:           "vocabulary",
			feedback:       "Great word choice, especially that expression about the weather.",
			wantCategories: []string{"vocabulary"},
		},
		{
			name:           "fluency",
			feedback:       "You spoke at a natural pace and did not hesitate much.",
			wantCategories: []string{"fluency"},
		},
		{
			name:           "nothing recognized",
			feedback:       "Keep going!",
			wantCategories: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			categories, _ := Categorize(tt.feedback)
			assert.Equal(t, tt.wantCategories, categories)
		})
	}
}

func TestCategorizeImprovements(t *testing.T) {
	feedback := "You did well overall. Try using the past tense for finished actions. " +
		"Next time, describe the shape first. That was fun!"
	_, improvements := Categorize(feedback)
	assert.Len(t, improvements, 2)
	assert.Contains(t, improvements[0], "Try using the past tense")
	assert.Contains(t, improvements[1], "Next time")
}

func TestNewFeedbackSession(t *testing.T) {
	fs := NewFeedbackSession("football", "medium", "you kick it", "Good grammar. Try longer sentences instead.")
	assert.NotEmpty(t, fs.ID)
	assert.Equal(t, "football", fs.Word)
	assert.Equal(t, "medium", fs.Difficulty)
	assert.Contains(t, fs.Categories, "grammar")
	assert.NotEmpty(t, fs.Improvements)
	assert.False(t, fs.CreatedAt.IsZero())
}
