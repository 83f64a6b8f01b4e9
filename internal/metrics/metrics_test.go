package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTokens(t *testing.T) {
	m := New("test")
	m.RecordTokens(100, 40)
	m.RecordTokens(50, 0)

	assert.Equal(t, 150.0, testutil.ToFloat64(m.TokensTotal.WithLabelValues("input")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.TokensTotal.WithLabelValues("output")))
}

func TestRecordCost(t *testing.T) {
	m := New("test")
	m.RecordCost(0.0025)
	m.RecordCost(0.0010)
	m.RecordCost(-0.5) // stale report, ignored
	m.RecordCost(0)

	assert.InDelta(t, 0.0035, testutil.ToFloat64(m.CostUSDTotal), 1e-9)
}

func TestRecordCorrectGuess(t *testing.T) {
	m := New("test")
	m.RecordCorrectGuess("tool_call")
	m.RecordCorrectGuess("heuristic")
	m.RecordCorrectGuess("heuristic")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CorrectGuesses.WithLabelValues("tool_call")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CorrectGuesses.WithLabelValues("heuristic")))
}
