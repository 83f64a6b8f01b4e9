package game

import (
	"math"
	"testing"

	"github.com/kezlabs/taboo-live/pkg/realtime/protocol"
)

func TestUsageMeterKeepsLatestReport(t *testing.T) {
	m := &UsageMeter{}
	m.Observe(protocol.Usage{TotalTokens: 100, InputAudioTokens: 60, OutputAudioTokens: 30})
	total, cost := m.Observe(protocol.Usage{TotalTokens: 250, InputAudioTokens: 100, OutputAudioTokens: 50})

	if total.TotalTokens != 250 {
		t.Errorf("TotalTokens = %d, want 250", total.TotalTokens)
	}
	if total.InputAudioTokens != 100 || total.OutputAudioTokens != 50 {
		t.Errorf("audio tokens = %d/%d", total.InputAudioTokens, total.OutputAudioTokens)
	}

	// 100 input audio tokens at $10/M, 50 output at $20/M.
	wantIn := 100.0 / 1e6 * 10.0
	wantOut := 50.0 / 1e6 * 20.0
	if math.Abs(cost.InputAudioUSD-wantIn) > 1e-12 {
		t.Errorf("InputAudioUSD = %v, want %v", cost.InputAudioUSD, wantIn)
	}
	if math.Abs(cost.TotalUSD-(wantIn+wantOut)) > 1e-12 {
		t.Errorf("TotalUSD = %v", cost.TotalUSD)
	}

	view, _ := m.Totals()
	if view.TotalTokens != 250 {
		t.Errorf("Totals TotalTokens = %d, want 250", view.TotalTokens)
	}
}
