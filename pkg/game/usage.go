package game

import (
	"sync"

	"github.com/kezlabs/taboo-live/pkg/realtime/protocol"
)

// Audio token pricing, USD per million tokens.
const (
	inputAudioUSDPerMillion  = 10.0
	outputAudioUSDPerMillion = 20.0
)

// CostReport is the estimated spend for the session so far.
type CostReport struct {
	InputAudioUSD  float64
	OutputAudioUSD float64
	TotalUSD       float64
}

// UsageMeter tracks the peer's token usage reports. Each report already
// covers the whole conversation context, so the meter keeps the most
// recent one rather than summing.
type UsageMeter struct {
	mu     sync.Mutex
	latest protocol.Usage
}

// Observe records one usage report and returns it with the derived
// cost.
func (m *UsageMeter) Observe(u protocol.Usage) (protocol.Usage, CostReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = u
	return m.latest, costFor(m.latest)
}

// Totals returns the most recent usage report and cost.
func (m *UsageMeter) Totals() (protocol.Usage, CostReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, costFor(m.latest)
}

func costFor(u protocol.Usage) CostReport {
	in := float64(u.InputAudioTokens) / 1e6 * inputAudioUSDPerMillion
	out := float64(u.OutputAudioTokens) / 1e6 * outputAudioUSDPerMillion
	return CostReport{
		InputAudioUSD:  in,
		OutputAudioUSD: out,
		TotalUSD:       in + out,
	}
}
