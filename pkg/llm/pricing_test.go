package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost_KnownModel(t *testing.T) {
	// deepseek-chat: 0.14 in, 0.28 out per million
	cost := EstimateCost("deepseek-chat", 1_000_000, 1_000_000)
	assert.InDelta(t, 0.42, cost, 1e-9)
}

func TestEstimateCost_UnknownModelUsesDefault(t *testing.T) {
	// default: 1.0 in, 3.0 out per million
	cost := EstimateCost("totally-unknown-model", 2_000_000, 1_000_000)
	assert.InDelta(t, 5.0, cost, 1e-9)
}

func TestEstimateCost_ZeroTokens(t *testing.T) {
	assert.Zero(t, EstimateCost("gpt-4o", 0, 0))
}

func TestEstimateCost_OutputOnly(t *testing.T) {
	cost := EstimateCost("gpt-4o", 0, 500_000)
	assert.InDelta(t, 5.0, cost, 1e-9)
}
