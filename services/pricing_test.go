package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPricing_Cost(t *testing.T) {
	tests := []struct {
		name   string
		tokens int
		usd    float64
		twd    float64
	}{
		{"zero", 0, 0, 0},
		{"one thousand", 1000, 0.01, 0.32},
		{"single token", 1, 0.00001, 0.0003},
		{"typical answer", 1234, 0.01234, 0.3949},
		{"large", 2_000_000, 20, 640},
		{"negative clamps", -5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultPricing.Cost(tt.tokens)
			assert.InDelta(t, tt.usd, c.USD, 1e-12)
			assert.InDelta(t, tt.twd, c.TWD, 1e-12)
		})
	}
}

func TestPricing_ThousandTokensExact(t *testing.T) {
	c := DefaultPricing.Cost(1000)
	assert.Equal(t, 1000, c.Tokens)
	assert.Equal(t, 0.01, c.USD)
	assert.Equal(t, 0.32, c.TWD)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.1235, Round(0.12346, 4))
	assert.Equal(t, 1.0, Round(0.99999999, 6))
	assert.Equal(t, -0.5, Round(-0.49999, 2))
}

func TestMicros(t *testing.T) {
	assert.Equal(t, int64(10_000), toMicros(0.01))
	assert.Equal(t, int64(1), toMicros(0.000001))
	assert.Equal(t, 0.05, fromMicros(toMicros(0.05)))
}
