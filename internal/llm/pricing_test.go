package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceTable_Cost(t *testing.T) {
	prices := DefaultPrices()

	tests := []struct {
		name   string
		model  string
		input  int64
		output int64
		want   float64
		known  bool
	}{
		{"sonnet", "claude-3-7-sonnet-20250219", 1_000_000, 1_000_000, 18, true},
		{"haiku input only", "claude-3-haiku-20240307", 2_000_000, 0, 0.5, true},
		{"groq llama", "llama-3.1-8b-instant", 1000, 500, 0.00009, true},
		{"unknown", "gpt-imaginary", 1000, 1000, 0, false},
		{"prefix is not enough", "claude-3-7-sonnet", 1000, 1000, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := prices.Cost(tt.model, tt.input, tt.output)
			assert.Equal(t, tt.known, ok)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestDefaultPrices_CoverDefaults(t *testing.T) {
	prices := DefaultPrices()
	for _, model := range []string{DefaultAnthropicModel, DefaultGroqModel} {
		_, ok := prices[model]
		assert.True(t, ok, model)
	}
	for model, p := range prices {
		assert.Positive(t, p.InputPerMillion, model)
		assert.Positive(t, p.OutputPerMillion, model)
	}
}
