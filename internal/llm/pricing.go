package llm

// Price is the USD cost per million tokens.
type Price struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// PriceTable maps exact model names to prices.
type PriceTable map[string]Price

// Cost returns the USD cost of a call. ok is false for unknown models,
// which cost nothing.
func (t PriceTable) Cost(model string, inputTokens, outputTokens int64) (cost float64, ok bool) {
	p, ok := t[model]
	if !ok {
		return 0, false
	}
	return (float64(inputTokens)*p.InputPerMillion + float64(outputTokens)*p.OutputPerMillion) / 1_000_000, true
}

// DefaultPrices holds the public list prices of the supported models.
func DefaultPrices() PriceTable {
	return PriceTable{
		// Anthropic
		"claude-3-5-sonnet-20241022": {InputPerMillion: 3, OutputPerMillion: 15},
		"claude-3-7-sonnet-20250219": {InputPerMillion: 3, OutputPerMillion: 15},
		"claude-3-sonnet-20250219":   {InputPerMillion: 3, OutputPerMillion: 15},
		"claude-sonnet-4-20250514":   {InputPerMillion: 3, OutputPerMillion: 15},
		"claude-3-haiku-20240307":    {InputPerMillion: 0.25, OutputPerMillion: 1.25},
		"claude-3-5-haiku-20241022":  {InputPerMillion: 0.8, OutputPerMillion: 4},
		"claude-3-opus-20240229":     {InputPerMillion: 15, OutputPerMillion: 75},

		// Groq
		"llama3-8b-8192":          {InputPerMillion: 0.05, OutputPerMillion: 0.08},
		"llama-3.1-8b-instant":    {InputPerMillion: 0.05, OutputPerMillion: 0.08},
		"llama3-70b-8192":         {InputPerMillion: 0.59, OutputPerMillion: 0.79},
		"llama-3.3-70b-versatile": {InputPerMillion: 0.59, OutputPerMillion: 0.79},
		"mixtral-8x7b-32768":      {InputPerMillion: 0.24, OutputPerMillion: 0.24},
		"gemma2-9b-it":            {InputPerMillion: 0.2, OutputPerMillion: 0.2},
	}
}
