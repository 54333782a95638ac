package llm

// modelPrice holds input/output prices per million tokens.
type modelPrice struct {
	input  float64
	output float64
}

// pricing is the static per-model price table.
var pricing = map[string]modelPrice{
	"deepseek-chat":                  {0.14, 0.28},
	"deepseek-reasoner":              {0.55, 2.19},
	"gpt-4o":                         {2.50, 10.00},
	"gpt-4o-mini":                    {0.15, 0.60},
	"gpt-4.1":                        {2.00, 8.00},
	"gpt-4.1-mini":                   {0.40, 1.60},
	"gpt-4.1-nano":                   {0.10, 0.40},
	"o3-mini":                        {1.10, 4.40},
	"anthropic/claude-sonnet-4":      {3.00, 15.00},
	"anthropic/claude-haiku-4.5":     {0.80, 4.00},
	"google/gemini-2.5-flash-preview": {0.15, 0.60},
	"google/gemini-2.0-flash-001":    {0.10, 0.40},
	"meta-llama/llama-4-maverick":    {0.20, 0.60},
	"qwen/qwen3-235b-a22b":           {0.20, 0.60},
}

// defaultPrice is the conservative fallback for unknown models.
var defaultPrice = modelPrice{1.0, 3.0}

// EstimateCost returns the estimated USD cost of a call. Pure; no I/O.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	price, ok := pricing[model]
	if !ok {
		price = defaultPrice
	}
	return (float64(inputTokens)*price.input + float64(outputTokens)*price.output) / 1_000_000
}
