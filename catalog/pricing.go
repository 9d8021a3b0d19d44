package catalog

// ModelPricing holds USD prices per 1K tokens.
type ModelPricing struct {
	Prompt     float64
	Completion float64
}

// defaultPricing is the fallback applied to unknown models.
var defaultPricing = ModelPricing{Prompt: 0.0005, Completion: 0.0015}

// pricingTable maps model identifiers to their per-1K-token pricing.
var pricingTable = map[string]ModelPricing{
	"gpt-4-turbo":               {Prompt: 0.01, Completion: 0.03},
	"gpt-4o":                    {Prompt: 0.005, Completion: 0.015},
	"gpt-3.5-turbo":             {Prompt: 0.0005, Completion: 0.0015},
	"claude-3-5-sonnet-20241022": {Prompt: 0.003, Completion: 0.015},
	"claude-3-haiku-20240307":   {Prompt: 0.00025, Completion: 0.00125},
	"deepseek-chat":             {Prompt: 0.00014, Completion: 0.00028},
	"qwen-max":                  {Prompt: 0.0024, Completion: 0.0096},
}

// Pricing returns the pricing for a model, falling back to the default
// for unknown models.
func Pricing(model string) ModelPricing {
	if p, ok := pricingTable[model]; ok {
		return p
	}
	return defaultPricing
}

// Cost computes the USD cost of a call given prompt and completion
// token counts.
func Cost(model string, promptTokens, completionTokens int) float64 {
	p := Pricing(model)
	return float64(promptTokens)/1000*p.Prompt + float64(completionTokens)/1000*p.Completion
}
