package catalog

// DefaultLibrary returns the built-in agent library. Deployments that
// load agents from configuration should prefer config.Load over this.
func DefaultLibrary() *Catalog {
	return New([]Agent{
		{
			ID:          "gpt4",
			Name:        "GPT-4 Turbo",
			Provider:    "openai",
			Model:       "gpt-4-turbo",
			Description: "General-purpose reasoning and analysis",
			Tags:        []string{"coding", "analysis", "research"},
			Temperature: 0.7,
			MaxTokens:   4096,
			Enabled:     true,
			Premium:     true,
		},
		{
			ID:          "gpt35",
			Name:        "GPT-3.5 Turbo",
			Provider:    "openai",
			Model:       "gpt-3.5-turbo",
			Description: "Fast, budget-friendly generalist",
			Tags:        []string{"creative", "translation"},
			Temperature: 0.7,
			MaxTokens:   4096,
			Enabled:     true,
		},
		{
			ID:          "claude",
			Name:        "Claude 3.5 Sonnet",
			Provider:    "anthropic",
			Model:       "claude-3-5-sonnet-20241022",
			Description: "Long-form writing and careful analysis",
			Tags:        []string{"coding", "analysis", "creative"},
			Temperature: 0.7,
			MaxTokens:   4096,
			Enabled:     true,
			Premium:     true,
		},
		{
			ID:          "deepseek",
			Name:        "DeepSeek Chat",
			Provider:    "deepseek",
			Model:       "deepseek-chat",
			Description: "Cost-efficient coding assistant",
			Tags:        []string{"coding"},
			Temperature: 0.7,
			MaxTokens:   4096,
			Enabled:     true,
		},
		{
			ID:          "qwen",
			Name:        "Qwen Max",
			Provider:    "qwen",
			Model:       "qwen-max",
			Description: "Strong multilingual generalist",
			Tags:        []string{"translation", "analysis"},
			Temperature: 0.7,
			MaxTokens:   4096,
			Enabled:     true,
		},
	})
}
