package main

import (
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/hykang/chorus/catalog"
	"github.com/hykang/chorus/provider"
)

// providerEndpoint names the env var carrying a provider's API key and
// the default OpenAI-compatible base URL to call.
type providerEndpoint struct {
	keyEnv  string
	baseURL string
}

var providerEndpoints = map[string]providerEndpoint{
	"openai":    {keyEnv: "OPENAI_API_KEY", baseURL: "https://api.openai.com"},
	"deepseek":  {keyEnv: "DEEPSEEK_API_KEY", baseURL: "https://api.deepseek.com"},
	"qwen":      {keyEnv: "DASHSCOPE_API_KEY", baseURL: "https://dashscope.aliyuncs.com/compatible-mode"},
	"anthropic": {keyEnv: "ANTHROPIC_API_KEY", baseURL: ""},
}

// registerProviders wires an HTTP capability for every library agent
// whose provider has an API key in the environment. Agents without a
// key stay in the catalog but fail turn validation at resolve time.
// A CHORUS_PROVIDER_<NAME>_BASE_URL env var overrides the default
// endpoint, which is how providers without a native OpenAI-compatible
// API are reached through a compatible gateway.
func registerProviders(registry *provider.Registry, logger *zap.Logger) {
	for _, agent := range catalog.DefaultLibrary().Enabled() {
		endpoint, ok := providerEndpoints[agent.Provider]
		if !ok {
			logger.Warn("no endpoint mapping for provider",
				zap.String("agent_id", agent.ID),
				zap.String("provider", agent.Provider),
			)
			continue
		}

		baseURL := os.Getenv("CHORUS_PROVIDER_" + strings.ToUpper(agent.Provider) + "_BASE_URL")
		if baseURL == "" {
			baseURL = endpoint.baseURL
		}
		apiKey := os.Getenv(endpoint.keyEnv)
		if apiKey == "" || baseURL == "" {
			logger.Info("provider not configured, agent unavailable",
				zap.String("agent_id", agent.ID),
				zap.String("provider", agent.Provider),
				zap.String("key_env", endpoint.keyEnv),
			)
			continue
		}

		registry.Register(agent.ID, provider.NewHTTPCapability(provider.HTTPConfig{
			BaseURL:     baseURL,
			APIKey:      apiKey,
			Model:       agent.Model,
			Temperature: agent.Temperature,
			MaxTokens:   agent.MaxTokens,
		}, logger))
	}
}
