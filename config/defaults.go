package config

import (
	"time"

	"github.com/hykang/chorus/collaboration"
	"github.com/hykang/chorus/conversation"
)

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:        DefaultServerConfig(),
		Auth:          DefaultAuthConfig(),
		RateLimit:     DefaultRateLimitConfig(),
		Redis:         DefaultRedisConfig(),
		Usage:         DefaultUsageConfig(),
		Orchestration: DefaultOrchestrationConfig(),
		Log:           DefaultLogConfig(),
		Telemetry:     DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns the default listener settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultAuthConfig returns auth defaults. The secret is intentionally
// empty; Validate rejects it unless auth is disabled.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{}
}

// DefaultRateLimitConfig returns the default per-client bucket.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RPS: 10, Burst: 20}
}

// DefaultRedisConfig returns the default store settings (disabled;
// conversations stay in memory).
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultUsageConfig returns the default ledger location.
func DefaultUsageConfig() UsageConfig {
	return UsageConfig{Path: "chorus-usage.db"}
}

// DefaultOrchestrationConfig returns the collaboration defaults.
func DefaultOrchestrationConfig() OrchestrationConfig {
	return OrchestrationConfig{
		MaxContextMessages: conversation.DefaultMaxContextMessages,
		DebateRounds:       collaboration.DefaultDebateRounds,
		AgentTimeout:       2 * time.Minute,
	}
}

// DefaultLogConfig returns the default zap settings.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// DefaultTelemetryConfig returns telemetry defaults (disabled).
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "chorusd",
		SampleRate:   1.0,
	}
}
