package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is loaded once at startup
// and treated as an immutable snapshot afterwards — nothing reads the
// environment mid-turn.
type Config struct {
	Port         string
	DatabasePath string // SQLite file for transcript persistence

	// Inference backend
	BackendBaseURL string // OpenAI-compatible /chat/completions endpoint
	BackendAPIKey  string
	Model          string // model identifier used for strategy detection
	ModelFormat    string // explicit tool-format override; "auto" = detect
	ContextWindow  int
	GPULayers      int // forwarded to a local llama-server runtime
	BackendTimeout time.Duration

	// Sampling defaults (per-family overrides come from strategies.yaml)
	Temperature float64
	TopP        float64
	TopK        int

	// Message preparation / validation budgets
	MaxContextTokens   int     // preparation budget per turn
	TokenSafetyCeiling int     // last-resort circuit breaker, > MaxContextTokens
	MaxResponseWords   int     // validator: response length cap
	MinUniqueWordRatio float64 // validator: repetition detection (responses > 50 words)
	MaxFragmentRatio   float64 // validator: single-char/numeric token fraction

	// Turn loop guards
	MaxConsecutiveToolCalls int
	ToolPatternWindow       int // ring-buffer window for identical-name detection
	MaxTurnIterations       int // hard ceiling regardless of validator state

	// Session lifecycle
	SessionTTL    time.Duration // idle sessions older than this are swept
	SweepInterval time.Duration

	// Resources
	SystemPromptPath string
	StrategiesPath   string // optional strategies.yaml with sampling overrides
	AnalyzerURL      string // external audio feature-extraction service

	// Transport
	TurnsPerMinute int // per-connection turn rate limit
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "3001"),
		DatabasePath: getEnv("DATABASE_PATH", "maestro.db"),

		BackendBaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:8080/v1"),
		BackendAPIKey:  getEnv("BACKEND_API_KEY", ""),
		Model:          getEnv("MODEL", "qwen2.5-7b-instruct"),
		ModelFormat:    getEnv("MODEL_FORMAT", "auto"),
		ContextWindow:  getIntEnv("CONTEXT_WINDOW", 8192),
		GPULayers:      getIntEnv("GPU_LAYERS", -1),
		BackendTimeout: getDurationEnv("BACKEND_TIMEOUT", 120*time.Second),

		Temperature: getFloatEnv("TEMPERATURE", 0.7),
		TopP:        getFloatEnv("TOP_P", 0.95),
		TopK:        getIntEnv("TOP_K", 40),

		MaxContextTokens:   getIntEnv("MAX_CONTEXT_TOKENS", 4096),
		TokenSafetyCeiling: getIntEnv("TOKEN_SAFETY_CEILING", 7168),
		MaxResponseWords:   getIntEnv("MAX_RESPONSE_WORDS", 800),
		MinUniqueWordRatio: getFloatEnv("MIN_UNIQUE_WORD_RATIO", 0.3),
		MaxFragmentRatio:   getFloatEnv("MAX_FRAGMENT_RATIO", 0.5),

		MaxConsecutiveToolCalls: getIntEnv("MAX_CONSECUTIVE_TOOL_CALLS", 6),
		ToolPatternWindow:       getIntEnv("TOOL_PATTERN_WINDOW", 4),
		MaxTurnIterations:       getIntEnv("MAX_TURN_ITERATIONS", 10),

		SessionTTL:    getDurationEnv("SESSION_TTL", 2*time.Hour),
		SweepInterval: getDurationEnv("SWEEP_INTERVAL", 10*time.Minute),

		SystemPromptPath: getEnv("SYSTEM_PROMPT_PATH", "prompts/system_prompt.txt"),
		StrategiesPath:   getEnv("STRATEGIES_PATH", ""),
		AnalyzerURL:      getEnv("ANALYZER_URL", ""),

		TurnsPerMinute: getIntEnv("TURNS_PER_MINUTE", 20),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
