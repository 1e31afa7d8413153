package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string
	RedisURL string

	// Generative model provider (OpenAI-compatible chat completions)
	ModelBaseURL string
	ModelAPIKey  string
	ModelName    string
	ModelTimeout time.Duration
	ModelRateRPS float64 // client-side requests/second toward the provider

	// Insight policy values. These are heuristics, not medical constants,
	// so they stay configurable.
	ColdStartScore    int // score when a user has no recent vitals
	DegradedScore     int // score when the model call or parse fails
	ScoringRecords    int // most recent records embedded in the scoring prompt
	NudgeRecords      int // latest records embedded in the nudge prompt
	InsightCacheTTL   time.Duration
	DefaultWindowDays int

	// Background jobs
	HealthCheckCron string
	RetentionCron   string
	RetentionDays   int

	// Reference datasets
	DatasetDir string

	// Auth
	JWTSecret string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "3001"),
		MongoURI: getEnv("MONGODB_URI", ""),
		RedisURL: getEnv("REDIS_URL", ""),

		ModelBaseURL: getEnv("MODEL_BASE_URL", ""),
		ModelAPIKey:  getEnv("MODEL_API_KEY", ""),
		ModelName:    getEnv("MODEL_NAME", "gpt-4o-mini"),
		ModelTimeout: getDurationEnv("MODEL_TIMEOUT", 45*time.Second),
		ModelRateRPS: getFloatEnv("MODEL_RATE_RPS", 2.0),

		ColdStartScore:    getIntEnv("INSIGHT_COLD_START_SCORE", 50),
		DegradedScore:     getIntEnv("INSIGHT_DEGRADED_SCORE", 65),
		ScoringRecords:    getIntEnv("INSIGHT_SCORING_RECORDS", 10),
		NudgeRecords:      getIntEnv("INSIGHT_NUDGE_RECORDS", 1),
		InsightCacheTTL:   getDurationEnv("INSIGHT_CACHE_TTL", 30*time.Minute),
		DefaultWindowDays: getIntEnv("DEFAULT_WINDOW_DAYS", 30),

		HealthCheckCron: getEnv("MODEL_HEALTH_CRON", "*/15 * * * *"),
		RetentionCron:   getEnv("RETENTION_CLEANUP_CRON", "30 3 * * *"),
		RetentionDays:   getIntEnv("VITALS_RETENTION_DAYS", 730),

		DatasetDir: getEnv("DATASET_DIR", "data/reference"),

		JWTSecret: getEnv("JWT_SECRET", ""),
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
		parsed, err := strconv.ParseFloat(value, 64)
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
