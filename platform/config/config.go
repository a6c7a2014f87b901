// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the Redis-backed job queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetScoreQueueMode() string
}

// ScoringConfig provides settings for the lead scoring pipeline.
type ScoringConfig interface {
	GetScorePolicyFile() string
	GetScoreDelayCreate() time.Duration
	GetScoreDelayUpdate() time.Duration
	GetScoreDelayInteraction() time.Duration
	GetScoreDelayAssign() time.Duration
	GetScoreBulkJitterMax() time.Duration
	GetScoreMaxAttempts() int
	GetScoreAttemptTimeout() time.Duration
	GetScoreRetryBaseDelay() time.Duration
	GetScoreSummaryLimit() int
	GetEngagementResponseWindow() time.Duration
}

// ReconcileConfig provides settings for the stale-score reconciler.
type ReconcileConfig interface {
	GetReconcileInterval() time.Duration
	GetReconcileGrace() time.Duration
}

// Score queue backends selectable with SCORE_QUEUE.
const (
	ScoreQueueRedis = "redis"
	ScoreQueueLocal = "local"
	ScoreQueueNone  = "none"
)

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	JWTAccessSecret          string
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	ScoreQueueMode           string
	ScorePolicyFile          string
	ScoreDelayCreate         time.Duration
	ScoreDelayUpdate         time.Duration
	ScoreDelayInteraction    time.Duration
	ScoreDelayAssign         time.Duration
	ScoreBulkJitterMax       time.Duration
	ScoreMaxAttempts         int
	ScoreAttemptTimeout      time.Duration
	ScoreRetryBaseDelay      time.Duration
	ScoreSummaryLimit        int
	EngagementResponseWindow time.Duration
	ReconcileInterval        time.Duration
	ReconcileGrace           time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetScoreQueueMode() string { return c.ScoreQueueMode }
func (c *Config) IsSchedulerEnabled() bool  { return c.RedisURL != "" }

// ScoringConfig implementation
func (c *Config) GetScorePolicyFile() string                { return c.ScorePolicyFile }
func (c *Config) GetScoreDelayCreate() time.Duration        { return c.ScoreDelayCreate }
func (c *Config) GetScoreDelayUpdate() time.Duration        { return c.ScoreDelayUpdate }
func (c *Config) GetScoreDelayInteraction() time.Duration   { return c.ScoreDelayInteraction }
func (c *Config) GetScoreDelayAssign() time.Duration        { return c.ScoreDelayAssign }
func (c *Config) GetScoreBulkJitterMax() time.Duration      { return c.ScoreBulkJitterMax }
func (c *Config) GetScoreMaxAttempts() int                  { return c.ScoreMaxAttempts }
func (c *Config) GetScoreAttemptTimeout() time.Duration     { return c.ScoreAttemptTimeout }
func (c *Config) GetScoreRetryBaseDelay() time.Duration     { return c.ScoreRetryBaseDelay }
func (c *Config) GetScoreSummaryLimit() int                 { return c.ScoreSummaryLimit }
func (c *Config) GetEngagementResponseWindow() time.Duration { return c.EngagementResponseWindow }

// ReconcileConfig implementation
func (c *Config) GetReconcileInterval() time.Duration { return c.ReconcileInterval }
func (c *Config) GetReconcileGrace() time.Duration    { return c.ReconcileGrace }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "lead-scoring"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		ScoreQueueMode:           strings.ToLower(getEnv("SCORE_QUEUE", "")),
		ScorePolicyFile:          getEnv("SCORE_POLICY_FILE", ""),
		ScoreDelayCreate:         mustDuration(getEnv("SCORE_DELAY_CREATE", "2s")),
		ScoreDelayUpdate:         mustDuration(getEnv("SCORE_DELAY_UPDATE", "1s")),
		ScoreDelayInteraction:    mustDuration(getEnv("SCORE_DELAY_INTERACTION", "2s")),
		ScoreDelayAssign:         mustDuration(getEnv("SCORE_DELAY_ASSIGN", "1s")),
		ScoreBulkJitterMax:       mustDuration(getEnv("SCORE_BULK_JITTER_MAX", "5s")),
		ScoreMaxAttempts:         mustInt(getEnv("SCORE_MAX_ATTEMPTS", "3")),
		ScoreAttemptTimeout:      mustDuration(getEnv("SCORE_ATTEMPT_TIMEOUT", "5s")),
		ScoreRetryBaseDelay:      mustDuration(getEnv("SCORE_RETRY_BASE_DELAY", "500ms")),
		ScoreSummaryLimit:        mustInt(getEnv("SCORE_SUMMARY_LIMIT", "50")),
		EngagementResponseWindow: mustDuration(getEnv("ENGAGEMENT_RESPONSE_WINDOW", "48h")),
		ReconcileInterval:        mustDuration(getEnv("RECONCILE_INTERVAL", "5m")),
		ReconcileGrace:           mustDuration(getEnv("RECONCILE_GRACE", "2m")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	switch cfg.ScoreQueueMode {
	case "":
		cfg.ScoreQueueMode = ScoreQueueNone
		if cfg.RedisURL != "" {
			cfg.ScoreQueueMode = ScoreQueueRedis
		}
	case ScoreQueueRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("SCORE_QUEUE=redis requires REDIS_URL")
		}
	case ScoreQueueLocal, ScoreQueueNone:
	default:
		return nil, fmt.Errorf("SCORE_QUEUE must be one of redis, local, none")
	}
	if cfg.ScoreMaxAttempts < 1 {
		return nil, fmt.Errorf("SCORE_MAX_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
