// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// プロバイダ選択や数値上限はグローバル状態として参照せず、
// 呼び出し時に明示的な値としてアダプタへ渡す。
type Config struct {
	// Database
	DatabaseURL string

	// Redis（実行ジョブキュー）
	RedisURL string

	// API認証
	APIToken string

	// 検索プロバイダ
	DefaultProvider   string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	PerplexityAPIKey  string
	PerplexityBaseURL string
	ProviderTimeout   time.Duration

	// 検索リクエストの上限値
	SearchMaxResults       int
	SearchMaxTokens        int
	SearchMaxTokensPerPage int

	// 埋め込み生成
	EmbeddingModel   string
	EmbeddingEnabled bool

	// ワーカー
	SchedulerInterval  time.Duration
	RunMaxConcurrent   int
	SyncRunTimeout     time.Duration
	FailedRetention    time.Duration
	QueueName          string

	// Rate Limit（req/min単位）
	RateLimitGeneral int
	RateLimitRun     int

	// Server
	ServerPort string
	BaseURL    string
	LogLevel   string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はまとめてエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}

	cfg.APIToken = os.Getenv("API_TOKEN")
	if cfg.APIToken == "" {
		missing = append(missing, "API_TOKEN")
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DefaultProvider = getEnvString("SEARCH_PROVIDER", "openai")
	cfg.OpenAIBaseURL = getEnvString("OPENAI_BASE_URL", "https://api.openai.com/v1")
	cfg.PerplexityAPIKey = os.Getenv("PERPLEXITY_API_KEY")
	cfg.PerplexityBaseURL = getEnvString("PERPLEXITY_BASE_URL", "https://api.perplexity.ai")
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 120*time.Second)

	cfg.SearchMaxResults = getEnvInt("SEARCH_MAX_RESULTS", 20)
	cfg.SearchMaxTokens = getEnvInt("SEARCH_MAX_TOKENS", 4096)
	cfg.SearchMaxTokensPerPage = getEnvInt("SEARCH_MAX_TOKENS_PER_PAGE", 1024)

	cfg.EmbeddingModel = getEnvString("EMBEDDING_MODEL", "text-embedding-3-small")
	cfg.EmbeddingEnabled = getEnvBool("EMBEDDING_ENABLED", true)

	cfg.SchedulerInterval = getEnvDuration("SCHEDULER_INTERVAL", 5*time.Minute)
	cfg.RunMaxConcurrent = getEnvInt("RUN_MAX_CONCURRENT", 4)
	cfg.SyncRunTimeout = getEnvDuration("SYNC_RUN_TIMEOUT", 150*time.Second)
	cfg.FailedRetention = getEnvDuration("FAILED_EXECUTION_RETENTION", 30*24*time.Hour)
	cfg.QueueName = getEnvString("QUEUE_NAME", "topicradar:executions")

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitRun = getEnvInt("RATE_LIMIT_RUN", 10)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
