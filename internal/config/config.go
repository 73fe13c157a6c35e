package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура для хранения конфигурации приложения.
// Пороговые значения кластеризации и эскалации - настраиваемая политика,
// значения по умолчанию подобраны для прибрежных опасностей.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Пул соединений Postgres
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"16"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"2"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"30s"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Политика кластеризации
	ClusterRadiusMeters float64       `env:"CLUSTER_RADIUS_METERS" envDefault:"2000"`
	ClusterWindow       time.Duration `env:"CLUSTER_WINDOW" envDefault:"6h"`

	// Политика уверенности (веса формулы)
	ConfidenceBaseWeight    float64 `env:"CONFIDENCE_BASE_WEIGHT" envDefault:"0.8"`
	ConfidenceDiversityStep float64 `env:"CONFIDENCE_DIVERSITY_STEP" envDefault:"8"`
	ConfidenceDiversityCap  float64 `env:"CONFIDENCE_DIVERSITY_CAP" envDefault:"24"`
	ConfidenceMemberStep    float64 `env:"CONFIDENCE_MEMBER_STEP" envDefault:"4"`
	ConfidenceMemberCap     float64 `env:"CONFIDENCE_MEMBER_CAP" envDefault:"20"`

	// Политика эскалации
	ActivationThreshold   float64 `env:"ACTIVATION_THRESHOLD" envDefault:"75"`
	MinReports            int     `env:"MIN_REPORTS" envDefault:"2"`
	MinSourceDiversity    int     `env:"MIN_SOURCE_DIVERSITY" envDefault:"1"`
	HighSeverityDiversity int     `env:"HIGH_SEVERITY_DIVERSITY" envDefault:"1"`

	// Обработка сообщений
	SubmitTimeout  time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"5s"`
	RetryWorkers   int           `env:"RETRY_WORKERS" envDefault:"2"`
	RetryQueueSize int           `env:"RETRY_QUEUE_SIZE" envDefault:"256"`
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"5"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"200ms"`

	// Кэш
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	// Retention гео-индекса
	IndexRetention time.Duration `env:"INDEX_RETENTION" envDefault:"48h"`

	// Webhook Config
	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`
	WebhookBaseDelay  time.Duration `env:"WEBHOOK_BASE_DELAY" envDefault:"1s"`

	// API Keys for authentication
	APIKeys []string `env:"API_KEYS"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:     getEnvAsInt("REDIS_DB", 0),

		DBMaxConns:          getEnvAsInt("DB_MAX_CONNS", 16),
		DBMinConns:          getEnvAsInt("DB_MIN_CONNS", 2),
		DBHealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 30*time.Second),

		ClusterRadiusMeters: getEnvAsFloat("CLUSTER_RADIUS_METERS", 2000),
		ClusterWindow:       getEnvAsDuration("CLUSTER_WINDOW", 6*time.Hour),

		ConfidenceBaseWeight:    getEnvAsFloat("CONFIDENCE_BASE_WEIGHT", 0.8),
		ConfidenceDiversityStep: getEnvAsFloat("CONFIDENCE_DIVERSITY_STEP", 8),
		ConfidenceDiversityCap:  getEnvAsFloat("CONFIDENCE_DIVERSITY_CAP", 24),
		ConfidenceMemberStep:    getEnvAsFloat("CONFIDENCE_MEMBER_STEP", 4),
		ConfidenceMemberCap:     getEnvAsFloat("CONFIDENCE_MEMBER_CAP", 20),

		ActivationThreshold:   getEnvAsFloat("ACTIVATION_THRESHOLD", 75),
		MinReports:            getEnvAsInt("MIN_REPORTS", 2),
		MinSourceDiversity:    getEnvAsInt("MIN_SOURCE_DIVERSITY", 1),
		HighSeverityDiversity: getEnvAsInt("HIGH_SEVERITY_DIVERSITY", 1),

		SubmitTimeout:  getEnvAsDuration("SUBMIT_TIMEOUT", 5*time.Second),
		RetryWorkers:   getEnvAsInt("RETRY_WORKERS", 2),
		RetryQueueSize: getEnvAsInt("RETRY_QUEUE_SIZE", 256),
		MaxRetries:     getEnvAsInt("MAX_RETRIES", 5),
		RetryBaseDelay: getEnvAsDuration("RETRY_BASE_DELAY", 200*time.Millisecond),

		CacheTTL:       getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		IndexRetention: getEnvAsDuration("INDEX_RETENTION", 48*time.Hour),

		WebhookURL:        os.Getenv("WEBHOOK_URL"),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:    getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries: getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookBaseDelay:  getEnvAsDuration("WEBHOOK_BASE_DELAY", time.Second),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat возвращает значение переменной окружения как float64 или значение по умолчанию
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
