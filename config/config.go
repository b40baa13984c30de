package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	ServiceName string
	Port        string
	DBPath      string
	UploadDir   string

	ModelProviderURL    string
	ModelProviderAPIKey string
	ModelPollInterval   time.Duration
	ModelMaxRetries     int
	ModelResumeSchedule string

	NotifyWebhookURL    string
	NotifyWebhookSecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
}

// Load reads .env (if present) and the process environment. Malformed
// numbers and durations fall back to their defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		ServiceName: getEnv("SERVICE_NAME", "tirecheck"),
		Port:        getEnv("SERVER_PORT", "8081"),
		DBPath:      getEnv("DB_PATH", "analysis.db"),
		UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),

		ModelProviderURL:    os.Getenv("MODEL_PROVIDER_URL"),
		ModelProviderAPIKey: os.Getenv("MODEL_PROVIDER_API_KEY"),
		ModelPollInterval:   getDuration("MODEL_POLL_INTERVAL", 5*time.Second),
		ModelMaxRetries:     getInt("MODEL_MAX_RETRIES", 120),
		ModelResumeSchedule: getEnv("MODEL_RESUME_SCHEDULE", "@every 1m"),

		NotifyWebhookURL:    os.Getenv("NOTIFY_WEBHOOK_URL"),
		NotifyWebhookSecret: os.Getenv("NOTIFY_WEBHOOK_SECRET"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		RedisChannel:  getEnv("REDIS_CHANNEL", "tirecheck:events"),
	}

	return cfg, nil
}

// IsDevelopment reports whether human readable logs should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
