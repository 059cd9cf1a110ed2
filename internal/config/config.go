package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NatsURL                string
	JWTSecret              string
	OpenAIAPIKey           string
	OpenAIModel            string
	GradingTimeout         time.Duration
	GradingMaxTokens       int
	ScoreCacheTTL          time.Duration
	NotificationKeepAlive  time.Duration
	SubmissionRateLimit    int
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and an optional
// .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CODEGRADE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CodeGrade API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("grading.timeout", "30s")
	v.SetDefault("grading.max_tokens", 500)
	v.SetDefault("score.cache_ttl", "2m")
	v.SetDefault("notification.keepalive", "30s")
	v.SetDefault("submission.rate_limit", 10)
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("cloudinary.folder", "codegrade/courses")

	gradingTimeout, err := time.ParseDuration(v.GetString("grading.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid grading timeout: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("score.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid score cache ttl: %w", err)
	}

	keepAlive, err := time.ParseDuration(v.GetString("notification.keepalive"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid notification keepalive: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NatsURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		OpenAIModel:            v.GetString("openai.model"),
		GradingTimeout:         gradingTimeout,
		GradingMaxTokens:       v.GetInt("grading.max_tokens"),
		ScoreCacheTTL:          cacheTTL,
		NotificationKeepAlive:  keepAlive,
		SubmissionRateLimit:    v.GetInt("submission.rate_limit"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.GradingMaxTokens <= 0 {
		cfg.GradingMaxTokens = 500
	}

	if cfg.SubmissionRateLimit <= 0 {
		cfg.SubmissionRateLimit = 10
	}

	return cfg, nil
}
