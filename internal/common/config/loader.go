// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like CLASSIFIER_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig() // ignore error if not found

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from a few locations so the binary and the
// tests can both pick it up.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "jobtrack"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Gmail.CredentialsFile == "" {
		cfg.Gmail.CredentialsFile = "credentials.json"
	}
	if cfg.Gmail.TokenFile == "" {
		cfg.Gmail.TokenFile = "token.json"
	}
	if cfg.Gmail.User == "" {
		cfg.Gmail.User = "me"
	}
	if cfg.Gmail.Label == "" {
		cfg.Gmail.Label = "INBOX"
	}
	if cfg.PubSub.Topic == "" {
		cfg.PubSub.Topic = "gmail-notifications"
	}
	if cfg.PubSub.Subscription == "" {
		cfg.PubSub.Subscription = "gmail-notifications-sub"
	}
	if cfg.PubSub.MaxMessages == 0 {
		cfg.PubSub.MaxMessages = 10
	}
	if cfg.Classifier.BaseURL == "" {
		cfg.Classifier.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Classifier.Model == "" {
		cfg.Classifier.Model = "gpt-4o-mini"
	}
	if cfg.Classifier.Timeout == 0 {
		cfg.Classifier.Timeout = 30000
	}
	if cfg.Poller.Interval == 0 {
		cfg.Poller.Interval = 5000
	}
	if cfg.Tracker.Backend == "" {
		cfg.Tracker.Backend = "memory"
	}
	if cfg.Tracker.TTL == 0 {
		cfg.Tracker.TTL = 7 * 24 * 3600
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "file"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "data.json"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Tracker.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("tracker.backend must be memory or redis, got %q", cfg.Tracker.Backend)
	}
	switch cfg.Store.Backend {
	case "file", "postgres":
	default:
		return fmt.Errorf("store.backend must be file or postgres, got %q", cfg.Store.Backend)
	}
	if cfg.Tracker.Backend == "redis" && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("tracker.backend is redis but database.redis.address is empty")
	}
	if cfg.Store.Backend == "postgres" && cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("store.backend is postgres but database.postgres.host is empty")
	}
	return nil
}
