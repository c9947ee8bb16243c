// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Gmail      GmailConfig      `mapstructure:"gmail"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Poller     PollerConfig     `mapstructure:"poller"`
	Tracker    TrackerConfig    `mapstructure:"tracker"`
	Store      StoreConfig      `mapstructure:"store"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Address returns the listen address for the HTTP server.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GmailConfig covers OAuth credential files and the watched mailbox.
type GmailConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`
	User            string `mapstructure:"user"`
	Label           string `mapstructure:"label"`
}

// PubSubConfig identifies the notification topic and pull subscription.
type PubSubConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	Topic        string `mapstructure:"topic"`
	Subscription string `mapstructure:"subscription"`
	MaxMessages  int64  `mapstructure:"max_messages"`
}

// TopicName returns the fully qualified Pub/Sub topic resource name.
func (p PubSubConfig) TopicName() string {
	return fmt.Sprintf("projects/%s/topics/%s", p.ProjectID, p.Topic)
}

// SubscriptionName returns the fully qualified subscription resource name.
func (p PubSubConfig) SubscriptionName() string {
	return fmt.Sprintf("projects/%s/subscriptions/%s", p.ProjectID, p.Subscription)
}

type ClassifierConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type PollerConfig struct {
	Interval int `mapstructure:"interval"` // milliseconds
}

// TrackerConfig selects the seen-message tracker backend. The memory
// backend never evicts; the redis backend ages entries out after TTL.
type TrackerConfig struct {
	Backend string `mapstructure:"backend"` // "memory" or "redis"
	TTL     int    `mapstructure:"ttl"`     // seconds, redis backend only
}

// StoreConfig selects the application store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // "file" or "postgres"
	Path    string `mapstructure:"path"`    // file backend only
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
