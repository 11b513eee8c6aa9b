package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/privashield/leakwatch/internal/classifier"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Database       DatabaseConfig       `yaml:"database"`
	Redis          RedisConfig          `yaml:"redis"`
	Storage        StorageConfig        `yaml:"storage"`
	Recognizer     RecognizerConfig     `yaml:"recognizer"`
	AWS            AWSConfig            `yaml:"aws"`
	Auth           AuthConfig           `yaml:"auth"`
	Analytics      AnalyticsConfig      `yaml:"analytics"`
	Classification ClassificationConfig `yaml:"classification"`
	Scheduler      SchedulerConfig      `yaml:"scheduler"`
	Notifications  NotificationsConfig  `yaml:"notifications"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Environment     string        `yaml:"environment"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	CORSAllowOrigin string        `yaml:"cors_allow_origin"`
}

func (c ServerConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type RecognizerConfig struct {
	Provider string        `yaml:"provider"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type AWSConfig struct {
	Region          string `yaml:"region"`
	AssumeRoleARN   string `yaml:"assume_role_arn"`
	ExternalID      string `yaml:"external_id"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type AnalyticsConfig struct {
	Timezone          string `yaml:"timezone"`
	RollupConcurrency int    `yaml:"rollup_concurrency"`
}

// Location resolves Timezone. Calendar days everywhere are read in it.
func (c AnalyticsConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading analytics.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

type ClassificationConfig struct {
	Overrides map[string]string `yaml:"overrides"`
}

// Classifier builds the level table with the configured overrides applied.
func (c ClassificationConfig) Classifier() (*classifier.Classifier, error) {
	table, err := classifier.DefaultTable().With(c.Overrides)
	if err != nil {
		return nil, fmt.Errorf("classification.overrides: %w", err)
	}
	return classifier.New(table), nil
}

type SchedulerConfig struct {
	DailyDigest string `yaml:"daily_digest"`
}

type NotificationsConfig struct {
	Slack SlackNotifyConfig `yaml:"slack"`
}

type SlackNotifyConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {

		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Validate checks values that would otherwise only fail once the server is
// handling requests.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, c.Storage.Driver)
	}

	switch c.Recognizer.Provider {
	case "comprehend", "rules":
	default:
		return fmt.Errorf("recognizer.provider must be \"comprehend\" or \"rules\", got %q", c.Recognizer.Provider)
	}

	if _, err := c.Analytics.Location(); err != nil {
		return err
	}
	if _, err := c.Classification.Classifier(); err != nil {
		return err
	}
	if c.Notifications.Slack.Enabled && c.Notifications.Slack.WebhookURL == "" {
		return fmt.Errorf("notifications.slack.webhook_url is required when slack is enabled")
	}
	return nil
}

func (c *Config) applyDefaults() {

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	c.Server.Environment = strings.ToLower(c.Server.Environment)
	if c.Server.Environment == "" {
		c.Server.Environment = EnvProduction
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 60 * time.Second
	}
	if c.Server.CORSAllowOrigin == "" {
		c.Server.CORSAllowOrigin = "*"
	}

	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverPostgres
	}

	if c.Recognizer.Provider == "" {
		c.Recognizer.Provider = "comprehend"
	}
	if c.Recognizer.Language == "" {
		c.Recognizer.Language = "ko"
	}
	if c.Recognizer.Timeout == 0 {
		c.Recognizer.Timeout = 10 * time.Second
	}

	if c.AWS.Region == "" {
		c.AWS.Region = "ap-northeast-2"
	}

	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = "change-me-in-production"

		slog.Warn("using default JWT secret, set auth.jwt_secret in production")
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = time.Hour
	}

	if c.Analytics.Timezone == "" {
		c.Analytics.Timezone = "UTC"
	}
	if c.Analytics.RollupConcurrency == 0 {
		c.Analytics.RollupConcurrency = 4
	}
}
