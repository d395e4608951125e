package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Detection DetectionConfig `mapstructure:"detection"`
	Guardian  GuardianConfig  `mapstructure:"guardian"`
	Summary   SummaryConfig   `mapstructure:"summary"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds the audit store connection. Postgres is optional; the
// engine runs without audit history when it is disabled.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Schema          string        `mapstructure:"schema"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.Schema,
	)
}

// RedisConfig holds the detector state store connection
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	Enabled    bool               `mapstructure:"enabled"`
	URL        string             `mapstructure:"url"`
	StreamName string             `mapstructure:"stream_name"`
	Subjects   NATSSubjectsConfig `mapstructure:"subjects"`
}

// NATSSubjectsConfig names the subjects alerts and events are published on.
// Events are published on EventPrefix + "." + lower-case risk level.
type NATSSubjectsConfig struct {
	GuardianAlert string `mapstructure:"guardian_alert"`
	EventPrefix   string `mapstructure:"event_prefix"`
}

// AuthConfig enables API-key authentication on the /api routes
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"api_keys"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// DetectionConfig tunes the rule engine and its state stores
type DetectionConfig struct {
	CorrelationWindow   time.Duration `mapstructure:"correlation_window"`
	RepeatWindow        time.Duration `mapstructure:"repeat_window"`
	RepeatThreshold     int           `mapstructure:"repeat_threshold"`
	RepeatNotifyMode    string        `mapstructure:"repeat_notify_mode"`
	BlockedHistoryLimit int           `mapstructure:"blocked_history_limit"`
	TrustedSenders      []string      `mapstructure:"trusted_senders"`
	StoreTimeout        time.Duration `mapstructure:"store_timeout"`
	WriterBuffer        int           `mapstructure:"writer_buffer"`
}

// GuardianConfig names the person alerted about dangerous messages
type GuardianConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Name    string `mapstructure:"name"`
	Phone   string `mapstructure:"phone"`
	Subject string `mapstructure:"subject"`
}

// SummaryConfig schedules the weekly guardian report worker
type SummaryConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	RunOnStart bool          `mapstructure:"run_on_start"`
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// Defaults registers a default for every key so the service starts without a
// config file
func Defaults(v *viper.Viper) {
	v.SetDefault("app.name", "scamguard")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "dev")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "scamguard")
	v.SetDefault("database.dbname", "scamguard")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.schema", "public")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.key_prefix", "")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream_name", "SCAMGUARD")
	v.SetDefault("nats.subjects.guardian_alert", "scamguard.alerts.guardian")
	v.SetDefault("nats.subjects.event_prefix", "scamguard.events")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests_per_minute", 120)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.time_format", time.RFC3339)

	v.SetDefault("detection.correlation_window", 5*time.Minute)
	v.SetDefault("detection.repeat_window", 24*time.Hour)
	v.SetDefault("detection.repeat_threshold", 3)
	v.SetDefault("detection.repeat_notify_mode", "once")
	v.SetDefault("detection.blocked_history_limit", 100)
	v.SetDefault("detection.trusted_senders", []string{})
	v.SetDefault("detection.store_timeout", 2*time.Second)
	v.SetDefault("detection.writer_buffer", 1024)

	v.SetDefault("guardian.enabled", false)
	v.SetDefault("guardian.subject", "Scam Guard Alert")

	v.SetDefault("summary.interval", 7*24*time.Hour)
	v.SetDefault("summary.run_on_start", false)
	v.SetDefault("summary.lock_ttl", 5*time.Minute)
	v.SetDefault("summary.max_retries", 3)
	v.SetDefault("summary.retry_delay", 30*time.Second)
}

// Load reads configuration from file and environment variables. With an
// empty path a missing config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	Defaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/scamguard")
	}

	// Environment variables
	v.SetEnvPrefix("SCAMGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind nested env vars explicitly (viper doesn't auto-bind nested struct fields)
	_ = v.BindEnv("redis.enabled", "SCAMGUARD_REDIS_ENABLED")
	_ = v.BindEnv("redis.host", "SCAMGUARD_REDIS_HOST")
	_ = v.BindEnv("redis.port", "SCAMGUARD_REDIS_PORT")
	_ = v.BindEnv("redis.password", "SCAMGUARD_REDIS_PASSWORD")
	_ = v.BindEnv("database.enabled", "SCAMGUARD_DATABASE_ENABLED")
	_ = v.BindEnv("database.host", "SCAMGUARD_DATABASE_HOST")
	_ = v.BindEnv("database.port", "SCAMGUARD_DATABASE_PORT")
	_ = v.BindEnv("database.user", "SCAMGUARD_DATABASE_USER")
	_ = v.BindEnv("database.password", "SCAMGUARD_DATABASE_PASSWORD")
	_ = v.BindEnv("database.dbname", "SCAMGUARD_DATABASE_DBNAME")
	_ = v.BindEnv("database.sslmode", "SCAMGUARD_DATABASE_SSLMODE")
	_ = v.BindEnv("nats.enabled", "SCAMGUARD_NATS_ENABLED")
	_ = v.BindEnv("nats.url", "SCAMGUARD_NATS_URL")
	_ = v.BindEnv("guardian.enabled", "SCAMGUARD_GUARDIAN_ENABLED")
	_ = v.BindEnv("guardian.phone", "SCAMGUARD_GUARDIAN_PHONE")
	_ = v.BindEnv("detection.repeat_notify_mode", "SCAMGUARD_DETECTION_REPEAT_NOTIFY_MODE")
	_ = v.BindEnv("summary.interval", "SCAMGUARD_SUMMARY_INTERVAL")
	_ = v.BindEnv("summary.run_on_start", "SCAMGUARD_SUMMARY_RUN_ON_START")
	_ = v.BindEnv("app.environment", "SCAMGUARD_APP_ENVIRONMENT")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads configuration with default path
func LoadDefault() (*Config, error) {
	return Load("")
}
