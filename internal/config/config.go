package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port   string
	Env    string
	Store  string // sqlite | mongo
	DBDSN  string
	Mongo  MongoConfig
	Log    LogConfig
	Notify NotifyConfig
	Auth   AuthConfig
	CSRF   bool
}

type MongoConfig struct {
	URI      string
	Database string
}

type LogConfig struct {
	Level  string
	Format string // json | console
	Output string // stdout | stderr | file path
}

type NotifyConfig struct {
	WebhookURL   string
	KafkaBrokers []string
	KafkaTopic   string
	QueueSize    int
	MaxRetries   int
	BaseBackoff  time.Duration
	Timeout      time.Duration
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	AdminEmail    string
	AdminPassword string
	SecureCookies bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("store", "sqlite")
	v.SetDefault("db_dsn", "agromart.db")
	v.SetDefault("mongodb_uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb_database", "agromart")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_output", "stdout")
	v.SetDefault("webhook_url", "")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "order-events")
	v.SetDefault("notify_queue_size", 256)
	v.SetDefault("notify_max_retries", 5)
	v.SetDefault("notify_base_backoff", time.Second)
	v.SetDefault("notify_timeout", 5*time.Second)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("admin_email", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("secure_cookies", false)
	v.SetDefault("csrf", true)
}

// Load reads configuration with this priority, highest first:
// AGROMART_* environment variables (a .env file is loaded into the
// environment when present), config.toml, built-in defaults.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	v.SetEnvPrefix("AGROMART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Port:  v.GetString("port"),
		Env:   v.GetString("env"),
		Store: strings.ToLower(v.GetString("store")),
		DBDSN: v.GetString("db_dsn"),
		Mongo: MongoConfig{
			URI:      v.GetString("mongodb_uri"),
			Database: v.GetString("mongodb_database"),
		},
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
			Output: v.GetString("log_output"),
		},
		Notify: NotifyConfig{
			WebhookURL:   v.GetString("webhook_url"),
			KafkaBrokers: splitList(v.GetString("kafka_brokers")),
			KafkaTopic:   v.GetString("kafka_topic"),
			QueueSize:    v.GetInt("notify_queue_size"),
			MaxRetries:   v.GetInt("notify_max_retries"),
			BaseBackoff:  v.GetDuration("notify_base_backoff"),
			Timeout:      v.GetDuration("notify_timeout"),
		},
		Auth: AuthConfig{
			JWTSecret:     v.GetString("jwt_secret"),
			TokenTTL:      v.GetDuration("token_ttl"),
			AdminEmail:    strings.TrimSpace(v.GetString("admin_email")),
			AdminPassword: v.GetString("admin_password"),
			SecureCookies: v.GetBool("secure_cookies"),
		},
		CSRF: v.GetBool("csrf"),
	}
}

func (c Config) Validate() error {
	switch c.Store {
	case "sqlite", "mongo":
	default:
		return fmt.Errorf("unknown store %q (want sqlite or mongo)", c.Store)
	}
	if c.Env == "production" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 characters in production")
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		return fmt.Errorf("admin email and admin password must be set together")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
