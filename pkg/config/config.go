package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the platform-level settings shared by every service binary.
type Config struct {
	App        AppConfig
	Redis      RedisConfig
	RabbitMQ   RabbitMQConfig
	Monitoring MonitoringConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
}

type AppConfig struct {
	Env       string
	Port      int
	Debug     bool
	LogLevel  string
	LogFormat string
}

// RedisConfig leaves Host empty when Redis is not deployed.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether a Redis host is configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

func (c RabbitMQConfig) Enabled() bool {
	return c.URL != ""
}

type MonitoringConfig struct {
	MetricsEnabled bool
}

type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

type CORSConfig struct {
	AllowOrigins []string
}

// LoadConfig reads config.yaml from path (and ./config, .), applies env overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COVID")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	setDefaults(v)
	if err := bindEnvVariables(v); err != nil {
		return nil, fmt.Errorf("failed to bind env variables: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.debug", false)
	v.SetDefault("app.loglevel", "info")
	v.SetDefault("app.logformat", "json")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", "dashboard.events")

	v.SetDefault("monitoring.metricsenabled", true)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests", 120)
	v.SetDefault("ratelimit.window", "60s")

	v.SetDefault("cors.alloworigins", []string{"*"})
}

func bindEnvVariables(v *viper.Viper) error {
	bindings := map[string]string{
		"app.env":       "APP_ENV",
		"app.port":      "APP_PORT",
		"app.debug":     "APP_DEBUG",
		"app.loglevel":  "LOG_LEVEL",
		"app.logformat": "LOG_FORMAT",

		"redis.host":     "REDIS_HOST",
		"redis.port":     "REDIS_PORT",
		"redis.password": "REDIS_PASSWORD",
		"redis.db":       "REDIS_DB",

		"rabbitmq.url":      "RABBITMQ_URL",
		"rabbitmq.exchange": "RABBITMQ_EXCHANGE",

		"monitoring.metricsenabled": "METRICS_ENABLED",

		"ratelimit.enabled":  "RATE_LIMIT_ENABLED",
		"ratelimit.requests": "RATE_LIMIT_REQUESTS",
		"ratelimit.window":   "RATE_LIMIT_WINDOW",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
