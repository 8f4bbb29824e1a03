package config

import (
	"github.com/blues/pledges/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Payout   PayoutConfig   `mapstructure:"payout"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// StripeConfig configures the payment processor client.
type StripeConfig struct {
	APIKey        string `mapstructure:"api_key"`        // secret key
	WebhookSecret string `mapstructure:"webhook_secret"` // inbound event signing secret
}

// PayoutConfig configures payout behavior.
type PayoutConfig struct {
	DisputeWindowDays int `mapstructure:"dispute_window_days"` // delay before transfers are allowed
	NotifyWorkers     int `mapstructure:"notify_workers"`      // dispatcher pool size
}

type TaskConfig struct {
	Interval   int `mapstructure:"interval"`    // seconds between job runs
	MaxRetries int `mapstructure:"max_retries"` // attempts before a retryable task is abandoned
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // stdout or file
	File   string `mapstructure:"file"`   // log file path when output is file
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/pledges")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "pledges")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("payout.dispute_window_days", 7)
	viper.SetDefault("payout.notify_workers", 8)
	viper.SetDefault("task.interval", 60)
	viper.SetDefault("task.max_retries", 10)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
