package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	Payment  PaymentConfig
	Sweep    SweepConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	MaxRetries   int    `mapstructure:"max_retries"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	Enabled  bool   `mapstructure:"enabled"`
}

type PaymentConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	Sandbox        bool   `mapstructure:"sandbox"`
}

// SweepConfig carries the timing thresholds of the four sweep jobs.
// Defaults match what operations has always run with: 15 minutes for
// unpaid holds, 2 hours of grace for no-shows, 5 minutes before a
// confirmed service auto-starts and 10 minutes of tolerance past the
// service duration before auto-completion.
type SweepConfig struct {
	UnpaidMinutes    int `mapstructure:"unpaid_minutes"`
	GraceHours       int `mapstructure:"grace_hours"`
	AutoStartMinutes int `mapstructure:"auto_start_minutes"`
	ToleranceMinutes int `mapstructure:"tolerance_minutes"`
	IntervalSeconds  int `mapstructure:"interval_seconds"`
}

const (
	DefaultUnpaidMinutes    = 15
	DefaultGraceHours       = 2
	DefaultAutoStartMinutes = 5
	DefaultToleranceMinutes = 10
	DefaultSweepInterval    = 60 * time.Second
)

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Sweep.applyDefaults()

	return &config, nil
}

func (s *SweepConfig) applyDefaults() {
	if s.UnpaidMinutes <= 0 {
		s.UnpaidMinutes = DefaultUnpaidMinutes
	}
	if s.GraceHours <= 0 {
		s.GraceHours = DefaultGraceHours
	}
	if s.AutoStartMinutes <= 0 {
		s.AutoStartMinutes = DefaultAutoStartMinutes
	}
	if s.ToleranceMinutes <= 0 {
		s.ToleranceMinutes = DefaultToleranceMinutes
	}
	if s.IntervalSeconds <= 0 {
		s.IntervalSeconds = int(DefaultSweepInterval.Seconds())
	}
}

func (s SweepConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Env carries process-level overrides for the batch binaries, where a
// config file is often not mounted and everything comes from the
// crontab environment.
type Env struct {
	DatabaseHost     string `envconfig:"DB_HOST"`
	DatabasePort     int    `envconfig:"DB_PORT"`
	DatabaseUser     string `envconfig:"DB_USER"`
	DatabasePassword string `envconfig:"DB_PASSWORD"`
	DatabaseName     string `envconfig:"DB_NAME"`
	DatabaseSSLMode  string `envconfig:"DB_SSLMODE"`
	RedisURL         string `envconfig:"REDIS_URL"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadEnv reads the process environment overlay and folds it over the
// file-based config. Missing env vars leave the file values untouched.
func LoadEnv(cfg *Config) error {
	var env Env
	if err := envconfig.Process("booking", &env); err != nil {
		return fmt.Errorf("failed to process environment: %w", err)
	}

	if env.DatabaseHost != "" {
		cfg.Database.Host = env.DatabaseHost
	}
	if env.DatabasePort != 0 {
		cfg.Database.Port = env.DatabasePort
	}
	if env.DatabaseUser != "" {
		cfg.Database.User = env.DatabaseUser
	}
	if env.DatabasePassword != "" {
		cfg.Database.Password = env.DatabasePassword
	}
	if env.DatabaseName != "" {
		cfg.Database.Name = env.DatabaseName
	}
	if env.DatabaseSSLMode != "" {
		cfg.Database.SSLMode = env.DatabaseSSLMode
	}
	if env.RedisURL != "" {
		cfg.Redis.URL = env.RedisURL
	}
	return nil
}
