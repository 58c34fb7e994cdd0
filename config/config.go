package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application-wide configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Matching MatchingConfig `mapstructure:"matching"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port           int        `mapstructure:"port"`
	BodyLimitBytes int64      `mapstructure:"body_limit_bytes"`
	CORS           CORSConfig `mapstructure:"cors"`
}

// CORSConfig cross-origin settings
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL settings
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// DSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	MatchChannel string `mapstructure:"match_channel"`
}

// LogConfig logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MatchingConfig tunes the matching engine.
type MatchingConfig struct {
	MaxMatchesPerTutor int             `mapstructure:"max_matches_per_tutor"`
	MaxMatchesPerTutee int             `mapstructure:"max_matches_per_tutee"`
	SweepTimeout       time.Duration   `mapstructure:"sweep_timeout"`
	SweepLockTTL       time.Duration   `mapstructure:"sweep_lock_ttl"`
	Schedule           ScheduleConfig  `mapstructure:"schedule"`
	RateLimit          RateLimitConfig `mapstructure:"rate_limit"`
}

// ScheduleConfig periodic sweep settings (standard 5-field cron specs)
type ScheduleConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	AutoMatchCron  string `mapstructure:"auto_match_cron"`
	SuggestionCron string `mapstructure:"suggestion_cron"`
}

// RateLimitConfig limits the manual sweep triggers.
type RateLimitConfig struct {
	TriggerPerMinute int `mapstructure:"trigger_per_minute"`
}

// Load reads configuration from defaults, an optional file and the environment.
// Precedence: environment > file > defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PEERBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "peerbridge")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.match_channel", "peerbridge:matches")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("matching.max_matches_per_tutor", 2)
	v.SetDefault("matching.max_matches_per_tutee", 2)
	v.SetDefault("matching.sweep_timeout", "2m")
	v.SetDefault("matching.sweep_lock_ttl", "5m")
	v.SetDefault("matching.schedule.enabled", true)
	v.SetDefault("matching.schedule.auto_match_cron", "*/15 * * * *")
	v.SetDefault("matching.schedule.suggestion_cron", "5 * * * *")
	v.SetDefault("matching.rate_limit.trigger_per_minute", 6)
}

// Validate checks the settings the process cannot run without.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be within 1-65535")
	}
	if c.Matching.MaxMatchesPerTutor <= 0 {
		return fmt.Errorf("invalid config: matching.max_matches_per_tutor must be positive")
	}
	if c.Matching.MaxMatchesPerTutee <= 0 {
		return fmt.Errorf("invalid config: matching.max_matches_per_tutee must be positive")
	}
	if c.Matching.SweepTimeout <= 0 {
		return fmt.Errorf("invalid config: matching.sweep_timeout must be positive")
	}
	// a zero TTL never expires; a short one lets sweeps overlap
	if c.Matching.SweepLockTTL <= 0 {
		return fmt.Errorf("invalid config: matching.sweep_lock_ttl must be positive")
	}
	if c.Matching.SweepLockTTL < c.Matching.SweepTimeout {
		return fmt.Errorf("invalid config: matching.sweep_lock_ttl must not be shorter than matching.sweep_timeout")
	}
	if c.Matching.Schedule.Enabled {
		if c.Matching.Schedule.AutoMatchCron == "" || c.Matching.Schedule.SuggestionCron == "" {
			return fmt.Errorf("invalid config: matching.schedule cron specs are required when scheduling is enabled")
		}
	}
	return nil
}
