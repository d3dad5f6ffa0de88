package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/loopbill/loopbill/internal/validator"
)

// Configuration is the full service configuration, loaded once at startup.
type Configuration struct {
	Server       ServerConfig       `mapstructure:"server"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Billing      BillingConfig      `mapstructure:"billing"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Notification NotificationConfig `mapstructure:"notification"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	// Enabled switches the distributed lock and cache to redis. When false
	// the service falls back to process-local variants that are only safe
	// for single-instance deployments.
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	UseTLS   bool          `mapstructure:"use_tls"`
	PoolSize int           `mapstructure:"pool_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Type string `mapstructure:"type" validate:"oneof=inmemory redis"`
}

type BillingConfig struct {
	// Enabled is the master feature flag consulted by every public billing
	// operation. When false all operations return neutral zero results.
	Enabled bool `mapstructure:"enabled"`
	// SchedulerEnabled controls whether the in-process cron scheduler runs.
	SchedulerEnabled bool `mapstructure:"scheduler_enabled"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type NotificationConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	FromAddress  string `mapstructure:"from_address"`
}

// NewConfig loads configuration from config files, .env and environment
// variables with prefix LOOPBILL_. Environment wins over files.
func NewConfig() (*Configuration, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("LOOPBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "loopbill")
	v.SetDefault("postgres.dbname", "loopbill")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.timeout", 5*time.Second)
	v.SetDefault("cache.type", "inmemory")
	v.SetDefault("billing.enabled", true)
	v.SetDefault("billing.scheduler_enabled", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("notification.enabled", false)
}

// Validate checks tag constraints plus the cross-field rules the tags cannot
// express.
func (c *Configuration) Validate() error {
	if err := validator.ValidateRequest(c); err != nil {
		return err
	}
	if c.Cache.Type == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("cache.type redis requires redis.enabled")
	}
	if c.Notification.Enabled && c.Notification.ResendAPIKey == "" {
		return fmt.Errorf("notification.resend_api_key is required when notification.enabled")
	}
	return nil
}

// GetDefaultConfig returns a config suitable for tests and scripts.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server:  ServerConfig{Address: ":8080"},
		Cache:   CacheConfig{Type: "inmemory"},
		Billing: BillingConfig{Enabled: true},
		Logging: LoggingConfig{Level: "debug"},
	}
}
