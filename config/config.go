package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Application
	App AppConfig `mapstructure:"app"`

	// Database selection
	Database DatabaseConfig `mapstructure:"database"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	Auth      AuthConfig      `mapstructure:"auth"`
	Mapping   MappingConfig   `mapstructure:"mapping"`
	API       APIConfig       `mapstructure:"api"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port int    `mapstructure:"port"`
}

// IsProduction reports whether the service runs with production settings.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

type DatabaseConfig struct {
	// Driver is either "postgres" or "sqlite".
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL string `mapstructure:"cache_ttl"`
}

type NATSConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	MonitorPort int    `mapstructure:"monitor_port"`
}

type PrometheusConfig struct {
	Port           int    `mapstructure:"port"`
	Retention      string `mapstructure:"retention"`
	ScrapeInterval string `mapstructure:"scrape_interval"`
	Target         string `mapstructure:"target"`
}

type AuthConfig struct {
	AdminPassword string `mapstructure:"admin_password"`
	SessionSecret string `mapstructure:"session_secret"`
	SessionTTL    string `mapstructure:"session_ttl"`
}

// SessionDuration parses SessionTTL, falling back to 24h.
func (c AuthConfig) SessionDuration() time.Duration {
	return parseDuration(c.SessionTTL, 24*time.Hour)
}

type MappingConfig struct {
	IDLength         int `mapstructure:"id_length"`
	GenerateAttempts int `mapstructure:"generate_attempts"`
	SweepHour        int `mapstructure:"sweep_hour"`
	ExpiringSoonDays int `mapstructure:"expiring_soon_days"`
	// BloomCapacity sizes the id pre-check filter; zero disables it.
	BloomCapacity uint `mapstructure:"bloom_capacity"`
}

type APIConfig struct {
	MaxPageSize int      `mapstructure:"max_page_size"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type RateLimitConfig struct {
	MaxRequests int    `mapstructure:"max_requests"`
	Window      string `mapstructure:"window"`
}

// WindowDuration parses Window, falling back to 15m.
func (c RateLimitConfig) WindowDuration() time.Duration {
	return parseDuration(c.Window, 15*time.Minute)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	return unmarshal(v)
}

// FromViper decodes a prepared viper instance; callers that bind their own
// flags (cmd/import) use it instead of Load.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	bindEnvVars(v)
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Mapping.SweepHour < 0 || c.Mapping.SweepHour > 23 {
		return fmt.Errorf("config: mapping.sweep_hour must be within 0-23, got %d", c.Mapping.SweepHour)
	}
	if c.App.IsProduction() && c.Auth.SessionSecret == "" {
		return fmt.Errorf("config: auth.session_secret is required in production")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "qrhub")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 3000)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.sqlite_path", "./data/qrhub.db")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.cache_ttl", "5m")
	v.SetDefault("nats.enabled", true)

	v.SetDefault("auth.session_ttl", "24h")

	v.SetDefault("mapping.id_length", 6)
	v.SetDefault("mapping.generate_attempts", 3)
	v.SetDefault("mapping.sweep_hour", 2)
	v.SetDefault("mapping.expiring_soon_days", 2)
	v.SetDefault("mapping.bloom_capacity", 100000)

	v.SetDefault("api.max_page_size", 100)

	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window", "15m")
}

func bindEnvVars(v *viper.Viper) {
	// Application
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.port", "PORT")

	// Database
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.sqlite_path", "DB_PATH")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.enabled", "NATS_ENABLED")
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")
	v.BindEnv("nats.monitor_port", "NATS_MONITOR_PORT")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")
	v.BindEnv("prometheus.retention", "PROM_RETENTION")
	v.BindEnv("prometheus.scrape_interval", "PROM_SCRAPE_INTERVAL")
	v.BindEnv("prometheus.target", "PROM_TARGET")

	// Auth
	v.BindEnv("auth.admin_password", "ADMIN_PASSWORD")
	v.BindEnv("auth.session_secret", "SESSION_SECRET")
}
