package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Database (statistics snapshots); empty disables the store
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	SnapshotRetention int           `mapstructure:"SNAPSHOT_RETENTION"`

	// Redis (statistics cache); empty disables the cache
	RedisURL string `mapstructure:"REDIS_URL"`

	// CORS
	CorsOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Statistics provider
	StatsSource          string        `mapstructure:"STATS_SOURCE"` // "scrape" or "file"
	StatsFile            string        `mapstructure:"STATS_FILE"`
	StatsBaseURL         string        `mapstructure:"STATS_BASE_URL"`
	StatsCacheTTL        time.Duration `mapstructure:"STATS_CACHE_TTL"`
	StatsRefreshSchedule string        `mapstructure:"STATS_REFRESH_SCHEDULE"`

	// External API protection
	ScraperRateLimit        float64       `mapstructure:"SCRAPER_RATE_LIMIT"` // requests per second
	ExternalAPITimeout      time.Duration `mapstructure:"EXTERNAL_API_TIMEOUT"`
	CircuitBreakerThreshold int           `mapstructure:"CIRCUIT_BREAKER_THRESHOLD"`

	// Ticket generation
	DefaultDampingFactor float64 `mapstructure:"DEFAULT_DAMPING_FACTOR"`
	MaxTickets           int     `mapstructure:"MAX_TICKETS"`
	MaxExtraSets         int     `mapstructure:"MAX_EXTRA_SETS"`

	// Simulation
	MaxSimulations    int `mapstructure:"MAX_SIMULATIONS"`
	SimulationWorkers int `mapstructure:"SIMULATION_WORKERS"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	SetDefaults(viper.GetViper())

	// Read from environment
	viper.AutomaticEnv()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(viper.GetViper())
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("SNAPSHOT_RETENTION", 30)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")

	v.SetDefault("STATS_SOURCE", "scrape")
	v.SetDefault("STATS_FILE", "")
	v.SetDefault("STATS_BASE_URL", "https://www.lotteryextreme.com/canada/")
	v.SetDefault("STATS_CACHE_TTL", "6h")
	v.SetDefault("STATS_REFRESH_SCHEDULE", "0 */6 * * *") // every 6 hours

	v.SetDefault("SCRAPER_RATE_LIMIT", 1.0)
	v.SetDefault("EXTERNAL_API_TIMEOUT", "10s")
	v.SetDefault("CIRCUIT_BREAKER_THRESHOLD", 5)

	v.SetDefault("DEFAULT_DAMPING_FACTOR", 0.8)
	v.SetDefault("MAX_TICKETS", 100)
	v.SetDefault("MAX_EXTRA_SETS", 10)

	v.SetDefault("MAX_SIMULATIONS", 100000)
	v.SetDefault("SIMULATION_WORKERS", 4)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse CORS origins from comma-separated string
	if corsStr := v.GetString("CORS_ORIGINS"); corsStr != "" {
		config.CorsOrigins = strings.Split(corsStr, ",")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.StatsSource {
	case "scrape":
	case "file":
		if c.StatsFile == "" {
			return fmt.Errorf("STATS_FILE is required when STATS_SOURCE=file")
		}
	default:
		return fmt.Errorf("unknown STATS_SOURCE %q", c.StatsSource)
	}
	if !(c.DefaultDampingFactor > 0 && c.DefaultDampingFactor <= 1) {
		return fmt.Errorf("DEFAULT_DAMPING_FACTOR must be in (0, 1], got %v", c.DefaultDampingFactor)
	}
	if c.MaxTickets < 1 {
		return fmt.Errorf("MAX_TICKETS must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
