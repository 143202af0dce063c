// Package config loads application settings from config.yaml, the environment
// and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/connectors/oddsapi"
	"github.com/irfndi/oddsradar-go/internal/connectors/polymarket"
)

type Config struct {
	Environment    string               `mapstructure:"environment"`
	LogLevel       string               `mapstructure:"log_level"`
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Arbitrage      ArbitrageConfig      `mapstructure:"arbitrage"`
	Sync           SyncConfig           `mapstructure:"sync"`
	OddsAPI        oddsapi.Config       `mapstructure:"odds_api"`
	Polymarket     polymarket.Config    `mapstructure:"polymarket"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Telegram       TelegramConfig       `mapstructure:"telegram"`
	Email          EmailConfig          `mapstructure:"email"`
	Webhook        WebhookConfig        `mapstructure:"webhook"`
	Alerts         AlertsConfig         `mapstructure:"alerts"`
	Cleanup        CleanupConfig        `mapstructure:"cleanup"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"url"`
	MaxConns    int32  `mapstructure:"max_conns"`
	MinConns    int32  `mapstructure:"min_conns"`
}

// DSN returns DatabaseURL when set, otherwise a keyword/value connection
// string built from the individual fields.
func (c DatabaseConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ArbitrageConfig extends the engine tunables with the detection settings of
// the sync cycle.
type ArbitrageConfig struct {
	arbitrage.Config `mapstructure:",squash"`

	DefaultLiquidityScore float64              `mapstructure:"default_liquidity_score"`
	DefaultReliability    float64              `mapstructure:"default_reliability"`
	SnapshotWindow        time.Duration        `mapstructure:"snapshot_window"`
	MaxWorkers            int                  `mapstructure:"max_workers"`
	Volatility            arbitrage.Volatility `mapstructure:"volatility"`
}

type SyncConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRequests      int           `mapstructure:"max_requests"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

type TelegramConfig struct {
	BotToken      string `mapstructure:"bot_token"`
	DefaultChatID string `mapstructure:"default_chat_id"`
}

type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key" json:"-" yaml:"-"`
	From         string `mapstructure:"from"`
	APIURL       string `mapstructure:"api_url"`
}

type WebhookConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type AlertsConfig struct {
	DedupTTL     time.Duration `mapstructure:"dedup_ttl"`
	MaxPerMinute int           `mapstructure:"max_per_minute"`
}

type CleanupConfig struct {
	Interval             time.Duration `mapstructure:"interval"`
	SnapshotRetention    time.Duration `mapstructure:"snapshot_retention"`
	OpportunityRetention time.Duration `mapstructure:"opportunity_retention"`
	AlertRetention       time.Duration `mapstructure:"alert_retention"`
}

type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
	AdminAPIKey string `mapstructure:"admin_api_key" json:"-" yaml:"-"`
	BcryptCost  int    `mapstructure:"bcrypt_cost"`
}

type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	LogLevel       string `mapstructure:"log_level"`
	Exporter       string `mapstructure:"exporter"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set default values
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind secrets to their conventional names
	secrets := map[string]string{
		"auth.jwt_secret":         "JWT_SECRET",
		"auth.admin_api_key":      "ADMIN_API_KEY",
		"odds_api.api_key":        "ODDS_API_KEY",
		"telegram.bot_token":      "TELEGRAM_BOT_TOKEN",
		"email.resend_api_key":    "RESEND_API_KEY",
		"database.url":            "DATABASE_URL",
		"telemetry.otlp_endpoint": "OTEL_EXPORTER_OTLP_ENDPOINT",
	}
	for key, env := range secrets {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the settings that would otherwise fail at runtime.
func (c *Config) Validate() error {
	if c.Environment != "development" && c.Environment != "test" && c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required in non-development environments")
	}

	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	}

	// The engine treats zero as "use the default", so zeros are rejected here
	// instead of being replaced silently.
	fractions := []struct {
		key   string
		value float64
	}{
		{"arbitrage.min_profit_percentage", c.Arbitrage.MinProfitPercentage},
		{"arbitrage.commission_default", c.Arbitrage.CommissionDefault},
		{"arbitrage.slippage_estimate", c.Arbitrage.SlippageEstimate},
	}
	for _, f := range fractions {
		if f.value <= 0 || f.value >= 1 {
			return fmt.Errorf("%s must be in (0, 1), got %v", f.key, f.value)
		}
	}
	if c.Arbitrage.MaxLatencyMs <= 0 {
		return fmt.Errorf("arbitrage.max_latency_ms must be positive, got %d", c.Arbitrage.MaxLatencyMs)
	}
	if c.Arbitrage.DefaultTotalStake <= 0 {
		return fmt.Errorf("arbitrage.default_total_stake must be positive, got %v", c.Arbitrage.DefaultTotalStake)
	}

	switch c.Arbitrage.Volatility {
	case arbitrage.VolatilityLow, arbitrage.VolatilityMedium, arbitrage.VolatilityHigh:
	default:
		return fmt.Errorf("arbitrage.volatility must be low, medium or high, got %q", c.Arbitrage.Volatility)
	}

	if c.Sync.Enabled && c.Sync.Interval <= 0 {
		return errors.New("sync.interval must be positive when sync is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Environment
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "oddsradar")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Arbitrage
	def := arbitrage.DefaultConfig()
	v.SetDefault("arbitrage.min_profit_percentage", def.MinProfitPercentage)
	v.SetDefault("arbitrage.commission_default", def.CommissionDefault)
	v.SetDefault("arbitrage.slippage_estimate", def.SlippageEstimate)
	v.SetDefault("arbitrage.max_latency_ms", def.MaxLatencyMs)
	v.SetDefault("arbitrage.default_total_stake", def.DefaultTotalStake)
	v.SetDefault("arbitrage.default_liquidity_score", 50.0)
	v.SetDefault("arbitrage.default_reliability", 75.0)
	v.SetDefault("arbitrage.snapshot_window", "5m")
	v.SetDefault("arbitrage.max_workers", 4)
	v.SetDefault("arbitrage.volatility", string(arbitrage.VolatilityMedium))

	// Sync
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.interval", "5m")

	// The Odds API
	v.SetDefault("odds_api.api_key", "")
	v.SetDefault("odds_api.base_url", oddsapi.DefaultBaseURL)
	v.SetDefault("odds_api.regions", "us,uk,eu,au")
	v.SetDefault("odds_api.markets", "h2h,spreads,totals")
	v.SetDefault("odds_api.odds_format", "decimal")
	v.SetDefault("odds_api.requests_per_second", 1.0)
	v.SetDefault("odds_api.sports", oddsapi.DefaultSports)

	// Polymarket
	v.SetDefault("polymarket.base_url", polymarket.DefaultBaseURL)
	v.SetDefault("polymarket.requests_per_second", 2.0)
	v.SetDefault("polymarket.max_pages", polymarket.DefaultMaxPages)
	v.SetDefault("polymarket.sports_tag", "")
	v.SetDefault("polymarket.fetch_order_books", false)

	// Circuit breaker shared by the connectors
	v.SetDefault("circuit_breaker.failure_threshold", 5)
	v.SetDefault("circuit_breaker.success_threshold", 2)
	v.SetDefault("circuit_breaker.timeout", "60s")
	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.reset_timeout", "5m")

	// Alert channels
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.default_chat_id", "")
	v.SetDefault("email.resend_api_key", "")
	v.SetDefault("email.from", "OddsRadar <alerts@oddsradar.local>")
	v.SetDefault("email.api_url", "https://api.resend.com")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("alerts.dedup_ttl", "30m")
	v.SetDefault("alerts.max_per_minute", 10)

	// Cleanup
	v.SetDefault("cleanup.interval", "1h")
	v.SetDefault("cleanup.snapshot_retention", "72h")
	v.SetDefault("cleanup.opportunity_retention", "720h")
	v.SetDefault("cleanup.alert_retention", "720h")

	// Auth
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.admin_api_key", "")
	v.SetDefault("auth.bcrypt_cost", 12)

	// Telemetry
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "oddsradar")
	v.SetDefault("telemetry.service_version", "1.0.0")
	v.SetDefault("telemetry.log_level", "info")
	v.SetDefault("telemetry.exporter", "otlp")
}
