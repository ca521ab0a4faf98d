package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string   `mapstructure:"PORT"`
	Env              string   `mapstructure:"ENV"`
	DatabaseURL      string   `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32    `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir    string   `mapstructure:"MIGRATIONS_DIR"`
	AuthIssuer       string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL      string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience     string   `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey   string   `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins      []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS     float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int      `mapstructure:"RATE_LIMIT_BURST"`
	ReminderSchedule string   `mapstructure:"REMINDER_SCHEDULE"`
	ReminderWebhook  string   `mapstructure:"REMINDER_WEBHOOK"`
	TLSEnabled       bool     `mapstructure:"TLS_ENABLED"`
	TLSCertFile      string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile       string   `mapstructure:"TLS_KEY_FILE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REMINDER_SCHEDULE", "* * * * *")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("REMINDER_SCHEDULE")
	v.BindEnv("REMINDER_WEBHOOK")
	v.BindEnv("TLS_ENABLED")
	v.BindEnv("TLS_CERT_FILE")
	v.BindEnv("TLS_KEY_FILE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: All requests get admin access. Do NOT use in production.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development,
// real JWT authentication must be configured: either an issuer for JWKS
// validation or a static HMAC signing key.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"AUTH_ISSUER or AUTH_SIGNING_KEY must be set when ENV=%q. "+
				"Refusing to start without authentication configuration", c.Env)
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
