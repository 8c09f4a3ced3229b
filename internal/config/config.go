package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string   `mapstructure:"PORT"`
	Env                string   `mapstructure:"ENV"`
	DatabaseURL        string   `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32    `mapstructure:"DB_MIN_CONNS"`
	AuthSigningKey     string   `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer         string   `mapstructure:"AUTH_ISSUER"`
	AuthTokenTTLHours  int      `mapstructure:"AUTH_TOKEN_TTL_HOURS"`
	QuietHoursStart    int      `mapstructure:"QUIET_HOURS_START"`
	QuietHoursEnd      int      `mapstructure:"QUIET_HOURS_END"`
	Timezone           string   `mapstructure:"TIMEZONE"`
	DischargeGraceDays int      `mapstructure:"DISCHARGE_GRACE_DAYS"`
	CORSOrigins        []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int      `mapstructure:"RATE_LIMIT_BURST"`
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
	v.SetDefault("AUTH_ISSUER", "wardtrack")
	v.SetDefault("AUTH_TOKEN_TTL_HOURS", 12)
	v.SetDefault("QUIET_HOURS_START", 16)
	v.SetDefault("QUIET_HOURS_END", 7)
	v.SetDefault("TIMEZONE", "America/New_York")
	v.SetDefault("DISCHARGE_GRACE_DAYS", 7)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_TOKEN_TTL_HOURS")
	v.BindEnv("QUIET_HOURS_START")
	v.BindEnv("QUIET_HOURS_END")
	v.BindEnv("TIMEZONE")
	v.BindEnv("DISCHARGE_GRACE_DAYS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

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

	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode without AUTH_SIGNING_KEY.")
		log.Println("WARNING: DevAuthMiddleware is active; all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: ============================================================")
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

// Validate checks that the configuration is safe to run. Outside development
// AUTH_SIGNING_KEY must be set so that real JWT authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"AUTH_SIGNING_KEY must be set when ENV=%q. "+
				"Refusing to start without authentication configuration", c.Env)
	}
	if c.QuietHoursStart < 0 || c.QuietHoursStart > 23 {
		return fmt.Errorf("QUIET_HOURS_START must be an hour 0-23, got %d", c.QuietHoursStart)
	}
	if c.QuietHoursEnd < 0 || c.QuietHoursEnd > 23 {
		return fmt.Errorf("QUIET_HOURS_END must be an hour 0-23, got %d", c.QuietHoursEnd)
	}
	if c.DischargeGraceDays < 0 {
		return fmt.Errorf("DISCHARGE_GRACE_DAYS must be non-negative, got %d", c.DischargeGraceDays)
	}
	return nil
}
