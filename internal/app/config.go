package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/herevemarket/orders-api/internal/domain/commission"
)

// Config holds the complete application configuration, loadable from
// environment variables (MARKET_ prefix), flags, or YAML config files.
type Config struct {
	Addr string `default:"0.0.0.0:8080" usage:"API server listen address"`
	// DatabaseURL may be left empty in development: the service then runs
	// on the in-memory stores and loses state on restart.
	DatabaseURL string `usage:"PostgreSQL connection URL (MARKET_DATABASE_URL or DATABASE_URL)" flag:"database-url"`

	Commission CommissionConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
	Graceful   GracefulConfig
}

// CommissionConfig sets the three-way split percentages. They must sum to
// 100; the hotel share additionally absorbs rounding drift at calculation
// time.
type CommissionConfig struct {
	MerchantPct string `default:"75" usage:"Merchant share percentage" flag:"merchant-pct"`
	PlatformPct string `default:"20" usage:"Platform share percentage" flag:"platform-pct"`
	HotelPct    string `default:"5"  usage:"Hotel share percentage" flag:"hotel-pct"`
}

// Policy parses and validates the configured percentages.
func (c CommissionConfig) Policy() (commission.Policy, error) {
	merchant, err := decimal.NewFromString(c.MerchantPct)
	if err != nil {
		return commission.Policy{}, errors.Wrap(err, "merchant percentage")
	}
	platform, err := decimal.NewFromString(c.PlatformPct)
	if err != nil {
		return commission.Policy{}, errors.Wrap(err, "platform percentage")
	}
	hotel, err := decimal.NewFromString(c.HotelPct)
	if err != nil {
		return commission.Policy{}, errors.Wrap(err, "hotel percentage")
	}

	p := commission.Policy{
		MerchantPct: merchant,
		PlatformPct: platform,
		HotelPct:    hotel,
	}
	if err := p.Validate(); err != nil {
		return commission.Policy{}, err
	}
	return p, nil
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-provided defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "MARKET",
		Files:     []string{"config.yaml", "/etc/orders-api/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if _, err := cfg.Commission.Policy(); err != nil {
		return nil, errors.Wrap(err, "commission config")
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) using standard names like DATABASE_URL and PORT
// onto the MARKET_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
