package match

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadConfigFromEnv.
const (
	EnvMaxInstruments  = "MATCH_MAX_INSTRUMENTS"
	EnvMaxTickerLength = "MATCH_MAX_TICKER_LENGTH"
	EnvPricePolicy     = "MATCH_PRICE_POLICY"
	EnvMatchMode       = "MATCH_MODE"
)

// Config is fixed for the lifetime of a MatchingEngine.
type Config struct {
	// MaxInstruments bounds the number of distinct tickers.
	MaxInstruments int
	// MaxTickerLength is the longest ticker accepted, in bytes.
	MaxTickerLength int
	// PricePolicy picks the execution price when two resting orders cross.
	PricePolicy PricePolicy
	// MatchMode decides whether Submit runs the matching pass itself.
	MatchMode MatchMode
}

// DefaultConfig returns the configuration used when no option is given.
func DefaultConfig() Config {
	return Config{
		MaxInstruments:  DefaultMaxInstruments,
		MaxTickerLength: DefaultMaxTickerLength,
		PricePolicy:     PricePolicyOlder,
		MatchMode:       MatchModeDeferred,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.MaxInstruments <= 0 {
		return fmt.Errorf("%w: max instruments must be positive, got %d", ErrInvalidParam, c.MaxInstruments)
	}
	if c.MaxTickerLength <= 0 {
		return fmt.Errorf("%w: max ticker length must be positive, got %d", ErrInvalidParam, c.MaxTickerLength)
	}
	switch c.PricePolicy {
	case PricePolicyOlder, PricePolicyAggressor, PricePolicyMidpoint:
	default:
		return fmt.Errorf("%w: unknown price policy %q", ErrInvalidParam, c.PricePolicy)
	}
	switch c.MatchMode {
	case MatchModeInline, MatchModeDeferred:
	default:
		return fmt.Errorf("%w: unknown match mode %q", ErrInvalidParam, c.MatchMode)
	}
	return nil
}

// LoadConfigFromEnv loads configuration from a .env file (if it exists) and
// environment variables.
// Priority: ENV > .env file > defaults
func LoadConfigFromEnv(envPath string) (Config, error) {
	cfg := DefaultConfig()

	var err error
	if envPath != "" {
		err = godotenv.Load(envPath)
	} else {
		err = godotenv.Load()
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("%w: load env file: %v", ErrInvalidParam, err)
	}

	if v := os.Getenv(EnvMaxInstruments); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidParam, EnvMaxInstruments, err)
		}
		cfg.MaxInstruments = n
	}
	if v := os.Getenv(EnvMaxTickerLength); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidParam, EnvMaxTickerLength, err)
		}
		cfg.MaxTickerLength = n
	}
	if v := os.Getenv(EnvPricePolicy); v != "" {
		cfg.PricePolicy = PricePolicy(v)
	}
	if v := os.Getenv(EnvMatchMode); v != "" {
		cfg.MatchMode = MatchMode(v)
	}

	return cfg, cfg.Validate()
}

// Option customizes the engine configuration.
type Option func(*Config)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithMaxInstruments sets the instrument slot table capacity.
func WithMaxInstruments(n int) Option {
	return func(c *Config) {
		c.MaxInstruments = n
	}
}

// WithMaxTickerLength sets the longest accepted ticker.
func WithMaxTickerLength(n int) Option {
	return func(c *Config) {
		c.MaxTickerLength = n
	}
}

// WithPricePolicy sets the trade price policy.
func WithPricePolicy(p PricePolicy) Option {
	return func(c *Config) {
		c.PricePolicy = p
	}
}

// WithMatchMode sets the matching schedule.
func WithMatchMode(m MatchMode) Option {
	return func(c *Config) {
		c.MatchMode = m
	}
}
