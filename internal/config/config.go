// Package config loads service configuration from kitanda.yml, KITANDA_*
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"kitanda/internal/domain/currency"
	"kitanda/internal/domain/totals"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config is the resolved service configuration.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Numbers  NumbersConfig  `mapstructure:"numbers"`
	Fiscal   FiscalConfig   `mapstructure:"fiscal"`
	Currency CurrencyConfig `mapstructure:"currency"`

	v *viper.Viper
}

type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type StorageConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
	TxAttempts      int           `mapstructure:"tx_attempts"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout"`
	OverdueInterval time.Duration `mapstructure:"overdue_interval"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`

	// Disabled serves every request as a local admin. Memory storage only.
	Disabled bool `mapstructure:"disabled"`
}

// NumbersConfig tunes the counter store's retry on lock contention.
type NumbersConfig struct {
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// FiscalConfig holds the regulatory parameters as decimal strings.
type FiscalConfig struct {
	TaxTiers             []string `mapstructure:"tax_tiers"`
	WithholdingThreshold string   `mapstructure:"withholding_threshold"`
	WithholdingRate      string   `mapstructure:"withholding_rate"`
	SimplifiedRate       string   `mapstructure:"simplified_rate"`
}

// CurrencyConfig maps ISO codes to AOA per unit.
type CurrencyConfig struct {
	Rates map[string]string `mapstructure:"rates"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("storage.driver", StorageMemory)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.max_conns", 20)
	v.SetDefault("storage.min_conns", 2)
	v.SetDefault("storage.migrate_on_start", true)
	v.SetDefault("storage.tx_attempts", 3)
	v.SetDefault("storage.lock_timeout", 2*time.Second)
	v.SetDefault("storage.overdue_interval", time.Hour)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "kitanda")
	v.SetDefault("auth.disabled", false)
	v.SetDefault("numbers.retry_attempts", 5)
	v.SetDefault("numbers.retry_delay", 20*time.Millisecond)

	rules := totals.DefaultRules()
	tiers := make([]string, len(rules.TaxTiers))
	for i, t := range rules.TaxTiers {
		tiers[i] = t.String()
	}
	v.SetDefault("fiscal.tax_tiers", tiers)
	v.SetDefault("fiscal.withholding_threshold", rules.WithholdingThreshold.String())
	v.SetDefault("fiscal.withholding_rate", rules.WithholdingRate.String())
	v.SetDefault("fiscal.simplified_rate", rules.SimplifiedRate.String())

	rates := make(map[string]string)
	for code, r := range currency.DefaultRates() {
		rates[strings.ToLower(code)] = r.String()
	}
	v.SetDefault("currency.rates", rates)
}

// Load reads configuration. Search paths default to /etc/kitanda and the
// working directory; a missing config file is not an error.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("kitanda")
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{"/etc/kitanda", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("KITANDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints and the fiscal values.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for postgres storage")
		}
		if c.Auth.Disabled {
			return errors.New("auth.disabled is only allowed with memory storage")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if !c.Auth.Disabled && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	if _, err := c.ExchangeRates(); err != nil {
		return err
	}
	return nil
}

// Rules converts the fiscal section into totals.Rules.
func (c *Config) Rules() (totals.Rules, error) {
	var r totals.Rules
	for _, s := range c.Fiscal.TaxTiers {
		t, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return totals.Rules{}, fmt.Errorf("fiscal.tax_tiers: %q: %w", s, err)
		}
		r.TaxTiers = append(r.TaxTiers, t)
	}
	var err error
	if r.WithholdingThreshold, err = decimal.NewFromString(c.Fiscal.WithholdingThreshold); err != nil {
		return totals.Rules{}, fmt.Errorf("fiscal.withholding_threshold: %w", err)
	}
	if r.WithholdingRate, err = decimal.NewFromString(c.Fiscal.WithholdingRate); err != nil {
		return totals.Rules{}, fmt.Errorf("fiscal.withholding_rate: %w", err)
	}
	if r.SimplifiedRate, err = decimal.NewFromString(c.Fiscal.SimplifiedRate); err != nil {
		return totals.Rules{}, fmt.Errorf("fiscal.simplified_rate: %w", err)
	}
	if err := r.Validate(); err != nil {
		return totals.Rules{}, err
	}
	return r, nil
}

// ExchangeRates parses the rate table. Codes are upper-cased.
func (c *Config) ExchangeRates() (map[string]decimal.Decimal, error) {
	return parseRates(c.Currency.Rates)
}

func parseRates(raw map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for code, s := range raw {
		norm, err := currency.Normalize(code)
		if err != nil {
			return nil, fmt.Errorf("currency.rates: %w", err)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("currency.rates.%s: %q is not a positive decimal", code, s)
		}
		out[norm] = rate
	}
	return out, nil
}

// WatchRates calls apply with the new rate table whenever the config file
// changes. Invalid tables are reported to onError and ignored.
func (c *Config) WatchRates(apply func(map[string]decimal.Decimal), onError func(error)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(fsnotify.Event) {
		raw := c.v.GetStringMapString("currency.rates")
		rates, err := parseRates(raw)
		if err != nil {
			onError(err)
			return
		}
		apply(rates)
	})
	c.v.WatchConfig()
}
