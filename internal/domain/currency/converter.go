// Package currency converts document amounts into the kwanza base currency.
package currency

import (
	"maps"
	"regexp"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/types"
	"kitanda/internal/domain/totals"
)

var isoCode = regexp.MustCompile(`^[A-Z]{3}$`)

// DefaultRates is the seed table (AOA per unit of foreign currency).
// It is a fallback only; live rates replace it through SetRate.
func DefaultRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"AOA": decimal.NewFromInt(1),
		"USD": decimal.NewFromInt(850),
		"EUR": decimal.NewFromInt(920),
		"BRL": decimal.NewFromInt(170),
	}
}

var symbols = map[string]string{
	"AOA": "Kz",
	"USD": "$",
	"EUR": "€",
	"BRL": "R$",
}

// Converter holds the current exchange-rate table.
// Safe for concurrent use; readers never block each other.
type Converter struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

// NewConverter creates a converter seeded with rates. Nil seeds DefaultRates.
func NewConverter(rates map[string]decimal.Decimal) (*Converter, error) {
	if rates == nil {
		rates = DefaultRates()
	}
	c := &Converter{rates: make(map[string]decimal.Decimal, len(rates)+1)}
	c.rates[totals.BaseCurrency] = decimal.NewFromInt(1)
	for code, rate := range rates {
		if err := c.SetRate(code, rate); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Normalize upper-cases and validates a currency code.
func Normalize(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !isoCode.MatchString(code) {
		return "", apperror.NewInvalidCurrency(code, "currency code must be 3 letters")
	}
	return code, nil
}

// RateFor returns the AOA rate of a known currency.
func (c *Converter) RateFor(code string) (decimal.Decimal, error) {
	code, err := Normalize(code)
	if err != nil {
		return decimal.Zero, err
	}
	c.mu.RLock()
	rate, ok := c.rates[code]
	c.mu.RUnlock()
	if !ok {
		return decimal.Zero, apperror.NewInvalidCurrency(code, "unknown currency")
	}
	return rate, nil
}

// ResolveRate picks the rate for a document: a positive explicit override wins,
// otherwise the table rate. AOA is always 1.
func (c *Converter) ResolveRate(code string, override decimal.Decimal) (decimal.Decimal, error) {
	rate, err := c.RateFor(code)
	if err != nil {
		return decimal.Zero, err
	}
	code, _ = Normalize(code)
	if code == totals.BaseCurrency {
		return rate, nil
	}
	if override.IsNegative() {
		return decimal.Zero, apperror.NewInvalidCurrency(code, "exchange rate must be positive").
			WithDetail("exchangeRate", override.String())
	}
	if override.IsPositive() {
		return override, nil
	}
	return rate, nil
}

// SetRate replaces the rate of code. The base currency cannot be changed.
func (c *Converter) SetRate(code string, rate decimal.Decimal) error {
	code, err := Normalize(code)
	if err != nil {
		return err
	}
	if !rate.IsPositive() {
		return apperror.NewInvalidCurrency(code, "exchange rate must be positive").
			WithDetail("exchangeRate", rate.String())
	}
	if code == totals.BaseCurrency && !rate.Equal(decimal.NewFromInt(1)) {
		return apperror.NewInvalidCurrency(code, "base currency rate is fixed at 1")
	}

	c.mu.Lock()
	c.rates[code] = rate
	c.mu.Unlock()
	return nil
}

// Rates returns a copy of the table.
func (c *Converter) Rates() map[string]decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.rates)
}

// ToBase converts amount at rate into AOA.
func ToBase(amount types.Money, rate decimal.Decimal) (types.Money, error) {
	if !rate.IsPositive() {
		return decimal.Zero, apperror.NewInvalidCurrency("", "exchange rate must be positive").
			WithDetail("exchangeRate", rate.String())
	}
	return amount.Mul(rate), nil
}

// Format renders amount with two decimals and the currency symbol.
func Format(amount types.Money, code string) string {
	symbol, ok := symbols[code]
	if !ok {
		symbol = code
	}
	return types.Fixed(types.Round2(amount)) + " " + symbol
}
