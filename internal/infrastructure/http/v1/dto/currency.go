package dto

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RateResponse is one row of the exchange-rate table.
type RateResponse struct {
	Code string `json:"code"`
	Rate string `json:"rate"`
}

// FromRates sorts the table by code.
func FromRates(rates map[string]decimal.Decimal) []RateResponse {
	out := make([]RateResponse, 0, len(rates))
	for code, r := range rates {
		out = append(out, RateResponse{Code: code, Rate: plain(r)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// SetRateRequest replaces the AOA rate of a currency.
type SetRateRequest struct {
	Rate decimal.Decimal `json:"rate"`
}
