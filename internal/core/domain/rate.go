package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateTable is a snapshot of pair rates keyed by PairKey, e.g. "USD_IRR".
type RateTable struct {
	Rates     map[string]decimal.Decimal `json:"rates"`
	Timestamp time.Time                  `json:"timestamp"`
	Origin    RateOrigin                 `json:"origin"`
}

// Rate looks up the rate for a currency pair.
func (t *RateTable) Rate(from, to Currency) (decimal.Decimal, bool) {
	r, ok := t.Rates[PairKey(from, to)]
	return r, ok
}

// RateQuote is a single resolved rate handed to the transaction engine.
type RateQuote struct {
	From      Currency        `json:"from"`
	To        Currency        `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Origin    RateOrigin      `json:"origin"`
	Timestamp time.Time       `json:"timestamp"`
}
