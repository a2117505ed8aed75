package domain

import (
	"github.com/shopspring/decimal"
)

// Currency is an ISO-style currency code supported by the wallet.
type Currency string

const (
	CurrencyUSD  Currency = "USD"
	CurrencyUSDT Currency = "USDT"
	CurrencyIRR  Currency = "IRR"
)

// currencyDecimals defines the minimum unit (number of decimal places)
// per currency. Adding a currency means adding an entry here.
var currencyDecimals = map[Currency]int32{
	CurrencyUSD:  2,
	CurrencyUSDT: 2,
	CurrencyIRR:  0,
}

// SupportedCurrencies returns the currencies the ledger recognizes.
func SupportedCurrencies() []Currency {
	return []Currency{CurrencyUSD, CurrencyUSDT, CurrencyIRR}
}

// IsSupported reports whether c is a recognized currency code.
func (c Currency) IsSupported() bool {
	_, ok := currencyDecimals[c]
	return ok
}

// Decimals returns the number of decimal places of the currency's
// minimum unit (2 for USD/USDT, 0 for IRR).
func (c Currency) Decimals() int32 {
	return currencyDecimals[c]
}

// Round rounds an amount to the currency's minimum unit using
// banker's rounding (round half to even).
func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.RoundBank(c.Decimals())
}

// PairKey builds the rate-table key for a currency pair, e.g. "USD_IRR".
func PairKey(from, to Currency) string {
	return string(from) + "_" + string(to)
}
