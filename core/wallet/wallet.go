// Package wallet holds the synthetic wallet balance and its role presets.
package wallet

import (
	"fmt"

	"github.com/shopspring/decimal"

	"medmarket/core/session"
)

// Currency is the only currency the ledger deals in.
const Currency = "ETH"

// DefaultETHPriceUSD is the conversion rate used when none is configured.
const DefaultETHPriceUSD = 3000

var (
	patientPreset    = decimal.RequireFromString("0.15")
	researcherPreset = decimal.RequireFromString("1.25")
)

// Balance is a wallet balance rendered to two decimal places.
type Balance struct {
	ETH string `json:"eth"`
	USD string `json:"usd"`
}

// ZeroBalance is the balance of a disconnected wallet.
var ZeroBalance = Balance{ETH: "0.00", USD: "0.00"}

// Preset returns the seeded ETH balance for role.
func Preset(role session.Role) decimal.Decimal {
	if role == session.RolePatient {
		return patientPreset
	}
	return researcherPreset
}

// Render converts eth to a Balance at price USD per ETH.
func Render(eth, price decimal.Decimal) Balance {
	return Balance{
		ETH: eth.StringFixed(2),
		USD: eth.Mul(price).StringFixed(2),
	}
}

// ParseAmount parses a decimal ETH amount such as "0.05".
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}
