package quant

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// All monetary values in the system are shopspring decimals. float64 appears
// only at external boundaries (reference price feeds, LLM payloads) and is
// converted here before it touches pool or guard math.

// sqrtPrec is the mantissa precision used for the big.Float square root.
// 128 bits comfortably covers decimal's 28-digit division precision.
const sqrtPrec = 128

func init() {
	decimal.DivisionPrecision = 28
}

// Sqrt returns the square root of d. It panics if d is negative; the only
// caller feeding it user input validates amounts first.
func Sqrt(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		panic("quant: Sqrt of negative decimal")
	}
	if d.IsZero() {
		return decimal.Zero
	}

	f, _ := new(big.Float).SetPrec(sqrtPrec).SetString(d.String())
	root := new(big.Float).SetPrec(sqrtPrec).Sqrt(f)

	out, err := decimal.NewFromString(root.Text('f', decimal.DivisionPrecision))
	if err != nil {
		panic(fmt.Sprintf("quant: sqrt conversion failed: %v", err))
	}
	return out
}

// Deviation returns (value - reference) / reference, the signed fractional
// distance of value from reference. Reference must be non-zero.
func Deviation(value, reference decimal.Decimal) decimal.Decimal {
	if reference.IsZero() {
		panic("quant: Deviation with zero reference")
	}
	return value.Sub(reference).Div(reference)
}

// FromFloat converts a boundary float64 into a decimal.
func FromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// ParseAmount parses a boundary string (config, API payload) into a
// non-negative decimal.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Sign() < 0 {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}
	return d, nil
}
