package candle

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Scale converts a decimal value to the fixed-point representation used by
// Candle: round(x * 10^Precision). Rounding is half away from zero.
func Scale(x decimal.Decimal) (uint64, error) {
	if x.IsNegative() {
		return 0, fmt.Errorf("candle: cannot scale negative value %s", x)
	}
	scaled := x.Shift(Precision).Round(0)
	if !scaled.BigInt().IsUint64() {
		return 0, fmt.Errorf("candle: scaled value %s overflows uint64", scaled)
	}
	return scaled.BigInt().Uint64(), nil
}

// ScaleString parses a decimal string such as "1.23450000" and scales it.
func ScaleString(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("candle: parse %q: %w", s, err)
	}
	return Scale(d)
}

// Unscale converts a fixed-point value back to a decimal.
func Unscale(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -Precision)
}

// Midpoint returns (open+close)/2 as a decimal, for display only.
func (c Candle) Midpoint() decimal.Decimal {
	return Unscale(c.Open).Add(Unscale(c.Close)).Div(decimal.NewFromInt(2))
}
