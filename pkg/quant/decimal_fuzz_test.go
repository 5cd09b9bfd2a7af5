package quant

import (
	"testing"

	"github.com/shopspring/decimal"
)

// FuzzSqrt checks that Sqrt(x)^2 stays within tolerance of x for arbitrary
// non-negative inputs.
func FuzzSqrt(f *testing.F) {
	// Seed corpus
	f.Add(int64(0), int64(0))
	f.Add(int64(250000), int64(0))
	f.Add(int64(1), int64(500000))
	f.Add(int64(999999999), int64(999999))

	f.Fuzz(func(t *testing.T, units, nanos int64) {
		if units < 0 || nanos < 0 {
			return
		}
		x := decimal.NewFromInt(units).Add(decimal.New(nanos%1000000000, -9))

		root := Sqrt(x)
		if root.Sign() < 0 {
			t.Fatalf("Sqrt(%s) returned negative %s", x, root)
		}

		diff := root.Mul(root).Sub(x).Abs()
		// relative tolerance, absolute near zero
		tol := x.Mul(decimal.New(1, -18)).Add(decimal.New(1, -18))
		if diff.GreaterThan(tol) {
			t.Errorf("Sqrt(%s)^2 off by %s", x, diff)
		}
	})
}
