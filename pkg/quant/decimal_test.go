package quant

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSqrt_PerfectSquare(t *testing.T) {
	got := Sqrt(decimal.NewFromInt(250000))
	want := decimal.NewFromInt(500)

	if !got.Equal(want) {
		t.Errorf("Sqrt(250000) = %s, want %s", got, want)
	}
}

func TestSqrt_Irrational(t *testing.T) {
	two := decimal.NewFromInt(2)
	root := Sqrt(two)

	// root^2 must land within rounding tolerance of 2
	diff := root.Mul(root).Sub(two).Abs()
	tol := decimal.RequireFromString("0.000000000000000001")
	if diff.GreaterThan(tol) {
		t.Errorf("Sqrt(2)^2 off by %s, tolerance %s", diff, tol)
	}
}

func TestSqrt_Zero(t *testing.T) {
	if !Sqrt(decimal.Zero).IsZero() {
		t.Error("Sqrt(0) should be 0")
	}
}

func TestDeviation(t *testing.T) {
	pool := decimal.RequireFromString("0.99")
	ref := decimal.NewFromInt(1)

	got := Deviation(pool, ref)
	want := decimal.RequireFromString("-0.01")

	if !got.Equal(want) {
		t.Errorf("Deviation(0.99, 1) = %s, want %s", got, want)
	}
}

func TestParseAmount_RejectsNegative(t *testing.T) {
	if _, err := ParseAmount("-5"); err == nil {
		t.Error("expected error for negative amount")
	}
	if _, err := ParseAmount("abc"); err == nil {
		t.Error("expected error for malformed amount")
	}
}
