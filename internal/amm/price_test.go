package amm

import (
	"errors"
	"math"
	"testing"
)

func TestSpotPrice(t *testing.T) {
	price, err := SpotPrice(4_000_000, 1_000_000)
	if err != nil {
		t.Fatalf("SpotPrice failed: %v", err)
	}
	if price != 0.25 {
		t.Errorf("SpotPrice = %v, want 0.25", price)
	}

	price, err = SpotPrice(3, math.MaxUint64)
	if err != nil {
		t.Fatalf("SpotPrice failed: %v", err)
	}
	if math.IsInf(price, 0) || price <= 0 {
		t.Errorf("SpotPrice of large reserves = %v", price)
	}

	if _, err := SpotPrice(0, 10); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("Expected ErrDivisionByZero, got %v", err)
	}
}

func TestCheckedArithmetic(t *testing.T) {
	if _, err := CheckedAdd(math.MaxUint64, 1); !errors.Is(err, ErrOverflow) {
		t.Errorf("Expected ErrOverflow, got %v", err)
	}
	if _, err := CheckedSub(1, 2); !errors.Is(err, ErrUnderflow) {
		t.Errorf("Expected ErrUnderflow, got %v", err)
	}
	got, err := MulDiv(math.MaxUint64, math.MaxUint64, math.MaxUint64)
	if err != nil || got != math.MaxUint64 {
		t.Errorf("MulDiv = %d, %v", got, err)
	}
	if _, err := MulDiv(1, 1, 0); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("Expected ErrDivisionByZero, got %v", err)
	}
}
