package idhash

import (
	"testing"

	"token-launchpad/internal/domain"
)

func TestComputeSwapID(t *testing.T) {
	id := ComputeSwapID("Pool", "User", domain.SideBuy, 1000, 5000, 6000, 1704067200)
	if len(id) != 64 {
		t.Errorf("Expected 64-char hash, got %d", len(id))
	}

	// Determinism
	for i := 0; i < 10; i++ {
		if got := ComputeSwapID("Pool", "User", domain.SideBuy, 1000, 5000, 6000, 1704067200); got != id {
			t.Errorf("Determinism failed: %s != %s", got, id)
		}
	}
}

func TestComputeSwapID_DifferentInputs(t *testing.T) {
	base := ComputeSwapID("Pool", "User", domain.SideBuy, 1000, 5000, 6000, 1000)

	// Different side should produce different hash
	if base == ComputeSwapID("Pool", "User", domain.SideSell, 1000, 5000, 6000, 1000) {
		t.Error("Different side should produce different hash")
	}

	// Different reserves should produce different hash
	if base == ComputeSwapID("Pool", "User", domain.SideBuy, 1000, 5001, 6000, 1000) {
		t.Error("Different reserves should produce different hash")
	}

	// Different user should produce different hash
	if base == ComputeSwapID("Pool", "Other", domain.SideBuy, 1000, 5000, 6000, 1000) {
		t.Error("Different user should produce different hash")
	}
}

func TestComputeClaimID(t *testing.T) {
	a := ComputeClaimID("Pool", "User", 3)
	if len(a) != 64 {
		t.Errorf("Expected 64-char hash, got %d", len(a))
	}
	if a != ComputeClaimID("Pool", "User", 3) {
		t.Error("Determinism failed")
	}
	if a == ComputeClaimID("Pool", "User", 4) {
		t.Error("Different day should produce different hash")
	}
}
