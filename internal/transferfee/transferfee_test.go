package transferfee

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"token-launchpad/internal/solana"
)

func TestSchedule_Fee(t *testing.T) {
	tests := []struct {
		name   string
		sched  Schedule
		amount uint64
		want   uint64
	}{
		{"zero rate", Schedule{BasisPoints: 0, MaximumFee: 100}, 1_000, 0},
		{"zero amount", Schedule{BasisPoints: 50, MaximumFee: 100}, 0, 0},
		{"exact", Schedule{BasisPoints: 100, MaximumFee: 1_000}, 10_000, 100},
		{"rounds up", Schedule{BasisPoints: 1, MaximumFee: 1_000}, 1, 1},
		{"capped", Schedule{BasisPoints: 500, MaximumFee: 7}, 10_000, 7},
		{"no overflow", Schedule{BasisPoints: 10_000, MaximumFee: math.MaxUint64}, math.MaxUint64, math.MaxUint64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sched.Fee(tt.amount); got != tt.want {
				t.Errorf("Fee(%d) = %d, want %d", tt.amount, got, tt.want)
			}
		})
	}
}

func TestLookup_FeeFor(t *testing.T) {
	lookup := NewLookup(NewStaticSource(map[string]Schedule{
		"mintA": {BasisPoints: 100, MaximumFee: 1_000},
	}))
	ctx := context.Background()

	fee, err := lookup.FeeFor(ctx, 10_000, "mintA")
	if err != nil {
		t.Fatalf("FeeFor failed: %v", err)
	}
	if fee != 100 {
		t.Errorf("FeeFor = %d, want 100", fee)
	}

	fee, err = lookup.FeeFor(ctx, 10_000, "unknown")
	if err != nil {
		t.Fatalf("FeeFor failed: %v", err)
	}
	if fee != 0 {
		t.Errorf("FeeFor unknown mint = %d, want 0", fee)
	}
}

// mintData builds Token-2022 mint bytes with a TransferFeeConfig extension.
func mintData(olderEpoch, olderMax uint64, olderBps uint16, newerEpoch, newerMax uint64, newerBps uint16) []byte {
	data := make([]byte, accountTypeOffset+1)
	data[accountTypeOffset] = accountTypeMint

	// An unrelated extension first
	data = binary.LittleEndian.AppendUint16(data, 3)
	data = binary.LittleEndian.AppendUint16(data, 2)
	data = append(data, 0, 0)

	data = binary.LittleEndian.AppendUint16(data, extensionTransferFee)
	data = binary.LittleEndian.AppendUint16(data, transferFeeConfigSize)
	data = append(data, make([]byte, 32+32+8)...)
	data = binary.LittleEndian.AppendUint64(data, olderEpoch)
	data = binary.LittleEndian.AppendUint64(data, olderMax)
	data = binary.LittleEndian.AppendUint16(data, olderBps)
	data = binary.LittleEndian.AppendUint64(data, newerEpoch)
	data = binary.LittleEndian.AppendUint64(data, newerMax)
	data = binary.LittleEndian.AppendUint16(data, newerBps)
	return data
}

func TestParseMintSchedule(t *testing.T) {
	data := mintData(0, 500, 50, 10, 900, 75)

	before, err := ParseMintSchedule(data, 9)
	if err != nil {
		t.Fatalf("ParseMintSchedule failed: %v", err)
	}
	if before != (Schedule{BasisPoints: 50, MaximumFee: 500}) {
		t.Errorf("Before newer epoch: got %+v", before)
	}

	after, err := ParseMintSchedule(data, 10)
	if err != nil {
		t.Fatalf("ParseMintSchedule failed: %v", err)
	}
	if after != (Schedule{BasisPoints: 75, MaximumFee: 900}) {
		t.Errorf("From newer epoch: got %+v", after)
	}
}

func TestParseMintSchedule_NoExtensions(t *testing.T) {
	sched, err := ParseMintSchedule(make([]byte, 82), 0)
	if err != nil {
		t.Fatalf("ParseMintSchedule failed: %v", err)
	}
	if sched != (Schedule{}) {
		t.Errorf("Expected zero schedule, got %+v", sched)
	}
}

func TestParseMintSchedule_Overrun(t *testing.T) {
	data := mintData(0, 1, 1, 0, 1, 1)
	if _, err := ParseMintSchedule(data[:len(data)-5], 0); err == nil {
		t.Error("Expected error for truncated extension")
	}
}

type fakeRPC struct {
	info         *solana.AccountInfo
	epoch        uint64
	slotIndex    uint64
	slotsInEpoch uint64
}

func (f *fakeRPC) GetAccountInfo(context.Context, string) (*solana.AccountInfo, error) {
	return f.info, nil
}

func (f *fakeRPC) GetEpochInfo(context.Context) (*solana.EpochInfo, error) {
	return &solana.EpochInfo{Epoch: f.epoch, SlotIndex: f.slotIndex, SlotsInEpoch: f.slotsInEpoch}, nil
}

func TestRPCSource(t *testing.T) {
	ctx := context.Background()
	rpc := &fakeRPC{
		info: &solana.AccountInfo{
			Owner: Token2022ProgramID,
			Data:  mintData(0, 500, 50, 10, 900, 75),
		},
		epoch: 12,
	}

	sched, err := NewRPCSource(rpc).Schedule(ctx, "mint")
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if sched.BasisPoints != 75 {
		t.Errorf("BasisPoints = %d, want 75", sched.BasisPoints)
	}

	rpc.info.Owner = TokenProgramID
	sched, err = NewRPCSource(rpc).Schedule(ctx, "mint")
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if sched != (Schedule{}) {
		t.Errorf("Classic token mint should have no fee, got %+v", sched)
	}

	rpc.info.Owner = "11111111111111111111111111111111"
	if _, err := NewRPCSource(rpc).Schedule(ctx, "mint"); !errors.Is(err, ErrUnsupportedMint) {
		t.Errorf("Expected ErrUnsupportedMint, got %v", err)
	}

	rpc.info = nil
	if _, err := NewRPCSource(rpc).Schedule(ctx, "mint"); !errors.Is(err, ErrMintNotFound) {
		t.Errorf("Expected ErrMintNotFound, got %v", err)
	}
}

func TestRPCSource_ExpiresAtEpochEnd(t *testing.T) {
	ctx := context.Background()
	rpc := &fakeRPC{
		info: &solana.AccountInfo{
			Owner: Token2022ProgramID,
			Data:  mintData(0, 500, 50, 13, 900, 75),
		},
		epoch:        12,
		slotIndex:    431_000,
		slotsInEpoch: 432_000,
	}

	sched, valid, err := NewRPCSource(rpc).ScheduleWithExpiry(ctx, "mint")
	if err != nil {
		t.Fatalf("ScheduleWithExpiry failed: %v", err)
	}
	if sched.BasisPoints != 50 {
		t.Errorf("BasisPoints = %d, want 50 before the newer epoch", sched.BasisPoints)
	}
	if want := 1_000 * SlotDuration; valid != want {
		t.Errorf("valid = %v, want %v", valid, want)
	}

	rpc.slotIndex = rpc.slotsInEpoch
	if _, valid, _ = NewRPCSource(rpc).ScheduleWithExpiry(ctx, "mint"); valid != SlotDuration {
		t.Errorf("valid at epoch end = %v, want one slot", valid)
	}

	rpc.info.Owner = TokenProgramID
	if _, valid, _ = NewRPCSource(rpc).ScheduleWithExpiry(ctx, "mint"); valid != 0 {
		t.Errorf("classic mint valid = %v, want no expiry", valid)
	}
}

func TestEffectiveTTL(t *testing.T) {
	tests := []struct {
		name       string
		ttl, valid time.Duration
		want       time.Duration
	}{
		{"no expiry", 5 * time.Minute, 0, 5 * time.Minute},
		{"epoch ends first", 5 * time.Minute, 40 * time.Second, 40 * time.Second},
		{"ttl ends first", 5 * time.Minute, time.Hour, 5 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := effectiveTTL(tt.ttl, tt.valid); got != tt.want {
				t.Errorf("effectiveTTL(%v, %v) = %v, want %v", tt.ttl, tt.valid, got, tt.want)
			}
		})
	}
}

func TestParseSchedules(t *testing.T) {
	got, err := ParseSchedules("mintA:100:5000, mintB:0:0,")
	if err != nil {
		t.Fatalf("ParseSchedules failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 schedules, got %d", len(got))
	}
	if got["mintA"] != (Schedule{BasisPoints: 100, MaximumFee: 5000}) {
		t.Errorf("mintA schedule mismatch: %+v", got["mintA"])
	}
	if got["mintB"] != (Schedule{}) {
		t.Errorf("mintB schedule mismatch: %+v", got["mintB"])
	}

	empty, err := ParseSchedules("")
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty map, got %v (err %v)", empty, err)
	}

	for _, bad := range []string{"mintA:100", "mintA:10001:5", "mintA:x:5", "mintA:1:-1"} {
		if _, err := ParseSchedules(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}
