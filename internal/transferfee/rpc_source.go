package transferfee

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"token-launchpad/internal/solana"
)

// Token program owners.
const (
	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC4PJXUSMYuBjRwqA"
)

// Token-2022 mint extension layout.
const (
	accountTypeOffset      = 165
	accountTypeMint        = 1
	extensionTransferFee   = 1
	transferFeeConfigSize  = 108
	transferFeeEpochOffset = 32 + 32 + 8 // authorities, withheld amount
	transferFeeSize        = 8 + 8 + 2   // epoch, maximum fee, basis points
)

// SlotDuration is the nominal slot time used to estimate epoch ends.
const SlotDuration = 400 * time.Millisecond

// ErrMintNotFound is returned when the mint account does not exist.
var ErrMintNotFound = errors.New("mint account not found")

// ErrUnsupportedMint is returned when the mint is not owned by a token program.
var ErrUnsupportedMint = errors.New("mint not owned by a token program")

// RPCSource reads TransferFeeConfig from mint accounts over JSON-RPC.
type RPCSource struct {
	client solana.RPCClient
}

// NewRPCSource creates a source backed by client.
func NewRPCSource(client solana.RPCClient) *RPCSource {
	return &RPCSource{client: client}
}

var _ ExpiringSource = (*RPCSource)(nil)

// Schedule fetches the mint and returns the fee in effect for the current epoch.
func (s *RPCSource) Schedule(ctx context.Context, mint string) (Schedule, error) {
	sched, _, err := s.ScheduleWithExpiry(ctx, mint)
	return sched, err
}

// ScheduleWithExpiry is Schedule plus the estimated time left in the current
// epoch. Token-2022 fee changes only take effect at epoch boundaries; plain
// token mints never carry a fee, so theirs has no expiry.
func (s *RPCSource) ScheduleWithExpiry(ctx context.Context, mint string) (Schedule, time.Duration, error) {
	info, err := s.client.GetAccountInfo(ctx, mint)
	if err != nil {
		return Schedule{}, 0, fmt.Errorf("get mint %s: %w", mint, err)
	}
	if info == nil {
		return Schedule{}, 0, fmt.Errorf("%w: %s", ErrMintNotFound, mint)
	}

	switch info.Owner {
	case TokenProgramID:
		return Schedule{}, 0, nil
	case Token2022ProgramID:
	default:
		return Schedule{}, 0, fmt.Errorf("%w: %s owned by %s", ErrUnsupportedMint, mint, info.Owner)
	}

	epoch, err := s.client.GetEpochInfo(ctx)
	if err != nil {
		return Schedule{}, 0, fmt.Errorf("get epoch: %w", err)
	}

	sched, err := ParseMintSchedule(info.Data, epoch.Epoch)
	if err != nil {
		return Schedule{}, 0, err
	}
	return sched, epochRemaining(epoch), nil
}

// epochRemaining estimates the time until the next epoch, at least one slot.
func epochRemaining(info *solana.EpochInfo) time.Duration {
	if info.SlotIndex >= info.SlotsInEpoch {
		return SlotDuration
	}
	return time.Duration(info.SlotsInEpoch-info.SlotIndex) * SlotDuration
}

// ParseMintSchedule extracts the transfer fee in effect at epoch from raw
// Token-2022 mint data. Mints without the extension have no fee.
func ParseMintSchedule(data []byte, epoch uint64) (Schedule, error) {
	if len(data) <= accountTypeOffset {
		return Schedule{}, nil
	}
	if data[accountTypeOffset] != accountTypeMint {
		return Schedule{}, fmt.Errorf("account type %d is not a mint", data[accountTypeOffset])
	}

	off := accountTypeOffset + 1
	for off+4 <= len(data) {
		typ := binary.LittleEndian.Uint16(data[off:])
		size := int(binary.LittleEndian.Uint16(data[off+2:]))
		off += 4
		if typ == 0 {
			break // uninitialized padding
		}
		if off+size > len(data) {
			return Schedule{}, fmt.Errorf("extension %d overruns mint data", typ)
		}
		if typ == extensionTransferFee {
			if size != transferFeeConfigSize {
				return Schedule{}, fmt.Errorf("transfer fee config of %d bytes", size)
			}
			return parseTransferFeeConfig(data[off:off+size], epoch), nil
		}
		off += size
	}
	return Schedule{}, nil
}

func parseTransferFeeConfig(cfg []byte, epoch uint64) Schedule {
	older := cfg[transferFeeEpochOffset : transferFeeEpochOffset+transferFeeSize]
	newer := cfg[transferFeeEpochOffset+transferFeeSize : transferFeeEpochOffset+2*transferFeeSize]

	fee := older
	if epoch >= binary.LittleEndian.Uint64(newer) {
		fee = newer
	}
	return Schedule{
		MaximumFee:  binary.LittleEndian.Uint64(fee[8:]),
		BasisPoints: binary.LittleEndian.Uint16(fee[16:]),
	}
}
