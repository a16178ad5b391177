package config

import (
	"fmt"
	"strings"

	"token-launchpad/internal/ledger"
)

// Network selects per-network engine parameters.
type Network string

// Supported networks.
const (
	Mainnet  Network = "mainnet"
	Devnet   Network = "devnet"
	Localnet Network = "localnet"
)

// Transfer fee sources.
const (
	TransferFeeRPC    = "rpc"
	TransferFeeStatic = "static"
)

// Default program identities.
const (
	DefaultProgramID  = "6qzMMp1Www9Aehyb7vxU2qjgzDf6Mx5wXRpwNJdNH7E2"
	LocalnetProgramID = "8Ug2zZ9GUGnsYR1anVtADgv99TPQ4VjgRumNxE2RSh1F"
)

// NetworkParams are the engine constants that differ between networks.
type NetworkParams struct {
	Network           Network
	ProgramID         string
	Rent              ledger.Rent
	TransferFeeSource string
	FaucetEnabled     bool
	DefaultFeeRate    uint16 // hundredths of a percent
}

// ParseNetwork parses a network name.
func ParseNetwork(s string) (Network, error) {
	switch n := Network(strings.ToLower(strings.TrimSpace(s))); n {
	case Mainnet, Devnet, Localnet:
		return n, nil
	case "mainnet-beta":
		return Mainnet, nil
	default:
		return "", fmt.Errorf("unknown network %q (want mainnet, devnet or localnet)", s)
	}
}

// Params returns the parameters of a network.
func (n Network) Params() NetworkParams {
	switch n {
	case Mainnet:
		return NetworkParams{
			Network:           Mainnet,
			ProgramID:         DefaultProgramID,
			Rent:              ledger.DefaultRent,
			TransferFeeSource: TransferFeeRPC,
			FaucetEnabled:     false,
			DefaultFeeRate:    25,
		}
	case Devnet:
		return NetworkParams{
			Network:           Devnet,
			ProgramID:         DefaultProgramID,
			Rent:              ledger.DefaultRent,
			TransferFeeSource: TransferFeeRPC,
			FaucetEnabled:     true,
			DefaultFeeRate:    25,
		}
	default:
		return NetworkParams{
			Network:           Localnet,
			ProgramID:         LocalnetProgramID,
			Rent:              ledger.DefaultRent,
			TransferFeeSource: TransferFeeStatic,
			FaucetEnabled:     true,
			DefaultFeeRate:    30,
		}
	}
}
