package presigned

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// CAIP-2 network identifiers for the deployments the ledger targets.
const (
	NetworkMainnet     = "eip155:1"
	NetworkRopsten     = "eip155:3"
	NetworkRinkeby     = "eip155:4"
	NetworkSepolia     = "eip155:11155111"
	NetworkDevelopment = "eip155:1337"
)

// Token defaults for the Muzika coin ledger.
const (
	// DefaultDomainName is the EIP-712 domain name used for typed signatures.
	DefaultDomainName = "MuzikaCoin"

	// DefaultDomainVersion is the EIP-712 domain version used for typed signatures.
	DefaultDomainVersion = "1"

	// Decimals is the number of decimal places of the ledger's token.
	Decimals = 18
)

// Scope identifies the ledger instance a signature is bound to. The address is
// hashed into every encoding, and the network's chain id is part of the EIP-712
// domain, so a signature for one deployment never verifies against another.
type Scope struct {
	// Address is the ledger (token contract) address.
	Address common.Address `json:"address"`

	// Network is the CAIP-2 network identifier (e.g., "eip155:1").
	Network string `json:"network"`

	// Name is the EIP-712 domain name.
	Name string `json:"name"`

	// Version is the EIP-712 domain version.
	Version string `json:"version"`
}

// NewScope returns a scope with the default EIP-712 domain name and version.
func NewScope(address common.Address, network string) Scope {
	return Scope{
		Address: address,
		Network: network,
		Name:    DefaultDomainName,
		Version: DefaultDomainVersion,
	}
}

// ChainID returns the EIP-155 chain id of the scope's network.
func (s Scope) ChainID() (*big.Int, error) {
	id, err := GetChainID(s.Network)
	if err != nil {
		return nil, err
	}
	return big.NewInt(id), nil
}

// Validate ensures the scope can be used for hashing.
func (s Scope) Validate() error {
	if s.Address == (common.Address{}) {
		return fmt.Errorf("%w: address cannot be zero", ErrInvalidScope)
	}
	if _, err := GetChainID(s.Network); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScope, err)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: domain name cannot be empty", ErrInvalidScope)
	}
	if s.Version == "" {
		return fmt.Errorf("%w: domain version cannot be empty", ErrInvalidScope)
	}
	return nil
}

// ValidateNetwork validates a CAIP-2 EIP-155 network identifier.
func ValidateNetwork(network string) error {
	_, err := GetChainID(network)
	return err
}

// GetChainID extracts the chain ID from a CAIP-2 EVM network identifier.
// Returns an error if the network is not an EVM network or has an invalid format.
func GetChainID(network string) (int64, error) {
	if network == "" {
		return 0, fmt.Errorf("%w: network cannot be empty", ErrInvalidNetwork)
	}

	parts := strings.SplitN(network, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, fmt.Errorf("%w: invalid CAIP-2 format: %s", ErrInvalidNetwork, network)
	}

	if parts[0] != "eip155" {
		return 0, fmt.Errorf("%w: not an EVM network: %s", ErrInvalidNetwork, network)
	}

	chainID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || chainID <= 0 {
		return 0, fmt.Errorf("%w: invalid chain ID: %s", ErrInvalidNetwork, parts[1])
	}

	return chainID, nil
}

// NetworkName returns a short human-readable name for known networks and the
// CAIP-2 identifier itself otherwise.
func NetworkName(network string) string {
	switch network {
	case NetworkMainnet:
		return "mainnet"
	case NetworkRopsten:
		return "ropsten"
	case NetworkRinkeby:
		return "rinkeby"
	case NetworkSepolia:
		return "sepolia"
	case NetworkDevelopment:
		return "development"
	}
	return network
}
