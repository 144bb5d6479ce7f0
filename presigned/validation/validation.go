// Package validation provides format checks for presigned operation data at
// transport boundaries: addresses, amounts, networks, encoding versions,
// signatures, and complete signed requests.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
)

var (
	// evmAddressRegex matches Ethereum-style addresses (0x followed by 40 hex chars)
	evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

	// hexBytesRegex matches whole bytes of hex with an optional 0x prefix
	hexBytesRegex = regexp.MustCompile(`^(0x)?([a-fA-F0-9]{2})*$`)

	// caip2Regex matches CAIP-2 network identifiers (namespace:reference)
	caip2Regex = regexp.MustCompile(`^[a-z0-9]+:[a-zA-Z0-9]+$`)
)

// ValidateAmount validates that an amount string is a non-negative integer
// that fits in 256 bits. Zero is allowed.
func ValidateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount cannot be empty")
	}
	if strings.HasPrefix(strings.TrimSpace(amount), "-") {
		return fmt.Errorf("amount cannot be negative, got: %s", amount)
	}
	if _, err := presigned.ParseUint256(amount); err != nil {
		return fmt.Errorf("invalid amount format: %s", amount)
	}
	return nil
}

// ValidateNetwork validates a CAIP-2 EVM network identifier.
func ValidateNetwork(network string) error {
	if network == "" {
		return fmt.Errorf("network cannot be empty")
	}

	if !caip2Regex.MatchString(network) {
		return fmt.Errorf("invalid CAIP-2 network format: %s (expected namespace:reference)", network)
	}

	return presigned.ValidateNetwork(network)
}

// ValidateAddress validates an EVM address.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !evmAddressRegex.MatchString(address) {
		return fmt.Errorf("invalid EVM address format: %s (expected 0x followed by 40 hex characters)", address)
	}
	return nil
}

// ValidateVersion validates an encoding version.
func ValidateVersion(version uint8) error {
	if !presigned.EncodingVersion(version).Supported() {
		return fmt.Errorf("%w: %d", presigned.ErrUnsupportedEncoding, version)
	}
	return nil
}

// ValidateSignature validates the hex form of a signature. Text that is not
// hex is a malformed request; hex of the wrong length wraps
// presigned.ErrInvalidSignature, as recovery would report it.
func ValidateSignature(signature string) error {
	if !hexBytesRegex.MatchString(signature) {
		return fmt.Errorf("invalid signature format (expected hex-encoded bytes)")
	}
	switch n := len(strings.TrimPrefix(signature, "0x")) / 2; n {
	case 64, 65:
		return nil
	default:
		return fmt.Errorf("%w: signature is %d bytes (expected 64 or 65)", presigned.ErrInvalidSignature, n)
	}
}

// ValidateSignedRequest performs comprehensive validation of a signed request.
// It is stricter than the executor: a request to the zero address is
// rejected here, since such an operation can never be useful.
func ValidateSignedRequest(req presigned.SignedRequest) error {
	if _, err := presigned.ParseMode(req.Mode); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	if err := ValidateAddress(req.To); err != nil {
		return fmt.Errorf("invalid request: to %w", err)
	}
	if common.HexToAddress(req.To) == (common.Address{}) {
		return fmt.Errorf("invalid request: to cannot be the zero address")
	}

	if err := ValidateAmount(req.Amount); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if err := ValidateAmount(req.Fee); err != nil {
		return fmt.Errorf("invalid request: fee %w", err)
	}
	if err := ValidateAmount(req.Nonce); err != nil {
		return fmt.Errorf("invalid request: nonce %w", err)
	}

	if err := ValidateVersion(req.Version); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	if err := ValidateSignature(req.Signature); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	if req.Signer != "" {
		if err := ValidateAddress(req.Signer); err != nil {
			return fmt.Errorf("invalid request: signer %w", err)
		}
	}

	return nil
}

// ValidateScope validates a ledger scope.
func ValidateScope(scope presigned.Scope) error {
	if err := ValidateNetwork(scope.Network); err != nil {
		return fmt.Errorf("invalid scope: %w", err)
	}
	return scope.Validate()
}
