// Package presigned implements delegated ("presigned") token operations.
//
// A token holder signs an operation off-band and a relayer submits it on the
// holder's behalf, collecting a fee from the holder's balance. The package
// defines the shared request, receipt, and event types; the subpackages provide
// message hashing, signature recovery, the ledger, and the executor:
//   - internal/codec: canonical message bytes and the three hash conventions
//   - internal/recovery: secp256k1 signer recovery
//   - ledger: nonce and balance bookkeeping over a transactional Store
//   - executor: the orchestration of a single operation
//
// Import path: github.com/MuzikaFoundation/muzika-contract/presigned
package presigned

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ModeLength is the byte length of an operation mode tag.
const ModeLength = 8

// Mode is the fixed 8-byte tag identifying which operation a signature authorizes.
// It is hashed as a Solidity bytes8, i.e. the ASCII tag right-padded with zeros.
type Mode [ModeLength]byte

// Operation modes. The tags match the ones produced by existing signing tools.
var (
	ModeTransfer         = newMode("Transfer")
	ModeApprove          = newMode("Approval")
	ModeIncreaseApproval = newMode("IncApprv")
	ModeDecreaseApproval = newMode("DecApprv")
)

func newMode(tag string) Mode {
	var m Mode
	copy(m[:], tag)
	return m
}

// Modes lists every supported operation mode.
func Modes() []Mode {
	return []Mode{ModeTransfer, ModeApprove, ModeIncreaseApproval, ModeDecreaseApproval}
}

// String returns the tag without trailing zero padding.
func (m Mode) String() string {
	return strings.TrimRight(string(m[:]), "\x00")
}

// Bytes returns a copy of the tag.
func (m Mode) Bytes() []byte {
	b := make([]byte, ModeLength)
	copy(b, m[:])
	return b
}

// Valid reports whether m is one of the four supported modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeTransfer, ModeApprove, ModeIncreaseApproval, ModeDecreaseApproval:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, m.String())
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode parses a mode from its wire tag ("Transfer", "Approval", "IncApprv",
// "DecApprv") or from a friendly alias ("transfer", "approve",
// "increaseApproval", "decreaseApproval"). Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transfer":
		return ModeTransfer, nil
	case "approval", "approve":
		return ModeApprove, nil
	case "incapprv", "increaseapproval", "increase_approval":
		return ModeIncreaseApproval, nil
	case "decapprv", "decreaseapproval", "decrease_approval":
		return ModeDecreaseApproval, nil
	}
	return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// EncodingVersion selects the signature convention a request was signed under.
type EncodingVersion uint8

const (
	// EncodingPlain is the personal-message convention used by general-purpose
	// wallets ("\x19Ethereum Signed Message:\n32" prefix).
	EncodingPlain EncodingVersion = 1

	// EncodingLegacyHardware is the variant prefix produced by older hardware
	// wallets, where the digest length is a single raw byte (0x20).
	EncodingLegacyHardware EncodingVersion = 2

	// EncodingTyped is EIP-712 structured data hashing.
	EncodingTyped EncodingVersion = 3
)

// EncodingVersions lists every supported encoding version.
func EncodingVersions() []EncodingVersion {
	return []EncodingVersion{EncodingPlain, EncodingLegacyHardware, EncodingTyped}
}

// Supported reports whether v is a known encoding version.
func (v EncodingVersion) Supported() bool {
	return v >= EncodingPlain && v <= EncodingTyped
}

func (v EncodingVersion) String() string {
	switch v {
	case EncodingPlain:
		return "plain"
	case EncodingLegacyHardware:
		return "legacy-hardware"
	case EncodingTyped:
		return "typed"
	}
	return fmt.Sprintf("unknown(%d)", uint8(v))
}

// Request is a single delegated operation as submitted by a relayer.
// The ledger (scope) address is not part of the request: it is the identity of
// the executor the request is submitted to.
type Request struct {
	// Mode is the operation being authorized.
	Mode Mode

	// To is the recipient (Transfer) or the spender (approval modes).
	To common.Address

	// Amount is the operation magnitude in atomic units.
	Amount *uint256.Int

	// Fee is paid from the signer's balance to the relayer.
	Fee *uint256.Int

	// Nonce is the signer's claimed next sequence number.
	Nonce *uint256.Int

	// Version selects the hashing convention of Signature.
	Version EncodingVersion

	// Signature is the 65-byte r||s||v signature, or a 64-byte compact one.
	Signature []byte

	// From optionally pins the expected signer. When set, a signature that
	// recovers to any other address is rejected as invalid.
	From common.Address
}

// Fields returns the signed field tuple bound to the given scope.
func (r *Request) Fields(scope common.Address) Fields {
	return Fields{
		Mode:   r.Mode,
		Scope:  scope,
		To:     r.To,
		Amount: orZero(r.Amount),
		Fee:    orZero(r.Fee),
		Nonce:  orZero(r.Nonce),
	}
}

// Fields is the tuple every signature binds: (mode, scope, to, amount, fee, nonce).
type Fields struct {
	Mode   Mode
	Scope  common.Address
	To     common.Address
	Amount *uint256.Int
	Fee    *uint256.Int
	Nonce  *uint256.Int
}

// SignedRequest is the JSON wire form of a Request. Integers are decimal
// strings and the signature is 0x-prefixed hex.
type SignedRequest struct {
	// Mode is the wire tag ("Transfer", "Approval", "IncApprv", "DecApprv").
	Mode string `json:"mode"`

	// To is the recipient or spender address.
	To string `json:"to"`

	// Amount is the operation magnitude in atomic units.
	Amount string `json:"amount"`

	// Fee is the relayer fee in atomic units.
	Fee string `json:"fee"`

	// Nonce is the signer's sequence number.
	Nonce string `json:"nonce"`

	// Version is the encoding version (1, 2 or 3).
	Version uint8 `json:"version"`

	// Signature is the hex-encoded signature.
	Signature string `json:"signature"`

	// Signer optionally names the expected signer. The executor still recovers
	// the signer from the signature and rejects the request if they differ.
	Signer string `json:"signer,omitempty"`
}

// Receipt describes a successfully executed (or verified) operation.
type Receipt struct {
	// ID uniquely identifies the execution.
	ID string `json:"id"`

	// Mode is the wire tag of the executed operation.
	Mode string `json:"mode"`

	// Signer is the recovered authorizer.
	Signer string `json:"signer"`

	// To is the recipient or spender.
	To string `json:"to"`

	// Relayer is the account that collected the fee.
	Relayer string `json:"relayer"`

	// Amount, Fee, and Nonce echo the executed request.
	Amount string `json:"amount"`
	Fee    string `json:"fee"`
	Nonce  string `json:"nonce"`

	// Scope is the ledger the operation was applied to.
	Scope string `json:"scope"`

	// Committed is false for dry runs.
	Committed bool `json:"committed"`
}

// VerifyResponse is returned by the relayer /verify endpoint.
type VerifyResponse struct {
	// IsValid indicates whether the request would execute successfully.
	IsValid bool `json:"isValid"`

	// InvalidReason is the error code if the request is invalid.
	InvalidReason string `json:"invalidReason,omitempty"`

	// InvalidMessage is a human-readable reason if the request is invalid.
	InvalidMessage string `json:"invalidMessage,omitempty"`

	// Signer is the recovered signer, when recovery succeeded.
	Signer string `json:"signer,omitempty"`
}

// ExecuteResponse is returned by the relayer /execute endpoint.
type ExecuteResponse struct {
	// Success indicates whether the operation was committed.
	Success bool `json:"success"`

	// ErrorReason is the error code if the operation failed.
	ErrorReason string `json:"errorReason,omitempty"`

	// ErrorMessage is a human-readable reason if the operation failed.
	ErrorMessage string `json:"errorMessage,omitempty"`

	// Receipt is set on success.
	Receipt *Receipt `json:"receipt,omitempty"`
}

// AccountState is a read-only snapshot of an account.
type AccountState struct {
	Address   string `json:"address"`
	Balance   string `json:"balance"`
	NextNonce uint64 `json:"nextNonce"`
	Frozen    bool   `json:"frozen"`
}

// AllowanceState is a read-only snapshot of one allowance.
type AllowanceState struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// SupportedResponse is returned by the relayer /supported endpoint.
type SupportedResponse struct {
	// Scope is the ledger identity signatures must be bound to.
	Scope Scope `json:"scope"`

	// Modes lists the accepted mode tags.
	Modes []string `json:"modes"`

	// Versions lists the accepted encoding version numbers.
	Versions []int `json:"versions"`

	// Relayer is the address that collects fees on this relayer.
	Relayer string `json:"relayer"`
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
