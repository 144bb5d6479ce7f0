// Package evm signs presigned operations with secp256k1 keys under any of the
// supported encoding versions.
package evm

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
	"github.com/MuzikaFoundation/muzika-contract/presigned/internal/codec"
)

// Signer signs presigned operations with a secp256k1 key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	scope      presigned.Scope
	version    presigned.EncodingVersion
	compact    bool
	maxAmount  *uint256.Int
}

var _ presigned.Signer = (*Signer)(nil)

// Option configures a Signer.
type Option func(*Signer) error

func NewSigner(scope presigned.Scope, privateKeyHex string, opts ...Option) (*Signer, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, presigned.ErrInvalidKey
	}
	return NewSignerFromKey(scope, privateKey, opts...)
}

func NewSignerFromKey(scope presigned.Scope, key *ecdsa.PrivateKey, opts ...Option) (*Signer, error) {
	if key == nil {
		return nil, presigned.ErrInvalidKey
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	s := &Signer{
		privateKey: key,
		scope:      scope,
		version:    presigned.EncodingPlain,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.address = crypto.PubkeyToAddress(key.PublicKey)
	return s, nil
}

// WithVersion selects the encoding new signatures are produced under.
func WithVersion(version presigned.EncodingVersion) Option {
	return func(s *Signer) error {
		if !version.Supported() {
			return fmt.Errorf("%w: %d", presigned.ErrUnsupportedEncoding, version)
		}
		s.version = version
		return nil
	}
}

// WithCompactSignatures makes the signer emit 64-byte EIP-2098 signatures.
func WithCompactSignatures() Option {
	return func(s *Signer) error {
		s.compact = true
		return nil
	}
}

func WithMaxAmount(amount *uint256.Int) Option {
	return func(s *Signer) error {
		s.maxAmount = amount
		return nil
	}
}

func (s *Signer) Address() common.Address {
	return s.address
}

func (s *Signer) Scope() presigned.Scope {
	return s.scope
}

func (s *Signer) Version() presigned.EncodingVersion {
	return s.version
}

func (s *Signer) GetMaxAmount() *uint256.Int {
	return s.maxAmount
}

func (s *Signer) Sign(mode presigned.Mode, to common.Address, amount, fee, nonce *uint256.Int) (*presigned.Request, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", presigned.ErrInvalidMode, mode.String())
	}

	req := &presigned.Request{
		Mode:    mode,
		To:      to,
		Amount:  orZero(amount),
		Fee:     orZero(fee),
		Nonce:   orZero(nonce),
		Version: s.version,
		From:    s.address,
	}

	if s.maxAmount != nil && req.Amount.Gt(s.maxAmount) {
		return nil, presigned.ErrAmountExceeded
	}

	hash, err := codec.Hash(s.version, s.scope, req.Fields(s.scope.Address))
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign operation: %w", err)
	}

	if s.compact {
		signature[32] |= signature[64] << 7
		signature = signature[:64]
	} else {
		signature[64] += 27
	}
	req.Signature = signature

	return req, nil
}

// SignTransfer authorizes moving amount to to.
func (s *Signer) SignTransfer(to common.Address, amount, fee, nonce *uint256.Int) (*presigned.Request, error) {
	return s.Sign(presigned.ModeTransfer, to, amount, fee, nonce)
}

// SignApprove authorizes setting the allowance of spender to amount.
func (s *Signer) SignApprove(spender common.Address, amount, fee, nonce *uint256.Int) (*presigned.Request, error) {
	return s.Sign(presigned.ModeApprove, spender, amount, fee, nonce)
}

// SignIncreaseApproval authorizes adding amount to the allowance of spender.
func (s *Signer) SignIncreaseApproval(spender common.Address, amount, fee, nonce *uint256.Int) (*presigned.Request, error) {
	return s.Sign(presigned.ModeIncreaseApproval, spender, amount, fee, nonce)
}

// SignDecreaseApproval authorizes subtracting amount from the allowance of spender.
func (s *Signer) SignDecreaseApproval(spender common.Address, amount, fee, nonce *uint256.Int) (*presigned.Request, error) {
	return s.Sign(presigned.ModeDecreaseApproval, spender, amount, fee, nonce)
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
