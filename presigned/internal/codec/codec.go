// Package codec builds the canonical message for a presigned operation and
// hashes it under each supported signing convention.
package codec

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/holiman/uint256"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
)

// PackedLength is the byte length of the packed field tuple:
// bytes8 + address + address + 3 * uint256.
const PackedLength = presigned.ModeLength + 2*common.AddressLength + 3*32

// PrimaryType is the EIP-712 struct name of a presigned operation.
const PrimaryType = "PreSigned"

// legacyHardwarePrefix encodes the digest length as one raw byte (0x20)
// instead of the decimal text "32".
var legacyHardwarePrefix = []byte("\x19Ethereum Signed Message:\n\x20")

// HashFunc computes the digest a signer signs for the given fields.
type HashFunc func(scope presigned.Scope, f presigned.Fields) ([]byte, error)

// hashers is the dispatch table from encoding version to hash convention.
var hashers = map[presigned.EncodingVersion]HashFunc{
	presigned.EncodingPlain:          plainHash,
	presigned.EncodingLegacyHardware: legacyHardwareHash,
	presigned.EncodingTyped:          TypedHash,
}

// Hash returns the digest of f under the given encoding version.
// f.Scope must equal scope.Address. Unknown versions fail with
// presigned.ErrUnsupportedEncoding.
func Hash(version presigned.EncodingVersion, scope presigned.Scope, f presigned.Fields) ([]byte, error) {
	hash, ok := hashers[version]
	if !ok {
		return nil, presigned.NewAuthError(presigned.ErrCodeUnsupportedEncoding,
			fmt.Sprintf("encoding version %d is not supported", version), presigned.ErrUnsupportedEncoding).
			WithDetails("version", uint8(version))
	}
	if f.Scope != scope.Address {
		return nil, fmt.Errorf("%w: fields bound to %s, scope is %s", presigned.ErrInvalidScope, f.Scope.Hex(), scope.Address.Hex())
	}
	return hash(scope, f)
}

// Packed returns the tightly packed field tuple, equivalent to Solidity's
// abi.encodePacked(bytes8 mode, address scope, address to, uint256 amount,
// uint256 fee, uint256 nonce).
func Packed(f presigned.Fields) []byte {
	buf := make([]byte, 0, PackedLength)
	buf = append(buf, f.Mode[:]...)
	buf = append(buf, f.Scope.Bytes()...)
	buf = append(buf, f.To.Bytes()...)
	buf = appendWord(buf, f.Amount)
	buf = appendWord(buf, f.Fee)
	buf = appendWord(buf, f.Nonce)
	return buf
}

func appendWord(buf []byte, v *uint256.Int) []byte {
	var word [32]byte
	if v != nil {
		word = v.Bytes32()
	}
	return append(buf, word[:]...)
}

// InnerHash is keccak256 of the packed tuple. Both prefixed conventions sign
// a wrapper around it.
func InnerHash(f presigned.Fields) common.Hash {
	return crypto.Keccak256Hash(Packed(f))
}

func plainHash(_ presigned.Scope, f presigned.Fields) ([]byte, error) {
	inner := InnerHash(f)
	return accounts.TextHash(inner.Bytes()), nil
}

func legacyHardwareHash(_ presigned.Scope, f presigned.Fields) ([]byte, error) {
	inner := InnerHash(f)
	return crypto.Keccak256(legacyHardwarePrefix, inner.Bytes()), nil
}

// TypedData returns the EIP-712 representation of f. Wallets that support
// typed data display the six fields from it before signing.
func TypedData(scope presigned.Scope, f presigned.Fields) (apitypes.TypedData, error) {
	chainID, err := scope.ChainID()
	if err != nil {
		return apitypes.TypedData{}, err
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			PrimaryType: []apitypes.Type{
				{Name: "mode", Type: "bytes8"},
				{Name: "token", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "amount", Type: "uint256"},
				{Name: "fee", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
			},
		},
		PrimaryType: PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              scope.Name,
			Version:           scope.Version,
			ChainId:           (*math.HexOrDecimal256)(chainID),
			VerifyingContract: scope.Address.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"mode":   hexutil.Bytes(f.Mode.Bytes()),
			"token":  f.Scope.Hex(),
			"to":     f.To.Hex(),
			"amount": (*math.HexOrDecimal256)(toBig(f.Amount)),
			"fee":    (*math.HexOrDecimal256)(toBig(f.Fee)),
			"nonce":  (*math.HexOrDecimal256)(toBig(f.Nonce)),
		},
	}, nil
}

// TypedHash is the EIP-712 digest keccak256(0x19 0x01 || domainSeparator || structHash).
func TypedHash(scope presigned.Scope, f presigned.Fields) ([]byte, error) {
	typedData, err := TypedData(scope, f)
	if err != nil {
		return nil, err
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	messageHash, err := typedData.HashStruct(PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	rawData := append([]byte{0x19, 0x01}, append(domainSeparator, messageHash...)...)
	return crypto.Keccak256(rawData), nil
}

func toBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}
