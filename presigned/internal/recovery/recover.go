// Package recovery recovers the secp256k1 signer of a presigned operation.
// Every failure is reported as presigned.ErrInvalidSignature; a recovered
// address is never the zero address.
package recovery

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
)

const (
	// SignatureLength is the r || s || v form.
	SignatureLength = crypto.SignatureLength

	// CompactSignatureLength is the EIP-2098 r || yParityAndS form.
	CompactSignatureLength = 64
)

// Recover returns the address whose key produced sig over hash.
//
// sig is either 65 bytes (r || s || v with v in {0, 1, 27, 28}) or 64 bytes
// (EIP-2098 compact). Signatures with s in the upper half of the curve order
// are rejected.
func Recover(hash []byte, sig []byte) (common.Address, error) {
	if len(hash) != common.HashLength {
		return common.Address{}, invalid("hash must be 32 bytes", fmt.Sprintf("got %d bytes", len(hash)))
	}

	normalized, err := Normalize(sig)
	if err != nil {
		return common.Address{}, err
	}

	r := new(big.Int).SetBytes(normalized[:32])
	s := new(big.Int).SetBytes(normalized[32:64])
	v := normalized[64]
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, invalid("signature values out of range", "")
	}

	pubKey, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return common.Address{}, invalid("public key recovery failed", err.Error())
	}

	signer := crypto.PubkeyToAddress(*pubKey)
	if signer == (common.Address{}) {
		return common.Address{}, invalid("recovered zero address", "")
	}
	return signer, nil
}

// Normalize returns the 65-byte r || s || v form with v in {0, 1}, the layout
// go-ethereum's crypto package expects. The input is not modified.
func Normalize(sig []byte) ([]byte, error) {
	out := make([]byte, SignatureLength)

	switch len(sig) {
	case SignatureLength:
		copy(out, sig)
		switch v := out[64]; v {
		case 0, 1:
		case 27, 28:
			out[64] = v - 27
		default:
			return nil, invalid("invalid recovery id", fmt.Sprintf("v=%d", v))
		}

	case CompactSignatureLength:
		copy(out[:32], sig[:32])
		copy(out[32:64], sig[32:64])
		out[64] = out[32] >> 7
		out[32] &= 0x7f

	default:
		return nil, invalid("invalid signature length", fmt.Sprintf("got %d bytes", len(sig)))
	}

	return out, nil
}

func invalid(message, detail string) error {
	err := presigned.NewAuthError(presigned.ErrCodeInvalidSignature, message, presigned.ErrInvalidSignature)
	if detail != "" {
		err = err.WithDetails("reason", detail)
	}
	return err
}
