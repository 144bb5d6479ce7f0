package presigned

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// NewSignedRequest converts a Request into its JSON wire form.
func NewSignedRequest(req *Request) SignedRequest {
	sr := SignedRequest{
		Mode:      req.Mode.String(),
		To:        req.To.Hex(),
		Amount:    orZero(req.Amount).Dec(),
		Fee:       orZero(req.Fee).Dec(),
		Nonce:     orZero(req.Nonce).Dec(),
		Version:   uint8(req.Version),
		Signature: hexutil.Encode(req.Signature),
	}
	if req.From != (common.Address{}) {
		sr.Signer = req.From.Hex()
	}
	return sr
}

// Request decodes the wire form. It checks syntax only: unknown encoding
// versions and bad signatures are left for the executor to reject with their
// own error kinds.
func (s SignedRequest) Request() (*Request, error) {
	mode, err := ParseMode(s.Mode)
	if err != nil {
		return nil, NewAuthError(ErrCodeMalformedRequest, "invalid mode", err)
	}

	if !common.IsHexAddress(s.To) {
		return nil, NewAuthError(ErrCodeMalformedRequest, "invalid to address", ErrMalformedRequest).
			WithDetails("to", s.To)
	}

	amount, err := ParseUint256(s.Amount)
	if err != nil {
		return nil, NewAuthError(ErrCodeMalformedRequest, "invalid amount", err)
	}
	fee, err := ParseUint256(s.Fee)
	if err != nil {
		return nil, NewAuthError(ErrCodeMalformedRequest, "invalid fee", err)
	}
	nonce, err := ParseUint256(s.Nonce)
	if err != nil {
		return nil, NewAuthError(ErrCodeMalformedRequest, "invalid nonce", err)
	}

	sig, err := hexutil.Decode(withHexPrefix(s.Signature))
	if err != nil {
		return nil, NewAuthError(ErrCodeMalformedRequest, "invalid signature encoding",
			fmt.Errorf("%w: %v", ErrMalformedRequest, err))
	}

	var from common.Address
	if s.Signer != "" {
		if !common.IsHexAddress(s.Signer) {
			return nil, NewAuthError(ErrCodeMalformedRequest, "invalid signer address", ErrMalformedRequest).
				WithDetails("signer", s.Signer)
		}
		from = common.HexToAddress(s.Signer)
	}

	return &Request{
		From:      from,
		Mode:      mode,
		To:        common.HexToAddress(s.To),
		Amount:    amount,
		Fee:       fee,
		Nonce:     nonce,
		Version:   EncodingVersion(s.Version),
		Signature: sig,
	}, nil
}

// ParseUint256 parses a non-negative decimal (or 0x-prefixed hex) integer that
// fits in 256 bits. An empty string is rejected.
func ParseUint256(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty integer", ErrMalformedRequest)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := uint256.FromHex(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
		}
		return v, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedRequest, s, err)
	}
	return v, nil
}

// AmountToUint256 converts a decimal token amount to atomic units.
// For example, "1.5" with 18 decimals becomes 1500000000000000000.
// Returns ErrMalformedRequest if the amount is negative, has too many
// fractional digits, or does not fit in 256 bits.
func AmountToUint256(amount string, decimals int) (*uint256.Int, error) {
	if decimals < 0 {
		return nil, ErrMalformedRequest
	}

	value := new(big.Rat)
	if _, ok := value.SetString(amount); !ok {
		return nil, ErrMalformedRequest
	}
	if value.Sign() < 0 {
		return nil, ErrMalformedRequest
	}

	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value.Mul(value, scale)

	if value.Denom().Cmp(big.NewInt(1)) != 0 {
		return nil, ErrMalformedRequest
	}
	out, overflow := uint256.FromBig(value.Num())
	if overflow {
		return nil, ErrMalformedRequest
	}
	return out, nil
}

// Uint256ToAmount converts atomic units to a decimal string.
// For example, 1500000000000000000 with 18 decimals becomes "1.500000000000000000".
func Uint256ToAmount(value *uint256.Int, decimals int) string {
	if value == nil {
		return "0"
	}

	rat := new(big.Rat).SetInt(value.ToBig())
	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	rat.Quo(rat, scale)

	return rat.FloatString(decimals)
}

func withHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}
