package ledger

import (
	"context"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
)

// CheckAndReserve consumes nonce for signer. It fails with
// presigned.ErrNonceMismatch unless nonce is exactly the stored next nonce,
// and otherwise advances the counter by one inside tx. All modes share the
// same counter.
func CheckAndReserve(tx Tx, signer common.Address, nonce *uint256.Int) error {
	expected, err := tx.NextNonce(signer)
	if err != nil {
		return err
	}

	if nonce == nil || !nonce.IsUint64() || nonce.Uint64() != expected {
		got := "<nil>"
		if nonce != nil {
			got = nonce.Dec()
		}
		return presigned.NewAuthError(presigned.ErrCodeNonceMismatch, "nonce is not the next expected value", presigned.ErrNonceMismatch).
			WithDetails("signer", signer.Hex()).
			WithDetails("expected", expected).
			WithDetails("got", got)
	}

	if expected == math.MaxUint64 {
		return presigned.NewAuthError(presigned.ErrCodeArithmeticOverflow, "nonce counter exhausted", presigned.ErrArithmeticOverflow).
			WithDetails("signer", signer.Hex())
	}

	return tx.SetNextNonce(signer, expected+1)
}

// NextNonce returns the nonce signer must use for its next operation.
func NextNonce(ctx context.Context, store Store, signer common.Address) (uint64, error) {
	var next uint64
	err := store.View(ctx, func(tx Tx) error {
		var err error
		next, err = tx.NextNonce(signer)
		return err
	})
	return next, err
}
