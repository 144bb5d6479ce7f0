package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
)

// Operation is a balance mutation authorized by Signer and submitted by Relayer.
type Operation struct {
	Mode    presigned.Mode
	Signer  common.Address
	To      common.Address
	Relayer common.Address
	Amount  *uint256.Int
	Fee     *uint256.Int
}

// Apply performs op inside tx. On error the caller must roll tx back: Apply
// may already have written part of the mutation.
func Apply(tx Tx, op Operation) error {
	switch op.Mode {
	case presigned.ModeTransfer:
		return Transfer(tx, op)
	case presigned.ModeApprove:
		return Approve(tx, op)
	case presigned.ModeIncreaseApproval:
		return IncreaseApproval(tx, op)
	case presigned.ModeDecreaseApproval:
		return DecreaseApproval(tx, op)
	}
	return presigned.NewAuthError(presigned.ErrCodeMalformedRequest, "unknown operation mode", presigned.ErrInvalidMode).
		WithDetails("mode", op.Mode.String())
}

// Transfer moves Amount from Signer to To and Fee from Signer to Relayer.
func Transfer(tx Tx, op Operation) error {
	if err := checkActive(tx, op); err != nil {
		return err
	}

	total, overflow := new(uint256.Int).AddOverflow(amountOf(op), feeOf(op))
	if overflow {
		return overflowError("amount plus fee", op.Signer)
	}
	if err := debit(tx, op.Signer, total); err != nil {
		return err
	}
	if err := credit(tx, op.To, amountOf(op)); err != nil {
		return err
	}
	return credit(tx, op.Relayer, feeOf(op))
}

// Approve sets the allowance of To over Signer's balance to Amount,
// replacing any previous value.
func Approve(tx Tx, op Operation) error {
	if err := checkActive(tx, op); err != nil {
		return err
	}
	if err := checkFee(tx, op); err != nil {
		return err
	}
	if err := tx.SetAllowance(op.Signer, op.To, amountOf(op)); err != nil {
		return err
	}
	return payFee(tx, op)
}

// IncreaseApproval adds Amount to the allowance of To over Signer's balance.
func IncreaseApproval(tx Tx, op Operation) error {
	if err := checkActive(tx, op); err != nil {
		return err
	}
	if err := checkFee(tx, op); err != nil {
		return err
	}

	current, err := tx.Allowance(op.Signer, op.To)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(current, amountOf(op))
	if overflow {
		return overflowError("allowance", op.Signer).WithDetails("spender", op.To.Hex())
	}
	if err := tx.SetAllowance(op.Signer, op.To, next); err != nil {
		return err
	}
	return payFee(tx, op)
}

// DecreaseApproval subtracts Amount from the allowance of To over Signer's
// balance. Decreasing past zero leaves the allowance at zero.
func DecreaseApproval(tx Tx, op Operation) error {
	if err := checkActive(tx, op); err != nil {
		return err
	}
	if err := checkFee(tx, op); err != nil {
		return err
	}

	current, err := tx.Allowance(op.Signer, op.To)
	if err != nil {
		return err
	}
	next, underflow := new(uint256.Int).SubOverflow(current, amountOf(op))
	if underflow {
		next.Clear()
	}
	if err := tx.SetAllowance(op.Signer, op.To, next); err != nil {
		return err
	}
	return payFee(tx, op)
}

func checkActive(tx Tx, op Operation) error {
	paused, err := tx.Paused()
	if err != nil {
		return err
	}
	if paused {
		return presigned.NewAuthError(presigned.ErrCodeSystemPaused, "ledger is paused", presigned.ErrSystemPaused)
	}

	for _, addr := range []common.Address{op.Signer, op.To} {
		frozen, err := tx.Frozen(addr)
		if err != nil {
			return err
		}
		if frozen {
			return presigned.NewAuthError(presigned.ErrCodeAccountFrozen, "account is frozen", presigned.ErrAccountFrozen).
				WithDetails("account", addr.Hex())
		}
	}
	return nil
}

func checkFee(tx Tx, op Operation) error {
	balance, err := tx.Balance(op.Signer)
	if err != nil {
		return err
	}
	if balance.Lt(feeOf(op)) {
		return insufficientError(op.Signer, balance, feeOf(op))
	}
	return nil
}

func payFee(tx Tx, op Operation) error {
	fee := feeOf(op)
	if fee.IsZero() {
		return nil
	}
	if err := debit(tx, op.Signer, fee); err != nil {
		return err
	}
	return credit(tx, op.Relayer, fee)
}

func debit(tx Tx, addr common.Address, amount *uint256.Int) error {
	balance, err := tx.Balance(addr)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return insufficientError(addr, balance, amount)
	}
	return tx.SetBalance(addr, balance.Sub(balance, amount))
}

func credit(tx Tx, addr common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	balance, err := tx.Balance(addr)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return overflowError("balance", addr)
	}
	return tx.SetBalance(addr, next)
}

func insufficientError(addr common.Address, balance, required *uint256.Int) *presigned.AuthError {
	return presigned.NewAuthError(presigned.ErrCodeInsufficientBalance, "insufficient balance", presigned.ErrInsufficientBalance).
		WithDetails("account", addr.Hex()).
		WithDetails("balance", balance.Dec()).
		WithDetails("required", required.Dec())
}

func overflowError(what string, addr common.Address) *presigned.AuthError {
	return presigned.NewAuthError(presigned.ErrCodeArithmeticOverflow, what+" overflows 256 bits", presigned.ErrArithmeticOverflow).
		WithDetails("account", addr.Hex())
}

func amountOf(op Operation) *uint256.Int {
	if op.Amount == nil {
		return new(uint256.Int)
	}
	return op.Amount
}

func feeOf(op Operation) *uint256.Int {
	if op.Fee == nil {
		return new(uint256.Int)
	}
	return op.Fee
}

// Account returns a snapshot of addr.
func Account(ctx context.Context, store Store, addr common.Address) (*presigned.AccountState, error) {
	account := &presigned.AccountState{Address: addr.Hex()}
	err := store.View(ctx, func(tx Tx) error {
		balance, err := tx.Balance(addr)
		if err != nil {
			return err
		}
		account.Balance = balance.Dec()

		if account.NextNonce, err = tx.NextNonce(addr); err != nil {
			return err
		}
		account.Frozen, err = tx.Frozen(addr)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read account %s: %w", addr.Hex(), err)
	}
	return account, nil
}

// Allowance returns how much spender may move on behalf of owner.
func Allowance(ctx context.Context, store Store, owner, spender common.Address) (*uint256.Int, error) {
	var allowance *uint256.Int
	err := store.View(ctx, func(tx Tx) error {
		var err error
		allowance, err = tx.Allowance(owner, spender)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read allowance: %w", err)
	}
	return allowance, nil
}
