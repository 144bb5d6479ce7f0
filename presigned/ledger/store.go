// Package ledger holds the state a presigned operation reads and writes:
// balances, allowances, per-signer nonces, and the frozen and paused flags.
//
// All reads and writes happen through a Tx obtained from a Store. A Tx sees its
// own earlier writes, and nothing it wrote is visible to anyone else unless the
// function passed to Store.Update returns nil.
package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrReadOnly is returned by write methods of a Tx obtained from Store.View.
var ErrReadOnly = errors.New("ledger: read-only transaction")

// Tx is a view of ledger state inside one transaction.
// Returned balances and allowances are copies and may be modified by the caller.
type Tx interface {
	// Balance returns the balance of addr, zero for unknown accounts.
	Balance(addr common.Address) (*uint256.Int, error)

	// SetBalance overwrites the balance of addr.
	SetBalance(addr common.Address, value *uint256.Int) error

	// Allowance returns how much spender may move on behalf of owner.
	Allowance(owner, spender common.Address) (*uint256.Int, error)

	// SetAllowance overwrites the allowance of spender over owner's balance.
	SetAllowance(owner, spender common.Address, value *uint256.Int) error

	// NextNonce returns the next nonce addr must sign with.
	NextNonce(addr common.Address) (uint64, error)

	// SetNextNonce overwrites the next nonce of addr.
	SetNextNonce(addr common.Address, nonce uint64) error

	// Frozen reports whether addr is frozen.
	Frozen(addr common.Address) (bool, error)

	// Paused reports whether the whole ledger is paused.
	Paused() (bool, error)
}

// Store provides transactional access to ledger state.
type Store interface {
	// Update runs fn in a read-write transaction. The transaction commits
	// only if fn returns nil; any error rolls back every write fn made and
	// is returned unchanged or wrapped.
	Update(ctx context.Context, fn func(Tx) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error
}

// Admin is implemented by stores that let an operator seed balances and flip
// the frozen and paused flags. These flags are owned outside the presigned
// subsystem, which only reads them.
type Admin interface {
	Credit(ctx context.Context, addr common.Address, amount *uint256.Int) error
	SetFrozen(ctx context.Context, addr common.Address, frozen bool) error
	SetPaused(ctx context.Context, paused bool) error
}
