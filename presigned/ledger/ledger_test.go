package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
)

var (
	signer  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	target  = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	relayer = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func maxUint256() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

func seededStore(t *testing.T, balance uint64) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.Credit(context.Background(), signer, uint256.NewInt(balance)))
	return store
}

func balanceOf(t *testing.T, store Store, addr common.Address) uint64 {
	t.Helper()
	account, err := Account(context.Background(), store, addr)
	require.NoError(t, err)
	v, err := uint256.FromDecimal(account.Balance)
	require.NoError(t, err)
	return v.Uint64()
}

func allowanceOf(t *testing.T, store Store, owner, spender common.Address) *uint256.Int {
	t.Helper()
	v, err := Allowance(context.Background(), store, owner, spender)
	require.NoError(t, err)
	return v
}

func apply(store Store, op Operation) error {
	return store.Update(context.Background(), func(tx Tx) error {
		return Apply(tx, op)
	})
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	store := seededStore(t, 100)
	boom := errors.New("boom")

	err := store.Update(context.Background(), func(tx Tx) error {
		require.NoError(t, tx.SetBalance(signer, uint256.NewInt(1)))
		require.NoError(t, tx.SetNextNonce(signer, 7))
		require.NoError(t, tx.SetAllowance(signer, target, uint256.NewInt(9)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, uint64(100), balanceOf(t, store, signer))
	nonce, err := NextNonce(context.Background(), store, signer)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce)
	assert.True(t, allowanceOf(t, store, signer, target).IsZero())
}

func TestMemoryStore_ReadsObserveOwnWrites(t *testing.T) {
	store := NewMemoryStore()

	err := store.Update(context.Background(), func(tx Tx) error {
		require.NoError(t, tx.SetBalance(signer, uint256.NewInt(42)))
		got, err := tx.Balance(signer)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), got.Uint64())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), balanceOf(t, store, signer))
}

func TestMemoryStore_ReturnedValuesAreCopies(t *testing.T) {
	store := seededStore(t, 100)

	err := store.View(context.Background(), func(tx Tx) error {
		b, err := tx.Balance(signer)
		require.NoError(t, err)
		b.SetUint64(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balanceOf(t, store, signer))
}

func TestMemoryStore_ViewIsReadOnly(t *testing.T) {
	store := NewMemoryStore()
	err := store.View(context.Background(), func(tx Tx) error {
		return tx.SetBalance(signer, uint256.NewInt(1))
	})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.Update(ctx, func(tx Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestCheckAndReserve(t *testing.T) {
	store := NewMemoryStore()
	reserve := func(n *uint256.Int) error {
		return store.Update(context.Background(), func(tx Tx) error {
			return CheckAndReserve(tx, signer, n)
		})
	}

	require.NoError(t, reserve(uint256.NewInt(0)))
	require.NoError(t, reserve(uint256.NewInt(1)))

	tests := []struct {
		name  string
		nonce *uint256.Int
	}{
		{name: "replay", nonce: uint256.NewInt(1)},
		{name: "skip ahead", nonce: uint256.NewInt(3)},
		{name: "beyond 64 bits", nonce: maxUint256()},
		{name: "nil", nonce: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reserve(tt.nonce)
			require.ErrorIs(t, err, presigned.ErrNonceMismatch)
			assert.Equal(t, presigned.ErrCodeNonceMismatch, presigned.CodeOf(err))
		})
	}

	next, err := NextNonce(context.Background(), store, signer)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next)

	other, err := NextNonce(context.Background(), store, target)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), other, "nonces are per signer")
}

func TestTransfer(t *testing.T) {
	store := seededStore(t, 5000)

	err := apply(store, Operation{
		Mode: presigned.ModeTransfer, Signer: signer, To: target, Relayer: relayer,
		Amount: uint256.NewInt(500), Fee: uint256.NewInt(10),
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(4490), balanceOf(t, store, signer))
	assert.Equal(t, uint64(500), balanceOf(t, store, target))
	assert.Equal(t, uint64(10), balanceOf(t, store, relayer))
}

func TestTransfer_Aliasing(t *testing.T) {
	t.Run("self transfer", func(t *testing.T) {
		store := seededStore(t, 100)
		err := apply(store, Operation{
			Mode: presigned.ModeTransfer, Signer: signer, To: signer, Relayer: relayer,
			Amount: uint256.NewInt(60), Fee: uint256.NewInt(5),
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(95), balanceOf(t, store, signer))
		assert.Equal(t, uint64(5), balanceOf(t, store, relayer))
	})

	t.Run("signer is relayer", func(t *testing.T) {
		store := seededStore(t, 100)
		err := apply(store, Operation{
			Mode: presigned.ModeTransfer, Signer: signer, To: target, Relayer: signer,
			Amount: uint256.NewInt(60), Fee: uint256.NewInt(5),
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(40), balanceOf(t, store, signer))
		assert.Equal(t, uint64(60), balanceOf(t, store, target))
	})
}

func TestTransfer_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		balance uint64
		setup   func(t *testing.T, store *MemoryStore)
		op      Operation
		wantErr error
	}{
		{
			name:    "insufficient for amount plus fee",
			balance: 509,
			op:      Operation{Amount: uint256.NewInt(500), Fee: uint256.NewInt(10)},
			wantErr: presigned.ErrInsufficientBalance,
		},
		{
			name:    "amount plus fee overflows",
			balance: 100,
			op:      Operation{Amount: maxUint256(), Fee: uint256.NewInt(1)},
			wantErr: presigned.ErrArithmeticOverflow,
		},
		{
			name:    "signer frozen",
			balance: 100,
			setup: func(t *testing.T, store *MemoryStore) {
				require.NoError(t, store.SetFrozen(context.Background(), signer, true))
			},
			op:      Operation{Amount: uint256.NewInt(1)},
			wantErr: presigned.ErrAccountFrozen,
		},
		{
			name:    "target frozen",
			balance: 100,
			setup: func(t *testing.T, store *MemoryStore) {
				require.NoError(t, store.SetFrozen(context.Background(), target, true))
			},
			op:      Operation{Amount: uint256.NewInt(1)},
			wantErr: presigned.ErrAccountFrozen,
		},
		{
			name:    "paused",
			balance: 100,
			setup: func(t *testing.T, store *MemoryStore) {
				require.NoError(t, store.SetPaused(context.Background(), true))
			},
			op:      Operation{Amount: uint256.NewInt(1)},
			wantErr: presigned.ErrSystemPaused,
		},
		{
			name:    "credit overflows target",
			balance: 100,
			setup: func(t *testing.T, store *MemoryStore) {
				require.NoError(t, store.Credit(context.Background(), target, maxUint256()))
			},
			op:      Operation{Amount: uint256.NewInt(1)},
			wantErr: presigned.ErrArithmeticOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore(t, tt.balance)
			if tt.setup != nil {
				tt.setup(t, store)
			}
			op := tt.op
			op.Mode, op.Signer, op.To, op.Relayer = presigned.ModeTransfer, signer, target, relayer

			err := apply(store, op)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.balance, balanceOf(t, store, signer), "signer balance must be unchanged")
			assert.Equal(t, uint64(0), balanceOf(t, store, relayer), "relayer must not be paid")
		})
	}
}

func TestApprove_Overwrites(t *testing.T) {
	store := seededStore(t, 100)

	op := Operation{Mode: presigned.ModeApprove, Signer: signer, To: target, Relayer: relayer,
		Amount: uint256.NewInt(300), Fee: uint256.NewInt(2)}
	require.NoError(t, apply(store, op))

	op.Amount = uint256.NewInt(50)
	require.NoError(t, apply(store, op))

	assert.Equal(t, uint64(50), allowanceOf(t, store, signer, target).Uint64())
	assert.Equal(t, uint64(96), balanceOf(t, store, signer))
	assert.Equal(t, uint64(4), balanceOf(t, store, relayer))
}

func TestApprove_AllowanceMayExceedBalance(t *testing.T) {
	store := seededStore(t, 10)
	op := Operation{Mode: presigned.ModeApprove, Signer: signer, To: target, Relayer: relayer,
		Amount: maxUint256(), Fee: uint256.NewInt(10)}
	require.NoError(t, apply(store, op))

	assert.True(t, allowanceOf(t, store, signer, target).Eq(maxUint256()))
	assert.Equal(t, uint64(0), balanceOf(t, store, signer))
}

func TestApprovalModes_RequireFee(t *testing.T) {
	for _, mode := range []presigned.Mode{presigned.ModeApprove, presigned.ModeIncreaseApproval, presigned.ModeDecreaseApproval} {
		t.Run(mode.String(), func(t *testing.T) {
			store := seededStore(t, 4)
			err := apply(store, Operation{Mode: mode, Signer: signer, To: target, Relayer: relayer,
				Amount: uint256.NewInt(1), Fee: uint256.NewInt(5)})
			require.ErrorIs(t, err, presigned.ErrInsufficientBalance)
			assert.Equal(t, presigned.ErrCodeInsufficientBalance, presigned.CodeOf(err))
			assert.True(t, allowanceOf(t, store, signer, target).IsZero())
		})
	}
}

func TestIncreaseApproval(t *testing.T) {
	store := seededStore(t, 100)
	op := Operation{Mode: presigned.ModeIncreaseApproval, Signer: signer, To: target, Relayer: relayer,
		Amount: uint256.NewInt(40), Fee: uint256.NewInt(1)}

	require.NoError(t, apply(store, op))
	require.NoError(t, apply(store, op))
	assert.Equal(t, uint64(80), allowanceOf(t, store, signer, target).Uint64())
	assert.Equal(t, uint64(98), balanceOf(t, store, signer))
}

func TestIncreaseApproval_Overflow(t *testing.T) {
	store := seededStore(t, 100)
	require.NoError(t, apply(store, Operation{Mode: presigned.ModeApprove, Signer: signer, To: target, Relayer: relayer,
		Amount: uint256.NewInt(1)}))

	err := apply(store, Operation{Mode: presigned.ModeIncreaseApproval, Signer: signer, To: target, Relayer: relayer,
		Amount: maxUint256(), Fee: uint256.NewInt(3)})
	require.ErrorIs(t, err, presigned.ErrArithmeticOverflow)
	assert.Equal(t, presigned.ErrCodeArithmeticOverflow, presigned.CodeOf(err))

	assert.Equal(t, uint64(1), allowanceOf(t, store, signer, target).Uint64())
	assert.Equal(t, uint64(100), balanceOf(t, store, signer))
}

func TestDecreaseApproval_Saturates(t *testing.T) {
	store := seededStore(t, 100)
	require.NoError(t, apply(store, Operation{Mode: presigned.ModeApprove, Signer: signer, To: target, Relayer: relayer,
		Amount: uint256.NewInt(30)}))

	op := Operation{Mode: presigned.ModeDecreaseApproval, Signer: signer, To: target, Relayer: relayer,
		Amount: uint256.NewInt(20), Fee: uint256.NewInt(1)}
	require.NoError(t, apply(store, op))
	assert.Equal(t, uint64(10), allowanceOf(t, store, signer, target).Uint64())

	require.NoError(t, apply(store, op))
	assert.True(t, allowanceOf(t, store, signer, target).IsZero())

	op.Amount = maxUint256()
	require.NoError(t, apply(store, op))
	assert.True(t, allowanceOf(t, store, signer, target).IsZero())
	assert.Equal(t, uint64(97), balanceOf(t, store, signer))
}

func TestApply_UnknownMode(t *testing.T) {
	store := seededStore(t, 100)
	err := apply(store, Operation{Mode: presigned.Mode{'X'}, Signer: signer, To: target, Relayer: relayer})
	require.ErrorIs(t, err, presigned.ErrInvalidMode)
}

func TestAccount(t *testing.T) {
	store := seededStore(t, 5000)
	require.NoError(t, store.SetFrozen(context.Background(), signer, true))

	account, err := Account(context.Background(), store, signer)
	require.NoError(t, err)
	assert.Equal(t, signer.Hex(), account.Address)
	assert.Equal(t, "5000", account.Balance)
	assert.Equal(t, uint64(0), account.NextNonce)
	assert.True(t, account.Frozen)
}
