package ledger

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

type state struct {
	balances   map[common.Address]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	nonces     map[common.Address]uint64
	frozen     map[common.Address]bool
	paused     *bool
}

func newState() *state {
	return &state{
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		nonces:     make(map[common.Address]uint64),
		frozen:     make(map[common.Address]bool),
	}
}

// MemoryStore is an in-process Store. Writers are serialized; each Update
// buffers its writes and applies them to the committed state only on success.
type MemoryStore struct {
	mu        sync.RWMutex
	committed *state
}

// NewMemoryStore creates an empty store: every balance, allowance, and nonce
// is zero, no account is frozen, and the ledger is not paused.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{committed: newState()}
	paused := false
	s.committed.paused = &paused
	return s
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{base: s.committed, writes: newState(), writable: true}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// View implements Store.
func (s *MemoryStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&memoryTx{base: s.committed})
}

// Credit adds amount to the balance of addr.
func (s *MemoryStore) Credit(ctx context.Context, addr common.Address, amount *uint256.Int) error {
	return s.Update(ctx, func(tx Tx) error {
		return credit(tx, addr, amount)
	})
}

// SetFrozen sets the frozen flag of addr.
func (s *MemoryStore) SetFrozen(ctx context.Context, addr common.Address, frozen bool) error {
	return s.Update(ctx, func(tx Tx) error {
		tx.(*memoryTx).writes.frozen[addr] = frozen
		return nil
	})
}

// SetPaused sets the ledger-wide paused flag.
func (s *MemoryStore) SetPaused(ctx context.Context, paused bool) error {
	return s.Update(ctx, func(tx Tx) error {
		tx.(*memoryTx).writes.paused = &paused
		return nil
	})
}

type memoryTx struct {
	base     *state
	writes   *state
	writable bool
}

func (tx *memoryTx) Balance(addr common.Address) (*uint256.Int, error) {
	if tx.writes != nil {
		if v, ok := tx.writes.balances[addr]; ok {
			return v.Clone(), nil
		}
	}
	if v, ok := tx.base.balances[addr]; ok {
		return v.Clone(), nil
	}
	return new(uint256.Int), nil
}

func (tx *memoryTx) SetBalance(addr common.Address, value *uint256.Int) error {
	if !tx.writable {
		return ErrReadOnly
	}
	tx.writes.balances[addr] = value.Clone()
	return nil
}

func (tx *memoryTx) Allowance(owner, spender common.Address) (*uint256.Int, error) {
	key := allowanceKey{owner: owner, spender: spender}
	if tx.writes != nil {
		if v, ok := tx.writes.allowances[key]; ok {
			return v.Clone(), nil
		}
	}
	if v, ok := tx.base.allowances[key]; ok {
		return v.Clone(), nil
	}
	return new(uint256.Int), nil
}

func (tx *memoryTx) SetAllowance(owner, spender common.Address, value *uint256.Int) error {
	if !tx.writable {
		return ErrReadOnly
	}
	tx.writes.allowances[allowanceKey{owner: owner, spender: spender}] = value.Clone()
	return nil
}

func (tx *memoryTx) NextNonce(addr common.Address) (uint64, error) {
	if tx.writes != nil {
		if v, ok := tx.writes.nonces[addr]; ok {
			return v, nil
		}
	}
	return tx.base.nonces[addr], nil
}

func (tx *memoryTx) SetNextNonce(addr common.Address, nonce uint64) error {
	if !tx.writable {
		return ErrReadOnly
	}
	tx.writes.nonces[addr] = nonce
	return nil
}

func (tx *memoryTx) Frozen(addr common.Address) (bool, error) {
	if tx.writes != nil {
		if v, ok := tx.writes.frozen[addr]; ok {
			return v, nil
		}
	}
	return tx.base.frozen[addr], nil
}

func (tx *memoryTx) Paused() (bool, error) {
	if tx.writes != nil && tx.writes.paused != nil {
		return *tx.writes.paused, nil
	}
	return *tx.base.paused, nil
}

func (tx *memoryTx) commit() {
	for k, v := range tx.writes.balances {
		tx.base.balances[k] = v
	}
	for k, v := range tx.writes.allowances {
		tx.base.allowances[k] = v
	}
	for k, v := range tx.writes.nonces {
		tx.base.nonces[k] = v
	}
	for k, v := range tx.writes.frozen {
		tx.base.frozen[k] = v
	}
	if tx.writes.paused != nil {
		tx.base.paused = tx.writes.paused
	}
}
