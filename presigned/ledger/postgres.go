package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// serializationFailure is the SQLSTATE Postgres reports when a serializable
// transaction loses a conflict.
const serializationFailure = "40001"

const schema = `
CREATE TABLE IF NOT EXISTS presigned_accounts (
	scope      TEXT           NOT NULL,
	address    TEXT           NOT NULL,
	balance    NUMERIC(78, 0) NOT NULL DEFAULT 0 CHECK (balance >= 0),
	next_nonce NUMERIC(20, 0) NOT NULL DEFAULT 0 CHECK (next_nonce >= 0),
	frozen     BOOLEAN        NOT NULL DEFAULT FALSE,
	PRIMARY KEY (scope, address)
);

CREATE TABLE IF NOT EXISTS presigned_allowances (
	scope   TEXT           NOT NULL,
	owner   TEXT           NOT NULL,
	spender TEXT           NOT NULL,
	amount  NUMERIC(78, 0) NOT NULL DEFAULT 0 CHECK (amount >= 0),
	PRIMARY KEY (scope, owner, spender)
);

CREATE TABLE IF NOT EXISTS presigned_ledgers (
	scope  TEXT    PRIMARY KEY,
	paused BOOLEAN NOT NULL DEFAULT FALSE
);
`

// PostgresStore keeps ledger state in Postgres. Several ledgers can share one
// database; rows are keyed by the scope address given to NewPostgresStore.
type PostgresStore struct {
	pool       *pgxpool.Pool
	scope      string
	maxRetries uint64
	logger     *slog.Logger
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithMaxRetries sets how many times a transaction is retried after a
// serialization failure. Other errors are never retried.
func WithMaxRetries(n uint64) PostgresOption {
	return func(s *PostgresStore) {
		s.maxRetries = n
	}
}

// WithLogger sets the logger used for retry and rollback diagnostics.
func WithLogger(logger *slog.Logger) PostgresOption {
	return func(s *PostgresStore) {
		s.logger = logger
	}
}

// NewPostgresStore returns a store for the ledger identified by scope.
func NewPostgresStore(pool *pgxpool.Pool, scope common.Address, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		pool:       pool,
		scope:      addressKey(scope),
		maxRetries: 3,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the ledger tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate ledger schema: %w", err)
	}
	return nil
}

// Update implements Store. fn runs in a serializable transaction and may be
// invoked more than once if Postgres reports a serialization failure.
func (s *PostgresStore) Update(ctx context.Context, fn func(Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite}

	attempt := 0
	operation := func() error {
		attempt++
		err := s.withTx(ctx, opts, true, fn)
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailure {
			s.logger.Warn("ledger transaction serialization failure, retrying",
				"scope", s.scope,
				"attempt", attempt,
				"error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxRetries), ctx)
	return backoff.Retry(operation, policy)
}

// View implements Store.
func (s *PostgresStore) View(ctx context.Context, fn func(Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	return s.withTx(ctx, opts, false, fn)
}

func (s *PostgresStore) withTx(ctx context.Context, opts pgx.TxOptions, writable bool, fn func(Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.logger.Error("failed to rollback ledger transaction",
				"scope", s.scope,
				"error", rollbackErr)
		}
	}()

	if err := fn(&pgTx{ctx: ctx, tx: tx, scope: s.scope, writable: writable}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Credit adds amount to the balance of addr.
func (s *PostgresStore) Credit(ctx context.Context, addr common.Address, amount *uint256.Int) error {
	return s.Update(ctx, func(tx Tx) error {
		return credit(tx, addr, amount)
	})
}

// SetFrozen sets the frozen flag of addr.
func (s *PostgresStore) SetFrozen(ctx context.Context, addr common.Address, frozen bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO presigned_accounts (scope, address, frozen) VALUES ($1, $2, $3)
		ON CONFLICT (scope, address) DO UPDATE SET frozen = EXCLUDED.frozen`,
		s.scope, addressKey(addr), frozen)
	if err != nil {
		return fmt.Errorf("failed to set frozen flag: %w", err)
	}
	return nil
}

// SetPaused sets the ledger-wide paused flag.
func (s *PostgresStore) SetPaused(ctx context.Context, paused bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO presigned_ledgers (scope, paused) VALUES ($1, $2)
		ON CONFLICT (scope) DO UPDATE SET paused = EXCLUDED.paused`,
		s.scope, paused)
	if err != nil {
		return fmt.Errorf("failed to set paused flag: %w", err)
	}
	return nil
}

// pgTx moves 256-bit integers as decimal text so no precision is lost in
// driver conversions.
type pgTx struct {
	ctx      context.Context
	tx       pgx.Tx
	scope    string
	writable bool
}

func (t *pgTx) lock() string {
	if t.writable {
		return " FOR UPDATE"
	}
	return ""
}

func (t *pgTx) Balance(addr common.Address) (*uint256.Int, error) {
	var text string
	err := t.tx.QueryRow(t.ctx,
		`SELECT balance::text FROM presigned_accounts WHERE scope = $1 AND address = $2`+t.lock(),
		t.scope, addressKey(addr)).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	return parseNumeric(text)
}

func (t *pgTx) SetBalance(addr common.Address, value *uint256.Int) error {
	if !t.writable {
		return ErrReadOnly
	}
	_, err := t.tx.Exec(t.ctx, `
		INSERT INTO presigned_accounts (scope, address, balance) VALUES ($1, $2, $3::text::numeric)
		ON CONFLICT (scope, address) DO UPDATE SET balance = EXCLUDED.balance`,
		t.scope, addressKey(addr), value.Dec())
	if err != nil {
		return fmt.Errorf("failed to write balance: %w", err)
	}
	return nil
}

func (t *pgTx) Allowance(owner, spender common.Address) (*uint256.Int, error) {
	var text string
	err := t.tx.QueryRow(t.ctx,
		`SELECT amount::text FROM presigned_allowances WHERE scope = $1 AND owner = $2 AND spender = $3`+t.lock(),
		t.scope, addressKey(owner), addressKey(spender)).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read allowance: %w", err)
	}
	return parseNumeric(text)
}

func (t *pgTx) SetAllowance(owner, spender common.Address, value *uint256.Int) error {
	if !t.writable {
		return ErrReadOnly
	}
	_, err := t.tx.Exec(t.ctx, `
		INSERT INTO presigned_allowances (scope, owner, spender, amount) VALUES ($1, $2, $3, $4::text::numeric)
		ON CONFLICT (scope, owner, spender) DO UPDATE SET amount = EXCLUDED.amount`,
		t.scope, addressKey(owner), addressKey(spender), value.Dec())
	if err != nil {
		return fmt.Errorf("failed to write allowance: %w", err)
	}
	return nil
}

func (t *pgTx) NextNonce(addr common.Address) (uint64, error) {
	var text string
	err := t.tx.QueryRow(t.ctx,
		`SELECT next_nonce::text FROM presigned_accounts WHERE scope = $1 AND address = $2`+t.lock(),
		t.scope, addressKey(addr)).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read nonce: %w", err)
	}
	n, err := parseNumeric(text)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("stored nonce %s exceeds 64 bits", text)
	}
	return n.Uint64(), nil
}

func (t *pgTx) SetNextNonce(addr common.Address, nonce uint64) error {
	if !t.writable {
		return ErrReadOnly
	}
	_, err := t.tx.Exec(t.ctx, `
		INSERT INTO presigned_accounts (scope, address, next_nonce) VALUES ($1, $2, $3::text::numeric)
		ON CONFLICT (scope, address) DO UPDATE SET next_nonce = EXCLUDED.next_nonce`,
		t.scope, addressKey(addr), new(uint256.Int).SetUint64(nonce).Dec())
	if err != nil {
		return fmt.Errorf("failed to write nonce: %w", err)
	}
	return nil
}

func (t *pgTx) Frozen(addr common.Address) (bool, error) {
	var frozen bool
	err := t.tx.QueryRow(t.ctx,
		`SELECT frozen FROM presigned_accounts WHERE scope = $1 AND address = $2`,
		t.scope, addressKey(addr)).Scan(&frozen)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read frozen flag: %w", err)
	}
	return frozen, nil
}

func (t *pgTx) Paused() (bool, error) {
	var paused bool
	err := t.tx.QueryRow(t.ctx,
		`SELECT paused FROM presigned_ledgers WHERE scope = $1`,
		t.scope).Scan(&paused)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read paused flag: %w", err)
	}
	return paused, nil
}

func parseNumeric(text string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(text)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", text, err)
	}
	return v, nil
}

func addressKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
