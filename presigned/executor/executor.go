// Package executor runs presigned operations end to end: it hashes the
// request, recovers the signer, consumes the signer's nonce, applies the
// balance mutation, and only after the ledger transaction commits notifies
// observers.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
	"github.com/MuzikaFoundation/muzika-contract/presigned/internal/codec"
	"github.com/MuzikaFoundation/muzika-contract/presigned/internal/recovery"
	"github.com/MuzikaFoundation/muzika-contract/presigned/ledger"
)

// errDryRun aborts the ledger transaction of a Verify call after every check
// has passed.
var errDryRun = errors.New("executor: dry run")

// Executor applies presigned operations to one ledger. It is safe for
// concurrent use; atomicity of each operation is provided by the Store.
type Executor struct {
	scope     presigned.Scope
	store     ledger.Store
	timeouts  presigned.TimeoutConfig
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	callbacks []presigned.EventCallback
}

// Option configures an Executor.
type Option func(*Executor) error

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		e.logger = logger
		return nil
	}
}

// WithTimeouts bounds Verify and Execute calls.
func WithTimeouts(timeouts presigned.TimeoutConfig) Option {
	return func(e *Executor) error {
		if err := timeouts.Validate(); err != nil {
			return err
		}
		e.timeouts = timeouts
		return nil
	}
}

// WithEventCallback registers an observer for committed operations.
// Observers run in registration order, after the ledger commit.
func WithEventCallback(callback presigned.EventCallback) Option {
	return func(e *Executor) error {
		if callback == nil {
			return errors.New("event callback cannot be nil")
		}
		e.callbacks = append(e.callbacks, callback)
		return nil
	}
}

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) error {
		e.now = now
		return nil
	}
}

// WithIDGenerator sets the receipt id generator. Defaults to random UUIDs.
func WithIDGenerator(newID func() string) Option {
	return func(e *Executor) error {
		e.newID = newID
		return nil
	}
}

// New creates an executor for the ledger identified by scope.
func New(scope presigned.Scope, store ledger.Store, opts ...Option) (*Executor, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}

	e := &Executor{
		scope:    scope,
		store:    store,
		timeouts: presigned.DefaultTimeouts,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Scope returns the ledger identity signatures must be bound to.
func (e *Executor) Scope() presigned.Scope {
	return e.scope
}

// Execute applies req on behalf of its signer and pays req.Fee to relayer.
//
// Either every effect of the operation commits (nonce advance, balance and
// allowance updates, fee payment) or none does. The returned error wraps one
// of the presigned sentinel errors for every rejection.
func (e *Executor) Execute(ctx context.Context, relayer common.Address, req *presigned.Request) (*presigned.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeouts.ExecuteTimeout)
	defer cancel()

	event, err := e.run(ctx, relayer, req, true)
	if err != nil {
		e.reject(req, event.Signer, err)
		return nil, err
	}

	event.Timestamp = e.now()
	receipt := event.Receipt(e.newID(), e.scope.Address)

	e.logger.Debug("presigned operation committed",
		"id", receipt.ID,
		"mode", event.Mode.String(),
		"signer", event.Signer.Hex(),
		"to", event.To.Hex(),
		"nonce", event.Nonce.Dec(),
		"relayer", relayer.Hex())

	for _, callback := range e.callbacks {
		callback(event)
	}
	return receipt, nil
}

// Verify runs every check Execute would, against current state, and then
// discards all writes. A nil error means Execute would currently succeed.
func (e *Executor) Verify(ctx context.Context, relayer common.Address, req *presigned.Request) (*presigned.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeouts.VerifyTimeout)
	defer cancel()

	event, err := e.run(ctx, relayer, req, false)
	if err != nil {
		return nil, err
	}

	event.Timestamp = e.now()
	receipt := event.Receipt("", e.scope.Address)
	receipt.Committed = false
	return receipt, nil
}

// Recover returns the signer of req without touching the ledger.
func (e *Executor) Recover(req *presigned.Request) (common.Address, error) {
	if err := checkRequest(req); err != nil {
		return common.Address{}, err
	}
	hash, err := codec.Hash(req.Version, e.scope, req.Fields(e.scope.Address))
	if err != nil {
		return common.Address{}, err
	}
	signer, err := recovery.Recover(hash, req.Signature)
	if err != nil {
		return common.Address{}, err
	}
	if req.From != (common.Address{}) && req.From != signer {
		return common.Address{}, presigned.NewAuthError(presigned.ErrCodeInvalidSignature,
			"signature does not match the expected signer", presigned.ErrInvalidSignature).
			WithDetails("expected", req.From.Hex()).
			WithDetails("recovered", signer.Hex())
	}
	return signer, nil
}

func (e *Executor) run(ctx context.Context, relayer common.Address, req *presigned.Request, commit bool) (presigned.Event, error) {
	signer, err := e.Recover(req)
	if err != nil {
		return presigned.Event{}, err
	}

	fields := req.Fields(e.scope.Address)
	event := presigned.Event{
		Mode:    fields.Mode,
		Signer:  signer,
		To:      fields.To,
		Amount:  fields.Amount.Clone(),
		Fee:     fields.Fee.Clone(),
		Nonce:   fields.Nonce.Clone(),
		Relayer: relayer,
		Version: req.Version,
	}
	op := ledger.Operation{
		Mode:    fields.Mode,
		Signer:  signer,
		To:      fields.To,
		Relayer: relayer,
		Amount:  fields.Amount,
		Fee:     fields.Fee,
	}

	err = e.store.Update(ctx, func(tx ledger.Tx) error {
		if err := ledger.CheckAndReserve(tx, signer, fields.Nonce); err != nil {
			return err
		}
		if err := ledger.Apply(tx, op); err != nil {
			return err
		}
		if !commit {
			return errDryRun
		}
		return nil
	})
	if !commit && errors.Is(err, errDryRun) {
		err = nil
	}
	if err != nil {
		if presigned.CodeOf(err) == presigned.ErrCodeInternal {
			err = fmt.Errorf("ledger update failed: %w", err)
		}
		return event, err
	}
	return event, nil
}

func (e *Executor) reject(req *presigned.Request, signer common.Address, err error) {
	attrs := []any{"code", string(presigned.CodeOf(err)), "error", err}
	if req != nil {
		attrs = append(attrs, "mode", req.Mode.String(), "version", uint8(req.Version))
	}
	if signer != (common.Address{}) {
		attrs = append(attrs, "signer", signer.Hex())
	}
	e.logger.Warn("presigned operation rejected", attrs...)
}

func checkRequest(req *presigned.Request) error {
	if req == nil {
		return presigned.NewAuthError(presigned.ErrCodeMalformedRequest, "request cannot be nil", presigned.ErrMalformedRequest)
	}
	if !req.Mode.Valid() {
		return presigned.NewAuthError(presigned.ErrCodeMalformedRequest, "unknown operation mode", presigned.ErrInvalidMode).
			WithDetails("mode", req.Mode.String())
	}
	return nil
}

// Transfer moves amount from the signer to to, paying fee to relayer.
func (e *Executor) Transfer(ctx context.Context, relayer, to common.Address, amount, fee, nonce *uint256.Int, version presigned.EncodingVersion, sig []byte) (*presigned.Receipt, error) {
	return e.Execute(ctx, relayer, newRequest(presigned.ModeTransfer, to, amount, fee, nonce, version, sig))
}

// Approve sets the allowance of spender over the signer's balance to amount.
func (e *Executor) Approve(ctx context.Context, relayer, spender common.Address, amount, fee, nonce *uint256.Int, version presigned.EncodingVersion, sig []byte) (*presigned.Receipt, error) {
	return e.Execute(ctx, relayer, newRequest(presigned.ModeApprove, spender, amount, fee, nonce, version, sig))
}

// IncreaseApproval adds amount to the allowance of spender.
func (e *Executor) IncreaseApproval(ctx context.Context, relayer, spender common.Address, amount, fee, nonce *uint256.Int, version presigned.EncodingVersion, sig []byte) (*presigned.Receipt, error) {
	return e.Execute(ctx, relayer, newRequest(presigned.ModeIncreaseApproval, spender, amount, fee, nonce, version, sig))
}

// DecreaseApproval subtracts amount from the allowance of spender, stopping at zero.
func (e *Executor) DecreaseApproval(ctx context.Context, relayer, spender common.Address, amount, fee, nonce *uint256.Int, version presigned.EncodingVersion, sig []byte) (*presigned.Receipt, error) {
	return e.Execute(ctx, relayer, newRequest(presigned.ModeDecreaseApproval, spender, amount, fee, nonce, version, sig))
}

func newRequest(mode presigned.Mode, to common.Address, amount, fee, nonce *uint256.Int, version presigned.EncodingVersion, sig []byte) *presigned.Request {
	return &presigned.Request{
		Mode:      mode,
		To:        to,
		Amount:    amount,
		Fee:       fee,
		Nonce:     nonce,
		Version:   version,
		Signature: sig,
	}
}

// Account returns a snapshot of addr.
func (e *Executor) Account(ctx context.Context, addr common.Address) (*presigned.AccountState, error) {
	return ledger.Account(ctx, e.store, addr)
}

// Allowance returns how much spender may move on behalf of owner.
func (e *Executor) Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error) {
	return ledger.Allowance(ctx, e.store, owner, spender)
}

// NextNonce returns the nonce signer must use next.
func (e *Executor) NextNonce(ctx context.Context, signer common.Address) (uint64, error) {
	return ledger.NextNonce(ctx, e.store, signer)
}
