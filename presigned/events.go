package presigned

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Event is the audit record emitted after an operation commits.
// It is a pure side effect for indexers and is never used for control flow.
type Event struct {
	// Mode is the executed operation.
	Mode Mode

	// Signer is the recovered authorizer.
	Signer common.Address

	// To is the recipient or spender.
	To common.Address

	// Amount is the operation magnitude.
	Amount *uint256.Int

	// Fee is the amount credited to the relayer.
	Fee *uint256.Int

	// Nonce is the consumed sequence number.
	Nonce *uint256.Int

	// Relayer is the submitter that collected the fee.
	Relayer common.Address

	// Version is the encoding the signature was verified under.
	Version EncodingVersion

	// Timestamp is when the operation committed.
	Timestamp time.Time
}

// EventCallback receives committed events.
// Callbacks are invoked synchronously after the ledger transaction commits, so
// they observe final state and should be fast. For longer operations, consider
// using goroutines within the callback.
type EventCallback func(Event)

// Receipt converts the event to its wire form.
func (e Event) Receipt(id string, scope common.Address) *Receipt {
	return &Receipt{
		ID:        id,
		Mode:      e.Mode.String(),
		Signer:    e.Signer.Hex(),
		To:        e.To.Hex(),
		Relayer:   e.Relayer.Hex(),
		Amount:    orZero(e.Amount).Dec(),
		Fee:       orZero(e.Fee).Dec(),
		Nonce:     orZero(e.Nonce).Dec(),
		Scope:     scope.Hex(),
		Committed: true,
	}
}
