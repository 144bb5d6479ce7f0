package presigned

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Signer produces signed requests for one ledger scope.
type Signer interface {
	// Address returns the account that signs.
	Address() common.Address

	// Scope returns the ledger the signatures are bound to.
	Scope() Scope

	// Version returns the encoding used for new signatures.
	Version() EncodingVersion

	// Sign authorizes a single operation. The returned request carries the
	// signature and the signer's address in From.
	Sign(mode Mode, to common.Address, amount, fee, nonce *uint256.Int) (*Request, error)

	// GetMaxAmount returns the per-operation limit, or nil if no limit is set.
	GetMaxAmount() *uint256.Int
}
