// Package relayer defines the interface for submitting presigned operations.
//
// A relayer accepts signed requests, checks them against the ledger, and
// executes them on the signer's behalf in exchange for the request's fee. Both
// the in-process implementation (Local) and the HTTP client satisfy this
// interface, so the HTTP and MCP servers can front either one.
package relayer

//go:generate mockgen -destination=mocks/mock_relayer.go -package=mocks github.com/MuzikaFoundation/muzika-contract/presigned/relayer Interface

import (
	"context"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
)

// Interface defines the standard relayer contract.
type Interface interface {
	// Verify checks a signed request without executing it. Rejections are
	// reported in the response, not as an error; the error is reserved for
	// transport and storage failures.
	Verify(ctx context.Context, req presigned.SignedRequest) (*presigned.VerifyResponse, error)

	// Execute submits a signed request. As with Verify, rejections are
	// reported in the response.
	Execute(ctx context.Context, req presigned.SignedRequest) (*presigned.ExecuteResponse, error)

	// Supported describes the ledger scope, modes, and encodings the relayer accepts.
	Supported(ctx context.Context) (*presigned.SupportedResponse, error)

	// Account returns the balance, next nonce, and frozen flag of an address.
	Account(ctx context.Context, address string) (*presigned.AccountState, error)

	// Allowance returns how much spender may move on behalf of owner.
	Allowance(ctx context.Context, owner, spender string) (*presigned.AllowanceState, error)
}

// VerifyRequest is the request payload sent to POST /verify.
type VerifyRequest struct {
	Request presigned.SignedRequest `json:"request"`
}

// ExecuteRequest is the request payload sent to POST /execute.
type ExecuteRequest struct {
	Request presigned.SignedRequest `json:"request"`
}
