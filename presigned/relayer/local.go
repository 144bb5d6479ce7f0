package relayer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
	"github.com/MuzikaFoundation/muzika-contract/presigned/executor"
)

// Local serves the relayer contract from an in-process executor. Fees are
// credited to Address.
type Local struct {
	executor *executor.Executor
	address  common.Address
}

// NewLocal returns a relayer that executes on exec and collects fees at address.
func NewLocal(exec *executor.Executor, address common.Address) (*Local, error) {
	if exec == nil {
		return nil, errors.New("executor cannot be nil")
	}
	if address == (common.Address{}) {
		return nil, errors.New("relayer address cannot be zero")
	}
	return &Local{executor: exec, address: address}, nil
}

// Address returns the account fees are paid to.
func (l *Local) Address() common.Address {
	return l.address
}

// Verify implements Interface.
func (l *Local) Verify(ctx context.Context, signed presigned.SignedRequest) (*presigned.VerifyResponse, error) {
	req, err := signed.Request()
	if err != nil {
		return rejectVerify(err)
	}

	receipt, err := l.executor.Verify(ctx, l.address, req)
	if err != nil {
		return rejectVerify(err)
	}
	return &presigned.VerifyResponse{IsValid: true, Signer: receipt.Signer}, nil
}

// Execute implements Interface.
func (l *Local) Execute(ctx context.Context, signed presigned.SignedRequest) (*presigned.ExecuteResponse, error) {
	req, err := signed.Request()
	if err != nil {
		return rejectExecute(err)
	}

	receipt, err := l.executor.Execute(ctx, l.address, req)
	if err != nil {
		return rejectExecute(err)
	}
	return &presigned.ExecuteResponse{Success: true, Receipt: receipt}, nil
}

// Supported implements Interface.
func (l *Local) Supported(ctx context.Context) (*presigned.SupportedResponse, error) {
	modes := make([]string, 0, len(presigned.Modes()))
	for _, m := range presigned.Modes() {
		modes = append(modes, m.String())
	}
	versions := make([]int, 0, len(presigned.EncodingVersions()))
	for _, v := range presigned.EncodingVersions() {
		versions = append(versions, int(v))
	}

	return &presigned.SupportedResponse{
		Scope:    l.executor.Scope(),
		Modes:    modes,
		Versions: versions,
		Relayer:  l.address.Hex(),
	}, nil
}

// Account implements Interface.
func (l *Local) Account(ctx context.Context, address string) (*presigned.AccountState, error) {
	addr, err := parseAddress("address", address)
	if err != nil {
		return nil, err
	}
	return l.executor.Account(ctx, addr)
}

// Allowance implements Interface.
func (l *Local) Allowance(ctx context.Context, owner, spender string) (*presigned.AllowanceState, error) {
	ownerAddr, err := parseAddress("owner", owner)
	if err != nil {
		return nil, err
	}
	spenderAddr, err := parseAddress("spender", spender)
	if err != nil {
		return nil, err
	}

	amount, err := l.executor.Allowance(ctx, ownerAddr, spenderAddr)
	if err != nil {
		return nil, err
	}
	return &presigned.AllowanceState{
		Owner:   ownerAddr.Hex(),
		Spender: spenderAddr.Hex(),
		Amount:  amount.Dec(),
	}, nil
}

// rejectVerify turns a request rejection into a response. Internal failures
// stay errors.
func rejectVerify(err error) (*presigned.VerifyResponse, error) {
	code := presigned.CodeOf(err)
	if code == presigned.ErrCodeInternal {
		return nil, err
	}
	return &presigned.VerifyResponse{
		IsValid:        false,
		InvalidReason:  string(code),
		InvalidMessage: err.Error(),
	}, nil
}

func rejectExecute(err error) (*presigned.ExecuteResponse, error) {
	code := presigned.CodeOf(err)
	if code == presigned.ErrCodeInternal {
		return nil, err
	}
	return &presigned.ExecuteResponse{
		Success:      false,
		ErrorReason:  string(code),
		ErrorMessage: err.Error(),
	}, nil
}

func parseAddress(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, presigned.NewAuthError(presigned.ErrCodeMalformedRequest,
			fmt.Sprintf("invalid %s address", field), presigned.ErrMalformedRequest).
			WithDetails(field, value)
	}
	return common.HexToAddress(value), nil
}
