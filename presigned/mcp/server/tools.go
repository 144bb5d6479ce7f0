package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
	"github.com/MuzikaFoundation/muzika-contract/presigned/relayer"
	"github.com/MuzikaFoundation/muzika-contract/presigned/validation"
)

func requestOptions() []mcpproto.ToolOption {
	return []mcpproto.ToolOption{
		mcpproto.WithString("mode",
			mcpproto.Required(),
			mcpproto.Description("Operation mode tag"),
			mcpproto.Enum("Transfer", "Approval", "IncApprv", "DecApprv"),
		),
		mcpproto.WithString("to", mcpproto.Required(), mcpproto.Description("Recipient or spender address")),
		mcpproto.WithString("amount", mcpproto.Required(), mcpproto.Description("Amount in atomic units (decimal)")),
		mcpproto.WithString("fee", mcpproto.Required(), mcpproto.Description("Relayer fee in atomic units (decimal)")),
		mcpproto.WithString("nonce", mcpproto.Required(), mcpproto.Description("Signer's next nonce")),
		mcpproto.WithNumber("version", mcpproto.Required(), mcpproto.Description("Encoding version: 1 plain, 2 legacy hardware, 3 typed")),
		mcpproto.WithString("signature", mcpproto.Required(), mcpproto.Description("Hex-encoded signature")),
		mcpproto.WithString("signer", mcpproto.Description("Expected signer address (optional)")),
	}
}

func verifyTool() mcpproto.Tool {
	opts := append([]mcpproto.ToolOption{
		mcpproto.WithDescription("Check a presigned operation against the ledger without executing it"),
	}, requestOptions()...)
	return mcpproto.NewTool(ToolVerify, opts...)
}

func executeTool() mcpproto.Tool {
	opts := append([]mcpproto.ToolOption{
		mcpproto.WithDescription("Execute a presigned operation on the signer's behalf"),
	}, requestOptions()...)
	return mcpproto.NewTool(ToolExecute, opts...)
}

func accountTool() mcpproto.Tool {
	return mcpproto.NewTool(ToolAccount,
		mcpproto.WithDescription("Read the balance, next nonce, and frozen flag of an address"),
		mcpproto.WithString("address", mcpproto.Required(), mcpproto.Description("Account address")),
	)
}

func allowanceTool() mcpproto.Tool {
	return mcpproto.NewTool(ToolAllowance,
		mcpproto.WithDescription("Read how much a spender may move on behalf of an owner"),
		mcpproto.WithString("owner", mcpproto.Required(), mcpproto.Description("Owner address")),
		mcpproto.WithString("spender", mcpproto.Required(), mcpproto.Description("Spender address")),
	)
}

func supportedTool() mcpproto.Tool {
	return mcpproto.NewTool(ToolSupported,
		mcpproto.WithDescription("Describe the ledger scope, modes, and encoding versions the relayer accepts"),
	)
}

type toolHandler struct {
	relayer relayer.Interface
	logger  *slog.Logger
}

func (h *toolHandler) verify(ctx context.Context, request mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	req, err := signedRequestFrom(request)
	if err != nil {
		if code := rejectionCode(err); code != "" {
			return jsonResult(presigned.VerifyResponse{InvalidReason: string(code), InvalidMessage: err.Error()}, true)
		}
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	resp, err := h.relayer.Verify(ctx, req)
	if err != nil {
		h.logger.Error("verify failed", "tool", ToolVerify, "error", err)
		return mcpproto.NewToolResultErrorFromErr("verify failed", err), nil
	}
	return jsonResult(resp, !resp.IsValid)
}

func (h *toolHandler) execute(ctx context.Context, request mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	req, err := signedRequestFrom(request)
	if err != nil {
		if code := rejectionCode(err); code != "" {
			return jsonResult(presigned.ExecuteResponse{ErrorReason: string(code), ErrorMessage: err.Error()}, true)
		}
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	resp, err := h.relayer.Execute(ctx, req)
	if err != nil {
		h.logger.Error("execute failed", "tool", ToolExecute, "error", err)
		return mcpproto.NewToolResultErrorFromErr("execute failed", err), nil
	}
	if resp.Success && resp.Receipt != nil {
		h.logger.Info("request executed", "tool", ToolExecute, "id", resp.Receipt.ID, "signer", resp.Receipt.Signer)
	}
	return jsonResult(resp, !resp.Success)
}

func (h *toolHandler) account(ctx context.Context, request mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	address, err := request.RequireString("address")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	if err := validation.ValidateAddress(address); err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	resp, err := h.relayer.Account(ctx, address)
	if err != nil {
		return mcpproto.NewToolResultErrorFromErr("account lookup failed", err), nil
	}
	return jsonResult(resp, false)
}

func (h *toolHandler) allowance(ctx context.Context, request mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	owner, err := request.RequireString("owner")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	spender, err := request.RequireString("spender")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}
	for _, address := range []string{owner, spender} {
		if err := validation.ValidateAddress(address); err != nil {
			return mcpproto.NewToolResultError(err.Error()), nil
		}
	}

	resp, err := h.relayer.Allowance(ctx, owner, spender)
	if err != nil {
		return mcpproto.NewToolResultErrorFromErr("allowance lookup failed", err), nil
	}
	return jsonResult(resp, false)
}

func (h *toolHandler) supported(ctx context.Context, request mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	resp, err := h.relayer.Supported(ctx)
	if err != nil {
		return mcpproto.NewToolResultErrorFromErr("supported lookup failed", err), nil
	}
	return jsonResult(resp, false)
}

// signedRequestFrom reads and validates the request arguments of a tool call.
func signedRequestFrom(request mcpproto.CallToolRequest) (presigned.SignedRequest, error) {
	var req presigned.SignedRequest
	fields := []struct {
		name string
		dst  *string
	}{
		{"mode", &req.Mode},
		{"to", &req.To},
		{"amount", &req.Amount},
		{"fee", &req.Fee},
		{"nonce", &req.Nonce},
		{"signature", &req.Signature},
	}
	for _, f := range fields {
		value, err := request.RequireString(f.name)
		if err != nil {
			return presigned.SignedRequest{}, err
		}
		*f.dst = value
	}

	version, err := request.RequireFloat("version")
	if err != nil {
		return presigned.SignedRequest{}, err
	}
	if version < 0 || version > 255 || version != float64(uint8(version)) {
		return presigned.SignedRequest{}, fmt.Errorf("%w: %v", presigned.ErrUnsupportedEncoding, version)
	}
	req.Version = uint8(version)
	req.Signer = request.GetString("signer", "")

	if err := validation.ValidateSignedRequest(req); err != nil {
		return presigned.SignedRequest{}, err
	}
	return req, nil
}

// rejectionCode returns the rejection a validation failure stands for, or ""
// when the arguments are simply malformed.
func rejectionCode(err error) presigned.ErrorCode {
	switch {
	case errors.Is(err, presigned.ErrUnsupportedEncoding):
		return presigned.ErrCodeUnsupportedEncoding
	case errors.Is(err, presigned.ErrInvalidSignature):
		return presigned.ErrCodeInvalidSignature
	}
	return ""
}

// jsonResult renders v as the text content of a tool result.
func jsonResult(v any, isError bool) (*mcpproto.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	result := mcpproto.NewToolResultText(string(data))
	result.IsError = isError
	return result, nil
}
