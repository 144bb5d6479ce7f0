package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{name: "valid positive amount", amount: "1000000", wantErr: false},
		{name: "zero amount", amount: "0", wantErr: false},
		{name: "max uint256", amount: "115792089237316195423570985008687907853269984665640564039457584007913129639935", wantErr: false},
		{name: "hex amount", amount: "0x1f4", wantErr: false},
		{name: "above uint256", amount: "115792089237316195423570985008687907853269984665640564039457584007913129639936", wantErr: true},
		{name: "negative amount", amount: "-100", wantErr: true},
		{name: "empty amount", amount: "", wantErr: true},
		{name: "invalid format", amount: "abc", wantErr: true},
		{name: "decimal amount", amount: "100.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(tt.amount)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAmount() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNetwork(t *testing.T) {
	tests := []struct {
		name    string
		network string
		wantErr bool
	}{
		{name: "mainnet", network: presigned.NetworkMainnet, wantErr: false},
		{name: "rinkeby", network: presigned.NetworkRinkeby, wantErr: false},
		{name: "development", network: presigned.NetworkDevelopment, wantErr: false},
		{name: "empty", network: "", wantErr: true},
		{name: "missing reference", network: "eip155", wantErr: true},
		{name: "not evm", network: "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp", wantErr: true},
		{name: "zero chain", network: "eip155:0", wantErr: true},
		{name: "uppercase namespace", network: "EIP155:1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNetwork(tt.network)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNetwork() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{name: "checksummed", address: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", wantErr: false},
		{name: "lowercase", address: "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", wantErr: false},
		{name: "missing prefix", address: "f39Fd6e51aad88F6F4ce6aB8827279cffFb92266", wantErr: true},
		{name: "too short", address: "0x1234", wantErr: true},
		{name: "empty", address: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.address)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateVersion(t *testing.T) {
	for _, v := range []uint8{1, 2, 3} {
		if err := ValidateVersion(v); err != nil {
			t.Errorf("ValidateVersion(%d) = %v, want nil", v, err)
		}
	}
	for _, v := range []uint8{0, 4, 255} {
		if err := ValidateVersion(v); !errors.Is(err, presigned.ErrUnsupportedEncoding) {
			t.Errorf("ValidateVersion(%d) = %v, want ErrUnsupportedEncoding", v, err)
		}
	}
}

func TestValidateSignature(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		wantErr   bool
		invalid   bool
	}{
		{name: "65 bytes", signature: "0x" + strings.Repeat("ab", 65)},
		{name: "64 bytes", signature: "0x" + strings.Repeat("ab", 64)},
		{name: "no prefix", signature: strings.Repeat("ab", 65)},
		{name: "63 bytes", signature: "0x" + strings.Repeat("ab", 63), wantErr: true, invalid: true},
		{name: "66 bytes", signature: "0x" + strings.Repeat("ab", 66), wantErr: true, invalid: true},
		{name: "empty", signature: "", wantErr: true, invalid: true},
		{name: "prefix only", signature: "0x", wantErr: true, invalid: true},
		{name: "odd length", signature: "0x" + strings.Repeat("ab", 64) + "a", wantErr: true},
		{name: "not hex", signature: "0x" + strings.Repeat("zz", 65), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignature(tt.signature)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSignature() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, presigned.ErrInvalidSignature); got != tt.invalid {
				t.Errorf("errors.Is(err, ErrInvalidSignature) = %v, want %v (err = %v)", got, tt.invalid, err)
			}
		})
	}
}

func validRequest() presigned.SignedRequest {
	return presigned.SignedRequest{
		Mode:      "Transfer",
		To:        "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		Amount:    "500",
		Fee:       "10",
		Nonce:     "0",
		Version:   1,
		Signature: "0x" + strings.Repeat("ab", 65),
	}
}

func TestValidateSignedRequest(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *presigned.SignedRequest)
		wantErr string
	}{
		{name: "valid", mutate: func(r *presigned.SignedRequest) {}},
		{name: "friendly mode alias", mutate: func(r *presigned.SignedRequest) { r.Mode = "increaseApproval" }},
		{name: "with signer", mutate: func(r *presigned.SignedRequest) { r.Signer = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266" }},
		{name: "unknown mode", mutate: func(r *presigned.SignedRequest) { r.Mode = "Mint" }, wantErr: "invalid operation mode"},
		{name: "bad to", mutate: func(r *presigned.SignedRequest) { r.To = "0x12" }, wantErr: "to invalid EVM address"},
		{name: "zero to", mutate: func(r *presigned.SignedRequest) { r.To = common.Address{}.Hex() }, wantErr: "zero address"},
		{name: "bad amount", mutate: func(r *presigned.SignedRequest) { r.Amount = "-5" }, wantErr: "negative"},
		{name: "bad fee", mutate: func(r *presigned.SignedRequest) { r.Fee = "" }, wantErr: "fee amount cannot be empty"},
		{name: "bad nonce", mutate: func(r *presigned.SignedRequest) { r.Nonce = "x" }, wantErr: "nonce invalid amount"},
		{name: "bad version", mutate: func(r *presigned.SignedRequest) { r.Version = 0 }, wantErr: "unsupported encoding"},
		{name: "short signature", mutate: func(r *presigned.SignedRequest) { r.Signature = "0x00" }, wantErr: "invalid signature: signature is 1 bytes"},
		{name: "non-hex signature", mutate: func(r *presigned.SignedRequest) { r.Signature = "0xgg" }, wantErr: "invalid signature format"},
		{name: "bad signer", mutate: func(r *presigned.SignedRequest) { r.Signer = "me" }, wantErr: "signer invalid EVM address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := ValidateSignedRequest(req)

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestValidateScope(t *testing.T) {
	scope := presigned.NewScope(common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), presigned.NetworkMainnet)
	if err := ValidateScope(scope); err != nil {
		t.Errorf("Expected valid scope, got %v", err)
	}

	scope.Network = "cosmos:hub"
	if err := ValidateScope(scope); err == nil {
		t.Error("Expected error for non-EVM scope network")
	}

	scope.Network = presigned.NetworkMainnet
	scope.Address = common.Address{}
	if err := ValidateScope(scope); !errors.Is(err, presigned.ErrInvalidScope) {
		t.Errorf("Expected ErrInvalidScope, got %v", err)
	}
}
