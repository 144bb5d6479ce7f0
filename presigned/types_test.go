package presigned

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestModeTags(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeTransfer, "Transfer"},
		{ModeApprove, "Approval"},
		{ModeIncreaseApproval, "IncApprv"},
		{ModeDecreaseApproval, "DecApprv"},
	}

	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("String() = %q; want %q", got, tt.want)
		}
		if !tt.mode.Valid() {
			t.Errorf("%s: Valid() = false", tt.want)
		}
		b := tt.mode.Bytes()
		if len(b) != ModeLength || string(b[:len(tt.want)]) != tt.want {
			t.Errorf("Bytes() = %x; want %q right-padded to %d bytes", b, tt.want, ModeLength)
		}
	}

	if len(Modes()) != 4 {
		t.Errorf("Modes() has %d entries; want 4", len(Modes()))
	}
	if (Mode{}).Valid() {
		t.Error("zero Mode should not be valid")
	}
}

func TestModeBytesIsCopy(t *testing.T) {
	b := ModeTransfer.Bytes()
	b[0] = 'X'
	if ModeTransfer.String() != "Transfer" {
		t.Error("mutating Bytes() result changed the mode")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "Transfer", want: ModeTransfer},
		{input: "transfer", want: ModeTransfer},
		{input: "Approval", want: ModeApprove},
		{input: "approve", want: ModeApprove},
		{input: "IncApprv", want: ModeIncreaseApproval},
		{input: "increaseApproval", want: ModeIncreaseApproval},
		{input: "increase_approval", want: ModeIncreaseApproval},
		{input: "DecApprv", want: ModeDecreaseApproval},
		{input: " decreaseApproval ", want: ModeDecreaseApproval},
		{input: "", wantErr: true},
		{input: "Mint", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMode) {
					t.Errorf("ParseMode(%q) error = %v; want ErrInvalidMode", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %s; want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestModeJSON(t *testing.T) {
	data, err := json.Marshal(ModeIncreaseApproval)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(data) != `"IncApprv"` {
		t.Errorf("json.Marshal() = %s; want \"IncApprv\"", data)
	}

	var decoded Mode
	if err := json.Unmarshal([]byte(`"decreaseApproval"`), &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if decoded != ModeDecreaseApproval {
		t.Errorf("json.Unmarshal() = %s; want DecApprv", decoded)
	}

	if _, err := json.Marshal(Mode{}); err == nil {
		t.Error("expected error marshaling an invalid mode")
	}
}

func TestEncodingVersion(t *testing.T) {
	for _, v := range EncodingVersions() {
		if !v.Supported() {
			t.Errorf("version %d should be supported", v)
		}
	}
	for _, v := range []EncodingVersion{0, 4, 255} {
		if v.Supported() {
			t.Errorf("version %d should not be supported", v)
		}
	}

	names := map[EncodingVersion]string{
		EncodingPlain:          "plain",
		EncodingLegacyHardware: "legacy-hardware",
		EncodingTyped:          "typed",
		9:                      "unknown(9)",
	}
	for v, want := range names {
		if got := v.String(); got != want {
			t.Errorf("EncodingVersion(%d).String() = %q; want %q", v, got, want)
		}
	}
}

func TestRequestFields(t *testing.T) {
	scope := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	req := &Request{Mode: ModeTransfer, To: common.HexToAddress("0x01"), Amount: uint256.NewInt(5)}

	f := req.Fields(scope)
	if f.Scope != scope || f.Mode != ModeTransfer || f.To != req.To {
		t.Errorf("Fields() = %+v; unexpected identity fields", f)
	}
	if f.Amount.Uint64() != 5 || !f.Fee.IsZero() || !f.Nonce.IsZero() {
		t.Errorf("Fields() amounts = %s/%s/%s; want 5/0/0", f.Amount, f.Fee, f.Nonce)
	}
}

func TestSignedRequestRoundTrip(t *testing.T) {
	req := &Request{
		Mode:      ModeApprove,
		To:        common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
		Amount:    new(uint256.Int).SetAllOne(),
		Fee:       uint256.NewInt(10),
		Nonce:     uint256.NewInt(7),
		Version:   EncodingTyped,
		Signature: []byte{0xde, 0xad, 0xbe, 0xef},
		From:      common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
	}

	wire := NewSignedRequest(req)
	if wire.Mode != "Approval" || wire.Signature != "0xdeadbeef" || wire.Version != 3 {
		t.Errorf("NewSignedRequest() = %+v; unexpected wire fields", wire)
	}
	if wire.Amount != "115792089237316195423570985008687907853269984665640564039457584007913129639935" {
		t.Errorf("NewSignedRequest() amount = %s; want max uint256", wire.Amount)
	}
	if wire.Signer != req.From.Hex() {
		t.Errorf("NewSignedRequest() signer = %s; want %s", wire.Signer, req.From.Hex())
	}

	decoded, err := wire.Request()
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if decoded.Mode != req.Mode || decoded.To != req.To || decoded.From != req.From || decoded.Version != req.Version {
		t.Errorf("Request() = %+v; want %+v", decoded, req)
	}
	if !decoded.Amount.Eq(req.Amount) || !decoded.Fee.Eq(req.Fee) || !decoded.Nonce.Eq(req.Nonce) {
		t.Error("Request() integers differ from the original")
	}
	if string(decoded.Signature) != string(req.Signature) {
		t.Errorf("Request() signature = %x; want %x", decoded.Signature, req.Signature)
	}
}

func TestSignedRequestWithoutSigner(t *testing.T) {
	wire := NewSignedRequest(&Request{Mode: ModeTransfer})
	if wire.Signer != "" {
		t.Errorf("Signer = %q; want empty", wire.Signer)
	}
	if wire.Amount != "0" || wire.Fee != "0" || wire.Nonce != "0" {
		t.Errorf("nil integers should encode as 0, got %+v", wire)
	}

	data, err := json.Marshal(wire)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if _, ok := fields["signer"]; ok {
		t.Error("signer should be omitted when empty")
	}
}

func TestSignedRequestErrors(t *testing.T) {
	valid := SignedRequest{
		Mode:      "Transfer",
		To:        "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		Amount:    "1",
		Fee:       "0",
		Nonce:     "0",
		Version:   1,
		Signature: "abcd",
	}

	tests := []struct {
		name   string
		mutate func(s *SignedRequest)
	}{
		{"mode", func(s *SignedRequest) { s.Mode = "Burn" }},
		{"to", func(s *SignedRequest) { s.To = "nobody" }},
		{"amount", func(s *SignedRequest) { s.Amount = "-1" }},
		{"amount overflow", func(s *SignedRequest) {
			s.Amount = "115792089237316195423570985008687907853269984665640564039457584007913129639936"
		}},
		{"fee", func(s *SignedRequest) { s.Fee = "" }},
		{"nonce", func(s *SignedRequest) { s.Nonce = "1.5" }},
		{"signature", func(s *SignedRequest) { s.Signature = "0xzz" }},
		{"signer", func(s *SignedRequest) { s.Signer = "0x1" }},
	}

	if _, err := valid.Request(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			_, err := s.Request()
			if CodeOf(err) != ErrCodeMalformedRequest {
				t.Errorf("Request() error = %v (code %s); want %s", err, CodeOf(err), ErrCodeMalformedRequest)
			}
		})
	}

	// Unknown versions are decoded and left for the executor to reject.
	s := valid
	s.Version = 42
	req, err := s.Request()
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if req.Version.Supported() {
		t.Error("version 42 should decode as unsupported")
	}
}

func TestParseUint256(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "0", want: "0"},
		{input: "1000000", want: "1000000"},
		{input: " 42 ", want: "42"},
		{input: "0x1f4", want: "500"},
		{input: "", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "115792089237316195423570985008687907853269984665640564039457584007913129639936", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseUint256(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrMalformedRequest) {
				t.Errorf("ParseUint256(%q) error = %v; want ErrMalformedRequest", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUint256(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got.Dec() != tt.want {
			t.Errorf("ParseUint256(%q) = %s; want %s", tt.input, got.Dec(), tt.want)
		}
	}
}

func TestAmountConversion(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int
		want     string
		wantErr  bool
	}{
		{amount: "1.5", decimals: 18, want: "1500000000000000000"},
		{amount: "0", decimals: 18, want: "0"},
		{amount: "100", decimals: 0, want: "100"},
		{amount: "0.000001", decimals: 6, want: "1"},
		{amount: "0.0000001", decimals: 6, wantErr: true},
		{amount: "-1", decimals: 18, wantErr: true},
		{amount: "abc", decimals: 18, wantErr: true},
		{amount: "1", decimals: -1, wantErr: true},
	}

	for _, tt := range tests {
		got, err := AmountToUint256(tt.amount, tt.decimals)
		if tt.wantErr {
			if err == nil {
				t.Errorf("AmountToUint256(%q, %d) expected error", tt.amount, tt.decimals)
			}
			continue
		}
		if err != nil {
			t.Errorf("AmountToUint256(%q, %d) unexpected error: %v", tt.amount, tt.decimals, err)
			continue
		}
		if got.Dec() != tt.want {
			t.Errorf("AmountToUint256(%q, %d) = %s; want %s", tt.amount, tt.decimals, got.Dec(), tt.want)
		}
	}

	if got := Uint256ToAmount(uint256.NewInt(1500000000000000000), 18); got != "1.500000000000000000" {
		t.Errorf("Uint256ToAmount() = %s; want 1.500000000000000000", got)
	}
	if got := Uint256ToAmount(nil, 18); got != "0" {
		t.Errorf("Uint256ToAmount(nil) = %s; want 0", got)
	}
}
