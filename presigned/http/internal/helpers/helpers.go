// Package helpers provides internal HTTP utilities for presigned relayer traffic.
package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
	"github.com/MuzikaFoundation/muzika-contract/presigned/encoding"
)

const (
	// RequestHeader carries a base64 JSON SignedRequest as an alternative to
	// a JSON request body.
	RequestHeader = "X-PRESIGNED-REQUEST"

	// ReceiptHeader carries the base64 JSON Receipt of a committed operation.
	ReceiptHeader = "X-PRESIGNED-RECEIPT"
)

// ErrNilReceipt is returned when receipt is nil in AddReceiptHeader.
var ErrNilReceipt = errors.New("receipt is nil")

// ErrNilRequest is returned when request is nil in BuildRequestHeader.
var ErrNilRequest = errors.New("request is nil")

// ParseRequestHeader extracts and decodes a SignedRequest from the
// X-PRESIGNED-REQUEST header. It returns (nil, nil) if the header is absent.
func ParseRequestHeader(r *http.Request) (*presigned.SignedRequest, error) {
	header := r.Header.Get(RequestHeader)
	if header == "" {
		return nil, nil
	}

	req, err := encoding.DecodeRequest(header)
	if err != nil {
		return nil, presigned.NewAuthError(presigned.ErrCodeMalformedRequest, "failed to decode request header",
			fmt.Errorf("%w: %v", presigned.ErrMalformedRequest, err))
	}
	return &req, nil
}

// AddReceiptHeader adds the X-PRESIGNED-RECEIPT header.
func AddReceiptHeader(w http.ResponseWriter, receipt *presigned.Receipt) error {
	if receipt == nil {
		return fmt.Errorf("AddReceiptHeader: %w", ErrNilReceipt)
	}
	encoded, err := encoding.EncodeReceipt(*receipt)
	if err != nil {
		return fmt.Errorf("AddReceiptHeader: encode receipt: %w", err)
	}
	w.Header().Set(ReceiptHeader, encoded)
	return nil
}

// ParseReceipt decodes an X-PRESIGNED-RECEIPT header value.
// Returns nil if the header is empty or cannot be parsed.
func ParseReceipt(headerValue string) *presigned.Receipt {
	if headerValue == "" {
		return nil
	}

	receipt, err := encoding.DecodeReceipt(headerValue)
	if err != nil {
		return nil
	}
	return &receipt
}

// BuildRequestHeader creates the X-PRESIGNED-REQUEST header value.
func BuildRequestHeader(req *presigned.SignedRequest) (string, error) {
	if req == nil {
		return "", fmt.Errorf("BuildRequestHeader: %w", ErrNilRequest)
	}
	encoded, err := encoding.EncodeRequest(*req)
	if err != nil {
		return "", fmt.Errorf("BuildRequestHeader: encode request: %w", err)
	}
	return encoded, nil
}

// StatusFor maps an error code to the HTTP status a relayer answers with.
// Rejections of well-formed requests are reported in a 200 response body, so
// only malformed input and internal failures get an error status.
func StatusFor(code presigned.ErrorCode) int {
	switch code {
	case "":
		return http.StatusOK
	case presigned.ErrCodeMalformedRequest:
		return http.StatusBadRequest
	case presigned.ErrCodeInternal:
		return http.StatusInternalServerError
	}
	return http.StatusOK
}
