// Package encoding provides utilities for encoding and decoding presigned
// operation data. It handles base64 and JSON marshaling for signed requests,
// receipts, and verification results carried in HTTP headers.
package encoding

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
)

func encode(kind string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", kind, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decode[T any](kind, encoded string) (T, error) {
	var v T

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return v, fmt.Errorf("failed to decode base64: %w", err)
	}

	if err := json.Unmarshal(decoded, &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal %s: %w", kind, err)
	}

	return v, nil
}

// EncodeRequest converts a SignedRequest to a base64-encoded JSON string.
// This is used for the X-PRESIGNED-REQUEST header.
func EncodeRequest(req presigned.SignedRequest) (string, error) {
	return encode("request", req)
}

// DecodeRequest converts a base64-encoded JSON string to a SignedRequest.
func DecodeRequest(encoded string) (presigned.SignedRequest, error) {
	return decode[presigned.SignedRequest]("request", encoded)
}

// EncodeReceipt converts a Receipt to a base64-encoded JSON string.
// This is used for the X-PRESIGNED-RECEIPT header.
func EncodeReceipt(receipt presigned.Receipt) (string, error) {
	return encode("receipt", receipt)
}

// DecodeReceipt converts a base64-encoded JSON string to a Receipt.
func DecodeReceipt(encoded string) (presigned.Receipt, error) {
	return decode[presigned.Receipt]("receipt", encoded)
}

// EncodeVerifyResponse converts a VerifyResponse to a base64-encoded JSON string.
func EncodeVerifyResponse(response presigned.VerifyResponse) (string, error) {
	return encode("verify response", response)
}

// DecodeVerifyResponse converts a base64-encoded JSON string to a VerifyResponse.
func DecodeVerifyResponse(encoded string) (presigned.VerifyResponse, error) {
	return decode[presigned.VerifyResponse]("verify response", encoded)
}
