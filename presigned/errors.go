package presigned

import "errors"

// Sentinel errors for presigned operations. Every rejection of a request
// wraps exactly one of the first seven; callers test with errors.Is.
var (
	// ErrUnsupportedEncoding indicates an encoding version other than 1, 2 or 3.
	ErrUnsupportedEncoding = errors.New("presigned: unsupported encoding version")

	// ErrInvalidSignature indicates a malformed or unrecoverable signature.
	ErrInvalidSignature = errors.New("presigned: invalid signature")

	// ErrNonceMismatch indicates the nonce is not the signer's next expected value.
	ErrNonceMismatch = errors.New("presigned: nonce mismatch")

	// ErrAccountFrozen indicates the signer or the target account is frozen.
	ErrAccountFrozen = errors.New("presigned: account frozen")

	// ErrSystemPaused indicates the ledger is globally paused.
	ErrSystemPaused = errors.New("presigned: ledger paused")

	// ErrInsufficientBalance indicates the signer cannot cover amount and fee.
	ErrInsufficientBalance = errors.New("presigned: insufficient balance")

	// ErrArithmeticOverflow indicates a 256-bit overflow in a balance or allowance.
	ErrArithmeticOverflow = errors.New("presigned: arithmetic overflow")

	// ErrInvalidMode indicates an unknown operation mode tag.
	ErrInvalidMode = errors.New("presigned: invalid operation mode")

	// ErrMalformedRequest indicates a request that could not be decoded.
	ErrMalformedRequest = errors.New("presigned: malformed request")

	// ErrInvalidScope indicates an invalid ledger scope configuration.
	ErrInvalidScope = errors.New("presigned: invalid scope")

	// ErrInvalidNetwork indicates an unsupported or malformed CAIP-2 network.
	ErrInvalidNetwork = errors.New("presigned: invalid or unsupported network")

	// ErrInvalidKey indicates an invalid private key.
	ErrInvalidKey = errors.New("presigned: invalid private key")

	// ErrAmountExceeded indicates a signer was asked to authorize more than its limit.
	ErrAmountExceeded = errors.New("presigned: amount exceeds signer limit")

	// ErrRelayerUnavailable indicates the relayer service could not be reached.
	ErrRelayerUnavailable = errors.New("presigned: relayer unavailable")
)

// ErrorCode represents error codes for programmatic handling, for example by
// relayers deciding whether to refresh a nonce or drop a request.
type ErrorCode string

const (
	ErrCodeUnsupportedEncoding ErrorCode = "UNSUPPORTED_ENCODING"
	ErrCodeInvalidSignature    ErrorCode = "INVALID_SIGNATURE"
	ErrCodeNonceMismatch       ErrorCode = "NONCE_MISMATCH"
	ErrCodeAccountFrozen       ErrorCode = "ACCOUNT_FROZEN"
	ErrCodeSystemPaused        ErrorCode = "SYSTEM_PAUSED"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeArithmeticOverflow  ErrorCode = "ARITHMETIC_OVERFLOW"

	// ErrCodeMalformedRequest covers requests rejected before hashing.
	ErrCodeMalformedRequest ErrorCode = "MALFORMED_REQUEST"

	// ErrCodeInternal covers storage and other unexpected failures.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

var codeBySentinel = []struct {
	err  error
	code ErrorCode
}{
	{ErrUnsupportedEncoding, ErrCodeUnsupportedEncoding},
	{ErrInvalidSignature, ErrCodeInvalidSignature},
	{ErrNonceMismatch, ErrCodeNonceMismatch},
	{ErrAccountFrozen, ErrCodeAccountFrozen},
	{ErrSystemPaused, ErrCodeSystemPaused},
	{ErrInsufficientBalance, ErrCodeInsufficientBalance},
	{ErrArithmeticOverflow, ErrCodeArithmeticOverflow},
	{ErrMalformedRequest, ErrCodeMalformedRequest},
	{ErrInvalidMode, ErrCodeMalformedRequest},
}

// AuthError provides structured error information for a rejected operation.
type AuthError struct {
	// Code is the error code for programmatic handling.
	Code ErrorCode

	// Message is the human-readable error message.
	Message string

	// Details contains additional error context.
	Details map[string]interface{}

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates a new AuthError with the given code and message.
func NewAuthError(code ErrorCode, message string, err error) *AuthError {
	return &AuthError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithDetails adds additional context to the error.
// Lazily initializes the Details map if nil.
func (e *AuthError) WithDetails(key string, value interface{}) *AuthError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// CodeOf returns the error code carried by err. An *AuthError in the chain wins;
// otherwise the code is derived from the wrapped sentinel, and anything else is
// ErrCodeInternal. CodeOf(nil) returns "".
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	for _, s := range codeBySentinel {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return ErrCodeInternal
}

// SentinelFor returns the sentinel error for a code, or nil for codes without one.
func SentinelFor(code ErrorCode) error {
	for _, s := range codeBySentinel {
		if s.code == code {
			return s.err
		}
	}
	return nil
}
