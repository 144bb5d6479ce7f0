package presigned

import (
	"fmt"
	"time"
)

// TimeoutConfig holds timeout configuration for relayer calls.
//
// The executor bounds each Verify and Execute by the matching timeout. A
// RelayerClient uses the same two values per HTTP attempt and RequestTimeout
// for the whole call, retries included; the executor ignores RequestTimeout.
type TimeoutConfig struct {
	// VerifyTimeout is the maximum time to wait for a dry-run verification.
	VerifyTimeout time.Duration

	// ExecuteTimeout is the maximum time to wait for an execution to commit.
	ExecuteTimeout time.Duration

	// RequestTimeout caps a client call across all of its attempts.
	// Zero leaves the call bounded only by the caller's context.
	RequestTimeout time.Duration
}

// DefaultTimeouts provides sensible defaults for relayer calls.
var DefaultTimeouts = TimeoutConfig{
	VerifyTimeout:  5 * time.Second,
	ExecuteTimeout: 30 * time.Second,
	RequestTimeout: 60 * time.Second,
}

// WithVerifyTimeout returns a new TimeoutConfig with updated verify timeout.
func (tc TimeoutConfig) WithVerifyTimeout(d time.Duration) TimeoutConfig {
	tc.VerifyTimeout = d
	return tc
}

// WithExecuteTimeout returns a new TimeoutConfig with updated execute timeout.
func (tc TimeoutConfig) WithExecuteTimeout(d time.Duration) TimeoutConfig {
	tc.ExecuteTimeout = d
	return tc
}

// WithRequestTimeout returns a new TimeoutConfig with updated request timeout.
func (tc TimeoutConfig) WithRequestTimeout(d time.Duration) TimeoutConfig {
	tc.RequestTimeout = d
	return tc
}

// Validate ensures timeout values are reasonable.
func (tc TimeoutConfig) Validate() error {
	if tc.VerifyTimeout <= 0 {
		return fmt.Errorf("verify timeout must be positive, got %v", tc.VerifyTimeout)
	}
	if tc.ExecuteTimeout <= 0 {
		return fmt.Errorf("execute timeout must be positive, got %v", tc.ExecuteTimeout)
	}
	if tc.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative, got %v", tc.RequestTimeout)
	}
	if tc.ExecuteTimeout < tc.VerifyTimeout {
		return fmt.Errorf("execute timeout (%v) should be >= verify timeout (%v)",
			tc.ExecuteTimeout, tc.VerifyTimeout)
	}
	// A client call must leave room for at least one full execute attempt.
	if tc.RequestTimeout != 0 && tc.RequestTimeout < tc.ExecuteTimeout {
		return fmt.Errorf("request timeout (%v) should be >= execute timeout (%v)",
			tc.RequestTimeout, tc.ExecuteTimeout)
	}
	return nil
}
