// Package http provides the HTTP client for presigned relayer services.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
	"github.com/MuzikaFoundation/muzika-contract/presigned/http/internal/helpers"
	"github.com/MuzikaFoundation/muzika-contract/presigned/relayer"
)

// ErrRequestFailed is returned when a relayer answers with an unexpected status.
var ErrRequestFailed = errors.New("presigned: relayer request failed")

// AuthorizationProvider is a function that returns an Authorization header value.
// This is useful for dynamic tokens (e.g., JWT refresh) where the value may change.
//
// The provider is called on each HTTP request, including retry attempts, and is
// not serialized by the client.
type AuthorizationProvider func(*http.Request) string

// OnBeforeFunc is a callback invoked before a verify or execute call.
// Return an error to abort the call.
type OnBeforeFunc func(context.Context, presigned.SignedRequest) error

// OnAfterVerifyFunc is a callback invoked after a Verify call completes.
type OnAfterVerifyFunc func(context.Context, presigned.SignedRequest, *presigned.VerifyResponse, error)

// OnAfterExecuteFunc is a callback invoked after an Execute call completes.
type OnAfterExecuteFunc func(context.Context, presigned.SignedRequest, *presigned.ExecuteResponse, error)

// RelayerClient is a client for communicating with a presigned relayer service.
type RelayerClient struct {
	// BaseURL is the relayer service URL (e.g., "http://localhost:8545/presigned").
	BaseURL string

	// Client is the HTTP client to use for requests. If nil, http.DefaultClient is used.
	Client *http.Client

	// Timeouts contains timeout configuration for relayer calls.
	Timeouts presigned.TimeoutConfig

	// MaxRetries is the maximum number of retry attempts when the relayer
	// cannot be reached (default: 0). Set to 0 to disable retries.
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts (default: 100ms).
	// Exponential backoff is applied with a multiplier of 2.0.
	RetryDelay time.Duration

	// Authorization is a static Authorization header value.
	// If AuthorizationProvider is also set, the provider takes precedence.
	Authorization string

	// AuthorizationProvider returns an Authorization header value per request.
	AuthorizationProvider AuthorizationProvider

	// OnBeforeVerify is called before Verify. An error aborts the call.
	OnBeforeVerify OnBeforeFunc

	// OnAfterVerify is called after Verify completes (success or failure).
	OnAfterVerify OnAfterVerifyFunc

	// OnBeforeExecute is called before Execute. An error aborts the call.
	OnBeforeExecute OnBeforeFunc

	// OnAfterExecute is called after Execute completes (success or failure).
	OnAfterExecute OnAfterExecuteFunc
}

// Verify that RelayerClient implements relayer.Interface.
var _ relayer.Interface = (*RelayerClient)(nil)

func (c *RelayerClient) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

// setAuthorizationHeader sets the Authorization header on the request if configured.
func (c *RelayerClient) setAuthorizationHeader(req *http.Request) {
	var authValue string
	if c.AuthorizationProvider != nil {
		authValue = c.AuthorizationProvider(req)
	} else if c.Authorization != "" {
		authValue = c.Authorization
	}
	if authValue != "" {
		req.Header.Set("Authorization", authValue)
	}
}

// backOff returns the retry policy based on client settings.
func (c *RelayerClient) backOff(ctx context.Context) backoff.BackOffContext {
	retryDelay := c.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 100 * time.Millisecond
	}

	maxRetries := c.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryDelay
	b.MaxInterval = retryDelay * 4
	b.Multiplier = 2.0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)
}

// Verify asks the relayer to check a signed request without executing it.
func (c *RelayerClient) Verify(ctx context.Context, req presigned.SignedRequest) (*presigned.VerifyResponse, error) {
	if c.OnBeforeVerify != nil {
		if err := c.OnBeforeVerify(ctx, req); err != nil {
			return nil, err
		}
	}

	var resp presigned.VerifyResponse
	_, err := c.do(ctx, http.MethodPost, "/verify", relayer.VerifyRequest{Request: req}, c.Timeouts.VerifyTimeout, &resp)
	result := &resp
	if err != nil {
		result = nil
	}

	if c.OnAfterVerify != nil {
		c.OnAfterVerify(ctx, req, result, err)
	}
	return result, err
}

// Execute submits a signed request for execution.
func (c *RelayerClient) Execute(ctx context.Context, req presigned.SignedRequest) (*presigned.ExecuteResponse, error) {
	if c.OnBeforeExecute != nil {
		if err := c.OnBeforeExecute(ctx, req); err != nil {
			return nil, err
		}
	}

	var resp presigned.ExecuteResponse
	header, err := c.do(ctx, http.MethodPost, "/execute", relayer.ExecuteRequest{Request: req}, c.Timeouts.ExecuteTimeout, &resp)
	result := &resp
	if err != nil {
		result = nil
	} else if resp.Success && resp.Receipt == nil {
		// Some proxies strip bodies; the receipt header is authoritative then.
		resp.Receipt = helpers.ParseReceipt(header.Get(helpers.ReceiptHeader))
	}

	if c.OnAfterExecute != nil {
		c.OnAfterExecute(ctx, req, result, err)
	}
	return result, err
}

// Supported queries the relayer for its scope, modes, and encodings.
func (c *RelayerClient) Supported(ctx context.Context) (*presigned.SupportedResponse, error) {
	var resp presigned.SupportedResponse
	if _, err := c.do(ctx, http.MethodGet, "/supported", nil, c.Timeouts.VerifyTimeout, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Account queries the ledger state of an address.
func (c *RelayerClient) Account(ctx context.Context, address string) (*presigned.AccountState, error) {
	var resp presigned.AccountState
	path := "/accounts/" + url.PathEscape(address)
	if _, err := c.do(ctx, http.MethodGet, path, nil, c.Timeouts.VerifyTimeout, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Allowance queries how much spender may move on behalf of owner.
func (c *RelayerClient) Allowance(ctx context.Context, owner, spender string) (*presigned.AllowanceState, error) {
	var resp presigned.AllowanceState
	path := "/allowances/" + url.PathEscape(owner) + "/" + url.PathEscape(spender)
	if _, err := c.do(ctx, http.MethodGet, path, nil, c.Timeouts.VerifyTimeout, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NextNonce returns the nonce the next request from address must carry.
func (c *RelayerClient) NextNonce(ctx context.Context, address string) (uint64, error) {
	account, err := c.Account(ctx, address)
	if err != nil {
		return 0, err
	}
	return account.NextNonce, nil
}

// do sends one JSON request and decodes a 200 response into out, retrying
// while the relayer is unavailable. It returns the response headers.
func (c *RelayerClient) do(ctx context.Context, method, path string, payload any, timeout time.Duration, out any) (http.Header, error) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + path

	// RequestTimeout bounds the whole call; timeout bounds each attempt.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.Timeouts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeouts.RequestTimeout)
		defer cancel()
	}

	var (
		header  http.Header
		lastErr error
	)
	operation := func() error {
		reqCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		var body io.Reader
		if data != nil {
			body = bytes.NewReader(data)
		}
		httpReq, err := http.NewRequestWithContext(reqCtx, method, endpoint, body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		if data != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		c.setAuthorizationHeader(httpReq)

		httpResp, err := c.httpClient().Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", presigned.ErrRelayerUnavailable, err)
			return lastErr
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode != http.StatusOK {
			err := parseErrorResponse(httpResp, ErrRequestFailed)
			if isRelayerUnavailableError(err) {
				lastErr = err
				return err
			}
			return backoff.Permanent(err)
		}

		if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode %s response: %w", path, err))
		}
		header = httpResp.Header
		return nil
	}

	if err := backoff.Retry(operation, c.backOff(ctx)); err != nil {
		// The deadline ended the retries; report what kept failing.
		if ctxErr := ctx.Err(); ctxErr != nil && lastErr != nil && errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("%w (%w)", lastErr, ctxErr)
		}
		return nil, err
	}
	return header, nil
}

// parseErrorResponse extracts error details from a non-200 HTTP response.
// A known error code in the body is surfaced as an *presigned.AuthError
// wrapping the matching sentinel; gateway errors count as unavailability.
func parseErrorResponse(resp *http.Response, baseErr error) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		baseErr = presigned.ErrRelayerUnavailable
	}

	var errBody struct {
		ErrorReason  string `json:"errorReason"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(bodyBytes, &errBody); err == nil && errBody.ErrorReason != "" {
		code := presigned.ErrorCode(errBody.ErrorReason)
		if sentinel := presigned.SentinelFor(code); sentinel != nil {
			baseErr = sentinel
		}
		message := errBody.ErrorMessage
		if message == "" {
			message = errBody.ErrorReason
		}
		return presigned.NewAuthError(code, message,
			fmt.Errorf("%w: status %d", baseErr, resp.StatusCode))
	}

	// If we couldn't parse as JSON, include raw body (truncated)
	if len(bodyBytes) > 0 && len(bodyBytes) < 500 {
		return fmt.Errorf("%w: status %d, body: %s", baseErr, resp.StatusCode, string(bodyBytes))
	}

	return fmt.Errorf("%w: status %d", baseErr, resp.StatusCode)
}

func isRelayerUnavailableError(err error) bool {
	return errors.Is(err, presigned.ErrRelayerUnavailable)
}
