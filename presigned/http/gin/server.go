// Package gin exposes a presigned relayer over HTTP using Gin.
//
// The routes mirror relayer.Interface so that a RelayerClient pointed at the
// server behaves like the relayer behind it:
//
//	POST /verify                       dry-run a signed request
//	POST /execute                      execute a signed request
//	GET  /supported                    scope, modes, and encoding versions
//	GET  /accounts/:address            balance, next nonce, and frozen flag
//	GET  /allowances/:owner/:spender   allowance of spender over owner's balance
//	GET  /health                       liveness
//
// POST bodies are {"request": SignedRequest}. The X-PRESIGNED-REQUEST header
// may carry the request instead, and a committed execution also returns its
// receipt in X-PRESIGNED-RECEIPT.
//
// Example usage:
//
//	local, _ := relayer.NewLocal(exec, relayerAddress)
//	r := gin.Default()
//	presignedgin.RegisterRoutes(r.Group("/presigned"), local, presignedgin.Config{})
//	_ = r.Run(":8080")
package gin

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MuzikaFoundation/muzika-contract/presigned"
	"github.com/MuzikaFoundation/muzika-contract/presigned/http/internal/helpers"
	"github.com/MuzikaFoundation/muzika-contract/presigned/relayer"
	"github.com/MuzikaFoundation/muzika-contract/presigned/validation"
)

// RequestContextKey is the gin context key holding the parsed SignedRequest.
const RequestContextKey = "presigned_request"

// ReceiptContextKey is the gin context key holding the receipt of a committed execution.
const ReceiptContextKey = "presigned_receipt"

// Config holds server configuration.
type Config struct {
	// Authorization, when set, is the exact Authorization header value every
	// request must carry (e.g., "Bearer secret").
	Authorization string

	// VerifyOnly disables POST /execute.
	VerifyOnly bool

	// Logger is the logger for the server.
	// If not set, slog.Default() is used.
	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// errorBody is the JSON body of every non-200 response.
type errorBody struct {
	ErrorReason  string `json:"errorReason"`
	ErrorMessage string `json:"errorMessage"`
}

type server struct {
	relayer relayer.Interface
	config  Config
}

// NewRouter returns a gin engine serving rel at the root path.
func NewRouter(rel relayer.Interface, config Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	RegisterRoutes(r, rel, config)
	return r
}

// RegisterRoutes registers the relayer routes on routes.
func RegisterRoutes(routes gin.IRoutes, rel relayer.Interface, config Config) {
	s := &server{relayer: rel, config: config}

	if config.Authorization != "" {
		routes = routes.Use(RequireAuthorization(config.Authorization))
	}

	routes.GET("/health", s.health)
	routes.GET("/supported", s.supported)
	routes.GET("/accounts/:address", s.account)
	routes.GET("/allowances/:owner/:spender", s.allowance)
	routes.POST("/verify", s.verify)
	if !config.VerifyOnly {
		routes.POST("/execute", s.execute)
	}
}

// RequireAuthorization rejects requests whose Authorization header is not expected.
func RequireAuthorization(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != expected {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				ErrorReason:  "UNAUTHORIZED",
				ErrorMessage: "missing or invalid authorization",
			})
			return
		}
		c.Next()
	}
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) supported(c *gin.Context) {
	resp, err := s.relayer.Supported(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) account(c *gin.Context) {
	address := c.Param("address")
	if err := validation.ValidateAddress(address); err != nil {
		s.fail(c, malformed(err))
		return
	}

	resp, err := s.relayer.Account(c.Request.Context(), address)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) allowance(c *gin.Context) {
	owner, spender := c.Param("owner"), c.Param("spender")
	for _, address := range []string{owner, spender} {
		if err := validation.ValidateAddress(address); err != nil {
			s.fail(c, malformed(err))
			return
		}
	}

	resp, err := s.relayer.Allowance(c.Request.Context(), owner, spender)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) verify(c *gin.Context) {
	logger := s.config.logger()

	req, err := s.bindRequest(c)
	if err != nil {
		if code := rejectionCode(err); code != presigned.ErrCodeMalformedRequest {
			c.JSON(http.StatusOK, presigned.VerifyResponse{InvalidReason: string(code), InvalidMessage: err.Error()})
			return
		}
		s.fail(c, malformed(err))
		return
	}

	resp, err := s.relayer.Verify(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !resp.IsValid {
		logger.Info("request failed verification", "reason", resp.InvalidReason, "mode", req.Mode, "nonce", req.Nonce)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) execute(c *gin.Context) {
	logger := s.config.logger()

	req, err := s.bindRequest(c)
	if err != nil {
		if code := rejectionCode(err); code != presigned.ErrCodeMalformedRequest {
			c.JSON(http.StatusOK, presigned.ExecuteResponse{ErrorReason: string(code), ErrorMessage: err.Error()})
			return
		}
		s.fail(c, malformed(err))
		return
	}

	resp, err := s.relayer.Execute(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}

	if !resp.Success {
		logger.Info("request rejected", "reason", resp.ErrorReason, "mode", req.Mode, "nonce", req.Nonce)
		c.JSON(http.StatusOK, resp)
		return
	}

	if resp.Receipt != nil {
		c.Set(ReceiptContextKey, resp.Receipt)
		if err := helpers.AddReceiptHeader(c.Writer, resp.Receipt); err != nil {
			logger.Warn("failed to add receipt header", "error", err)
		}
		logger.Info("request executed", "id", resp.Receipt.ID, "mode", resp.Receipt.Mode, "signer", resp.Receipt.Signer)
	}
	c.JSON(http.StatusOK, resp)
}

// bindRequest reads the signed request from the X-PRESIGNED-REQUEST header or,
// failing that, from the JSON body, and validates its format.
func (s *server) bindRequest(c *gin.Context) (presigned.SignedRequest, error) {
	fromHeader, err := helpers.ParseRequestHeader(c.Request)
	if err != nil {
		return presigned.SignedRequest{}, err
	}

	var req presigned.SignedRequest
	if fromHeader != nil {
		req = *fromHeader
	} else {
		var body relayer.ExecuteRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			return presigned.SignedRequest{}, malformed(err)
		}
		req = body.Request
	}

	if err := validation.ValidateSignedRequest(req); err != nil {
		return presigned.SignedRequest{}, err
	}
	c.Set(RequestContextKey, req)
	return req, nil
}

// fail writes an error response. Internal failures are logged and their
// details withheld from the client.
func (s *server) fail(c *gin.Context, err error) {
	code := presigned.CodeOf(err)
	status := helpers.StatusFor(code)
	if status == http.StatusOK {
		status = http.StatusBadRequest
	}

	message := err.Error()
	if code == presigned.ErrCodeInternal {
		s.config.logger().Error("relayer request failed", "path", c.FullPath(), "error", err)
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, errorBody{ErrorReason: string(code), ErrorMessage: message})
}

// rejectionCode classifies a request validation failure. Unsupported encodings
// and signatures of the wrong length keep the code the executor would give
// them; every other format problem is a malformed request.
func rejectionCode(err error) presigned.ErrorCode {
	switch {
	case errors.Is(err, presigned.ErrUnsupportedEncoding):
		return presigned.ErrCodeUnsupportedEncoding
	case errors.Is(err, presigned.ErrInvalidSignature):
		return presigned.ErrCodeInvalidSignature
	}
	return presigned.ErrCodeMalformedRequest
}

func malformed(err error) error {
	var authErr *presigned.AuthError
	if errors.As(err, &authErr) {
		return err
	}
	return presigned.NewAuthError(presigned.ErrCodeMalformedRequest,
		strings.TrimPrefix(err.Error(), "invalid request: "), presigned.ErrMalformedRequest)
}
