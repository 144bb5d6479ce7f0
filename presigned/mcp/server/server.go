// Package server exposes a presigned relayer as MCP tools, so that agents can
// submit and inspect delegated operations over the Model Context Protocol.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/MuzikaFoundation/muzika-contract/presigned/relayer"
)

// Tool names registered by NewServer.
const (
	ToolExecute   = "presigned_execute"
	ToolVerify    = "presigned_verify"
	ToolAccount   = "presigned_account"
	ToolAllowance = "presigned_allowance"
	ToolSupported = "presigned_supported"
)

// Config holds configuration for the MCP server.
type Config struct {
	// VerifyOnly when true, does not register the execute tool.
	VerifyOnly bool

	// Verbose enables startup logging.
	Verbose bool

	// Logger is the logger for the server.
	// If not set, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with default settings.
func DefaultConfig() *Config {
	return &Config{Logger: slog.Default()}
}

// Server wraps an MCP server whose tools are backed by a relayer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	handler   *toolHandler
	config    *Config
}

// NewServer creates an MCP server with the presigned tools registered.
func NewServer(name, version string, rel relayer.Interface, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcpserver.NewMCPServer(name, version),
		handler:   &toolHandler{relayer: rel, logger: config.Logger},
		config:    config,
	}

	s.mcpServer.AddTool(verifyTool(), s.handler.verify)
	if !config.VerifyOnly {
		s.mcpServer.AddTool(executeTool(), s.handler.execute)
	}
	s.mcpServer.AddTool(accountTool(), s.handler.account)
	s.mcpServer.AddTool(allowanceTool(), s.handler.allowance)
	s.mcpServer.AddTool(supportedTool(), s.handler.supported)
	return s
}

// AddTool adds an additional tool.
func (s *Server) AddTool(tool mcpproto.Tool, handler mcpserver.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
}

// Handler returns the streamable HTTP handler of the MCP server.
func (s *Server) Handler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcpServer)
}

// Start starts the MCP server on the given address.
func (s *Server) Start(addr string) error {
	if s.config.Verbose {
		s.config.Logger.Info("starting presigned MCP server", "addr", addr, "verifyOnly", s.config.VerifyOnly)
	}
	if err := http.ListenAndServe(addr, s.Handler()); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// GetMCPServer returns the underlying MCP server (for advanced usage).
func (s *Server) GetMCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}
