// Package mcp exposes the safety engines as MCP tools over stdio or
// streamable HTTP.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/service"
)

// Transport names accepted by Run.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

const (
	serverName    = "rx-safety-engine"
	serverVersion = "v0.1.0"
)

// Server wraps the MCP SDK server with the engine-backed tools.
type Server struct {
	engines   *service.Engines
	logger    *logrus.Logger
	mcpServer *mcp.Server
	tools     []*mcp.Tool
}

// NewServer creates the MCP server and registers every tool.
func NewServer(logger *logrus.Logger, engines *service.Engines) *Server {
	s := &Server{
		engines: engines,
		logger:  logger,
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		}, nil),
	}
	s.registerTools()

	logger.WithField("tool_count", len(s.tools)).Info("Registered MCP tools")
	return s
}

// Tools returns the registered tool definitions.
func (s *Server) Tools() []*mcp.Tool {
	return s.tools
}

func (s *Server) addTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	s.mcpServer.AddTool(tool, handler)
	s.tools = append(s.tools, tool)
	s.logger.WithField("tool_name", tool.Name).Debug("Registered MCP tool")
}

// Run serves MCP until ctx is cancelled. The http transport listens on
// port; stdio ignores it.
func (s *Server) Run(ctx context.Context, transport string, port int) error {
	switch strings.ToLower(transport) {
	case "", TransportStdio:
		s.logger.Info("Starting MCP server on stdio")
		if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil
	case TransportHTTP:
		return s.runHTTP(ctx, port)
	default:
		return fmt.Errorf("unsupported transport %q", transport)
	}
}

func (s *Server) runHTTP(ctx context.Context, port int) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("port", port).Info("Starting MCP server on streamable HTTP")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("MCP HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
