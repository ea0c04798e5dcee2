// Package mcp provides an MCP (Model Context Protocol) server exposing the
// overlap scoring tools.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/overlap/pkg/scoring"
	"github.com/papercomputeco/overlap/pkg/utils"
)

type Config struct {
	// Scorer serves the compare and check tools
	Scorer scoring.Scorer

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the compare_texts and check_text
// tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "overlap",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Scorer == nil {
			return nil, errors.New("scorer is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        compareToolName,
			Description: compareDescription,
		}, s.handleCompare)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        checkToolName,
			Description: checkDescription,
		}, s.handleCheck)
	}

	s.mcpServer = mcpServer

	// stateless: every request is independent
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
