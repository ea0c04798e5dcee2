package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strings"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/papercomputeco/overlap/api/mcp"
	"github.com/papercomputeco/overlap/pkg/scoring"
)

// Server is the API server for the overlap detector.
type Server struct {
	config Config
	scorer scoring.Scorer
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The scorer is shared with the MCP
// endpoint.
func NewServer(config Config, scorer scoring.Scorer, logger *slog.Logger) (*Server, error) {
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.BodyLimit <= 0 {
		config.BodyLimit = DefaultBodyLimit
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Scorer: scorer,
		Noop:   config.DisableMCP,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create MCP server: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             config.BodyLimit,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		config: config,
		scorer: scorer,
		logger: logger,
		app:    app,
	}

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: requestIDLocal,
	}))
	app.Use(cors.New(corsConfig(config.CORSOrigins)))
	app.Use(s.logRequests)

	app.Get("/", s.handleStatus)
	app.Get("/ping", s.handlePing)
	app.Post("/api/extract-text", s.handleExtract)
	app.Post("/api/compare-text", s.handleCompare)
	app.Post("/api/check-text", s.handleCheck)
	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server", "listen", listener.Addr().String())
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the API server, waiting for in-flight
// requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders:    fiber.HeaderXRequestID,
		AllowCredentials: true,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		// fiber rejects credentials with a wildcard origin
		c.AllowOrigins = "*"
		c.AllowCredentials = false
	}
	return c
}
