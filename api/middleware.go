package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/overlap/pkg/scoring"
)

const requestIDLocal = "requestid"

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDLocal).(string)
	return id
}

// requestContext carries the request id into the scoring pipeline.
func requestContext(c *fiber.Ctx) context.Context {
	return scoring.WithRequestID(c.UserContext(), requestID(c))
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
		"request_id", requestID(c),
	)
	return err
}

// errorHandler renders errors that escape handlers, such as unknown routes
// and oversized bodies, in the same shape as handler errors.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}
