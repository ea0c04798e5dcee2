package api

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/overlap/pkg/extract"
	"github.com/papercomputeco/overlap/pkg/scoring"
)

const (
	statusRunning            = "Backend is running"
	unsupportedFormatMessage = "Unsupported file type. Please upload .txt or .docx"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is returned by the root liveness probe.
type StatusResponse struct {
	Status string `json:"status"`
	Device string `json:"device"`
}

// ExtractResponse carries the plain text of an uploaded file.
type ExtractResponse struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// CompareRequest is the body of POST /api/compare-text.
type CompareRequest struct {
	Text1 string `json:"text1"`
	Text2 string `json:"text2"`
}

// CheckRequest is the body of POST /api/check-text.
type CheckRequest struct {
	Text string `json:"text"`
}

// handleStatus reports liveness and where embeddings are computed.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{
		Status: statusRunning,
		Device: s.config.Device,
	})
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleExtract returns the text of the multipart "file" upload.
func (s *Server) handleExtract(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "file is required"})
	}

	f, err := fh.Open()
	if err != nil {
		return s.writeError(c, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return s.writeError(c, err)
	}

	text, err := extract.Extract(data, extract.Ext(fh.Filename))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(ExtractResponse{
		Filename: fh.Filename,
		Text:     text,
	})
}

// handleCompare scores two texts against each other.
func (s *Server) handleCompare(c *fiber.Ctx) error {
	var req CompareRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	res, err := s.scorer.Compare(requestContext(c), req.Text1, req.Text2)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(res)
}

// handleCheck scores a text against the corpus.
func (s *Server) handleCheck(c *fiber.Ctx) error {
	var req CheckRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	res, err := s.scorer.Check(requestContext(c), req.Text)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(res)
}

func (s *Server) writeError(c *fiber.Ctx, err error) error {
	status, msg := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", c.Path(),
			"status", status,
			"request_id", requestID(c),
			"error", err,
		)
	}
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

// errorStatus maps pipeline and extraction errors to an HTTP status and a
// client-facing message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, scoring.ErrEmptyInput):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return fiber.StatusBadRequest, unsupportedFormatMessage
	case errors.Is(err, scoring.ErrProviderTimeout):
		return fiber.StatusGatewayTimeout, err.Error()
	default:
		return fiber.StatusInternalServerError, err.Error()
	}
}
