package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/overlap/pkg/scoring"
)

var (
	compareToolName    = "compare_texts"
	compareDescription = "Compare two texts semantically. Returns their similarity as a percentage between 0 and 100."

	checkToolName    = "check_text"
	checkDescription = "Check a text against the reference corpus. Returns up to 5 of the most similar documents with a preview of each, plus the average similarity of those matches."
)

// CompareInput represents the input arguments for the compare_texts tool.
type CompareInput struct {
	Text1 string `json:"text1" jsonschema:"the first text"`
	Text2 string `json:"text2" jsonschema:"the second text"`
}

// CompareOutput represents the output of the compare_texts tool.
type CompareOutput struct {
	Similarity float64 `json:"similarity"`
}

// CheckInput represents the input arguments for the check_text tool.
type CheckInput struct {
	Text string `json:"text" jsonschema:"the text to check against the corpus"`
}

// CheckOutput represents the output of the check_text tool.
type CheckOutput struct {
	AverageScore float64                `json:"average_score"`
	Results      []scoring.ScoredResult `json:"results"`
	Count        int                    `json:"count"`
}

func (s *Server) handleCompare(ctx context.Context, _ *mcp.CallToolRequest, input CompareInput) (*mcp.CallToolResult, CompareOutput, error) {
	logger := s.config.Logger
	logger.Debug("MCP compare request",
		"text1_length", len(input.Text1),
		"text2_length", len(input.Text2),
	)

	res, err := s.config.Scorer.Compare(ctx, input.Text1, input.Text2)
	if err != nil {
		logger.Error("failed to compare texts", "error", err)
		return errorResult("Failed to compare texts: %v", err), CompareOutput{}, nil
	}

	output := CompareOutput{Similarity: res.Similarity}
	return textResult(logger, output), output, nil
}

func (s *Server) handleCheck(ctx context.Context, _ *mcp.CallToolRequest, input CheckInput) (*mcp.CallToolResult, CheckOutput, error) {
	logger := s.config.Logger
	logger.Debug("MCP check request", "text_length", len(input.Text))

	res, err := s.config.Scorer.Check(ctx, input.Text)
	if err != nil {
		logger.Error("failed to check text", "error", err)
		return errorResult("Failed to check text: %v", err), CheckOutput{}, nil
	}

	output := CheckOutput{
		AverageScore: res.AverageScore,
		Results:      res.Results,
		Count:        len(res.Results),
	}
	return textResult(logger, output), output, nil
}

// textResult mirrors the structured output as serialized JSON in a text
// block for clients that ignore structured content.
func textResult(logger *slog.Logger, output any) *mcp.CallToolResult {
	b, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal tool output", "error", err)
		return errorResult("Failed to serialize results: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

func errorResult(format string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, err)},
		},
	}
}
