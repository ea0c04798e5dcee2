// Package report renders scoring results for the terminal or for machines.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/papercomputeco/overlap/pkg/cliui"
	"github.com/papercomputeco/overlap/pkg/scoring"
	"github.com/papercomputeco/overlap/pkg/utils"
)

// Format selects how results are written.
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown output format")

// previewWidth bounds the preview column of the check table.
const previewWidth = 60

// Formats lists the accepted format names.
func Formats() []string {
	return []string{string(FormatTable), string(FormatMarkdown), string(FormatJSON)}
}

// ParseFormat validates s as a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatMarkdown, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownFormat, s, strings.Join(Formats(), ", "))
	}
}

// Writer renders results in a fixed format.
type Writer struct {
	w      io.Writer
	format Format

	// pretty renders markdown through glamour
	pretty bool
}

// NewWriter returns a Writer. pretty only affects FormatMarkdown.
func NewWriter(w io.Writer, format Format, pretty bool) *Writer {
	return &Writer{w: w, format: format, pretty: pretty}
}

// Compare writes the outcome of a pairwise comparison.
func (r *Writer) Compare(res *scoring.CompareResult) error {
	switch r.format {
	case FormatJSON:
		return r.json(res)
	case FormatMarkdown:
		return r.markdown(CompareMarkdown(res))
	default:
		_, err := lipgloss.Fprint(r.w, fmt.Sprintf("\n  %s %s\n\n",
			cliui.KeyStyle.Render("Similarity:"),
			cliui.ScoreStyle(res.Similarity).Render(cliui.FormatPercent(res.Similarity)),
		))
		return err
	}
}

// Check writes the outcome of a corpus check.
func (r *Writer) Check(res *scoring.CheckResult) error {
	switch r.format {
	case FormatJSON:
		return r.json(res)
	case FormatMarkdown:
		return r.markdown(CheckMarkdown(res))
	default:
		return r.checkTable(res)
	}
}

func (r *Writer) checkTable(res *scoring.CheckResult) error {
	if len(res.Results) == 0 {
		_, err := lipgloss.Fprint(r.w, fmt.Sprintf("\n  %s\n\n", cliui.DimStyle.Render("No matching documents.")))
		return err
	}

	rows := make([][]string, 0, len(res.Results))
	for i, m := range res.Results {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.DocumentName,
			cliui.FormatPercent(m.Similarity),
			utils.Truncate(flatten(m.PreviewText), previewWidth),
		})
	}

	t := cliui.Table([]string{"#", "Document", "Similarity", "Preview"}, rows, func(row, col int) lipgloss.Style {
		switch col {
		case 1:
			return cliui.NameStyle
		case 2:
			return cliui.ScoreStyle(res.Results[row].Similarity)
		case 3:
			return cliui.PreviewStyle
		default:
			return cliui.DimStyle
		}
	})

	_, err := lipgloss.Fprint(r.w, fmt.Sprintf("\n%s\n\n  %s %s\n\n",
		t,
		cliui.KeyStyle.Render("Average similarity:"),
		cliui.ScoreStyle(res.AverageScore).Render(cliui.FormatPercent(res.AverageScore)),
	))
	return err
}

func (r *Writer) markdown(md string) error {
	out := md
	if r.pretty {
		rendered, err := cliui.RenderMarkdown(md)
		if err == nil {
			out = rendered
		}
	}
	_, err := io.WriteString(r.w, out)
	return err
}

func (r *Writer) json(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// CompareMarkdown formats a comparison as a markdown document.
func CompareMarkdown(res *scoring.CompareResult) string {
	return fmt.Sprintf("## Comparison\n\n**Similarity:** %s\n", cliui.FormatPercent(res.Similarity))
}

// CheckMarkdown formats a corpus check as a markdown document with a summary
// table followed by each match's preview.
func CheckMarkdown(res *scoring.CheckResult) string {
	var b strings.Builder
	b.WriteString("## Overlap report\n\n")

	if len(res.Results) == 0 {
		b.WriteString("No matching documents.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "**Average similarity:** %s\n\n", cliui.FormatPercent(res.AverageScore))
	b.WriteString("| # | Document | Similarity |\n|---|---|---|\n")
	for i, m := range res.Results {
		fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, escapeCell(m.DocumentName), cliui.FormatPercent(m.Similarity))
	}

	for i, m := range res.Results {
		fmt.Fprintf(&b, "\n### %d. %s\n\n> %s\n", i+1, m.DocumentName, flatten(m.PreviewText))
	}

	return b.String()
}

// flatten collapses runs of whitespace, including newlines, to single spaces.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(flatten(s), "|", `\|`)
}
