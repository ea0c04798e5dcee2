// Package cliui provides reusable terminal UI helpers (spinners, step
// indicators, result tables, markdown rendering) for overlap CLI commands.
package cliui

import (
	"fmt"
	"io"
	"os"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	NameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	PreviewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Italic(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	highStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	midStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	lowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
)

// Score thresholds, in percent, for ScoreStyle.
const (
	HighOverlap = 80.0
	MidOverlap  = 50.0
)

// spinnerFrames matches bubbletea's spinner.Dot pattern.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			lipgloss.Fprint(w, fmt.Sprintf("\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			))

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)
	<-stopped

	lipgloss.Fprint(w, fmt.Sprintf("\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	))

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// FormatPercent formats a similarity percentage with two decimals.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}

// ScoreStyle colors a similarity percentage by how much overlap it signals.
func ScoreStyle(p float64) lipgloss.Style {
	switch {
	case p >= HighOverlap:
		return highStyle
	case p >= MidOverlap:
		return midStyle
	default:
		return lowStyle
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// IsTerminalWriter reports whether w is a file attached to a terminal.
func IsTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && IsTerminal(f)
}

// RenderMarkdown renders markdown content for terminal display using glamour.
// The style follows the terminal background.
func RenderMarkdown(content string) (string, error) {
	style := "light"
	if termenv.HasDarkBackground() {
		style = "dark"
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
