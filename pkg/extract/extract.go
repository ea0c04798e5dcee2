// Package extract turns uploaded file bytes into plain text.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupportedFormat is returned for extensions other than .txt and .docx.
	ErrUnsupportedFormat = errors.New("unsupported file type")

	// ErrExtraction is returned when a supported file cannot be decoded.
	ErrExtraction = errors.New("failed to extract text")
)

// Supported file extensions.
const (
	ExtText = ".txt"
	ExtDocx = ".docx"
)

// Supported lists the accepted extensions.
func Supported() []string {
	return []string{ExtText, ExtDocx}
}

// Ext returns the normalized extension of filename.
func Ext(filename string) string {
	return normalize(filepath.Ext(filename))
}

// Extract returns the text content of data. ext is matched case-insensitively
// and may be given with or without the leading dot.
func Extract(data []byte, ext string) (string, error) {
	switch e := normalize(ext); e {
	case ExtText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: %s: invalid UTF-8", ErrExtraction, e)
		}
		return string(data), nil
	case ExtDocx:
		text, err := docx(data)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrExtraction, e, err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func normalize(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
