package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	documentPart = "word/document.xml"
	wordML       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

	// maxDocumentSize caps the decompressed document part.
	maxDocumentSize = 64 << 20
)

var errNoDocument = errors.New("missing " + documentPart)

// docx returns the text of each top-level body paragraph, skipping paragraphs
// with no text, joined by newlines. Paragraphs inside tables are not included.
func docx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	for _, f := range zr.File {
		if f.Name != documentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()

		paragraphs, err := paragraphs(io.LimitReader(rc, maxDocumentSize))
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", documentPart, err)
		}
		return strings.Join(paragraphs, "\n"), nil
	}

	return "", errNoDocument
}

func paragraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		out   []string
		stack []string
		buf   strings.Builder
		// depth of the body-level paragraph being collected, 0 when none
		paraDepth int
		inText    bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local
			if t.Name.Space != wordML {
				local = ""
			}

			var parent string
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}

			if local == "p" && paraDepth == 0 && parent == "body" {
				paraDepth = len(stack) + 1
				buf.Reset()
			}
			stack = append(stack, local)

			// tab stops in paragraph properties are also w:tab
			if paraDepth == 0 || parent != "r" {
				continue
			}
			switch local {
			case "t":
				inText = true
			case "tab":
				buf.WriteByte('\t')
			case "br", "cr":
				buf.WriteByte('\n')
			}

		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			local := stack[len(stack)-1]
			if local == "t" {
				inText = false
			}
			if paraDepth == len(stack) && local == "p" {
				if buf.Len() > 0 {
					out = append(out, buf.String())
				}
				paraDepth = 0
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if inText && paraDepth > 0 {
				buf.Write(t)
			}
		}
	}

	return out, nil
}
