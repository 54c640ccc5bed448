// Package loader extracts plain text from uploaded documents.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat indicates the file extension is not one of the
// supported document types.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extract returns the plain text content of an uploaded document, dispatching
// on the file extension. Supported formats are PDF, plain text, and markdown.
func Extract(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(data)
	case ".txt", ".md", ".markdown", "":
		return strings.TrimSpace(string(data)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// extractPDF extracts plain text from PDF bytes, page by page. Pages that
// fail to parse are skipped.
func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}

	var sb strings.Builder
	numPages := r.NumPage()

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		if i < numPages {
			sb.WriteString("\n\n")
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
