// Package pdfutil turns uploaded application PDFs into plain text for the
// extraction stage.
package pdfutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

var (
	// ErrNotPDF is returned when the payload does not start with a PDF header.
	ErrNotPDF = errors.New("not a pdf document")
	// ErrNoText is returned for PDFs without an extractable text layer, such as
	// scanned applications.
	ErrNoText = errors.New("pdf has no text layer")
)

var magic = []byte("%PDF-")

// LooksLikePDF reports whether data starts with the PDF header.
func LooksLikePDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), magic)
}

// ExtractText returns the text of every page, one page per line block.
func ExtractText(data []byte) (string, error) {
	if !LooksLikePDF(data) {
		return "", ErrNotPDF
	}
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var pages []string
	for n := 1; n <= doc.NumPage(); n++ {
		page := doc.Page(n)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", n, err)
		}
		if content = strings.TrimSpace(content); content != "" {
			pages = append(pages, content)
		}
	}
	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n"), nil
}

// ExtractFromReader reads at most limit bytes from r and extracts the text.
// A non-positive limit disables the cap.
func ExtractFromReader(r io.Reader, limit int64) (string, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", fmt.Errorf("pdf larger than %d bytes", limit)
	}
	return ExtractText(data)
}
