// Package pdftext reads the text layer of PDF documents page by page.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/docverify/internal/core/domain"
)

// Extract concatenates the plain text of every page, one page per block.
// Documents without a text layer (scans) fail with domain.ErrMalformedDocument.
func Extract(raw []byte) (text string, err error) {
	// The pdf reader panics on some corrupt cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = domain.WrapError(domain.ErrMalformedDocument, "read pdf", fmt.Errorf("corrupt document: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrMalformedDocument, "open pdf", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", domain.WrapError(domain.ErrMalformedDocument, "read pdf page", fmt.Errorf("page %d: %w", i, err))
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	text = strings.TrimSpace(sb.String())
	if text == "" {
		return "", domain.WrapError(domain.ErrMalformedDocument, "read pdf", errors.New("no text layer"))
	}
	return text, nil
}
