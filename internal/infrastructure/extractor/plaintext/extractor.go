package plaintext

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/docverify/internal/core/domain"
)

// Extract returns the text of a UTF-8 document. A byte-order mark is dropped.
func Extract(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrMalformedDocument, "extract plain text", errors.New("unsupported binary format"))
	}
	text := strings.TrimSpace(strings.ReplaceAll(string(raw), "\r\n", "\n"))
	if text == "" {
		return "", domain.WrapError(domain.ErrMalformedDocument, "extract plain text", errors.New("document has no text"))
	}
	return text, nil
}
