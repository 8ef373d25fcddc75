// Package extractor turns stored documents into plain text.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/docverify/internal/core/domain"
	"github.com/kirillkom/docverify/internal/core/ports"
	"github.com/kirillkom/docverify/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/docverify/internal/infrastructure/extractor/plaintext"
)

const defaultMaxDocumentBytes = 32 << 20

var pdfMagic = []byte("%PDF-")

type Loader struct {
	storage  ports.ObjectStorage
	maxBytes int64
}

func NewLoader(storage ports.ObjectStorage, maxBytes int64) *Loader {
	if maxBytes <= 0 {
		maxBytes = defaultMaxDocumentBytes
	}
	return &Loader{storage: storage, maxBytes: maxBytes}
}

// Load reads the stored document and picks the decoder from its leading bytes.
func (l *Loader) Load(ctx context.Context, key string) (string, error) {
	reader, err := l.storage.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, l.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	if int64(len(raw)) > l.maxBytes {
		return "", domain.WrapError(domain.ErrMalformedDocument, "read source document", fmt.Errorf("document exceeds %d bytes", l.maxBytes))
	}
	return Decode(raw)
}

func Decode(raw []byte) (string, error) {
	if bytes.HasPrefix(bytes.TrimLeft(raw, " \t\r\n"), pdfMagic) {
		return pdftext.Extract(raw)
	}
	return plaintext.Extract(raw)
}
