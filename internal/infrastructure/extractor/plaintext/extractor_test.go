package plaintext

import (
	"testing"

	"github.com/kirillkom/docverify/internal/core/domain"
)

func TestExtractNormalizesLineEndings(t *testing.T) {
	text, err := Extract([]byte("\xef\xbb\xbfName: Asha Rao\r\nDOB: 01/02/1990\r\n"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "Name: Asha Rao\nDOB: 01/02/1990" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractRejectsBinaryAndEmpty(t *testing.T) {
	for name, raw := range map[string][]byte{
		"binary": {0xff, 0xfe, 0x00, 0x81},
		"empty":  []byte("  \n\t "),
	} {
		if _, err := Extract(raw); !domain.IsKind(err, domain.ErrMalformedDocument) {
			t.Fatalf("%s: expected ErrMalformedDocument, got %v", name, err)
		}
	}
}
