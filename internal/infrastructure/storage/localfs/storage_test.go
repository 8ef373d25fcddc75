package localfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/docverify/internal/core/domain"
)

func TestSaveAndOpen(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	ctx := context.Background()

	if err := s.Save(ctx, "req_uploaded_ec_ec.txt", strings.NewReader("Name: Asha Rao")); err != nil {
		t.Fatalf("save: %v", err)
	}
	rc, err := s.Open(ctx, "req_uploaded_ec_ec.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	if string(raw) != "Name: Asha Rao" {
		t.Fatalf("unexpected body: %q", raw)
	}
}

func TestOpenMissingIsInputNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	if _, err := s.Open(context.Background(), "absent.pdf"); !domain.IsKind(err, domain.ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	for _, key := range []string{"../secret", "a/b", "..", ""} {
		if _, err := s.Open(context.Background(), key); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("key %q: expected ErrInvalidInput, got %v", key, err)
		}
	}
}

func TestPathReaderMapsMissingFiles(t *testing.T) {
	if _, err := (PathReader{}).Open(context.Background(), t.TempDir()+"/pan.pdf"); !domain.IsKind(err, domain.ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
}
