package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/docverify/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestExtractCommandPrintsDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pan.txt", "Name: Asha Rao\nDate of Birth: 01/02/1990\nPermanent Account Number: ABCDE1234F")

	out, err := run(t, "extract", "--type", "pan", path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var doc domain.ExtractedDocument
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if doc.DocumentType != domain.DocumentPAN || doc.Field(domain.FieldPANNumber).Value != "ABCDE1234F" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestExtractCommandRejectsUnknownType(t *testing.T) {
	path := writeFile(t, t.TempDir(), "doc.txt", "Name: Asha Rao")

	_, err := run(t, "extract", "--type", "passport", path)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestExtractCommandReportsMissingFile(t *testing.T) {
	_, err := run(t, "extract", "--type", "ec", filepath.Join(t.TempDir(), "absent.txt"))
	if !errors.Is(err, domain.ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
}

func TestVerifyCommandConsistentDocuments(t *testing.T) {
	dir := t.TempDir()
	ec := writeFile(t, dir, "ec.txt", "Name: Asha Rao\nDOB: 01/02/1990\nSurvey No: 4521")
	aadhaar := writeFile(t, dir, "aadhaar.txt", "Name: ASHA  RAO\nDOB: 01/02/1990\nAadhaar No: 1234 5678 9012")
	pan := writeFile(t, dir, "pan.txt", "Name: Asha Rao\nDate of Birth: 01/02/1990\nPermanent Account Number: ABCDE1234F")

	out, err := run(t, "verify", "--ec", ec, "--aadhaar", aadhaar, "--pan", pan, "--subject", "s-9", "--strict")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	var result domain.VerificationResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if !result.Verified || len(result.Mismatches) != 0 || len(result.Failures) != 0 {
		t.Fatalf("expected verified result, got %+v", result)
	}
	if result.SubjectID != "s-9" {
		t.Fatalf("expected subject s-9, got %q", result.SubjectID)
	}
}

func TestVerifyCommandStrictFailsOnMissingDocument(t *testing.T) {
	dir := t.TempDir()
	ec := writeFile(t, dir, "ec.txt", "Name: Asha Rao\nDOB: 01/02/1990")
	aadhaar := writeFile(t, dir, "aadhaar.txt", "Name: Asha Rao\nDOB: 01/02/1990")

	out, err := run(t, "verify", "--ec", ec, "--aadhaar", aadhaar, "--pan", filepath.Join(dir, "absent.txt"), "--strict")
	if !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}
	var result domain.VerificationResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("result must still be printed: %v", err)
	}
	if len(result.Failures) != 1 || result.Failures[0].Kind != domain.FailureInputNotFound || result.Failures[0].Document.Type != domain.DocumentPAN {
		t.Fatalf("expected one PAN input_not_found failure, got %+v", result.Failures)
	}
}

func TestVerifyCommandRequiresUploadedDocument(t *testing.T) {
	_, err := run(t, "verify", "--original-ec", "x.txt")
	if err == nil {
		t.Fatalf("expected error without uploaded documents")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil || out != version+"\n" {
		t.Fatalf("unexpected version output %q err=%v", out, err)
	}
}
