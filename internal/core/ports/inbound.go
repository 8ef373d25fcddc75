package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docverify/internal/core/domain"
)

// DocumentExtractor is the inbound contract for single-document field extraction.
type DocumentExtractor interface {
	ExtractStored(ctx context.Context, docType domain.DocumentType, key string) (domain.ExtractedDocument, error)
	ExtractUpload(ctx context.Context, docType domain.DocumentType, filename string, body io.Reader) (domain.ExtractedDocument, error)
}

// Verifier runs one verification cycle for a submission.
type Verifier interface {
	Verify(ctx context.Context, req domain.VerificationRequest) (*domain.VerificationResult, error)
}

// Upload is one file of a submission.
type Upload struct {
	Source   domain.DocumentSource
	Type     domain.DocumentType
	Filename string
	Body     io.Reader
}

// SubmissionService stores a submission and queues it for asynchronous verification.
type SubmissionService interface {
	Submit(ctx context.Context, subjectID string, uploads []Upload) (domain.VerificationRequest, error)
}

// VerificationReader is the inbound read model for verification history.
type VerificationReader interface {
	GetResult(ctx context.Context, id string) (*domain.VerificationResult, error)
	ListResults(ctx context.Context, subjectID string, limit int) ([]domain.VerificationResult, error)
}
