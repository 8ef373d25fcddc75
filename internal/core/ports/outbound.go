package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/docverify/internal/core/domain"
)

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextLoader turns a stored document into one plain-text blob.
// A missing handle fails with domain.ErrInputNotFound, an unreadable text layer with domain.ErrMalformedDocument.
type TextLoader interface {
	Load(ctx context.Context, key string) (string, error)
}

// FieldExtractor applies the rule table of one document type to text.
type FieldExtractor interface {
	Extract(docType domain.DocumentType, text string) domain.ExtractedDocument
}

// CycleStore tracks submission cycles.
type CycleStore interface {
	// CreateCycle fails with domain.ErrCycleActive while the subject has a non-terminal cycle.
	CreateCycle(ctx context.Context, cycle *domain.Cycle) error
	// GetCycle fails with domain.ErrNotFound for an unknown id.
	GetCycle(ctx context.Context, cycleID string) (*domain.Cycle, error)
	UpdateCycleState(ctx context.Context, cycleID string, state domain.CycleState, errMessage string) error
	// ExpireStaleCycles flags the subject's non-terminal cycles started before cutoff and reports how many changed.
	ExpireStaleCycles(ctx context.Context, subjectID string, cutoff time.Time, reason string) (int, error)
}

// VerificationRepository persists cycles, extractions and insert-only results.
type VerificationRepository interface {
	CycleStore
	SaveExtraction(ctx context.Context, cycleID string, ref domain.DocumentRef, doc domain.ExtractedDocument) error
	SaveResult(ctx context.Context, result *domain.VerificationResult) error
	GetResult(ctx context.Context, id string) (*domain.VerificationResult, error)
	// ListResults returns a subject's results newest first.
	ListResults(ctx context.Context, subjectID string, limit int) ([]domain.VerificationResult, error)
}

// MessageQueue publishes/consumes verification requests.
type MessageQueue interface {
	PublishVerificationRequested(ctx context.Context, req domain.VerificationRequest) error
	SubscribeVerificationRequested(ctx context.Context, handler func(context.Context, domain.VerificationRequest) error) error
}

// ResultExporter renders verification history for download.
type ResultExporter interface {
	Export(ctx context.Context, results []domain.VerificationResult) ([]byte, error)
}

// VerificationObserver receives cycle outcomes for metrics.
type VerificationObserver interface {
	ObserveCycle(state domain.CycleState, riskScore float64, duration time.Duration)
	ObserveDocumentFailure(docType domain.DocumentType, kind domain.FailureKind)
}
