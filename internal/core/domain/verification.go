package domain

import (
	"math"
	"time"
)

type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityHigh Severity = "high"
)

// DocumentSource distinguishes the current submission from the original reference set.
type DocumentSource string

const (
	SourceUploaded DocumentSource = "uploaded"
	SourceOriginal DocumentSource = "original"
)

// DocumentRef names one side of a comparison, e.g. uploaded/aadhaar.
type DocumentRef struct {
	Source DocumentSource `json:"source"`
	Type   DocumentType   `json:"type"`
}

func (r DocumentRef) String() string {
	return string(r.Source) + "/" + string(r.Type)
}

type FieldMismatch struct {
	Field       FieldName   `json:"field"`
	ValueLeft   string      `json:"value_left"`
	ValueRight  string      `json:"value_right"`
	SourceLeft  DocumentRef `json:"source_left"`
	SourceRight DocumentRef `json:"source_right"`
	Severity    Severity    `json:"severity"`
}

// AmbiguousField records a comparison where only one side carried the field.
type AmbiguousField struct {
	Field   FieldName   `json:"field"`
	Present DocumentRef `json:"present"`
	Absent  DocumentRef `json:"absent"`
}

type FailureKind string

const (
	FailureInputNotFound     FailureKind = "input_not_found"
	FailureMalformedDocument FailureKind = "malformed_document"
	FailureUnknown           FailureKind = "unknown"
)

type DocumentFailure struct {
	Document DocumentRef `json:"document"`
	Kind     FailureKind `json:"kind"`
	Message  string      `json:"message"`
}

type VerificationResult struct {
	ID                  string            `json:"id"`
	CycleID             string            `json:"cycle_id"`
	SubjectID           string            `json:"subject_id"`
	Verified            bool              `json:"verified"`
	RiskScore           float64           `json:"risk_score"`
	Mismatches          []FieldMismatch   `json:"mismatches"`
	Ambiguities         []AmbiguousField  `json:"ambiguities"`
	Failures            []DocumentFailure `json:"failures"`
	FieldMismatchRisk   float64           `json:"field_mismatch_risk"`
	DocumentQualityRisk float64           `json:"document_quality_risk"`
	ConsistencyRisk     float64           `json:"consistency_risk"`
	Notes               string            `json:"notes"`
	Timestamp           time.Time         `json:"timestamp"`
}

// HasHighSeverity reports whether any mismatch is substantive.
func (r VerificationResult) HasHighSeverity() bool {
	for _, m := range r.Mismatches {
		if m.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

type CycleState string

const (
	CycleNotSubmitted CycleState = "not_submitted"
	CycleSubmitted    CycleState = "submitted"
	CycleExtracted    CycleState = "extracted"
	CycleVerified     CycleState = "verified"
	CycleFlagged      CycleState = "flagged"
)

func (s CycleState) Terminal() bool {
	return s == CycleVerified || s == CycleFlagged
}

// Cycle is one submission attempt for a subject. Terminal cycles are never reopened.
type Cycle struct {
	ID         string     `json:"id"`
	SubjectID  string     `json:"subject_id"`
	State      CycleState `json:"state"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// DocumentHandle is a readable reference to a stored document.
type DocumentHandle struct {
	Type DocumentType `json:"type"`
	Key  string       `json:"key"`
}

// VerificationRequest carries one submission: the uploaded set and an optional original reference set.
type VerificationRequest struct {
	RequestID   string           `json:"request_id,omitempty"`
	CycleID     string           `json:"cycle_id,omitempty"` // set when the submission already opened the cycle
	SubjectID   string           `json:"subject_id"`
	Uploaded    []DocumentHandle `json:"uploaded"`
	Original    []DocumentHandle `json:"original,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at,omitempty"` // zero for synchronous verification
}

// ClampScore bounds a score to [0,100]. NaN maps to 0.
func ClampScore(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
