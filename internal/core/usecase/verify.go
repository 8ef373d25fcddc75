package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/docverify/internal/core/domain"
	"github.com/kirillkom/docverify/internal/core/ports"
	"github.com/kirillkom/docverify/internal/core/reconcile"
	"github.com/kirillkom/docverify/internal/core/risk"
)

const defaultExtractionConcurrency = 6

type VerifyOptions struct {
	Concurrency int
	Observer    ports.VerificationObserver
	Logger      *slog.Logger
	Now         func() time.Time
	NewID       func() string
}

type VerifyUseCase struct {
	repo        ports.VerificationRepository
	loader      ports.TextLoader
	extractor   ports.FieldExtractor
	reconciler  *reconcile.Reconciler
	scorer      *risk.Scorer
	observer    ports.VerificationObserver
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
	newID       func() string
}

func NewVerifyUseCase(
	repo ports.VerificationRepository,
	loader ports.TextLoader,
	extractor ports.FieldExtractor,
	reconciler *reconcile.Reconciler,
	scorer *risk.Scorer,
	opts VerifyOptions,
) *VerifyUseCase {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultExtractionConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &VerifyUseCase{
		repo:        repo,
		loader:      loader,
		extractor:   extractor,
		reconciler:  reconciler,
		scorer:      scorer,
		observer:    opts.Observer,
		logger:      opts.Logger,
		concurrency: opts.Concurrency,
		now:         opts.Now,
		newID:       opts.NewID,
	}
}

type documentOutcome struct {
	ref domain.DocumentRef
	doc domain.ExtractedDocument
	err error
}

// Verify runs one full cycle: Submitted, Extracted, then Verified or Flagged.
// Per-document failures are recorded on the result and never abort the cycle.
func (uc *VerifyUseCase) Verify(ctx context.Context, req domain.VerificationRequest) (*domain.VerificationResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	started := uc.now()
	cycle, err := uc.startCycle(ctx, req, started)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("verification_cycle_started",
		"cycle_id", cycle.ID,
		"subject_id", req.SubjectID,
		"request_id", req.RequestID,
		"uploaded", len(req.Uploaded),
		"original", len(req.Original),
	)

	outcomes, err := uc.extractAll(ctx, req)
	if err != nil {
		return nil, uc.failCycle(ctx, cycle.ID, fmt.Errorf("extract documents: %w", err))
	}
	if err := uc.persistExtractions(ctx, cycle.ID, outcomes); err != nil {
		return nil, uc.failCycle(ctx, cycle.ID, err)
	}
	if err := uc.repo.UpdateCycleState(ctx, cycle.ID, domain.CycleExtracted, ""); err != nil {
		return nil, uc.failCycle(ctx, cycle.ID, fmt.Errorf("set state=extracted: %w", err))
	}

	result := uc.assess(cycle, outcomes)
	if err := uc.repo.SaveResult(ctx, result); err != nil {
		return nil, uc.failCycle(ctx, cycle.ID, fmt.Errorf("save verification result: %w", err))
	}

	state := domain.CycleVerified
	if !result.Verified {
		state = domain.CycleFlagged
	}
	// The result is already stored; the cycle must not stay active if ctx ends here.
	if err := uc.repo.UpdateCycleState(context.WithoutCancel(ctx), cycle.ID, state, failureSummary(result.Failures)); err != nil {
		return nil, fmt.Errorf("set state=%s: %w", state, err)
	}

	duration := uc.now().Sub(started)
	if uc.observer != nil {
		uc.observer.ObserveCycle(state, result.RiskScore, duration)
	}
	uc.logger.Info("verification_cycle_finished",
		"cycle_id", cycle.ID,
		"subject_id", req.SubjectID,
		"state", string(state),
		"risk_score", result.RiskScore,
		"verified", result.Verified,
		"mismatches", len(result.Mismatches),
		"failures", len(result.Failures),
		"duration_ms", duration.Milliseconds(),
	)
	return result, nil
}

// startCycle opens a new cycle, or picks up the one the submission opened.
// A picked-up cycle must belong to the subject and still be submitted.
func (uc *VerifyUseCase) startCycle(ctx context.Context, req domain.VerificationRequest, started time.Time) (*domain.Cycle, error) {
	if req.CycleID == "" {
		cycle := &domain.Cycle{
			ID:        uc.newID(),
			SubjectID: req.SubjectID,
			State:     domain.CycleSubmitted,
			StartedAt: started,
		}
		if err := uc.repo.CreateCycle(ctx, cycle); err != nil {
			return nil, fmt.Errorf("create verification cycle: %w", err)
		}
		return cycle, nil
	}

	cycle, err := uc.repo.GetCycle(ctx, req.CycleID)
	if err != nil {
		return nil, fmt.Errorf("load verification cycle: %w", err)
	}
	if cycle.SubjectID != req.SubjectID {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load verification cycle", fmt.Errorf("cycle %s belongs to another subject", cycle.ID))
	}
	if cycle.State != domain.CycleSubmitted {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load verification cycle", fmt.Errorf("cycle %s is already %s", cycle.ID, cycle.State))
	}
	return cycle, nil
}

// extractAll processes every document concurrently. An uploaded type with no
// handle is an input-not-found failure. Only cancellation of ctx is returned as
// an error; document failures are kept on their outcome.
func (uc *VerifyUseCase) extractAll(ctx context.Context, req domain.VerificationRequest) ([]documentOutcome, error) {
	type job struct {
		ref     domain.DocumentRef
		key     string
		missing bool
	}
	jobs := make([]job, 0, len(domain.DocumentTypes)+len(req.Original))
	for _, t := range domain.DocumentTypes {
		ref := domain.DocumentRef{Source: domain.SourceUploaded, Type: t}
		key, ok := handleKey(req.Uploaded, t)
		jobs = append(jobs, job{ref: ref, key: key, missing: !ok})
	}
	for _, h := range req.Original {
		jobs = append(jobs, job{ref: domain.DocumentRef{Source: domain.SourceOriginal, Type: h.Type}, key: h.Key})
	}

	outcomes := make([]documentOutcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for i, j := range jobs {
		if j.missing {
			err := domain.WrapError(domain.ErrInputNotFound, "load document", fmt.Errorf("no %s document in submission", j.ref.Type.Label()))
			outcomes[i] = documentOutcome{
				ref: j.ref,
				doc: domain.AbsentDocument(j.ref.Type),
				err: domain.NewDocumentError(j.ref.Source, j.ref.Type, domain.ErrInputNotFound, err),
			}
			continue
		}
		g.Go(func() error {
			text, err := uc.loader.Load(gctx, j.key)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				outcomes[i] = documentOutcome{
					ref: j.ref,
					doc: domain.AbsentDocument(j.ref.Type),
					err: domain.NewDocumentError(j.ref.Source, j.ref.Type, failureKindError(err), err),
				}
				return nil
			}
			outcomes[i] = documentOutcome{ref: j.ref, doc: uc.extractor.Extract(j.ref.Type, text)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (uc *VerifyUseCase) persistExtractions(ctx context.Context, cycleID string, outcomes []documentOutcome) error {
	for _, o := range outcomes {
		if o.err != nil {
			continue
		}
		if err := uc.repo.SaveExtraction(ctx, cycleID, o.ref, o.doc); err != nil {
			return fmt.Errorf("save %s extraction: %w", o.ref, err)
		}
	}
	return nil
}

func (uc *VerifyUseCase) assess(cycle *domain.Cycle, outcomes []documentOutcome) *domain.VerificationResult {
	in := reconcile.Input{
		Uploaded: map[domain.DocumentType]domain.ExtractedDocument{},
		Original: map[domain.DocumentType]domain.ExtractedDocument{},
	}
	failures := []domain.DocumentFailure{}
	confidences := make([]float64, 0, len(outcomes))
	uploadedOK := 0

	for _, o := range outcomes {
		if o.ref.Source == domain.SourceOriginal {
			in.Original[o.ref.Type] = o.doc
		} else {
			in.Uploaded[o.ref.Type] = o.doc
		}
		confidences = append(confidences, o.doc.Confidence)

		if o.err != nil {
			failure := domain.DocumentFailure{
				Document: o.ref,
				Kind:     domain.FailureKindOf(o.err),
				Message:  o.err.Error(),
			}
			failures = append(failures, failure)
			uc.logger.Warn("document_failed",
				"cycle_id", cycle.ID,
				"document", o.ref.String(),
				"kind", string(failure.Kind),
				"error", o.err,
			)
			if uc.observer != nil {
				uc.observer.ObserveDocumentFailure(o.ref.Type, failure.Kind)
			}
			continue
		}
		if o.ref.Source == domain.SourceUploaded {
			uploadedOK++
		}
	}

	result := &domain.VerificationResult{
		ID:          uc.newID(),
		CycleID:     cycle.ID,
		SubjectID:   cycle.SubjectID,
		Mismatches:  []domain.FieldMismatch{},
		Ambiguities: []domain.AmbiguousField{},
		Failures:    failures,
		Timestamp:   uc.now(),
	}

	if uploadedOK == 0 {
		applyAssessment(result, risk.Failed())
		result.Verified = false
		result.Notes = fmt.Sprintf("No uploaded document could be read. %d document failures.", len(failures))
		return result
	}

	report := uc.reconciler.Reconcile(in)
	assessment := uc.scorer.Assess(risk.Input{
		Mismatches:  report.Mismatches,
		Confidences: confidences,
		Ambiguities: len(report.Ambiguities),
	})
	applyAssessment(result, assessment)
	result.Mismatches = report.Mismatches
	result.Ambiguities = report.Ambiguities
	if len(failures) > 0 {
		result.Verified = false
	}
	result.Notes = fmt.Sprintf(
		"Compared %d field pairs. %d mismatches (%d high), %d ambiguous, %d document failures.",
		report.Compared, len(report.Mismatches), countHigh(report.Mismatches), len(report.Ambiguities), len(failures),
	)
	return result
}

func (uc *VerifyUseCase) failCycle(ctx context.Context, cycleID string, cause error) error {
	// The cycle must leave its active state even when the caller has gone away.
	ctx = context.WithoutCancel(ctx)
	if err := uc.repo.UpdateCycleState(ctx, cycleID, domain.CycleFlagged, cause.Error()); err != nil {
		return fmt.Errorf("%w; mark cycle flagged: %v", cause, err)
	}
	uc.logger.Error("verification_cycle_failed", "cycle_id", cycleID, "error", cause)
	return cause
}

func applyAssessment(result *domain.VerificationResult, a risk.Assessment) {
	result.Verified = a.Verified
	result.RiskScore = a.RiskScore
	result.FieldMismatchRisk = a.FieldMismatchRisk
	result.DocumentQualityRisk = a.DocumentQualityRisk
	result.ConsistencyRisk = a.ConsistencyRisk
}

func countHigh(mismatches []domain.FieldMismatch) int {
	n := 0
	for _, m := range mismatches {
		if m.Severity == domain.SeverityHigh {
			n++
		}
	}
	return n
}

func failureSummary(failures []domain.DocumentFailure) string {
	if len(failures) == 0 {
		return ""
	}
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, f.Document.String()+": "+string(f.Kind))
	}
	return strings.Join(parts, "; ")
}

func handleKey(handles []domain.DocumentHandle, docType domain.DocumentType) (string, bool) {
	for _, h := range handles {
		if h.Type == docType {
			return h.Key, true
		}
	}
	return "", false
}

func failureKindError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInputNotFound):
		return domain.ErrInputNotFound
	case errors.Is(err, domain.ErrMalformedDocument):
		return domain.ErrMalformedDocument
	default:
		return domain.ErrTemporary
	}
}

func validateRequest(req domain.VerificationRequest) error {
	if strings.TrimSpace(req.SubjectID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate verification request", errors.New("subject id is required"))
	}
	if len(req.Uploaded) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate verification request", errors.New("at least one uploaded document is required"))
	}
	for _, set := range []struct {
		name    string
		handles []domain.DocumentHandle
	}{{"uploaded", req.Uploaded}, {"original", req.Original}} {
		seen := map[domain.DocumentType]bool{}
		for _, h := range set.handles {
			if !h.Type.Valid() {
				return domain.WrapError(domain.ErrInvalidInput, "validate verification request", fmt.Errorf("unknown %s document type %q", set.name, h.Type))
			}
			if seen[h.Type] {
				return domain.WrapError(domain.ErrInvalidInput, "validate verification request", fmt.Errorf("duplicate %s %s document", set.name, h.Type))
			}
			seen[h.Type] = true
		}
	}
	return nil
}
