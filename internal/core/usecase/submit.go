package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docverify/internal/core/domain"
	"github.com/kirillkom/docverify/internal/core/ports"
)

type SubmitOptions struct {
	// StaleAfter expires a subject's unfinished cycle once it is this old. Zero disables expiry.
	StaleAfter time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

type SubmitUseCase struct {
	storage    ports.ObjectStorage
	queue      ports.MessageQueue
	cycles     ports.CycleStore
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

func NewSubmitUseCase(storage ports.ObjectStorage, queue ports.MessageQueue, cycles ports.CycleStore, opts SubmitOptions) *SubmitUseCase {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &SubmitUseCase{
		storage:    storage,
		queue:      queue,
		cycles:     cycles,
		staleAfter: opts.StaleAfter,
		logger:     opts.Logger,
		now:        opts.Now,
		newID:      opts.NewID,
	}
}

// Submit opens a new cycle for the subject, stores every upload and publishes
// one verification request carrying the cycle id. A subject whose previous
// cycle is still running is rejected with domain.ErrCycleActive.
func (uc *SubmitUseCase) Submit(ctx context.Context, subjectID string, uploads []ports.Upload) (domain.VerificationRequest, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return domain.VerificationRequest{}, domain.WrapError(domain.ErrInvalidInput, "submit documents", errors.New("subject id is required"))
	}
	if err := validateUploads(uploads); err != nil {
		return domain.VerificationRequest{}, err
	}

	now := uc.now()
	if uc.staleAfter > 0 {
		expired, err := uc.cycles.ExpireStaleCycles(ctx, subjectID, now.Add(-uc.staleAfter), "cycle expired before verification finished")
		if err != nil {
			return domain.VerificationRequest{}, fmt.Errorf("expire stale cycles: %w", err)
		}
		if expired > 0 {
			uc.logger.Warn("verification_cycle_expired", "subject_id", subjectID, "cycles", expired)
		}
	}

	cycle := &domain.Cycle{
		ID:        uc.newID(),
		SubjectID: subjectID,
		State:     domain.CycleSubmitted,
		StartedAt: now,
	}
	if err := uc.cycles.CreateCycle(ctx, cycle); err != nil {
		return domain.VerificationRequest{}, fmt.Errorf("create verification cycle: %w", err)
	}

	req := domain.VerificationRequest{
		RequestID:   uc.newID(),
		CycleID:     cycle.ID,
		SubjectID:   subjectID,
		Uploaded:    []domain.DocumentHandle{},
		SubmittedAt: now,
	}
	for _, up := range uploads {
		key := fmt.Sprintf("%s_%s_%s_%s", req.RequestID, up.Source, up.Type, sanitizeFilename(up.Filename))
		if err := uc.storage.Save(ctx, key, up.Body); err != nil {
			ref := domain.DocumentRef{Source: up.Source, Type: up.Type}
			return domain.VerificationRequest{}, uc.abandon(ctx, cycle.ID, fmt.Errorf("save %s to object storage: %w", ref, err))
		}
		handle := domain.DocumentHandle{Type: up.Type, Key: key}
		if up.Source == domain.SourceOriginal {
			req.Original = append(req.Original, handle)
		} else {
			req.Uploaded = append(req.Uploaded, handle)
		}
	}

	if err := uc.queue.PublishVerificationRequested(ctx, req); err != nil {
		return domain.VerificationRequest{}, uc.abandon(ctx, cycle.ID, fmt.Errorf("publish verification request: %w", err))
	}
	return req, nil
}

// abandon flags a cycle whose submission never reached the queue so the subject can resubmit.
func (uc *SubmitUseCase) abandon(ctx context.Context, cycleID string, cause error) error {
	if err := uc.cycles.UpdateCycleState(context.WithoutCancel(ctx), cycleID, domain.CycleFlagged, cause.Error()); err != nil {
		return fmt.Errorf("%w; mark cycle flagged: %v", cause, err)
	}
	uc.logger.Error("submission_abandoned", "cycle_id", cycleID, "error", cause)
	return cause
}

func validateUploads(uploads []ports.Upload) error {
	seen := map[domain.DocumentRef]bool{}
	uploaded := 0
	for _, up := range uploads {
		ref := domain.DocumentRef{Source: up.Source, Type: up.Type}
		if !up.Type.Valid() || (up.Source != domain.SourceUploaded && up.Source != domain.SourceOriginal) {
			return domain.WrapError(domain.ErrInvalidInput, "submit documents", fmt.Errorf("unsupported document %s", ref))
		}
		if seen[ref] {
			return domain.WrapError(domain.ErrInvalidInput, "submit documents", fmt.Errorf("duplicate document %s", ref))
		}
		seen[ref] = true
		if up.Source == domain.SourceUploaded {
			uploaded++
		}
	}
	if uploaded == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "submit documents", errors.New("at least one uploaded document is required"))
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "document.bin"
	}
	return base
}
