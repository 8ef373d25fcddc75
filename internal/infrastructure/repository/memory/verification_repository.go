// Package memory keeps verification history in process memory. It backs the
// CLI and tests; the api and worker use the postgres repository.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kirillkom/docverify/internal/core/domain"
)

type extractionKey struct {
	cycleID string
	ref     domain.DocumentRef
}

type VerificationRepository struct {
	mu          sync.Mutex
	cycles      map[string]*domain.Cycle
	active      map[string]string
	extractions map[extractionKey]domain.ExtractedDocument
	results     []domain.VerificationResult
	now         func() time.Time
}

func NewVerificationRepository() *VerificationRepository {
	return &VerificationRepository{
		cycles:      map[string]*domain.Cycle{},
		active:      map[string]string{},
		extractions: map[extractionKey]domain.ExtractedDocument{},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (r *VerificationRepository) CreateCycle(_ context.Context, cycle *domain.Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if activeID, ok := r.active[cycle.SubjectID]; ok {
		return domain.WrapError(domain.ErrCycleActive, "create cycle", fmt.Errorf("subject %s has active cycle %s", cycle.SubjectID, activeID))
	}
	if _, ok := r.cycles[cycle.ID]; ok {
		return domain.WrapError(domain.ErrInvalidInput, "create cycle", fmt.Errorf("duplicate cycle id %s", cycle.ID))
	}
	stored := *cycle
	r.cycles[cycle.ID] = &stored
	r.active[cycle.SubjectID] = cycle.ID
	return nil
}

func (r *VerificationRepository) GetCycle(_ context.Context, cycleID string) (*domain.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cycle, ok := r.cycles[cycleID]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get cycle", fmt.Errorf("cycle %s", cycleID))
	}
	out := *cycle
	return &out, nil
}

func (r *VerificationRepository) ExpireStaleCycles(_ context.Context, subjectID string, cutoff time.Time, reason string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	activeID, ok := r.active[subjectID]
	if !ok {
		return 0, nil
	}
	cycle := r.cycles[activeID]
	if !cycle.StartedAt.Before(cutoff) {
		return 0, nil
	}
	finished := r.now()
	cycle.State = domain.CycleFlagged
	cycle.Error = reason
	cycle.FinishedAt = &finished
	delete(r.active, subjectID)
	return 1, nil
}

func (r *VerificationRepository) UpdateCycleState(_ context.Context, cycleID string, state domain.CycleState, errMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cycle, ok := r.cycles[cycleID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update cycle state", fmt.Errorf("cycle %s", cycleID))
	}
	if cycle.State.Terminal() {
		return domain.WrapError(domain.ErrInvalidInput, "update cycle state", fmt.Errorf("cycle %s is already %s", cycleID, cycle.State))
	}
	cycle.State = state
	cycle.Error = errMessage
	if state.Terminal() {
		finished := r.now()
		cycle.FinishedAt = &finished
		delete(r.active, cycle.SubjectID)
	}
	return nil
}

func (r *VerificationRepository) SaveExtraction(_ context.Context, cycleID string, ref domain.DocumentRef, doc domain.ExtractedDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cycles[cycleID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "save extraction", fmt.Errorf("cycle %s", cycleID))
	}
	r.extractions[extractionKey{cycleID: cycleID, ref: ref}] = doc
	return nil
}

func (r *VerificationRepository) SaveResult(_ context.Context, result *domain.VerificationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.results {
		if existing.ID == result.ID || existing.CycleID == result.CycleID {
			return domain.WrapError(domain.ErrInvalidInput, "save result", fmt.Errorf("result for cycle %s already recorded", result.CycleID))
		}
	}
	r.results = append(r.results, cloneResult(*result))
	return nil
}

func (r *VerificationRepository) GetResult(_ context.Context, id string) (*domain.VerificationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, res := range r.results {
		if res.ID == id {
			out := cloneResult(res)
			return &out, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get result", fmt.Errorf("verification result %s", id))
}

func (r *VerificationRepository) ListResults(_ context.Context, subjectID string, limit int) ([]domain.VerificationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []domain.VerificationResult{}
	for i := len(r.results) - 1; i >= 0; i-- {
		if r.results[i].SubjectID != subjectID {
			continue
		}
		out = append(out, cloneResult(r.results[i]))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Extraction returns the stored document of one cycle.
func (r *VerificationRepository) Extraction(cycleID string, ref domain.DocumentRef) (domain.ExtractedDocument, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.extractions[extractionKey{cycleID: cycleID, ref: ref}]
	return doc, ok
}

func cloneResult(in domain.VerificationResult) domain.VerificationResult {
	out := in
	out.Mismatches = slices.Clone(in.Mismatches)
	out.Ambiguities = slices.Clone(in.Ambiguities)
	out.Failures = slices.Clone(in.Failures)
	return out
}
