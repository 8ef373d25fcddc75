package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/docverify/internal/core/domain"
	"github.com/kirillkom/docverify/internal/core/ports"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type HistoryUseCase struct {
	repo ports.VerificationRepository
}

func NewHistoryUseCase(repo ports.VerificationRepository) *HistoryUseCase {
	return &HistoryUseCase{repo: repo}
}

func (uc *HistoryUseCase) GetResult(ctx context.Context, id string) (*domain.VerificationResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get verification result", errors.New("id is required"))
	}
	return uc.repo.GetResult(ctx, id)
}

// ListResults returns the subject's results newest first.
func (uc *HistoryUseCase) ListResults(ctx context.Context, subjectID string, limit int) ([]domain.VerificationResult, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list verification results", errors.New("subject id is required"))
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return uc.repo.ListResults(ctx, subjectID, limit)
}
