package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/kirillkom/docverify/internal/core/domain"
	"github.com/kirillkom/docverify/internal/core/ports"
)

type ExtractUseCase struct {
	storage   ports.ObjectStorage
	loader    ports.TextLoader
	extractor ports.FieldExtractor
}

func NewExtractUseCase(
	storage ports.ObjectStorage,
	loader ports.TextLoader,
	extractor ports.FieldExtractor,
) *ExtractUseCase {
	return &ExtractUseCase{
		storage:   storage,
		loader:    loader,
		extractor: extractor,
	}
}

// ExtractStored reads a stored document and recognizes the fields of docType.
func (uc *ExtractUseCase) ExtractStored(ctx context.Context, docType domain.DocumentType, key string) (domain.ExtractedDocument, error) {
	if !docType.Valid() {
		return domain.ExtractedDocument{}, domain.WrapError(domain.ErrInvalidInput, "extract document", fmt.Errorf("unknown document type %q", docType))
	}
	text, err := uc.loader.Load(ctx, key)
	if err != nil {
		return domain.ExtractedDocument{}, fmt.Errorf("load %s document: %w", docType, err)
	}
	return uc.extractor.Extract(docType, text), nil
}

func (uc *ExtractUseCase) ExtractUpload(ctx context.Context, docType domain.DocumentType, filename string, body io.Reader) (domain.ExtractedDocument, error) {
	if !docType.Valid() {
		return domain.ExtractedDocument{}, domain.WrapError(domain.ErrInvalidInput, "extract document", fmt.Errorf("unknown document type %q", docType))
	}
	key := fmt.Sprintf("%s_%s_%s", uuid.NewString(), docType, sanitizeFilename(filename))
	if err := uc.storage.Save(ctx, key, body); err != nil {
		return domain.ExtractedDocument{}, fmt.Errorf("save to object storage: %w", err)
	}
	return uc.ExtractStored(ctx, docType, key)
}
