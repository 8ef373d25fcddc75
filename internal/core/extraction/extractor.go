// Package extraction turns raw document text into canonical fields using the
// rule table, and scores how much of the document was recognized.
package extraction

import (
	"log/slog"

	"github.com/kirillkom/docverify/internal/core/domain"
	"github.com/kirillkom/docverify/internal/core/rules"
)

// Extractor applies the rules of exactly one document type to its text.
// It holds no mutable state; output depends only on (text, table).
type Extractor struct {
	table  *rules.Table
	scorer *Scorer
	logger *slog.Logger
}

func NewExtractor(table *rules.Table, scorer *Scorer, logger *slog.Logger) *Extractor {
	if scorer == nil {
		scorer = NewScorer(ModePresent)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{table: table, scorer: scorer, logger: logger}
}

func (e *Extractor) Extract(docType domain.DocumentType, text string) domain.ExtractedDocument {
	fields := make(map[domain.FieldName]domain.ExtractedField, len(e.table.Rules(docType)))
	for _, rule := range e.table.Rules(docType) {
		value, ok := rule.Apply(text)
		if !ok {
			e.logger.Debug("field_extraction_miss",
				"document_type", string(docType),
				"field", string(rule.Field),
			)
			fields[rule.Field] = domain.ExtractedField{}
			continue
		}
		e.logger.Debug("field_extracted",
			"document_type", string(docType),
			"field", string(rule.Field),
			"value_len", len(value),
		)
		fields[rule.Field] = domain.PresentField(value)
	}

	doc := domain.ExtractedDocument{
		DocumentType: docType,
		Fields:       fields,
	}
	doc.Confidence = e.scorer.Score(fields, e.table.Weights(docType))
	doc.Notes = Notes(docType, fields)
	return doc
}
