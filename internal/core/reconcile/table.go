package reconcile

import (
	"slices"

	"github.com/kirillkom/docverify/internal/core/domain"
)

// Pair is an ordered pair of documents whose shared fields are compared.
type Pair struct {
	Left  domain.DocumentRef
	Right domain.DocumentRef
}

// Comparison is one row of the comparison table: one field across one pair.
type Comparison struct {
	Field domain.FieldName
	Pair  Pair
}

func uploaded(t domain.DocumentType) domain.DocumentRef {
	return domain.DocumentRef{Source: domain.SourceUploaded, Type: t}
}

func original(t domain.DocumentType) domain.DocumentRef {
	return domain.DocumentRef{Source: domain.SourceOriginal, Type: t}
}

// DefaultPairs lists every pair the reconciler may compare, in output order.
var DefaultPairs = []Pair{
	{Left: uploaded(domain.DocumentEC), Right: uploaded(domain.DocumentAadhaar)},
	{Left: uploaded(domain.DocumentEC), Right: uploaded(domain.DocumentPAN)},
	{Left: uploaded(domain.DocumentAadhaar), Right: uploaded(domain.DocumentPAN)},
	{Left: uploaded(domain.DocumentEC), Right: original(domain.DocumentEC)},
	{Left: uploaded(domain.DocumentAadhaar), Right: original(domain.DocumentAadhaar)},
	{Left: uploaded(domain.DocumentPAN), Right: original(domain.DocumentPAN)},
}

// FieldSet reports which fields a document type defines.
type FieldSet interface {
	Fields(docType domain.DocumentType) []domain.FieldName
}

// BuildTable expands the pairs into per-field comparisons. Rows are ordered by
// canonical field order first, then by pair position. A pair contributes a row
// for a field only when both document types define it and both documents are
// part of the input.
func BuildTable(fields FieldSet, pairs []Pair, available func(domain.DocumentRef) bool) []Comparison {
	table := make([]Comparison, 0, len(pairs)*2)
	for _, field := range domain.FieldOrder {
		for _, pair := range pairs {
			if !available(pair.Left) || !available(pair.Right) {
				continue
			}
			if !slices.Contains(fields.Fields(pair.Left.Type), field) {
				continue
			}
			if !slices.Contains(fields.Fields(pair.Right.Type), field) {
				continue
			}
			table = append(table, Comparison{Field: field, Pair: pair})
		}
	}
	return table
}
