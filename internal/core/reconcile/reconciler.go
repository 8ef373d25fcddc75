// Package reconcile compares field values across the documents of one
// submission cycle and against an original reference set.
package reconcile

import (
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"

	"github.com/kirillkom/docverify/internal/core/domain"
)

const DefaultMaxDistance = 2

// Input is the document set of one cycle. Original may be empty.
// Documents that failed extraction are passed as domain.AbsentDocument.
type Input struct {
	Uploaded map[domain.DocumentType]domain.ExtractedDocument
	Original map[domain.DocumentType]domain.ExtractedDocument
}

func (in Input) document(ref domain.DocumentRef) (domain.ExtractedDocument, bool) {
	var set map[domain.DocumentType]domain.ExtractedDocument
	if ref.Source == domain.SourceOriginal {
		set = in.Original
	} else {
		set = in.Uploaded
	}
	doc, ok := set[ref.Type]
	return doc, ok
}

type Report struct {
	Mismatches  []domain.FieldMismatch
	Ambiguities []domain.AmbiguousField
	Compared    int
}

type Reconciler struct {
	fields      FieldSet
	pairs       []Pair
	maxDistance int
}

func NewReconciler(fields FieldSet, maxDistance int) *Reconciler {
	if maxDistance < 0 {
		maxDistance = DefaultMaxDistance
	}
	return &Reconciler{fields: fields, pairs: DefaultPairs, maxDistance: maxDistance}
}

// Reconcile walks the comparison table in order. Fields present on only one
// side become ambiguities; they are never mismatches.
func (r *Reconciler) Reconcile(in Input) Report {
	available := func(ref domain.DocumentRef) bool {
		_, ok := in.document(ref)
		return ok
	}

	report := Report{
		Mismatches:  []domain.FieldMismatch{},
		Ambiguities: []domain.AmbiguousField{},
	}
	for _, row := range BuildTable(r.fields, r.pairs, available) {
		leftDoc, _ := in.document(row.Pair.Left)
		rightDoc, _ := in.document(row.Pair.Right)
		left := leftDoc.Field(row.Field)
		right := rightDoc.Field(row.Field)

		switch {
		case !left.Present && !right.Present:
			continue
		case left.Present && !right.Present:
			report.Ambiguities = append(report.Ambiguities, domain.AmbiguousField{
				Field: row.Field, Present: row.Pair.Left, Absent: row.Pair.Right,
			})
			continue
		case !left.Present && right.Present:
			report.Ambiguities = append(report.Ambiguities, domain.AmbiguousField{
				Field: row.Field, Present: row.Pair.Right, Absent: row.Pair.Left,
			})
			continue
		}

		report.Compared++
		severity, differs := r.Classify(row.Field, left.Value, right.Value)
		if !differs {
			continue
		}
		report.Mismatches = append(report.Mismatches, domain.FieldMismatch{
			Field:       row.Field,
			ValueLeft:   left.Value,
			ValueRight:  right.Value,
			SourceLeft:  row.Pair.Left,
			SourceRight: row.Pair.Right,
			Severity:    severity,
		})
	}
	return report
}

// Classify compares two values of a field. differs is false when they are equal
// after normalization.
func (r *Reconciler) Classify(field domain.FieldName, left, right string) (severity domain.Severity, differs bool) {
	a := Normalize(field, left)
	b := Normalize(field, right)
	if a == b {
		return "", false
	}
	if r.near(field, a, b) {
		return domain.SeverityLow, true
	}
	return domain.SeverityHigh, true
}

// near reports a minor difference. Identifiers never count containment as
// near: "1" inside "12" is a different survey number, not a typo.
func (r *Reconciler) near(field domain.FieldName, a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if !isIdentifier(field) && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return true
	}
	if r.maxDistance == 0 {
		return false
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	d := levenshtein.Distance(a, b, nil)
	return d <= r.maxDistance && longest > 2*d
}
