package reconcile

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/kirillkom/docverify/internal/core/domain"
)

var dateSeparators = strings.NewReplacer("-", "/", ".", "/")

// Normalize folds case, composes Unicode, and collapses whitespace.
// Date fields unify separators and identifier fields drop whitespace entirely.
func Normalize(field domain.FieldName, value string) string {
	// cases.Caser is stateful, so one is built per call.
	folded := cases.Fold().String(norm.NFC.String(value))
	parts := strings.Fields(folded)

	switch field {
	case domain.FieldDateOfBirth:
		return dateSeparators.Replace(strings.Join(parts, ""))
	default:
		if isIdentifier(field) {
			return strings.Join(parts, "")
		}
		return strings.Join(parts, " ")
	}
}

func isIdentifier(field domain.FieldName) bool {
	switch field {
	case domain.FieldAadhaarNumber, domain.FieldPANNumber, domain.FieldECNumber, domain.FieldSurveyNumber:
		return true
	}
	return false
}
