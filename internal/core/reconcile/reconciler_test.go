package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/docverify/internal/core/domain"
	"github.com/kirillkom/docverify/internal/core/rules"
)

func doc(docType domain.DocumentType, values map[domain.FieldName]string) domain.ExtractedDocument {
	fields := map[domain.FieldName]domain.ExtractedField{}
	for _, f := range rules.MustDefault().Fields(docType) {
		if v, ok := values[f]; ok {
			fields[f] = domain.PresentField(v)
		} else {
			fields[f] = domain.ExtractedField{}
		}
	}
	return domain.ExtractedDocument{DocumentType: docType, Fields: fields}
}

func newTestReconciler() *Reconciler {
	return NewReconciler(rules.MustDefault(), DefaultMaxDistance)
}

func TestReconcileIgnoresCaseAndWhitespace(t *testing.T) {
	r := newTestReconciler()

	report := r.Reconcile(Input{Uploaded: map[domain.DocumentType]domain.ExtractedDocument{
		domain.DocumentEC:      doc(domain.DocumentEC, map[domain.FieldName]string{domain.FieldFullName: "RAVI KUMAR"}),
		domain.DocumentAadhaar: doc(domain.DocumentAadhaar, map[domain.FieldName]string{domain.FieldFullName: "Ravi Kumar"}),
		domain.DocumentPAN:     doc(domain.DocumentPAN, map[domain.FieldName]string{domain.FieldFullName: "ravi   kumar"}),
	}})

	assert.Empty(t, report.Mismatches)
	assert.Empty(t, report.Ambiguities)
	assert.Equal(t, 3, report.Compared)
}

func TestReconcileOrdersByFieldThenPair(t *testing.T) {
	r := newTestReconciler()

	report := r.Reconcile(Input{Uploaded: map[domain.DocumentType]domain.ExtractedDocument{
		domain.DocumentEC: doc(domain.DocumentEC, map[domain.FieldName]string{
			domain.FieldFullName: "Asha Rao", domain.FieldDateOfBirth: "01/02/1990",
		}),
		domain.DocumentAadhaar: doc(domain.DocumentAadhaar, map[domain.FieldName]string{
			domain.FieldFullName: "Ravi Kumar", domain.FieldDateOfBirth: "01-02-1990",
		}),
		domain.DocumentPAN: doc(domain.DocumentPAN, map[domain.FieldName]string{
			domain.FieldFullName: "Ravi Kumaar", domain.FieldDateOfBirth: "02/02/1990",
		}),
	}})

	type row struct {
		field    domain.FieldName
		left     domain.DocumentType
		right    domain.DocumentType
		severity domain.Severity
	}
	got := make([]row, 0, len(report.Mismatches))
	for _, m := range report.Mismatches {
		got = append(got, row{m.Field, m.SourceLeft.Type, m.SourceRight.Type, m.Severity})
	}
	assert.Equal(t, []row{
		{domain.FieldFullName, domain.DocumentEC, domain.DocumentAadhaar, domain.SeverityHigh},
		{domain.FieldFullName, domain.DocumentEC, domain.DocumentPAN, domain.SeverityHigh},
		{domain.FieldFullName, domain.DocumentAadhaar, domain.DocumentPAN, domain.SeverityLow},
		{domain.FieldDateOfBirth, domain.DocumentEC, domain.DocumentPAN, domain.SeverityLow},
		{domain.FieldDateOfBirth, domain.DocumentAadhaar, domain.DocumentPAN, domain.SeverityLow},
	}, got)

	// Raw values are reported, not their normalized forms.
	assert.Equal(t, "Asha Rao", report.Mismatches[0].ValueLeft)
	assert.Equal(t, "Ravi Kumar", report.Mismatches[0].ValueRight)
}

func TestReconcileRecordsAmbiguityInsteadOfMismatch(t *testing.T) {
	r := newTestReconciler()

	report := r.Reconcile(Input{Uploaded: map[domain.DocumentType]domain.ExtractedDocument{
		domain.DocumentEC:  doc(domain.DocumentEC, map[domain.FieldName]string{domain.FieldDateOfBirth: "01/02/1990"}),
		domain.DocumentPAN: doc(domain.DocumentPAN, map[domain.FieldName]string{}),
	}})

	assert.Empty(t, report.Mismatches)
	require.Len(t, report.Ambiguities, 1)
	assert.Equal(t, domain.AmbiguousField{
		Field:   domain.FieldDateOfBirth,
		Present: domain.DocumentRef{Source: domain.SourceUploaded, Type: domain.DocumentEC},
		Absent:  domain.DocumentRef{Source: domain.SourceUploaded, Type: domain.DocumentPAN},
	}, report.Ambiguities[0])
}

func TestReconcileAgainstOriginalSet(t *testing.T) {
	r := newTestReconciler()

	report := r.Reconcile(Input{
		Uploaded: map[domain.DocumentType]domain.ExtractedDocument{
			domain.DocumentAadhaar: doc(domain.DocumentAadhaar, map[domain.FieldName]string{
				domain.FieldAadhaarNumber: "123456789012",
				domain.FieldMotherName:    "Lakshmi",
			}),
		},
		Original: map[domain.DocumentType]domain.ExtractedDocument{
			domain.DocumentAadhaar: doc(domain.DocumentAadhaar, map[domain.FieldName]string{
				domain.FieldAadhaarNumber: "9876 5432 1098",
				domain.FieldMotherName:    "lakshmi",
			}),
		},
	})

	require.Len(t, report.Mismatches, 1)
	m := report.Mismatches[0]
	assert.Equal(t, domain.FieldAadhaarNumber, m.Field)
	assert.Equal(t, domain.SeverityHigh, m.Severity)
	assert.Equal(t, domain.DocumentRef{Source: domain.SourceUploaded, Type: domain.DocumentAadhaar}, m.SourceLeft)
	assert.Equal(t, domain.DocumentRef{Source: domain.SourceOriginal, Type: domain.DocumentAadhaar}, m.SourceRight)
	assert.Equal(t, 2, report.Compared)
}

func TestReconcileAbsentDocumentYieldsAmbiguities(t *testing.T) {
	r := newTestReconciler()

	report := r.Reconcile(Input{Uploaded: map[domain.DocumentType]domain.ExtractedDocument{
		domain.DocumentEC: doc(domain.DocumentEC, map[domain.FieldName]string{
			domain.FieldFullName: "Asha Rao", domain.FieldSurveyNumber: "4521",
		}),
		domain.DocumentAadhaar: doc(domain.DocumentAadhaar, map[domain.FieldName]string{
			domain.FieldFullName: "Asha Rao", domain.FieldFatherName: "Ramesh Rao",
		}),
		domain.DocumentPAN: domain.AbsentDocument(domain.DocumentPAN),
	}})

	assert.Empty(t, report.Mismatches)
	assert.Equal(t, 1, report.Compared)
	// name from EC and Aadhaar, father name from Aadhaar.
	assert.Len(t, report.Ambiguities, 3)
	for _, a := range report.Ambiguities {
		assert.Equal(t, domain.DocumentPAN, a.Absent.Type)
	}
}

func TestClassify(t *testing.T) {
	r := newTestReconciler()

	cases := []struct {
		name    string
		field   domain.FieldName
		left    string
		right   string
		differs bool
		want    domain.Severity
	}{
		{"equal after folding", domain.FieldFullName, "Asha  Rao", "ASHA RAO", false, ""},
		{"composed and decomposed accents", domain.FieldFullName, "Jos\u00e9", "Jose\u0301", false, ""},
		{"date separators", domain.FieldDateOfBirth, "15.08.1985", "15-08-1985", false, ""},
		{"identifier spacing", domain.FieldAadhaarNumber, "1234 5678 9012", "123456789012", false, ""},
		{"pan case", domain.FieldPANNumber, "abcde1234f", "ABCDE1234F", false, ""},
		{"one edit", domain.FieldFullName, "Ravi Kumar", "Ravi Kumaar", true, domain.SeverityLow},
		{"two edits", domain.FieldFullName, "Suresh Kumar", "Suresh Kunor", true, domain.SeverityLow},
		{"containment", domain.FieldFullName, "Ravi Kumar", "Ravi", true, domain.SeverityLow},
		{"year inside full date", domain.FieldDateOfBirth, "15/08/1985", "1985", true, domain.SeverityLow},
		{"short values are not near", domain.FieldSurveyNumber, "12", "13", true, domain.SeverityHigh},
		{"survey number prefix", domain.FieldSurveyNumber, "1", "12", true, domain.SeverityHigh},
		{"survey subdivision dropped", domain.FieldSurveyNumber, "45/2A", "45", true, domain.SeverityHigh},
		{"ec number inside longer ec number", domain.FieldECNumber, "EC123", "EC1234567", true, domain.SeverityHigh},
		{"identifier typo", domain.FieldPANNumber, "ABCDE1234F", "ABCDE1284F", true, domain.SeverityLow},
		{"different names", domain.FieldFullName, "Ravi Kumar", "Asha Rao", true, domain.SeverityHigh},
		{"different numbers", domain.FieldAadhaarNumber, "123456789012", "987654321098", true, domain.SeverityHigh},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			severity, differs := r.Classify(tc.field, tc.left, tc.right)
			assert.Equal(t, tc.differs, differs)
			assert.Equal(t, tc.want, severity)
		})
	}
}

func TestClassifyWithoutEditDistance(t *testing.T) {
	r := NewReconciler(rules.MustDefault(), 0)

	severity, differs := r.Classify(domain.FieldFullName, "Ravi Kumar", "Ravi Kumaar")
	assert.True(t, differs)
	assert.Equal(t, domain.SeverityHigh, severity)
}

func TestReconcileIsDeterministic(t *testing.T) {
	r := newTestReconciler()
	in := Input{
		Uploaded: map[domain.DocumentType]domain.ExtractedDocument{
			domain.DocumentEC:      doc(domain.DocumentEC, map[domain.FieldName]string{domain.FieldFullName: "Asha Rao", domain.FieldAddress: "4th Cross"}),
			domain.DocumentAadhaar: doc(domain.DocumentAadhaar, map[domain.FieldName]string{domain.FieldFullName: "Asha R", domain.FieldAddress: "5th Cross"}),
			domain.DocumentPAN:     doc(domain.DocumentPAN, map[domain.FieldName]string{domain.FieldFullName: "Usha Rao"}),
		},
		Original: map[domain.DocumentType]domain.ExtractedDocument{
			domain.DocumentEC: doc(domain.DocumentEC, map[domain.FieldName]string{domain.FieldFullName: "Asha Rao"}),
		},
	}

	first, err := json.Marshal(r.Reconcile(in))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := json.Marshal(r.Reconcile(in))
		require.NoError(t, err)
		assert.JSONEq(t, string(first), string(again))
	}
}

func TestBuildTableSkipsUndefinedFields(t *testing.T) {
	all := func(domain.DocumentRef) bool { return true }

	table := BuildTable(rules.MustDefault(), DefaultPairs, all)
	assert.Len(t, table, 24)

	var address []Pair
	for _, row := range table {
		if row.Field == domain.FieldAddress {
			address = append(address, row.Pair)
		}
	}
	assert.Equal(t, []Pair{DefaultPairs[0], DefaultPairs[3], DefaultPairs[4]}, address)
	assert.Equal(t, Comparison{Field: domain.FieldFullName, Pair: DefaultPairs[0]}, table[0])
}
