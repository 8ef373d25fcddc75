package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/docverify/internal/core/domain"
)

func TestDefaultTableCoversEveryDocumentType(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []domain.FieldName{
		domain.FieldFullName, domain.FieldDateOfBirth, domain.FieldAddress,
		domain.FieldSurveyNumber, domain.FieldPropertyDetails, domain.FieldECNumber,
	}, table.Fields(domain.DocumentEC))
	assert.Equal(t, []domain.FieldName{
		domain.FieldFullName, domain.FieldDateOfBirth, domain.FieldAddress,
		domain.FieldAadhaarNumber, domain.FieldFatherName, domain.FieldMotherName,
	}, table.Fields(domain.DocumentAadhaar))
	assert.Equal(t, []domain.FieldName{
		domain.FieldFullName, domain.FieldDateOfBirth, domain.FieldPANNumber, domain.FieldFatherName,
	}, table.Fields(domain.DocumentPAN))
}

func TestDefaultWeights(t *testing.T) {
	table := MustDefault()

	ec := table.Weights(domain.DocumentEC)
	assert.Equal(t, 20, ec[domain.FieldFullName])
	assert.Equal(t, 20, ec[domain.FieldDateOfBirth])
	assert.Equal(t, 15, ec[domain.FieldSurveyNumber])
	assert.Equal(t, 15, ec[domain.FieldAddress])
	assert.Equal(t, 20, ec[domain.FieldECNumber])
	assert.Equal(t, 10, ec[domain.FieldPropertyDetails])

	aadhaar := table.Weights(domain.DocumentAadhaar)
	assert.Equal(t, 20, aadhaar[domain.FieldAadhaarNumber])
	assert.Equal(t, 10, aadhaar[domain.FieldFatherName])
	assert.Equal(t, 10, aadhaar[domain.FieldMotherName])

	assert.Equal(t, 20, table.Weights(domain.DocumentPAN)[domain.FieldPANNumber])
}

func TestRuleApplyPerField(t *testing.T) {
	table := MustDefault()

	cases := []struct {
		name    string
		docType domain.DocumentType
		field   domain.FieldName
		text    string
		want    string
	}{
		{"ec name", domain.DocumentEC, domain.FieldFullName, "Name: Asha Rao\n", "Asha Rao"},
		{"ec owner", domain.DocumentEC, domain.FieldFullName, "Owner's Name - Lakshmi Devi\n", "Lakshmi Devi"},
		{"ec survey", domain.DocumentEC, domain.FieldSurveyNumber, "Sy.No. 112/3A", "112/3A"},
		{"ec number", domain.DocumentEC, domain.FieldECNumber, "EC No: ka-2024-778", "KA-2024-778"},
		{"ec kannada name", domain.DocumentEC, domain.FieldFullName, "ಹೆಸರು: Asha Rao", "Asha Rao"},
		{"aadhaar hindi name", domain.DocumentAadhaar, domain.FieldFullName, "नाम: रवि कुमार\n", "रवि कुमार"},
		{"aadhaar bilingual dob", domain.DocumentAadhaar, domain.FieldDateOfBirth, "जन्म तिथि/DOB: 15/08/1985", "15/08/1985"},
		{"aadhaar hindi dob only", domain.DocumentAadhaar, domain.FieldDateOfBirth, "जन्म तिथि: 15-08-1985", "15-08-1985"},
		{"aadhaar year of birth", domain.DocumentAadhaar, domain.FieldDateOfBirth, "Year of Birth : 1985", "1985"},
		{"aadhaar unlabeled name", domain.DocumentAadhaar, domain.FieldFullName, "Government of India\nRavi Kumar\nDOB: 15/08/1985\n", "Ravi Kumar"},
		{"aadhaar care of father", domain.DocumentAadhaar, domain.FieldFatherName, "S/O: Suresh Kumar\n", "Suresh Kumar"},
		{"aadhaar number labelled", domain.DocumentAadhaar, domain.FieldAadhaarNumber, "Aadhaar No: 1234 5678 9012", "123456789012"},
		{"pan number", domain.DocumentPAN, domain.FieldPANNumber, "Permanent Account Number\nabcde1234f", "ABCDE1234F"},
		{"pan name next line", domain.DocumentPAN, domain.FieldFullName, "Name\nRAVI KUMAR\nFather's Name\nSURESH KUMAR\n", "RAVI KUMAR"},
		{"pan father next line", domain.DocumentPAN, domain.FieldFatherName, "Name\nRAVI KUMAR\nFather's Name\nSURESH KUMAR\n", "SURESH KUMAR"},
		{"pan dob next line", domain.DocumentPAN, domain.FieldDateOfBirth, "Date of Birth\n01/02/1990", "01/02/1990"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule, ok := table.Rule(tc.docType, tc.field)
			require.True(t, ok)
			got, ok := rule.Apply(tc.text)
			require.True(t, ok, "expected a match in %q", tc.text)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRuleApplyMiss(t *testing.T) {
	rule, ok := MustDefault().Rule(domain.DocumentPAN, domain.FieldPANNumber)
	require.True(t, ok)

	_, ok = rule.Apply("no identifier here")
	assert.False(t, ok)
}

func TestParseRejectsInvalidTables(t *testing.T) {
	cases := map[string]string{
		"unknown type": `
documents:
  passport:
    - field: name
      weight: 10
      patterns: ['Name: (\w+)']`,
		"no capture group": `
documents:
  ec:
    - field: name
      weight: 10
      patterns: ['Name: \w+']`,
		"bad regexp": `
documents:
  ec:
    - field: name
      weight: 10
      patterns: ['Name: (\w+']`,
		"zero weight": `
documents:
  ec:
    - field: name
      weight: 0
      patterns: ['Name: (\w+)']`,
		"unknown normalizer": `
documents:
  ec:
    - field: name
      weight: 10
      normalize: soundex
      patterns: ['Name: (\w+)']`,
		"missing types": `
documents:
  ec:
    - field: name
      weight: 10
      patterns: ['Name: (\w+)']`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(raw))
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
		})
	}
}

func TestParseOrdersRulesCanonically(t *testing.T) {
	raw := `
documents:
  ec:
    - field: survey_number
      weight: 15
      patterns: ['Survey (\d+)']
    - field: name
      weight: 20
      patterns: ['Name: (\w+)']
  aadhaar:
    - field: aadhaar_number
      weight: 20
      normalize: digits
      patterns: ['(\d{4} ?\d{4} ?\d{4})']
  pan:
    - field: pan_number
      weight: 20
      normalize: upper
      patterns: ['([A-Z]{5}\d{4}[A-Z])']
`
	table, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, []domain.FieldName{domain.FieldFullName, domain.FieldSurveyNumber}, table.Fields(domain.DocumentEC))
}
