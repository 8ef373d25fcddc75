package domain

import (
	"fmt"
	"strings"
)

type DocumentType string

const (
	DocumentEC      DocumentType = "ec"
	DocumentAadhaar DocumentType = "aadhaar"
	DocumentPAN     DocumentType = "pan"
)

// DocumentTypes lists the supported categories in submission order.
var DocumentTypes = []DocumentType{DocumentEC, DocumentAadhaar, DocumentPAN}

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentEC, DocumentAadhaar, DocumentPAN:
		return true
	default:
		return false
	}
}

func (t DocumentType) Label() string {
	switch t {
	case DocumentEC:
		return "EC"
	case DocumentAadhaar:
		return "Aadhaar"
	case DocumentPAN:
		return "PAN"
	default:
		return string(t)
	}
}

func ParseDocumentType(raw string) (DocumentType, error) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", WrapError(ErrInvalidInput, "parse document type", fmt.Errorf("unknown document type %q", raw))
	}
	return t, nil
}

type FieldName string

const (
	FieldFullName        FieldName = "name"
	FieldDateOfBirth     FieldName = "date_of_birth"
	FieldAddress         FieldName = "address"
	FieldSurveyNumber    FieldName = "survey_number"
	FieldPropertyDetails FieldName = "property_details"
	FieldECNumber        FieldName = "ec_number"
	FieldAadhaarNumber   FieldName = "aadhaar_number"
	FieldPANNumber       FieldName = "pan_number"
	FieldFatherName      FieldName = "father_name"
	FieldMotherName      FieldName = "mother_name"
)

// FieldOrder is the canonical field order used for extraction output and reconciliation.
var FieldOrder = []FieldName{
	FieldFullName,
	FieldDateOfBirth,
	FieldAddress,
	FieldSurveyNumber,
	FieldPropertyDetails,
	FieldECNumber,
	FieldAadhaarNumber,
	FieldPANNumber,
	FieldFatherName,
	FieldMotherName,
}

func (f FieldName) Valid() bool {
	for _, known := range FieldOrder {
		if f == known {
			return true
		}
	}
	return false
}

// ExtractedField is one recognized value. Absent fields carry no value.
type ExtractedField struct {
	Value   string `json:"value,omitempty"`
	Present bool   `json:"present"`
}

func PresentField(value string) ExtractedField {
	return ExtractedField{Value: strings.TrimSpace(value), Present: true}
}

type ExtractedDocument struct {
	DocumentType DocumentType                 `json:"document_type"`
	Fields       map[FieldName]ExtractedField `json:"fields"`
	Confidence   float64                      `json:"confidence"`
	Notes        string                       `json:"notes"`
}

// Field returns the field or an absent placeholder.
func (d ExtractedDocument) Field(name FieldName) ExtractedField {
	if d.Fields == nil {
		return ExtractedField{}
	}
	return d.Fields[name]
}

func (d ExtractedDocument) PresentCount() int {
	n := 0
	for _, f := range d.Fields {
		if f.Present {
			n++
		}
	}
	return n
}

// AbsentDocument stands in for a document whose extraction failed.
func AbsentDocument(docType DocumentType) ExtractedDocument {
	return ExtractedDocument{
		DocumentType: docType,
		Fields:       map[FieldName]ExtractedField{},
		Notes:        fmt.Sprintf("%s document unavailable. Extracted 0 fields.", docType.Label()),
	}
}
