package extraction

import (
	"fmt"
	"math"

	"github.com/kirillkom/docverify/internal/core/domain"
)

type Mode string

const (
	// ModePresent divides the summed weights of present fields by the number of
	// present fields. A single low-weight field scores like many fields of the
	// same weight; kept for parity with recorded historical scores.
	ModePresent Mode = "present"
	// ModeCoverage divides the summed weights of present fields by the total
	// weight the document type defines.
	ModeCoverage Mode = "coverage"
)

func ParseMode(raw string) Mode {
	if Mode(raw) == ModeCoverage {
		return ModeCoverage
	}
	return ModePresent
}

type Scorer struct {
	mode Mode
}

func NewScorer(mode Mode) *Scorer {
	if mode != ModeCoverage {
		mode = ModePresent
	}
	return &Scorer{mode: mode}
}

// Score returns the extraction confidence in [0,100].
func (s *Scorer) Score(fields map[domain.FieldName]domain.ExtractedField, weights map[domain.FieldName]int) float64 {
	sum := 0
	present := 0
	total := 0
	for field, w := range weights {
		total += w
		if fields[field].Present {
			sum += w
			present++
		}
	}
	if present == 0 {
		return 0
	}

	var confidence float64
	switch s.mode {
	case ModeCoverage:
		confidence = float64(sum) / float64(total) * 100
	default:
		confidence = float64(sum) / float64(present) * 100
	}
	return domain.ClampScore(round2(confidence))
}

// Notes summarizes how many fields were recognized.
func Notes(docType domain.DocumentType, fields map[domain.FieldName]domain.ExtractedField) string {
	present := 0
	for _, f := range fields {
		if f.Present {
			present++
		}
	}
	return fmt.Sprintf("%s document processed. Extracted %d of %d fields.", docType.Label(), present, len(fields))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
