// Package risk turns reconciliation output and extraction quality into a
// composite risk score and a verdict.
package risk

import (
	"math"

	"github.com/kirillkom/docverify/internal/core/domain"
)

type Config struct {
	HighMismatchWeight    float64
	LowMismatchWeight     float64
	QualityFactor         float64
	AmbiguousWeight       float64
	VerificationThreshold float64
}

func DefaultConfig() Config {
	return Config{
		HighMismatchWeight:    40,
		LowMismatchWeight:     10,
		QualityFactor:         0.5,
		AmbiguousWeight:       5,
		VerificationThreshold: 50,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.HighMismatchWeight <= 0 {
		c.HighMismatchWeight = def.HighMismatchWeight
	}
	if c.LowMismatchWeight < 0 {
		c.LowMismatchWeight = def.LowMismatchWeight
	}
	if c.QualityFactor < 0 {
		c.QualityFactor = def.QualityFactor
	}
	if c.AmbiguousWeight < 0 {
		c.AmbiguousWeight = def.AmbiguousWeight
	}
	if c.VerificationThreshold <= 0 || c.VerificationThreshold > 100 {
		c.VerificationThreshold = def.VerificationThreshold
	}
	return c
}

type Input struct {
	Mismatches []domain.FieldMismatch
	// Confidences holds one entry per document in the cycle, failed documents included as 0.
	Confidences []float64
	Ambiguities int
}

type Assessment struct {
	FieldMismatchRisk   float64
	DocumentQualityRisk float64
	ConsistencyRisk     float64
	RiskScore           float64
	Verified            bool
}

type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg.normalize()}
}

func (s *Scorer) Config() Config {
	return s.cfg
}

// Assess computes the three subscores and the clamped composite. Every score is in [0,100].
func (s *Scorer) Assess(in Input) Assessment {
	high := false
	mismatch := 0.0
	for _, m := range in.Mismatches {
		switch m.Severity {
		case domain.SeverityHigh:
			high = true
			mismatch += s.cfg.HighMismatchWeight
		default:
			mismatch += s.cfg.LowMismatchWeight
		}
	}

	quality := (100 - averageConfidence(in.Confidences)) * s.cfg.QualityFactor
	consistency := float64(in.Ambiguities) * s.cfg.AmbiguousWeight

	a := Assessment{
		FieldMismatchRisk:   round2(domain.ClampScore(mismatch)),
		DocumentQualityRisk: round2(domain.ClampScore(quality)),
		ConsistencyRisk:     round2(domain.ClampScore(consistency)),
	}
	a.RiskScore = round2(domain.ClampScore(a.FieldMismatchRisk + a.DocumentQualityRisk + a.ConsistencyRisk))
	a.Verified = a.RiskScore < s.cfg.VerificationThreshold && !high
	return a
}

// Failed is the assessment for a cycle where no document could be read.
func Failed() Assessment {
	return Assessment{DocumentQualityRisk: 100, RiskScore: 100}
}

func averageConfidence(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += domain.ClampScore(v)
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
