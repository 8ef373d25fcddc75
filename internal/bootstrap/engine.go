package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/kirillkom/docverify/internal/config"
	"github.com/kirillkom/docverify/internal/core/extraction"
	"github.com/kirillkom/docverify/internal/core/ports"
	"github.com/kirillkom/docverify/internal/core/reconcile"
	"github.com/kirillkom/docverify/internal/core/risk"
	"github.com/kirillkom/docverify/internal/core/rules"
	"github.com/kirillkom/docverify/internal/infrastructure/cache"
)

// Engine bundles the pure verification components shared by every binary.
type Engine struct {
	Rules      *rules.Table
	Extractor  ports.FieldExtractor
	Reconciler *reconcile.Reconciler
	Scorer     *risk.Scorer
}

func NewEngine(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	table, err := rules.LoadFile(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rule table: %w", err)
	}

	var extractor ports.FieldExtractor = extraction.NewExtractor(table, extraction.NewScorer(extraction.ParseMode(cfg.ConfidenceMode)), logger)
	if cfg.ExtractionCacheTTL > 0 {
		extractor = cache.NewExtractionCache(extractor, cfg.ExtractionCacheTTL)
	}

	return &Engine{
		Rules:      table,
		Extractor:  extractor,
		Reconciler: reconcile.NewReconciler(table, cfg.NearMatchMaxDistance),
		Scorer: risk.NewScorer(risk.Config{
			HighMismatchWeight:    cfg.RiskHighMismatchWeight,
			LowMismatchWeight:     cfg.RiskLowMismatchWeight,
			QualityFactor:         cfg.RiskQualityFactor,
			AmbiguousWeight:       cfg.RiskAmbiguousWeight,
			VerificationThreshold: cfg.VerificationThreshold,
		}),
	}, nil
}
