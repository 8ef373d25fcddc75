// Package cli implements the docverify command line tool.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docverify/internal/bootstrap"
	"github.com/kirillkom/docverify/internal/config"
	"github.com/kirillkom/docverify/internal/observability/logging"
)

const version = "docverify v0.1.0"

type rootOptions struct {
	logLevel       string
	rulesPath      string
	confidenceMode string
	maxDistance    int

	stdout io.Writer
	stderr io.Writer
}

// NewRootCommand builds the command tree. Results go to stdout as JSON, logs to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "docverify",
		Short: "Extract identity fields from EC, Aadhaar and PAN documents and cross-check them",
		Long: `docverify reads plain-text or PDF copies of an Encumbrance Certificate,
an Aadhaar card and a PAN card, extracts the identity fields each one
carries, compares them across documents and reports a risk score.

Configuration follows the service environment variables (RISK_*, RULES_PATH,
CONFIDENCE_MODE, NEAR_MATCH_MAX_DISTANCE); flags override them.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.rulesPath, "rules", "", "YAML rule table replacing the embedded one")
	root.PersistentFlags().StringVar(&opts.confidenceMode, "confidence-mode", "", "confidence formula (present, coverage)")
	root.PersistentFlags().IntVar(&opts.maxDistance, "max-distance", -1, "edit distance still treated as a minor difference; 0 disables")

	root.AddCommand(newExtractCommand(opts), newVerifyCommand(opts), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return root
}

func (o *rootOptions) logger() *slog.Logger {
	return logging.NewJSONLoggerTo(o.stderr, "docverify-cli", o.logLevel)
}

func (o *rootOptions) engine(logger *slog.Logger) (*bootstrap.Engine, config.Config, error) {
	cfg := config.Load()
	cfg.ExtractionCacheTTL = 0
	if o.rulesPath != "" {
		cfg.RulesPath = o.rulesPath
	}
	if o.confidenceMode != "" {
		cfg.ConfidenceMode = o.confidenceMode
	}
	if o.maxDistance >= 0 {
		cfg.NearMatchMaxDistance = o.maxDistance
	}
	engine, err := bootstrap.NewEngine(cfg, logger)
	return engine, cfg, err
}

func (o *rootOptions) printJSON(v any) error {
	enc := json.NewEncoder(o.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
