package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docverify/internal/core/domain"
	"github.com/kirillkom/docverify/internal/core/usecase"
	"github.com/kirillkom/docverify/internal/infrastructure/extractor"
	"github.com/kirillkom/docverify/internal/infrastructure/repository/memory"
	"github.com/kirillkom/docverify/internal/infrastructure/storage/localfs"
)

// ErrNotVerified is returned with --strict when the cycle ends Flagged.
var ErrNotVerified = errors.New("documents not verified")

func newVerifyCommand(opts *rootOptions) *cobra.Command {
	var (
		subjectID string
		strict    bool
		uploaded  = map[domain.DocumentType]*string{}
		original  = map[domain.DocumentType]*string{}
	)

	cmd := &cobra.Command{
		Use:   "verify --ec <file> --aadhaar <file> --pan <file>",
		Short: "Cross-check a set of documents and print the verification result",
		Long: `verify extracts every given document, reconciles the fields they share and
prints the verification result as JSON. A missing or unreadable document is
reported as a failure scoped to that document; the others are still compared.
Optional --original-* files are compared field by field with their uploaded copy.`,
		Example: `  docverify verify --ec ec.txt --aadhaar aadhaar.txt --pan pan.pdf
  docverify verify --ec ec.txt --aadhaar aadhaar.txt --pan pan.txt --original-pan pan_2019.txt --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := domain.VerificationRequest{SubjectID: subjectID}
			for _, t := range domain.DocumentTypes {
				if path := *uploaded[t]; path != "" {
					req.Uploaded = append(req.Uploaded, domain.DocumentHandle{Type: t, Key: path})
				}
				if path := *original[t]; path != "" {
					req.Original = append(req.Original, domain.DocumentHandle{Type: t, Key: path})
				}
			}
			if len(req.Uploaded) == 0 {
				return fmt.Errorf("at least one of --ec, --aadhaar, --pan is required")
			}

			logger := opts.logger()
			engine, cfg, err := opts.engine(logger)
			if err != nil {
				return err
			}
			files := localfs.PathReader{}
			uc := usecase.NewVerifyUseCase(
				memory.NewVerificationRepository(),
				extractor.NewLoader(files, cfg.MaxUploadBytes),
				engine.Extractor,
				engine.Reconciler,
				engine.Scorer,
				usecase.VerifyOptions{Concurrency: cfg.ExtractionConcurrency, Logger: logger},
			)

			result, err := uc.Verify(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := opts.printJSON(result); err != nil {
				return err
			}
			if strict && !result.Verified {
				return ErrNotVerified
			}
			return nil
		},
	}

	for _, t := range domain.DocumentTypes {
		uploaded[t] = cmd.Flags().String(string(t), "", fmt.Sprintf("uploaded %s document", t.Label()))
		original[t] = cmd.Flags().String("original-"+string(t), "", fmt.Sprintf("original %s document to compare against", t.Label()))
	}
	cmd.Flags().StringVar(&subjectID, "subject", "local", "subject id recorded on the result")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the documents are not verified")
	return cmd
}
