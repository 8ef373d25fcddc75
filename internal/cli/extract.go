package cli

import (
	"github.com/spf13/cobra"

	"github.com/kirillkom/docverify/internal/core/domain"
	"github.com/kirillkom/docverify/internal/core/usecase"
	"github.com/kirillkom/docverify/internal/infrastructure/extractor"
	"github.com/kirillkom/docverify/internal/infrastructure/storage/localfs"
)

func newExtractCommand(opts *rootOptions) *cobra.Command {
	var rawType string

	cmd := &cobra.Command{
		Use:   "extract --type <ec|aadhaar|pan> <file>",
		Short: "Extract the fields of one document",
		Example: `  docverify extract --type ec ./ec.txt
  docverify extract --type pan ./pan.pdf --confidence-mode coverage`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docType, err := domain.ParseDocumentType(rawType)
			if err != nil {
				return err
			}
			logger := opts.logger()
			engine, cfg, err := opts.engine(logger)
			if err != nil {
				return err
			}

			files := localfs.PathReader{}
			uc := usecase.NewExtractUseCase(files, extractor.NewLoader(files, cfg.MaxUploadBytes), engine.Extractor)
			doc, err := uc.ExtractStored(cmd.Context(), docType, args[0])
			if err != nil {
				return err
			}
			return opts.printJSON(doc)
		},
	}
	cmd.Flags().StringVarP(&rawType, "type", "t", "", "document type (ec, aadhaar, pan)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
