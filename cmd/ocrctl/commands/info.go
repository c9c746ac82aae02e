package commands

import (
	"fmt"

	"ocrtranslate/internal/serviceinterfaces"
	"ocrtranslate/internal/version"

	"github.com/spf13/cobra"
)

func languagesCmd(translator serviceinterfaces.TranslationService) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported target languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, lang := range translator.GetSupportedLanguages() {
				fmt.Fprintln(cmd.OutOrStdout(), lang)
			}
			return nil
		},
	}
}

func versionCmd(recognizer serviceinterfaces.TextRecognizer) *cobra.Command {
	var withEngine bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ocrctl %s\n", version.Get())
			if withEngine {
				fmt.Fprintf(cmd.OutOrStdout(), "tesseract %s\n", recognizer.Version())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withEngine, "engine", false, "Also print the OCR engine version")

	return cmd
}
