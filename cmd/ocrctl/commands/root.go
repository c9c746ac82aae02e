// Package commands provides the ocrctl subcommands
package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"ocrtranslate/internal/config"
	"ocrtranslate/internal/serviceinterfaces"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the ocrctl command tree around already-wired services
func NewRootCommand(
	cfg *config.Config,
	pipeline serviceinterfaces.OCRPipeline,
	recognizer serviceinterfaces.TextRecognizer,
	translator serviceinterfaces.TranslationService,
) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ocrctl",
		Short: "Extract and translate text from images",
		Long: `ocrctl runs the same OCR and translation pipeline as the HTTP service
on local image files and prints the result as JSON.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(recognizeCmd(cfg, pipeline))
	rootCmd.AddCommand(languagesCmd(translator))
	rootCmd.AddCommand(versionCmd(recognizer))

	return rootCmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
