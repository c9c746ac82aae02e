package commands

import (
	"os"
	"path/filepath"

	"ocrtranslate/internal/api"
	"ocrtranslate/internal/config"
	"ocrtranslate/internal/serviceinterfaces"
	contextutils "ocrtranslate/internal/utils"

	"github.com/spf13/cobra"
)

func recognizeCmd(cfg *config.Config, pipeline serviceinterfaces.OCRPipeline) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "recognize <image>",
		Short: "Recognize and translate the text in an image",
		Long: `Recognize the printed text in an image file and translate it.

Prints {"original","translated"} on success. On failure the
{"error"} payload is printed and the command exits non-zero.`,
		Args: cobra.ExactArgs(1),
		RunE: runRecognize(pipeline, &lang),
	}

	cmd.Flags().StringVar(&lang, "lang", cfg.Server.DefaultLanguage, "Target language code")

	return cmd
}

func runRecognize(pipeline serviceinterfaces.OCRPipeline, lang *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		path := args[0]

		target := *lang
		if target == "" {
			target = config.DefaultTargetLanguage
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return printError(cmd, contextutils.WrapError(err, "failed to read image"))
		}

		result, err := pipeline.Process(cmd.Context(), serviceinterfaces.OCRRequest{
			Image:          data,
			Filename:       filepath.Base(path),
			TargetLanguage: target,
		})
		if err != nil {
			return printError(cmd, err)
		}

		return writeJSON(cmd.OutOrStdout(), api.OCRResponse{
			Original:   result.Original,
			Translated: result.Translated,
		})
	}
}

// printError writes the error payload and hands err back so cobra exits non-zero
func printError(cmd *cobra.Command, err error) error {
	message := err.Error()
	var appErr *contextutils.AppError
	if contextutils.AsError(err, &appErr) {
		message = appErr.PublicMessage()
	}
	cmd.SilenceErrors = true
	if writeErr := writeJSON(cmd.OutOrStdout(), api.ErrorResponse{Error: message}); writeErr != nil {
		return writeErr
	}
	return err
}
