package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/passport/internal/editing"
	"github.com/lehigh-university-libraries/passport/internal/providers"
	"github.com/lehigh-university-libraries/passport/internal/session"
	"github.com/spf13/cobra"
)

func newEditCmd() *cobra.Command {
	var (
		output      string
		provider    string
		instruction string
	)

	cmd := &cobra.Command{
		Use:   "edit <image>",
		Short: "Retouch a portrait into a passport photo",
		Long: `Sends a portrait to the configured image model once and writes the
retouched photo as PNG. Nothing is retried.`,
		Example: `  # Writes portrait-passport.png next to the input
  passport edit portrait.jpg

  # Use OpenAI and choose the output file
  passport edit portrait.jpg --provider openai -o photo.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if provider != "" {
				cfg.Provider = provider
			}
			if instruction != "" {
				cfg.Instruction = instruction
			}
			if cfg.Instruction == "" {
				cfg.Instruction = providers.DefaultInstruction
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			input := args[0]
			if output == "" {
				output = strings.TrimSuffix(input, filepath.Ext(input)) + "-passport.png"
			}

			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			original, err := session.DecodeImage(data)
			if err != nil {
				return err
			}

			editor, err := editing.New(cfg)
			if err != nil {
				return err
			}

			slog.Info("Editing image", "input", input, "provider", cfg.Provider, "width", original.Width, "height", original.Height)
			start := time.Now()
			res, err := editor.Edit(cmd.Context(), providers.EditRequest{
				Image:       original.Data,
				MIMEType:    original.MIMEType,
				Instruction: cfg.Instruction,
			})
			if err != nil {
				slog.Error("Edit failed", "err", err)
				return errors.New(session.EditFailureMessage)
			}

			edited, err := session.DecodeImage(res.Data)
			if err != nil {
				return fmt.Errorf("provider returned invalid image: %w", err)
			}
			out, err := edited.PNG()
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, out, 0644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}

			if res.Notes != "" {
				slog.Info("Model notes", "notes", res.Notes)
			}
			slog.Info("Passport photo written", "output", output, "model", res.Model,
				"width", edited.Width, "height", edited.Height, "duration", time.Since(start))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PNG path (default <image>-passport.png)")
	cmd.Flags().StringVar(&provider, "provider", "", "Image editing provider (gemini, openai)")
	cmd.Flags().StringVar(&instruction, "instruction", "", "Override the retouching instruction")

	return cmd
}
