package cmd

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/passport/internal/export"
	"github.com/lehigh-university-libraries/passport/internal/geometry"
	"github.com/lehigh-university-libraries/passport/internal/rasterizer"
	"github.com/lehigh-university-libraries/passport/internal/session"
	"github.com/lehigh-university-libraries/passport/internal/sheet"
	"github.com/spf13/cobra"
)

func newSheetCmd() *cobra.Command {
	var (
		output  string
		spacing int
		scale   float64
	)

	cmd := &cobra.Command{
		Use:   "sheet <photo>",
		Short: "Lay out six copies of a photo on an A4 sheet",
		Long: `Renders six 35x45mm copies of a passport photo in one centred row on
a white A4 sheet and writes it as PNG. Spacing above 0mm makes the row
wider than the page; the outer photos are cut off equally on both sides.`,
		Example: `  passport sheet portrait-passport.png --spacing 2 -o sheet.png`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if output == "" {
				output = strings.TrimSuffix(input, filepath.Ext(input)) + "-a4.png"
			}

			layout, err := sheet.Arrange(spacing)
			if err != nil {
				return err
			}
			if !layout.Fits() {
				slog.Warn("Row is wider than the sheet", "row_width_mm", layout.RowWidthMM, "overflow_mm", layout.OverflowMM())
			}

			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("failed to read photo: %w", err)
			}
			photo, err := session.DecodeImage(data)
			if err != nil {
				return err
			}
			img, err := photo.Decode()
			if err != nil {
				return err
			}

			canvas, err := rasterizer.NewNative().Rasterize(cmd.Context(), rasterizer.Request{
				Layout:     layout,
				Photo:      img,
				Scale:      scale,
				ColorSpace: rasterizer.ColorSpaceSRGB,
				Background: geometry.SheetWhite,
			})
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := png.Encode(&buf, canvas); err != nil {
				return fmt.Errorf("failed to encode sheet: %w", err)
			}
			if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}

			slog.Info("A4 sheet written", "output", output, "spacing_mm", spacing,
				"width", canvas.Bounds().Dx(), "height", canvas.Bounds().Dy())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PNG path (default <photo>-a4.png)")
	cmd.Flags().IntVar(&spacing, "spacing", 0, "Gap between photos in mm (0-10)")
	cmd.Flags().Float64Var(&scale, "scale", export.SheetScale, "Pixels per CSS pixel")

	return cmd
}
