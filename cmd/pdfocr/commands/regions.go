package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/pdfocr/internal/app"
	"github.com/adverant/nexus/pdfocr/internal/codec"
	"github.com/adverant/nexus/pdfocr/internal/regions"
)

func (c *cli) regionsCommand() *cobra.Command {
	var (
		page    int
		saveDir string
	)

	cmd := &cobra.Command{
		Use:   "regions FILE",
		Short: "Show diagram candidates on one page with their measured areas",
		Long: `Renders one page, OCRs it and prints every candidate rectangle derived
from a question marker together with its contour area and whether it passes
REGION_MIN_AREA. With --save-dir accepted crops are written as PNG files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			rasterizer, err := c.deps.rasterizer(c.cfg)
			if err != nil {
				return err
			}
			doc, err := rasterizer.Open(ctx, data)
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer doc.Close()

			if page < 1 || page > doc.NumPages() {
				return fmt.Errorf("page %d out of range, document has %d pages", page, doc.NumPages())
			}
			img, err := doc.Page(ctx, page-1)
			if err != nil {
				return fmt.Errorf("render page %d: %w", page, err)
			}

			pngData, err := codec.EncodePNG(img)
			if err != nil {
				return err
			}
			text, err := c.deps.engine(c.cfg).Recognize(ctx, pngData, true)
			if err != nil {
				return fmt.Errorf("ocr page %d: %w", page, err)
			}

			detector := regions.NewDetector(app.RegionConfig(c.cfg), c.logger)
			candidates := detector.Candidates(img, text.Tokens)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOKEN\tMARKER\tX0\tY0\tX1\tY1\tAREA\tACCEPTED")
			for _, r := range candidates {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%.1f\t%t\n",
					r.TokenIndex, r.Marker,
					r.Rect.Min.X, r.Rect.Min.Y, r.Rect.Max.X, r.Rect.Max.Y,
					r.Area, r.Accepted)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d candidates, min area %.0f\n", len(candidates), detector.Config().MinArea)

			if saveDir == "" {
				return nil
			}
			if err := os.MkdirAll(saveDir, 0o755); err != nil {
				return fmt.Errorf("create save dir: %w", err)
			}
			for i, r := range candidates {
				if !r.Accepted {
					continue
				}
				crop, err := codec.EncodePNG(codec.Crop(img, r.Rect))
				if err != nil {
					return err
				}
				name := filepath.Join(saveDir, fmt.Sprintf("page%d_region%d.png", page, i+1))
				if err := os.WriteFile(name, crop, 0o644); err != nil {
					return fmt.Errorf("write crop: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number, starting at 1")
	cmd.Flags().StringVar(&saveDir, "save-dir", "", "write accepted crops to this directory")
	return cmd
}
