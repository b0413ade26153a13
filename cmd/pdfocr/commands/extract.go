package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/adverant/nexus/pdfocr/internal/app"
	"github.com/adverant/nexus/pdfocr/internal/extract"
	"github.com/adverant/nexus/pdfocr/internal/regions"
)

func (c *cli) extractCommand() *cobra.Command {
	var (
		outPath    string
		noDiagrams bool
	)

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract text, page images and diagram crops from a PDF",
		Long: `Runs the same pipeline as POST /extract-text and writes the JSON response
to --out, or stdout when --out is not set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, app.ProcessingTimeout(c.cfg))
			defer cancel()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			pipeline, err := c.pipeline()
			if err != nil {
				return err
			}

			result, err := pipeline.Run(ctx, extract.Request{
				JobID:    uuid.NewString(),
				Filename: filepath.Base(args[0]),
				Data:     data,
				Diagrams: c.cfg.ExtractDiagrams && !noDiagrams,
				OnPage: func(done, total int) {
					c.logger.Info("Page done", "page", done, "pages", total)
				},
			})
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("write result: %w", err)
			}

			if outPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d pages, %d crops -> %s\n",
					result.Filename, len(result.Images), len(result.CroppedImages), outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the JSON result to this file")
	cmd.Flags().BoolVar(&noDiagrams, "no-diagrams", false, "skip diagram region detection")
	return cmd
}

func (c *cli) pipeline() (*extract.Pipeline, error) {
	rasterizer, err := c.deps.rasterizer(c.cfg)
	if err != nil {
		return nil, err
	}
	return extract.New(extract.Config{
		Rasterizer: rasterizer,
		Engine:     c.deps.engine(c.cfg),
		Detector:   regions.NewDetector(app.RegionConfig(c.cfg), c.logger),
		MaxPages:   c.cfg.MaxPages,
		Logger:     c.logger,
	})
}
