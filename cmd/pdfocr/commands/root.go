// Package commands implements the pdfocr command line.
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/adverant/nexus/pdfocr/internal/app"
	"github.com/adverant/nexus/pdfocr/internal/config"
	"github.com/adverant/nexus/pdfocr/internal/logging"
	"github.com/adverant/nexus/pdfocr/internal/ocr"
	"github.com/adverant/nexus/pdfocr/internal/raster"
)

// deps builds the native collaborators; tests substitute fakes.
type deps struct {
	rasterizer func(cfg *config.Config) (raster.Rasterizer, error)
	engine     func(cfg *config.Config) ocr.Engine
}

var defaultDeps = deps{
	rasterizer: app.NewRasterizer,
	engine:     app.NewEngine,
}

// cli carries state shared by every subcommand after PersistentPreRunE.
type cli struct {
	deps    deps
	envFile string
	verbose bool

	cfg    *config.Config
	logger *logging.Logger
}

// NewRootCommand returns the pdfocr command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultDeps)
}

func newRootCommand(d deps) *cobra.Command {
	c := &cli{deps: d}

	root := &cobra.Command{
		Use:   "pdfocr",
		Short: "OCR PDF pages and crop diagrams below question markers",
		Long: `pdfocr runs the extraction pipeline of the pdfocr service on local files.
Configuration is read from the environment (and an optional .env file) exactly
as the server reads it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "load environment variables from this file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log pipeline progress to stderr")

	root.AddCommand(c.extractCommand(), c.regionsCommand())
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	c.cfg = cfg

	level := "warn"
	if c.verbose {
		level = "debug"
	}
	c.logger = logging.New("pdfocr", logging.Options{
		Level:  level,
		Format: "console",
		Output: cmd.ErrOrStderr(),
	})
	return nil
}
