package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/eqregions/internal/config"
	"github.com/ironsheep/eqregions/internal/detection"
	"github.com/ironsheep/eqregions/internal/logging"
	"github.com/ironsheep/eqregions/internal/ocr"
	"github.com/ironsheep/eqregions/internal/pipeline"
	"github.com/ironsheep/eqregions/internal/source"
)

// app holds the state shared by every subcommand: the flag-bound values,
// the merged configuration, and the logger built from it.
type app struct {
	configPath string
	envFile    string

	flags config.Config
	cfg   config.Config
	log   *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{flags: config.Default()}

	root := &cobra.Command{
		Use:   "eqregions <pdf|image|dir>",
		Short: "Find equation regions on document pages and recognize them as LaTeX",
		Long: `eqregions renders the first pages of a PDF (or reads page images), locates
dense ink regions that are likely equations, and sends each region to a
recognizer. The equations are printed to stdout as {"equations": [...]}.

Settings come from defaults, then --config, then EQREGIONS_* environment
variables (a .env file is loaded first), then command-line flags.`,
		Args:              cobra.ExactArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           Version,
		PersistentPreRunE: a.setup,
		RunE:              a.runEquations,
	}
	root.SetVersionTemplate(versionText())

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML or JSON config file")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	config.RegisterFlags(pf, &a.flags)

	root.AddCommand(
		newRunCmd(a),
		newDetectCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup merges configuration layers, validates the result and builds the
// logger. Logs always go to stderr.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	config.ApplyFlags(cmd.Flags(), &a.flags, &cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger
	a.log.WithFields(logrus.Fields{
		"version":    Version,
		"recognizer": cfg.Recognizer,
		"config":     a.configPath,
	}).Debug("Configuration loaded")
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func (a *app) loadPages(ctx context.Context, path string) ([]source.Page, error) {
	opts := a.cfg.SourceOptions()
	opts.Logger = a.log
	src, err := source.Open(path, opts)
	if err != nil {
		return nil, err
	}
	pages, err := src.Pages(ctx)
	if err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{"path": path, "pages": len(pages)}).Info("Pages loaded")
	return pages, nil
}

func (a *app) newPipeline(recognizer ocr.Recognizer) *pipeline.Pipeline {
	return pipeline.New(
		detection.NewDetector(a.cfg.DetectorOptions()),
		recognizer,
		pipeline.WithWorkers(a.cfg.Workers),
		pipeline.WithCropScale(a.cfg.CropScale),
		pipeline.WithDebugDir(a.cfg.DebugDir),
		pipeline.WithLogger(a.log),
	)
}

// runEquations is the default action: detect, recognize and print equations.
func (a *app) runEquations(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	recognizer, err := ocr.New(a.cfg.RecognizerOptions())
	if err != nil {
		return err
	}

	pages, err := a.loadPages(ctx, args[0])
	if err != nil {
		return err
	}

	result, err := a.newPipeline(recognizer).Run(ctx, pages)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}
	return result.WriteJSON(cmd.OutOrStdout())
}
