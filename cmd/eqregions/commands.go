package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/eqregions/internal/detection"
	"github.com/ironsheep/eqregions/internal/ocr"
	"github.com/ironsheep/eqregions/internal/pipeline"
	"github.com/ironsheep/eqregions/internal/server"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <pdf|image|dir>",
		Short: "Detect and recognize equations (the default command)",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runEquations,
	}
}

func newDetectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <pdf|image|dir>",
		Short: "Print the detected regions of each page without recognizing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			pages, err := a.loadPages(ctx, args[0])
			if err != nil {
				return err
			}
			reports, err := a.newPipeline(nil).Detect(ctx, pages)
			if err != nil {
				return err
			}
			return pipeline.WriteReports(cmd.OutOrStdout(), reports)
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run an MCP server on stdin/stdout",
		Long: `serve speaks JSON-RPC 2.0 over stdio and exposes the equations_detect,
equations_recognize, equations_mask, equations_cache_clear and equations_info
tools.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			recognizer, err := ocr.New(a.cfg.RecognizerOptions())
			if err != nil {
				a.log.WithError(err).Warn("Recognizer unavailable, equations_recognize is disabled")
				recognizer = nil
			}

			var p *pipeline.Pipeline
			if recognizer != nil {
				p = a.newPipeline(recognizer)
			}

			srv := server.New(server.Options{
				Detector:   detection.NewDetector(a.cfg.DetectorOptions()),
				Recognizer: recognizer,
				Pipeline:   p,
				Sources:    a.cfg.SourceOptions(),
				Version:    Version,
				Logger:     a.log,
			})

			a.log.WithField("version", Version).Info("MCP server started")
			return srv.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Skip configuration loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), versionText())
		},
	}
}

func versionText() string {
	return fmt.Sprintf("eqregions %s\n  Build time: %s\n  Git commit: %s\n", Version, BuildTime, GitCommit)
}
