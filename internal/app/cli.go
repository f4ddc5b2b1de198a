package app

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jaennil/guide_helper/backend/mosaic/pkg/config"
	"github.com/jaennil/guide_helper/backend/mosaic/pkg/logger"
	"github.com/spf13/cobra"
)

type cli struct {
	cfg    *config.Config
	logger *logger.ZapLogger
}

func NewRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "mosaic",
		Short:         "Stitch map tiles covering a bounding box into one image",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = logger.NewZapLogger(cfg.Logger.Level)
			c.logger.Debug("app config", "cfg", cfg)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.AddCommand(c.stitchCommand(), c.serveCommand())
	return root
}

func (c *cli) stitchCommand() *cobra.Command {
	var p StitchParams

	cmd := &cobra.Command{
		Use:   "stitch",
		Short: "Download the tiles of a bounding box and write the mosaic to a file",
		Example: "  mosaic stitch --top 40.7128 --left -74.0100 --bottom 40.7000 --right -74.0000 --zoom 15\n" +
			"  mosaic stitch --top 55.76 --left 37.60 --bottom 55.74 --right 37.64 --zoom 16 --out moscow.jpg",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTelemetry, err := initTelemetry(c.cfg.Telemetry, c.logger)
			if err != nil {
				return err
			}
			defer shutdownTelemetry()

			_, err = Stitch(ctx, c.cfg, c.logger, p)
			return err
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&p.Top, "top", 0, "latitude of the top-left corner")
	flags.Float64Var(&p.Left, "left", 0, "longitude of the top-left corner")
	flags.Float64Var(&p.Bottom, "bottom", 0, "latitude of the bottom-right corner")
	flags.Float64Var(&p.Right, "right", 0, "longitude of the bottom-right corner")
	flags.IntVar(&p.Zoom, "zoom", 0, "zoom level")
	flags.StringVarP(&p.Out, "out", "o", DefaultOutput, "output image (.png, .jpg or .tiff)")
	for _, name := range []string{"top", "left", "bottom", "right", "zoom"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func (c *cli) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve tiles and mosaics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunServer(c.cfg, c.logger)
		},
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
