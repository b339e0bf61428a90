package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/mycogo/artifact"
	"github.com/YuminosukeSato/mycogo/inference"
	"github.com/YuminosukeSato/mycogo/server"
)

var serveFlags struct {
	addr     string
	artifact string
	logLevel string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions from a trained artifact bundle over HTTP",
	Long: `Loads the artifact bundle and exposes /predict, /batch_predict and
/health. Startup fails when the bundle is missing or inconsistent.

Configuration comes from MYCOGO_* environment variables (MYCOGO_ADDR,
MYCOGO_ARTIFACT, MYCOGO_READ_TIMEOUT, MYCOGO_WRITE_TIMEOUT,
MYCOGO_IDLE_TIMEOUT, MYCOGO_LOG_LEVEL); flags override them.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", "", "Listen address")
	f.StringVar(&serveFlags.artifact, "artifact", "", "Artifact bundle path")
	f.StringVar(&serveFlags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := server.ConfigFromEnv()
	if serveFlags.addr != "" {
		cfg.Addr = serveFlags.addr
	}
	if serveFlags.artifact != "" {
		cfg.ArtifactPath = serveFlags.artifact
	}
	if serveFlags.logLevel != "" {
		cfg.LogLevel = serveFlags.logLevel
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		return err
	}

	bundle, err := artifact.Load(cfg.ArtifactPath)
	if err != nil {
		return err
	}
	engine, err := inference.NewEngine(bundle)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.New(cfg, engine).Run(ctx)
}
