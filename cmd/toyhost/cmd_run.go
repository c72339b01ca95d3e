package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmtoys/internal/config"
	"github.com/woxQAQ/wasmtoys/internal/engine"
	"github.com/woxQAQ/wasmtoys/internal/metrics"
	"github.com/woxQAQ/wasmtoys/internal/remote"
)

var (
	runListen   string
	runTrace    string
	runManifest string
)

var runCmd = &cobra.Command{
	Use:   "run <module.wasm>",
	Short: "Run a module until interrupted",
	Long: `Run instantiates the module, calls main on the first frame and then
drives internal_update at the configured frame rate.

With an input listen address, the host waits for the first client hello
before starting; that client's capabilities decide pointer lock support.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runListen, "listen", "", "websocket address for input clients; overrides input.listen")
	runCmd.Flags().StringVar(&runTrace, "trace", "", "file to write GL commands to as JSON lines; overrides gl.trace")
	runCmd.Flags().StringVar(&runManifest, "assets", "", "asset manifest to load before main; overrides assets.manifest")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadHostConfig(globalConfigPath)
	if err != nil {
		return err
	}
	if runListen != "" {
		cfg.Input.Listen = runListen
	}
	if runTrace != "" {
		cfg.GL.Trace = runTrace
	}
	if runManifest != "" {
		cfg.Assets.Manifest = runManifest
	}
	if globalLogLevel != "" {
		cfg.LogLevel = globalLogLevel
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting toyhost",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("module", args[0]),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := engine.Options{Config: cfg, ModulePath: args[0], Logger: logger}

	if cfg.MetricsEnabled {
		opts.Metrics = metrics.New()
		srv := metrics.NewServer(fmt.Sprintf(":%d", cfg.MetricsPort), opts.Metrics)
		go serve(logger, "metrics", srv)
		defer shutdown(srv)
	}

	if cfg.GL.Trace != "" {
		f, err := os.Create(cfg.GL.Trace)
		if err != nil {
			return fmt.Errorf("failed to create trace file: %w", err)
		}
		defer f.Close()
		opts.Trace = f
	}

	var inputs *remote.Server
	if cfg.Input.Listen != "" {
		inputs = remote.NewServer(logger)
		defer inputs.Close()

		srv := &http.Server{Addr: cfg.Input.Listen, Handler: inputs}
		go serve(logger, "input", srv)
		defer shutdown(srv)

		logger.Info("Waiting for input client", zap.String("addr", cfg.Input.Listen))
		if _, err := inputs.Capabilities(ctx); err != nil {
			return err
		}
		opts.PointerLock = inputs.PointerLock()
	}

	eng, err := engine.New(ctx, opts)
	if err != nil {
		return err
	}
	defer eng.Close(context.Background())

	if inputs != nil {
		inputs.Attach(eng, string(eng.GLVersion()))
	}

	if err := eng.Run(ctx); err != nil {
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

func serve(logger *zap.Logger, name string, srv *http.Server) {
	logger.Info("Listening", zap.String("server", name), zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", zap.String("server", name), zap.Error(err))
	}
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
