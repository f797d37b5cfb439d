package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wavedash-gg/wvdsh/internal/domain/artifact"
	"github.com/wavedash-gg/wvdsh/internal/domain/cert"
	"github.com/wavedash-gg/wvdsh/internal/domain/project"
	"github.com/wavedash-gg/wvdsh/internal/domain/sandbox"
	"github.com/wavedash-gg/wvdsh/internal/domain/trust"
	"github.com/wavedash-gg/wvdsh/internal/infrastructure/config"
	"github.com/wavedash-gg/wvdsh/internal/infrastructure/logging"
	"github.com/wavedash-gg/wvdsh/internal/infrastructure/server"
)

const defaultConfigPath = "./wavedash.toml"

// shutdownGrace bounds how long in-flight responses may run after an
// interrupt before the process exits anyway.
const shutdownGrace = 10 * time.Second

// DevOptions holds flags for the dev command group.
type DevOptions struct {
	*RootOptions
	ConfigPath string
}

// NewDevCommand creates the dev command group.
func NewDevCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DevOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Local development workflows",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Preview a local build inside the hosted app",
		Long: `Serve the configured upload directory over trusted local HTTPS and print
a sandbox link that opens the hosted Wavedash app pointed at it.

Example:
  wvdsh dev serve
  wvdsh dev serve --config ./game/wavedash.toml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	serveCmd.Flags().StringVar(&opts.ConfigPath, "config", defaultConfigPath, "path to wavedash.toml")

	cmd.AddCommand(serveCmd)
	return cmd
}

func runServe(ctx context.Context, opts *DevOptions) error {
	env := config.LoadOrDefault()

	logger, err := logging.New(logging.Config{
		Level:   env.Logging.Level,
		Verbose: opts.Verbose,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	proj, err := project.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if proj.LegacyEngineSchema {
		logger.Warn("Config uses the [engine] table; prefer a per-engine section like [godot]",
			zap.String("engine", proj.Engine.Label()),
		)
	}
	logger.Info("Loaded project config",
		zap.String("game", proj.GameSlug),
		zap.String("branch", proj.BranchSlug),
		zap.String("engine", proj.Engine.Label()),
		zap.String("upload_dir", proj.UploadDir),
	)

	userDir, err := config.UserDir()
	if err != nil {
		return err
	}
	material, err := cert.NewStore(userDir, logger).Acquire()
	if err != nil {
		return err
	}

	// Best-effort: a declined or failed install degrades to a browser
	// certificate warning, never a dead server.
	state := trust.New(logger, trust.NewStdinPrompter()).EnsureTrusted(ctx, material)
	if !state.Installed {
		logger.Warn("Dev certificate is not trusted by the OS; browsers will warn",
			zap.String("method", state.Method),
			zap.String("reason", state.Reason),
		)
	}

	info, err := artifact.Resolve(proj.UploadDir, proj.Engine)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Root:           proj.UploadDir,
		Material:       material,
		AllowedOrigins: env.Site.AllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	link := sandbox.BuildLink(env.Site.Host, proj.GameSlug, proj.BranchSlug, srv.Port(), proj.Engine, info)

	fmt.Fprintf(os.Stderr, "Serving %s at %s\n", proj.UploadDir, srv.Origin())
	fmt.Fprintf(os.Stderr, "Certificate: %s\n", material.CertPath)
	fmt.Fprintln(os.Stderr, "Open the sandbox link below, then press Ctrl+C to stop.")
	fmt.Println(link)

	select {
	case <-ctx.Done():
		logger.Info("Shutting down dev server")
	case err, ok := <-srv.Err():
		if ok && err != nil {
			return fmt.Errorf("dev server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Execute runs the CLI with signal-driven cancellation.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
