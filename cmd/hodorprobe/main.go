package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/hodorprobe/internal/alert"
	"github.com/hazz-dev/hodorprobe/internal/config"
	"github.com/hazz-dev/hodorprobe/internal/dashboard"
	"github.com/hazz-dev/hodorprobe/internal/probe"
	"github.com/hazz-dev/hodorprobe/internal/scheduler"
	"github.com/hazz-dev/hodorprobe/internal/server"
	"github.com/hazz-dev/hodorprobe/internal/storage"
	"github.com/hazz-dev/hodorprobe/internal/version"
)

var (
	cfgFile string
	baseURL string
	timeout time.Duration
	verbose bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts runOptions
	root := &cobra.Command{
		Use:          "hodorprobe",
		Short:        "Probe a Hodor MCP gateway",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (optional)")
	root.PersistentFlags().StringVar(&baseURL, "url", "", "gateway base URL (overrides "+config.EnvBaseURL+")")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-request timeout (0 keeps the configured value)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	addRunFlags(root, &opts)

	root.AddCommand(versionCmd())
	root.AddCommand(runCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(healthCmd())
	root.AddCommand(toolsCmd())
	root.AddCommand(waitCmd())

	return root
}

func setupLogging(cmd *cobra.Command) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadConfig loads the config file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, nil)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = config.Duration{Duration: timeout}
	}
	return cfg, nil
}

func httpClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Timeout.Duration}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hodorprobe %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func runCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Probe /health, /ready and /api/tools once and print a preview of each",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd, opts)
		},
	}
	addRunFlags(cmd, &opts)
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Probe the gateway on an interval and serve history over HTTP",
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	logger := slog.Default()

	// 1. Load config
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.Info("config loaded", "base_url", cfg.BaseURL, "paths", len(cfg.Paths), "interval", cfg.Interval.Duration)

	// 2. Open SQLite
	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// 3. Build alerter (if configured)
	var alerter *alert.Alerter
	if cfg.Alerts.Webhook.URL != "" {
		alerter = alert.New(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Cooldown.Duration, logger)
	}

	// 4. Build scheduler; non-2xx is recorded as down, never aborts a run
	prober := probe.New(cfg.BaseURL,
		probe.WithClient(httpClient(cfg)),
		probe.WithLogger(logger),
	)
	sched := scheduler.New(prober, cfg.Paths, cfg.Interval.Duration, db, logger)
	if alerter != nil {
		sched.SetOnResult(alerter.Notify)
	}

	// 5. Build API server
	apiServer := server.New(db, cfg.BaseURL, cfg.Paths, logger)

	// 6. Mount routes on a single mux
	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Router())
	mux.Handle("/", dashboard.Handler())

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
	}

	// 7. Signal context for graceful shutdown
	ctx, stop := signalContext(cmd)
	defer stop()

	// 8. Start scheduler
	sched.Start(ctx)
	logger.Info("scheduler started", "paths", len(cfg.Paths))

	// 9. Start HTTP server in background
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// 10. Wait for signal or server error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		stop()
		sched.Wait()
		return fmt.Errorf("HTTP server: %w", err)
	}

	// 11. Graceful shutdown
	sched.Wait()
	if alerter != nil {
		alerter.Wait()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the latest stored probe result per path",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return executeStatus(cmd, db, cfg.Paths)
}
