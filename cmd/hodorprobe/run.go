package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/hodorprobe/internal/probe"
)

const sampleLanguage = "Go"

type runOptions struct {
	strict bool
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "stop with an error on the first non-2xx response")
}

// probeRunner is the part of *probe.Prober the run command drives.
type probeRunner interface {
	BaseURL() string
	Run(ctx context.Context, paths []string, onResult func(probe.Result) error) ([]probe.Result, error)
}

func runProbe(cmd *cobra.Command, opts runOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	p := probe.New(cfg.BaseURL,
		probe.WithClient(httpClient(cfg)),
		probe.WithStrictStatus(cfg.Strict || opts.strict),
		probe.WithLogger(slog.Default()),
	)

	ctx, stop := signalContext(cmd)
	defer stop()

	return executeRun(ctx, cmd.OutOrStdout(), p, cfg.Paths)
}

// executeRun prints the banner and one preview line per path as each response
// arrives. Lines printed before a failure stay printed.
func executeRun(ctx context.Context, out io.Writer, p probeRunner, paths []string) error {
	fmt.Fprintf(out, "=== Hodor MCP Gateway - %s sample ===\n", sampleLanguage)
	fmt.Fprintf(out, "Base URL: %s\n\n", p.BaseURL())

	_, err := p.Run(ctx, paths, func(r probe.Result) error {
		if _, err := fmt.Fprintln(out, r.Line()); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("probe run: %w", err)
	}
	return nil
}
