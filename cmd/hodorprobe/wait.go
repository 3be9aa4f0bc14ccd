package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/hodorprobe/internal/gateway"
)

type healthWaiter interface {
	WaitHealthy(ctx context.Context, attempts int, delay time.Duration, onAttempt func(attempt int, err error)) error
}

func waitCmd() *cobra.Command {
	var (
		attempts int
		delay    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the gateway's /health answers 2xx",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client := gateway.New(cfg.BaseURL, httpClient(cfg), slog.Default())

			ctx, stop := signalContext(cmd)
			defer stop()
			return executeWait(ctx, cmd.OutOrStdout(), cfg.BaseURL, client, attempts, delay)
		},
	}
	cmd.Flags().IntVar(&attempts, "attempts", gateway.DefaultWaitAttempts, "maximum number of health checks")
	cmd.Flags().DurationVar(&delay, "delay", gateway.DefaultWaitDelay, "delay between health checks")
	return cmd
}

func executeWait(ctx context.Context, out io.Writer, baseURL string, w healthWaiter, attempts int, delay time.Duration) error {
	if attempts <= 0 {
		attempts = gateway.DefaultWaitAttempts
	}
	fmt.Fprintf(out, "Waiting for gateway at %s\n", baseURL)
	err := w.WaitHealthy(ctx, attempts, delay, func(attempt int, err error) {
		fmt.Fprintf(out, "  attempt %d/%d: %v\n", attempt, attempts, err)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Gateway is healthy.")
	return nil
}
