package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/hodorprobe/internal/gateway"
)

type healthChecker interface {
	Health(ctx context.Context) (gateway.Health, error)
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Query the gateway's /health once and print the answer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client := gateway.New(cfg.BaseURL, httpClient(cfg), slog.Default())

			ctx, stop := signalContext(cmd)
			defer stop()
			return executeHealth(ctx, cmd.OutOrStdout(), client)
		},
	}
}

// executeHealth prints the status and body of /health. A non-2xx answer is
// printed and then returned as an error.
func executeHealth(ctx context.Context, out io.Writer, c healthChecker) error {
	h, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("checking health: %w", err)
	}

	fmt.Fprintf(out, "Status: %d %s\n", h.StatusCode, http.StatusText(h.StatusCode))
	if h.Body != "" {
		fmt.Fprintln(out, h.Body)
	}
	if !h.OK() {
		return fmt.Errorf("gateway unhealthy: status %d", h.StatusCode)
	}
	return nil
}
