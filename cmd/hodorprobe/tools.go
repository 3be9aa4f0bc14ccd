package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/hodorprobe/internal/gateway"
)

type toolLister interface {
	ListTools(ctx context.Context) ([]gateway.Tool, error)
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools the gateway exposes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client := gateway.New(cfg.BaseURL, httpClient(cfg), slog.Default())

			ctx, stop := signalContext(cmd)
			defer stop()
			return executeTools(ctx, cmd.OutOrStdout(), client)
		},
	}
}

func executeTools(ctx context.Context, out io.Writer, lister toolLister) error {
	tools, err := lister.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("listing tools: %w", err)
	}

	if len(tools) == 0 {
		fmt.Fprintln(out, "No tools registered.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, t := range tools {
		fmt.Fprintf(w, "%s\t%s\n", t.Name, t.Description)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d tools\n", len(tools))
	return nil
}
