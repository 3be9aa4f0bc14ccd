package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/hodorprobe/internal/storage"
)

type statusStore interface {
	AllLatest(ctx context.Context) ([]storage.Probe, error)
}

func executeStatus(cmd *cobra.Command, db statusStore, paths []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	probes, err := db.AllLatest(ctx)
	if err != nil {
		return fmt.Errorf("querying status: %w", err)
	}

	if len(probes) == 0 {
		fmt.Fprintln(out, "No probe history. Run 'hodorprobe watch' first.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSTATUS\tCODE\tRESPONSE\tLAST CHECKED\tERROR")
	for _, p := range inProbeOrder(probes, paths) {
		code := "-"
		if p.StatusCode > 0 {
			code = fmt.Sprint(p.StatusCode)
		}
		resp := "-"
		if p.ResponseMs > 0 {
			resp = (time.Duration(p.ResponseMs) * time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Path,
			p.Status,
			code,
			resp,
			p.CheckedAt.Local().Format("2006-01-02 15:04:05"),
			p.Error,
		)
	}
	w.Flush()
	return nil
}

// inProbeOrder lists configured paths first, in the order they are probed,
// followed by stored paths that are no longer configured.
func inProbeOrder(probes []storage.Probe, paths []string) []storage.Probe {
	byPath := make(map[string]storage.Probe, len(probes))
	for _, p := range probes {
		byPath[p.Path] = p
	}
	ordered := make([]storage.Probe, 0, len(probes))
	for _, path := range paths {
		if p, ok := byPath[path]; ok {
			ordered = append(ordered, p)
			delete(byPath, path)
		}
	}
	for _, p := range probes {
		if _, ok := byPath[p.Path]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered
}
