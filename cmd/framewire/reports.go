package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"framewire/internal/infrastructure/backup"

	"github.com/spf13/cobra"
)

func newReportsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect, archive and restore session reports",
	}
	cmd.AddCommand(newReportsListCommand(root))
	cmd.AddCommand(newReportsExportCommand(root))
	cmd.AddCommand(newReportsImportCommand(root))
	return cmd
}

// withApp runs fn with an app built from the root options. Reports commands
// never serve metrics, so nothing is registered with Prometheus.
func withApp(cmd *cobra.Command, root *rootOptions, fn func(ctx context.Context, a *app) error) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	cfg.Monitoring.PrometheusEnabled = false

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func newReportsListCommand(root *rootOptions) *cobra.Command {
	var (
		limit  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent session reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				reports, err := a.reports.List(ctx, limit)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if output == "json" {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(reports)
				}

				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "SESSION\tROLE\tREASON\tSTOPPED\tSENT\tRECEIVED\tDROPPED\tAVG LATENCY")
				for _, r := range reports {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%.6fs\n",
						r.SessionID, r.Role, r.Reason, r.StoppedAt.Format(time.RFC3339),
						r.Counters.FramesSent, r.Counters.FramesReceived, r.Counters.FramesDropped,
						r.Summary.AvgLatencySeconds)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of reports")
	cmd.Flags().StringVar(&output, "output", "text", "Output format (json or text)")
	return cmd
}

func newReportsExportCommand(root *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all stored reports to an archive file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				if dir == "" {
					dir = a.cfg.Backup.Directory
				}
				scheduler, err := a.archiveScheduler(dir)
				if err != nil {
					return err
				}
				name, err := scheduler.RunOnce(ctx)
				if err != nil {
					return err
				}
				if name == "" {
					return fmt.Errorf("another instance is archiving reports, try again later")
				}
				fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir, name))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Archive directory (defaults to backup.directory)")
	return cmd
}

func newReportsImportCommand(root *rootOptions) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import <archive-file>",
		Short: "Load reports from an archive file into the report store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				service, err := a.backupService(filepath.Dir(args[0]))
				if err != nil {
					return err
				}
				restorer := backup.NewRestoreService(service, a.reports, a.log)
				result, err := restorer.RestoreFromBackup(ctx, filepath.Base(args[0]), backup.RestoreOptions{
					OverwriteExisting: overwrite,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "restored %d reports, skipped %d\n", result.Restored, result.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace reports that already exist")
	return cmd
}
