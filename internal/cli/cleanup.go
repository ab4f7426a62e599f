package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/cleanup"
	"github.com/cperrin88/coupler-launcher/pkg/config"
	"github.com/cperrin88/coupler-launcher/pkg/installed"
	"github.com/cperrin88/coupler-launcher/pkg/model"
	"github.com/spf13/cobra"
)

// NewCleanupCmd creates the cleanup command.
func NewCleanupCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove superseded packages and obsolete files",
		Long: `Remove what an update would leave behind without downloading anything.

For a registry catalog every installed package except the newest version of each
name is removed, dependents before their dependencies. For a file catalog every
file matching the prune pattern that is not the current build is removed.
Use --dry-run to see what would be removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCleanup(cmd, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be removed without removing anything")

	return cmd
}

func runCleanup(cmd *cobra.Command, dryRun bool) error {
	out := cmd.OutOrStdout()
	return withRoot(func(cfg *config.Config, root string) error {
		e, err := newEngine(cfg, root)
		if err != nil {
			return err
		}
		if e.store != nil {
			return cleanupPackages(cmd.Context(), out, e.store, dryRun)
		}
		return cleanupFiles(cmd.Context(), out, e, dryRun)
	})
}

// cleanupPackages keeps the highest installed version of every package name.
func cleanupPackages(ctx context.Context, out io.Writer, store *installed.Store, dryRun bool) error {
	var keep []model.PackageVersion
	seen := make(map[string]bool)
	for _, p := range store.DB.All() {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		keep = append(keep, store.DB.Highest(p.Name).PackageVersion())
	}

	installedVersions := store.PackageVersions()
	plan := cleanup.Plan(installedVersions, keep)
	if plan.Empty() {
		_, _ = fmt.Fprintln(out, "Nothing to clean up")
		return nil
	}

	if dryRun {
		_, _ = fmt.Fprintf(out, "Would remove %d package(s):\n", len(plan.IDs()))
		for _, unit := range plan.Units {
			for _, p := range unit {
				_, _ = fmt.Fprintf(out, "  %s\n", p.ID())
			}
		}
		return nil
	}

	report := cleanup.Execute(ctx, plan, installedVersions, store)
	for _, id := range report.Removed {
		_, _ = fmt.Fprintf(out, "Removed %s\n", id)
	}
	if err := report.Err(); err != nil {
		return fmt.Errorf("cleanup incomplete: %w", err)
	}
	logger.Success("Cleanup finished", logger.Fields{"removed": len(report.Removed)})
	return nil
}

// cleanupFiles keeps the current build of every catalog artifact.
func cleanupFiles(ctx context.Context, out io.Writer, e *engine, dryRun bool) error {
	if e.cfg.Catalog.Prune == "" {
		_, _ = fmt.Fprintln(out, "No prune pattern configured")
		return nil
	}

	cat, err := e.reader.FetchLatest(ctx, e.cfg.IndexURL())
	if err != nil {
		return err
	}
	keep := make([]string, 0, cat.Len())
	for _, name := range cat.Names() {
		d, _ := cat.Get(name)
		keep = append(keep, filepath.Join(e.root, d.Basename))
	}

	if dryRun {
		candidates, err := cleanup.PruneCandidates(e.root, e.cfg.Catalog.Prune, keep)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			_, _ = fmt.Fprintln(out, "Nothing to clean up")
			return nil
		}
		_, _ = fmt.Fprintf(out, "Would remove %d file(s):\n", len(candidates))
		for _, path := range candidates {
			_, _ = fmt.Fprintf(out, "  %s\n", path)
		}
		return nil
	}

	removed, err := cleanup.PruneFiles(e.root, e.cfg.Catalog.Prune, keep)
	for _, path := range removed {
		_, _ = fmt.Fprintf(out, "Removed %s\n", path)
	}
	if err != nil {
		return fmt.Errorf("cleanup incomplete: %w", err)
	}
	if len(removed) == 0 {
		_, _ = fmt.Fprintln(out, "Nothing to clean up")
	}
	return nil
}
