package cli

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/config"
	"github.com/cperrin88/coupler-launcher/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Bring the installation up to date",
		Long: `Check the catalog for new builds, download what is missing or outdated and
remove files that are no longer needed. On success the path of every required
artifact is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd, quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the installed paths")

	return cmd
}

func runUpdate(cmd *cobra.Command, quiet bool) error {
	out := cmd.OutOrStdout()
	return withRoot(func(cfg *config.Config, root string) error {
		e, err := newEngine(cfg, root)
		if err != nil {
			return err
		}

		hooks := orchestrator.Hooks{}
		if !quiet {
			hooks = progressHooks(out)
		}
		orch, err := e.orchestrator(hooks)
		if err != nil {
			return err
		}

		res, err := orch.Run(cmd.Context())
		if err != nil {
			return err
		}

		printPaths(out, res.Paths)
		if !quiet && len(res.Cleanup.Failures) > 0 {
			logger.Warn("Some packages could not be removed", logger.Fields{"failures": len(res.Cleanup.Failures)})
		}
		return nil
	})
}

// progressHooks prints events as they happen and download progress in ten percent steps.
func progressHooks(out io.Writer) orchestrator.Hooks {
	var (
		mu   sync.Mutex
		last = make(map[string]int64)
	)
	return orchestrator.Hooks{
		OnEvent: func(e orchestrator.Event) {
			mu.Lock()
			defer mu.Unlock()
			_, _ = fmt.Fprintf(out, "%s: %s\n", e.Phase, e.Msg)
		},
		OnProgress: func(id string, done, total int64) {
			if total <= 0 {
				return
			}
			step := done * 10 / total
			mu.Lock()
			defer mu.Unlock()
			if prev, ok := last[id]; ok && prev == step {
				return
			}
			last[id] = step
			_, _ = fmt.Fprintf(out, "  %s %3d%%\n", id, step*10)
		},
	}
}

func printPaths(out io.Writer, paths map[string]string) {
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	tabWriter := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "NAME\tPATH")
	for _, name := range names {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\n", name, paths[name])
	}
	_ = tabWriter.Flush()
}
