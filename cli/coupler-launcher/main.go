package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cperrin88/coupler-launcher/internal/cli"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	rootDir    string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coupler-launcher",
		Short: "Keep a Coupler installation up to date",
		Long: `coupler-launcher keeps the runtime files of Coupler current:
- update: download new builds and remove obsolete ones
- catalog: show what the server publishes
- cleanup: remove superseded packages without updating`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&rootDir, "root", "", "installation root (default: $"+cli.EnvHome+" or the platform location)")

	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.RootDir = &rootDir

	cmd.AddCommand(
		cli.NewUpdateCmd(),
		cli.NewCatalogCmd(),
		cli.NewCleanupCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
