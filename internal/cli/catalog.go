package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/cperrin88/coupler-launcher/pkg/config"
	"github.com/spf13/cobra"
)

// NewCatalogCmd creates the catalog command.
func NewCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the newest build of every published artifact",
		Args:  cobra.NoArgs,
		RunE:  runCatalog,
	}
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	return withRoot(func(cfg *config.Config, root string) error {
		e, err := newEngine(cfg, root)
		if err != nil {
			return err
		}
		cat, err := e.reader.FetchLatest(cmd.Context(), cfg.IndexURL())
		if err != nil {
			return err
		}

		tabWriter := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, TabWidth, ' ', 0)
		_, _ = fmt.Fprintln(tabWriter, "NAME\tFILE\tMARKER\tCHECKSUM")
		for _, name := range cat.Names() {
			d, _ := cat.Get(name)
			checksum := d.Checksum
			if checksum == "" {
				checksum = "-"
			}
			_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%s\t%s\n", d.Name, d.Basename, d.VersionKey, checksum)
		}
		return tabWriter.Flush()
	})
}
