package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rshade/routekit/internal/demo"
)

// newCatalogCmd creates the catalog command listing available router versions.
func newCatalogCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List routers available to manifests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat := demo.Catalog()

			const tabPadding = 2
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
			fmt.Fprintln(w, "Name\tVersion\tDestination\tConfig")
			fmt.Fprintln(w, "----\t-------\t-----------\t------")
			for _, latest := range cat.Latest() {
				entries := cat.Versions(latest.Name)
				if !all {
					entries = entries[:1]
				}
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						e.Name, e.Version, e.Descriptor.DestinationType(), e.Descriptor.ConfigType())
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "show every version, not only the newest")
	return cmd
}
