package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rshade/routekit/internal/registry"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// routeRow is the JSON form of one registry binding.
type routeRow struct {
	Capability  string `json:"capability"`
	Router      string `json:"router"`
	Exclusivity string `json:"exclusivity"`
	Priority    int    `json:"priority"`
}

// adapterRow is the JSON form of one adapter.
type adapterRow struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type routesOutput struct {
	Routes   []routeRow   `json:"routes"`
	Adapters []adapterRow `json:"adapters"`
	Sealed   bool         `json:"sealed"`
}

// newRoutesCmd creates the routes command listing every registry binding.
func newRoutesCmd(opts *rootOptions) *cobra.Command {
	var (
		manifest string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List registry bindings",
		Example: `  # List bindings as a table
  routekit routes

  # List bindings as JSON
  routekit routes --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != outputTable && output != outputJSON {
				return fmt.Errorf("invalid output %q (must be %q or %q)", output, outputTable, outputJSON)
			}
			reg, _, err := buildRegistry(cmd.Context(), opts.cfg, manifest)
			if err != nil {
				return err
			}
			return printRoutes(cmd, reg, output)
		},
	}
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "manifest file (YAML or TOML)")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func collectRoutes(reg *registry.Registry) routesOutput {
	out := routesOutput{Sealed: reg.Sealed()}
	for _, e := range reg.Entries() {
		out.Routes = append(out.Routes, routeRow{
			Capability:  e.Capability.String(),
			Router:      e.Factory.FactoryName(),
			Exclusivity: e.Exclusivity.String(),
			Priority:    e.Priority,
		})
	}
	for from, to := range reg.Adapters() {
		out.Adapters = append(out.Adapters, adapterRow{From: from.String(), To: to.String()})
	}
	sort.Slice(out.Adapters, func(i, j int) bool { return out.Adapters[i].From < out.Adapters[j].From })
	return out
}

func printRoutes(cmd *cobra.Command, reg *registry.Registry, output string) error {
	data := collectRoutes(reg)

	if output == outputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}

	if len(data.Routes) == 0 {
		cmd.Println("No routes registered.")
		return nil
	}

	const tabPadding = 2
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(w, "Capability\tRouter\tExclusivity\tPriority")
	fmt.Fprintln(w, "----------\t------\t-----------\t--------")
	for _, r := range data.Routes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.Capability, r.Router, r.Exclusivity, r.Priority)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(data.Adapters) > 0 {
		cmd.Println()
		cmd.Println("Adapters:")
		for _, a := range data.Adapters {
			cmd.Printf("  %s -> %s\n", a.From, a.To)
		}
	}
	return nil
}
