package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rshade/routekit/internal/bootstrap"
)

// newValidateCmd creates the validate command for checking a manifest
// against the router catalog.
func newValidateCmd(opts *rootOptions) *cobra.Command {
	var (
		manifest string
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a route manifest",
		Long: `Validates a route manifest for syntax and semantic correctness, then applies it
to an empty registry.

This includes:
- Capability syntax (protocol:, class: or module: followed by a type name)
- Router names and semver version constraints
- Exclusive and shared binding conflicts
- Adapter self-references and duplicates
- Router availability in the catalog`,
		Example: `  # Validate the manifest named by the config
  routekit validate

  # Validate a specific manifest with details
  routekit validate --manifest routes.toml --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, opts, manifest, verbose)
		},
	}

	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "manifest file (YAML or TOML)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show every binding")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *rootOptions, manifest string, verbose bool) error {
	out := newRenderer(cmd.OutOrStdout())
	_, report, err := buildRegistry(cmd.Context(), opts.cfg, manifest)
	if err != nil {
		out.Failure("Manifest is invalid: %v", err)
		return &ExitError{
			ExitCode: ExitCodeInvalidManifest,
			Err:      fmt.Errorf("manifest validation failed: %w", err),
		}
	}

	for _, w := range report.Warnings {
		out.Warn("%s", w)
	}
	out.Success("Manifest is valid (%s)", manifestSource(opts.cfg, manifest))
	out.Note("%s routes, %s adapters", out.Count(len(report.Bindings)), out.Count(len(report.Adapters)))

	if verbose {
		printBindings(cmd, report)
	}
	return nil
}

func printBindings(cmd *cobra.Command, report *bootstrap.Report) {
	const tabPadding = 2
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)

	fmt.Fprintln(w, "Capability\tRouter\tVersion\tExclusive\tPriority")
	fmt.Fprintln(w, "----------\t------\t-------\t---------\t--------")
	for _, b := range report.Bindings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\n", b.Capability, b.Router, b.Version, b.Exclusive, b.Priority)
	}
	for _, a := range report.Adapters {
		fmt.Fprintf(w, "%s\t-> %s\t\t\t\n", a.From, a.To)
	}
	_ = w.Flush()
}
