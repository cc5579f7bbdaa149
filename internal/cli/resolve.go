package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rshade/routekit/internal/registry"
)

// newResolveCmd creates the resolve command, which prints the adapter chain
// and routers a capability resolves to.
func newResolveCmd(opts *rootOptions) *cobra.Command {
	var manifest string
	cmd := &cobra.Command{
		Use:   "resolve <capability>",
		Short: "Show how a capability resolves",
		Example: `  # Resolve a protocol through its adapter
  routekit resolve protocol:github.com/rshade/routekit/internal/demo.SignInView`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, opts, manifest, args[0])
		},
	}
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "manifest file (YAML or TOML)")
	return cmd
}

func runResolve(cmd *cobra.Command, opts *rootOptions, manifest, arg string) error {
	c, err := registry.ParseCapability(arg)
	if err != nil {
		return err
	}
	reg, _, err := buildRegistry(cmd.Context(), opts.cfg, manifest)
	if err != nil {
		return err
	}

	out := newRenderer(cmd.OutOrStdout())
	hops, err := reg.Trace(c)
	out.Header(c.String())
	for i, hop := range hops[1:] {
		out.Note("%s-> %s", strings.Repeat("  ", i), hop)
	}
	if err != nil {
		out.Failure("%v", err)
		return fmt.Errorf("resolving %s: %w", c, err)
	}

	entries, err := reg.ResolveAll(c)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", c, err)
	}
	for i, e := range entries {
		label := e.Exclusivity.String()
		if i == 0 {
			label += ", default"
		}
		out.Success("%s (%s, priority %d)", e.Factory.FactoryName(), label, e.Priority)
	}

	logger.Debug().Ctx(cmd.Context()).
		Str("operation", "resolve").
		Str("capability", c.String()).
		Int("hops", len(hops)-1).
		Int("routers", len(entries)).
		Msg("capability resolved")
	return nil
}
