package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/routekit/internal/config"
	"github.com/rshade/routekit/internal/logging"
)

// EnvConfig names a config file used when --config is not given.
const EnvConfig = "ROUTEKIT_CONFIG"

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger = zerolog.Nop() //nolint:gochecknoglobals // Required for zerolog context integration

// rootOptions is shared by the root command and its subcommands.
type rootOptions struct {
	configPaths []string
	debug       bool
	lookupEnv   func(string) (string, bool)

	cfg *config.Config
}

// NewRootCmd creates the root Cobra command for the routekit CLI.
// It loads configuration, wires up logging and tracing, and adds the
// validate, resolve, routes, catalog, demo and version subcommands.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithEnv(ver, os.LookupEnv)
}

// NewRootCmdWithEnv creates the root command with an explicit env lookup for testability.
func NewRootCmdWithEnv(ver string, lookupEnv func(string) (string, bool)) *cobra.Command {
	opts := &rootOptions{lookupEnv: lookupEnv}
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:           "routekit",
		Short:         "Capability-based router registry",
		Long:          "routekit: resolve, validate and exercise capability-to-router manifests",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			opts.cfg = cfg

			result := setupLogging(cmd, opts)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, logResult)
		},
	}

	cmd.PersistentFlags().StringSliceVarP(&opts.configPaths, "config", "c", nil,
		"config file (YAML or TOML); repeat to layer overlays on top of the first")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newValidateCmd(opts),
		newResolveCmd(opts),
		newRoutesCmd(opts),
		newCatalogCmd(),
		newDemoCmd(opts),
		newVersionCmd(ver),
	)

	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	paths := o.configPaths
	if len(paths) == 0 {
		if p, ok := o.lookupEnv(EnvConfig); ok && p != "" {
			paths = []string{p}
		}
	}
	if len(paths) == 0 {
		return config.Load("")
	}
	return config.LoadLayered(paths[0], paths[1:]...)
}

const rootCmdExample = `  # Validate the built-in manifest against the demo catalog
  routekit validate

  # Validate a manifest file
  routekit validate --manifest routes.yaml

  # Show how a capability resolves, including adapter hops
  routekit resolve protocol:github.com/rshade/routekit/internal/demo.SignInView

  # List every binding in the registry
  routekit routes --output json

  # Run the demo scenario on an interaction loop with slow transitions
  routekit demo --loop --delay 50ms --record transitions.jsonl`
