package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/routekit/internal/demo"
	"github.com/rshade/routekit/internal/dispatch"
	"github.com/rshade/routekit/internal/host"
	"github.com/rshade/routekit/internal/route"
	"github.com/rshade/routekit/internal/router"
)

// errRemoveStuck is injected by --fail-remove.
var errRemoveStuck = errors.New("remove animation interrupted")

type demoFlags struct {
	manifest   string
	delay      time.Duration
	loop       bool
	failRemove bool
	record     string
}

// newDemoCmd creates the demo command, which runs a scripted sequence of
// routes against an in-memory navigation stack.
func newDemoCmd(opts *rootOptions) *cobra.Command {
	var flags demoFlags
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted routing scenario",
		Long: `Runs a scripted sequence of perform and remove calls against an in-memory
navigation stack and prints the outcome of each step.

With --loop (or dispatch.mode: loop in the config) every call and every
completion runs on a single interaction loop.`,
		Example: `  # Run the scenario
  routekit demo

  # Slow, looped transitions with a failing removal, recorded as JSON lines
  routekit demo --loop --delay 100ms --fail-remove --record transitions.jsonl`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, opts, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.manifest, "manifest", "m", "", "manifest file (YAML or TOML)")
	cmd.Flags().DurationVar(&flags.delay, "delay", 0, "complete every transition after this delay")
	cmd.Flags().BoolVar(&flags.loop, "loop", false, "marshal calls and completions through an interaction loop")
	cmd.Flags().BoolVar(&flags.failRemove, "fail-remove", false, "fail the removal of the settings screen")
	cmd.Flags().StringVar(&flags.record, "record", "", "write one JSON line per transition to this file")

	return cmd
}

func runDemo(cmd *cobra.Command, opts *rootOptions, flags demoFlags) error {
	ctx := cmd.Context()
	if flags.delay < 0 {
		return fmt.Errorf("delay must be >= 0, got %s", flags.delay)
	}

	reg, _, err := buildRegistry(ctx, opts.cfg, flags.manifest)
	if err != nil {
		return err
	}

	stackOpts := []host.Option{host.WithDelay(flags.delay), host.WithLogger(logger)}
	if flags.failRemove {
		stackOpts = append(stackOpts, host.WithFailure(func(op string, _ route.Kind, destination any) error {
			if _, ok := destination.(*demo.SettingsScreen); ok && op == host.OpRemove {
				return errRemoveStuck
			}
			return nil
		}))
	}
	stack := host.NewStack(stackOpts...)

	var recordOut io.Writer = io.Discard
	if flags.record != "" {
		f, createErr := os.Create(flags.record)
		if createErr != nil {
			return fmt.Errorf("opening record file: %w", createErr)
		}
		defer f.Close()
		recordOut = f
	}
	recorder := host.NewRecorder(stack, recordOut, logger)

	observed := atomic.NewInt64(0)
	engineOpts := []router.Option{
		router.WithTransitioner(recorder),
		router.WithLogger(logger),
		router.WithErrorObserver(func(router.ErrorEvent) { observed.Inc() }),
	}

	scenario := &demo.Scenario{Stack: stack}
	g, gctx := errgroup.WithContext(ctx)

	var loop *dispatch.Loop
	if flags.loop || opts.cfg.UsesLoop() {
		loop = dispatch.NewLoop(dispatch.WithLogger(logger), dispatch.WithCapacity(opts.cfg.Dispatch.QueueHint))
		engineOpts = append(engineOpts, router.WithDispatcher(loop))
		scenario.Loop = loop
		g.Go(func() error {
			return loop.Run(gctx)
		})
	}
	scenario.Engine = router.NewEngine(reg, engineOpts...)

	var steps []demo.Step
	started := time.Now()
	g.Go(func() error {
		if loop != nil {
			defer loop.Stop()
		}
		var runErr error
		steps, runErr = scenario.Run(gctx)
		return runErr
	})
	if err = g.Wait(); err != nil {
		return fmt.Errorf("demo scenario: %w", err)
	}

	out := newRenderer(cmd.OutOrStdout())
	printSteps(cmd.OutOrStdout(), out, steps)
	out.Note("%s transitions recorded, %s errors reported, %s screens left on the stack in %s",
		out.Count(recorder.Count()), out.Count(int(observed.Load())), out.Count(stack.Len()),
		time.Since(started).Round(time.Millisecond))
	if loop != nil {
		stats := loop.Stats()
		out.Note("interaction loop executed %d callbacks, dropped %d", stats.Executed, stats.Dropped)
	}
	return nil
}

func printSteps(w io.Writer, out *renderer, steps []demo.Step) {
	const tabPadding = 2
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "\tStep\tKind\tState\tDepth\tDetail")
	for _, s := range steps {
		state := "-"
		if s.State != router.StateUnrouted {
			state = s.State.String()
		}
		detail := ""
		if s.Err != nil {
			detail = s.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", out.Status(s.OK), s.Name, s.Kind, state, s.Depth, detail)
	}
	_ = tw.Flush()
}
