package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/rshade/routekit/pkg/version"
)

func newVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("routekit %s\n", ver)
			if commit := version.GetCommit(); commit != "" {
				cmd.Printf("commit:  %s\n", commit)
			}
			cmd.Printf("go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
