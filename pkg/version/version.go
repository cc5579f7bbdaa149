// Package version exposes build metadata injected at link time.
package version

import "runtime/debug"

// Set with -ldflags "-X github.com/rshade/routekit/pkg/version.version=v1.2.3".
//
//nolint:gochecknoglobals // Link-time injected build metadata.
var (
	version = ""
	commit  = ""
)

// GetVersion returns the build version. Builds without ldflags fall back to
// the module version recorded by the Go toolchain, then to "dev".
func GetVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// GetCommit returns the VCS revision the binary was built from, if known.
func GetCommit() string {
	if commit != "" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return ""
}
