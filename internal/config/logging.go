package config

import (
	"strings"

	"github.com/rshade/routekit/internal/logging"
)

// IsDebug reports whether the configured level is debug or trace.
func (lc *LoggingConfig) IsDebug() bool {
	switch strings.ToLower(lc.Level) {
	case "debug", "trace":
		return true
	default:
		return false
	}
}

// ToLoggingConfig converts config.LoggingConfig to logging.Config for use with
// the internal/logging package.
//
// The conversion applies these rules:
//   - Level, Format are copied directly
//   - If File is set, Output becomes "file" and File is passed through
//   - If File is empty, Output defaults to "stderr"
func (lc *LoggingConfig) ToLoggingConfig() logging.Config {
	output := logging.OutputStderr
	if lc.File != "" {
		output = logging.OutputFile
	}

	return logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		Output: output,
		File:   lc.File,
		Caller: lc.IsDebug(),
	}
}
