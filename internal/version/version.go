package version

import (
	"fmt"
	"runtime"
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String formats the build information for --version output.
func String() string {
	return fmt.Sprintf("docflow %s (commit %s, built %s, %s)", Version, GitCommit, BuildDate, runtime.Version())
}
