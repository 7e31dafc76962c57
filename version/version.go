package version

import "fmt"

// overridden at build time via -ldflags
var (
	Version   = "dev"
	Commit    = "none"
	Date      = "unknown"
	BuiltBy   = "local"
	GoVersion = "unknown"
)

var FullVersion = computeFullVersion()

func computeFullVersion() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
