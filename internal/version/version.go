package version

import "fmt"

// Version contains the application version information.
// This should be set via build-time ldflags in production:
// go build -ldflags "-X git.home.luguber.info/inful/pagesmith/internal/version.Version=v1.0.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// UserAgent is the User-Agent header sent to upstream APIs.
func UserAgent() string {
	return "pagesmith/" + Version
}

// String renders the full build description used by the version command.
func String() string {
	return fmt.Sprintf("pagesmith %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
