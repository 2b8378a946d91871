package version

import "fmt"

// These variables are injected at build time via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String returns a human-readable version string.
func String() string {
	return fmt.Sprintf("build-docker %s (%s, %s)", Version, Commit, BuildDate)
}

// IsDev reports whether v is an unstamped development version.
func IsDev(v string) bool {
	return v == "" || v == "dev"
}
