package version

import "fmt"

// Overridden at build time via -ldflags "-X .../internal/version.version=..."
var (
	version = "0.1.0"
	commit  = ""
)

// Version returns the release version of the binary.
func Version() string {
	return version
}

// Full returns the version with the commit suffix when one was stamped in.
func Full() string {
	if commit == "" {
		return version
	}
	return fmt.Sprintf("%s (%s)", version, commit)
}
