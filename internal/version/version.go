// Package version carries build identification, set via -ldflags at release
// time.
package version

var (
	// Version is the current tool version
	Version = "dev"
	// GitSHA is the git commit SHA of the build
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the build identification for log banners.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
