package version

// Set with -ldflags "-X github.com/inamon/inamon/pkg/version.Version=...".
var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
)
