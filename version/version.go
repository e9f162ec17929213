package version

var (
	Version    = "v0.1"    // git name-rev --tags --name-only $(git rev-parse HEAD)
	CommitHash = "unknown" // git rev-parse HEAD
	BuiltAt    = "unknown" // LC_ALL=C date
)
