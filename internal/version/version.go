package version

// Set at build time via -ldflags -X
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
