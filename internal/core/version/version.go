// Package version provides build information stamped at link time
package version

import "fmt"

// BuildInfo holds version information about the binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns build information for the named binary
// Set via -ldflags "-X 'pageviews/internal/core/version.version=v0.1.0'
// -X 'pageviews/internal/core/version.commit=abcd' -X 'pageviews/internal/core/version.date=2026-10-01'"
func Info(service string) BuildInfo {
	return BuildInfo{
		Service: service,
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// String renders a one-line banner for -version flags
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", b.Service, b.Version, b.Commit, b.Date)
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
