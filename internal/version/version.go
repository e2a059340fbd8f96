// Package version exposes the release number embedded at build time plus
// the commit metadata injected through ldflags.
package version

import (
	_ "embed"
	"fmt"
	"runtime"
	"strings"
)

//go:embed VERSION
var raw string

// Set by the release build via -ldflags; development builds keep the
// placeholders.
var (
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Version returns the release number from the embedded VERSION file.
func Version() string {
	return strings.TrimSpace(raw)
}

// String renders the full identification line shown by the version
// subcommand.
func String() string {
	return fmt.Sprintf("pgsync v%s@%s %s/%s %s",
		Version(), Commit, runtime.GOOS, runtime.GOARCH, BuildDate)
}
