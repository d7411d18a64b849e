// Package paths has small path hygiene helpers shared by the scan
// engine and the CLI.
package paths

import (
	"github.com/geoprep/panprep/pkg/logging"
)

// MaxWindowsPathLength is the classic Windows MAX_PATH limit. Paths at
// or beyond it may not open on Windows without long-path support.
const MaxWindowsPathLength = 260

// WarnIfLong logs a warning when path meets the Windows length limit
// and reports whether it did. Warn-only: nothing here is fatal.
func WarnIfLong(path string) bool {
	if len(path) < MaxWindowsPathLength {
		return false
	}
	logger := logging.GetLogger("paths")
	logger.Warn().
		Str("path", path).
		Int("length", len(path)).
		Msg("Path meets the Windows 260-character limit and may cause problems there")
	return true
}
