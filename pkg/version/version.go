// Package version holds build metadata injected with -ldflags, e.g.
//
//	-X github.com/Sumatoshi-tech/histotrend/pkg/version.Version=v1.2.0
package version

import (
	"fmt"
	"runtime/debug"
)

// Build metadata. Defaults apply to plain "go build" binaries.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// InitBinaryVersion fills Version and Commit from the module build info when
// they were not set by the linker.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "none" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}

// String returns the one-line version banner.
func String() string {
	return fmt.Sprintf("histotrend %s (commit: %s, built: %s)", Version, Commit, Date)
}
