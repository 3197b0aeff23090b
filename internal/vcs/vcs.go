package vcs

import (
	"fmt"
	"runtime/debug"
)

// Version returns the VCS revision stamped into the binary, suffixed with
// "-dirty" when the working tree had local changes. Binaries built without
// VCS information report "unknown".
func Version() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	return fromSettings(bi.Settings)
}

func fromSettings(settings []debug.BuildSetting) string {
	var revision string
	var modified bool

	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}

	switch {
	case revision == "":
		return "unknown"
	case modified:
		return fmt.Sprintf("%s-dirty", revision)
	default:
		return revision
	}
}
