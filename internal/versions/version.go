// Package versions carries build metadata and version comparison helpers
// for the coordination registry.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const unknown = "unknown"

// Build metadata, overridden through -ldflags
var (
	Version   = "dev"
	Commit    = unknown
	BuildDate = unknown
)

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// String renders the info on a single line
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s %s)", i.Version, i.Commit, i.BuildDate, i.GoVersion, i.Platform)
}

// GetVersionInfo returns the metadata of the running binary
func GetVersionInfo() Info {
	return buildInfo(Version, Commit, BuildDate, readVCS)
}

// readVCS returns the revision and commit time embedded by the go tool
func readVCS() (revision, when string) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			when = s.Value
		}
	}
	return revision, when
}

func buildInfo(version, commit, buildDate string, vcs func() (string, string)) Info {
	if strings.HasPrefix(version, "dev") && vcs != nil {
		rev, when := vcs()
		if commit == unknown && rev != "" {
			commit = rev
		}
		if buildDate == unknown && when != "" {
			buildDate = when
		}
	}

	if t, err := time.Parse(time.RFC3339, buildDate); err == nil {
		buildDate = t.UTC().Format("2006-01-02 15:04:05 MST")
	}

	if version == "dev" {
		version = fmt.Sprintf("build-%.8s", commit)
	}

	return Info{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
