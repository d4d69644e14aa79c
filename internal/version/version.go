// Package version reports how the rentbuddy binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/gurman-sys/rentbuddy/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = ""
)

const unknown = "unknown"

// Build describes the running binary.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	Date      string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Modified  bool   `json:"modified,omitempty"`
}

// Current returns the build description. Commit and date not set through
// ldflags are taken from the VCS stamp of the Go toolchain, when present.
func Current() Build {
	b := Build{
		Version:   Version,
		Commit:    GitCommit,
		Date:      BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		b.fromSettings(info.Settings)
	}
	if b.Commit == "" {
		b.Commit = unknown
	}
	if b.Date == "" {
		b.Date = unknown
	}
	return b
}

func (b *Build) fromSettings(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Date == "" {
				b.Date = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
}

// String is the output of `rentbuddy version`.
func (b Build) String() string {
	commit := b.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if b.Modified {
		commit += "+dirty"
	}
	return fmt.Sprintf("RentBuddy %s (commit %s, built %s, %s %s)",
		b.Version, commit, b.Date, b.GoVersion, b.Platform)
}

// Short returns the release version alone.
func Short() string {
	return Version
}
