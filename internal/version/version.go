// Package version reports build metadata injected with -ldflags.
package version

import (
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Short returns the bare version, used where a single token is expected.
func Short() string {
	return Version
}

// String renders the full build line for `rehearse version`.
func String() string {
	commit, date := Commit, Date
	if commit == "" || date == "" {
		vcsCommit, vcsDate := fromBuildInfo()
		commit = firstNonEmpty(commit, vcsCommit, "none")
		date = firstNonEmpty(date, vcsDate, "unknown")
	}
	return "rehearse " + Version + " (commit=" + commit + ", date=" + date + ", go=" + runtime.Version() + ")"
}

// fromBuildInfo reads the VCS stamp the go tool embeds in module builds.
func fromBuildInfo() (revision string, timestamp string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
			if len(revision) > 12 {
				revision = revision[:12]
			}
		case "vcs.time":
			timestamp = setting.Value
		}
	}
	return revision, timestamp
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
