// Package buildinfo reports the hacheck version. Release builds stamp
// the variables below via -ldflags; `go install` builds fall back to
// the module and VCS data the toolchain embeds.
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time via -ldflags "-X ...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitBranch = "unknown"
	BuildTime = "unknown"
)

// Fields lists the keys of [Info] in display order.
var Fields = []string{"version", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"}

// Info returns build and runtime metadata keyed by [Fields].
func Info() map[string]string {
	info := map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"git_branch": GitBranch,
		"build_time": BuildTime,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	}
	fillFromModule(info)
	return info
}

// fillFromModule replaces unstamped values with what the Go toolchain
// recorded in the binary.
func fillFromModule(info map[string]string) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if info["version"] == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info["version"] = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info["git_commit"] == "unknown":
			info["git_commit"] = s.Value
		case s.Key == "vcs.time" && info["build_time"] == "unknown":
			info["build_time"] = s.Value
		}
	}
}

// String returns a one-line summary.
func String() string {
	info := Info()
	return fmt.Sprintf("hacheck %s (%s@%s) built %s",
		info["version"], info["git_commit"], info["git_branch"], info["build_time"])
}

// UserAgent identifies hacheck to Home Assistant.
func UserAgent() string {
	return "hacheck/" + Info()["version"]
}
