// Package buildinfo reports the version of the running binary.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/dynsvg/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/dynsvg/pkg/buildinfo.Commit=$(git rev-parse HEAD)"
//
// Other builds fall back to the module version and VCS stamp that the Go
// toolchain embeds.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	// Version is the release tag. It is also sent as the User-Agent of
	// remote fetches.
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Info is the resolved build information.
type Info struct {
	Version string
	Commit  string
	Date    string
	Dirty   bool
	Go      string
}

var (
	once     sync.Once
	resolved Info
)

// Get resolves the build information once.
func Get() Info {
	once.Do(func() {
		resolved = resolve(Version, Commit, Date, debug.ReadBuildInfo)
	})
	return resolved
}

func resolve(version, commit, date string, read func() (*debug.BuildInfo, bool)) Info {
	info := Info{Version: version, Commit: commit, Date: date}
	bi, ok := read()
	if !ok {
		return info
	}
	info.Go = bi.GoVersion
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}

// String formats i on one line.
func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if commit == "" {
		commit = "unknown"
	}
	if i.Dirty {
		commit += "-dirty"
	}
	s := "dynsvg " + i.Version + " (" + commit
	if i.Date != "" {
		s += ", " + i.Date
	}
	return s + ")"
}

// Template returns the cobra version template.
func Template() string {
	i := Get()
	return fmt.Sprintf("{{.Name}} %s\n%s\ngo: %s\n", i.Version, i, i.Go)
}
