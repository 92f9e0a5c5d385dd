package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func stamped(version string, settings ...string) func() (*debug.BuildInfo, bool) {
	return func() (*debug.BuildInfo, bool) {
		bi := &debug.BuildInfo{GoVersion: "go1.25.0", Main: debug.Module{Version: version}}
		for i := 0; i+1 < len(settings); i += 2 {
			bi.Settings = append(bi.Settings, debug.BuildSetting{Key: settings[i], Value: settings[i+1]})
		}
		return bi, true
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		version string
		commit  string
		read    func() (*debug.BuildInfo, bool)
		want    Info
	}{
		{
			name:    "no build info",
			version: "dev",
			read:    func() (*debug.BuildInfo, bool) { return nil, false },
			want:    Info{Version: "dev"},
		},
		{
			name:    "ldflags win",
			version: "v0.3.0",
			commit:  "abc",
			read:    stamped("v0.2.0", "vcs.revision", "def"),
			want:    Info{Version: "v0.3.0", Commit: "abc", Go: "go1.25.0"},
		},
		{
			name:    "module version and vcs stamp",
			version: "dev",
			read:    stamped("v0.2.0", "vcs.revision", "def", "vcs.time", "2026-01-02T03:04:05Z", "vcs.modified", "true"),
			want:    Info{Version: "v0.2.0", Commit: "def", Date: "2026-01-02T03:04:05Z", Dirty: true, Go: "go1.25.0"},
		},
		{
			name:    "devel build",
			version: "dev",
			read:    stamped("(devel)"),
			want:    Info{Version: "dev", Go: "go1.25.0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolve(tt.version, tt.commit, "", tt.read); got != tt.want {
				t.Errorf("resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	i := Info{Version: "v1.0.0", Commit: "0123456789abcdef", Dirty: true}
	if got, want := i.String(), "dynsvg v1.0.0 (0123456789ab-dirty)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := (Info{Version: "dev"}).String(); !strings.Contains(got, "unknown") {
		t.Errorf("String() = %q, want unknown commit", got)
	}
}
