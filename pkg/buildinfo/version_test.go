package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFill(t *testing.T) {
	oldV, oldC, oldD := Version, Commit, Date
	defer func() { Version, Commit, Date = oldV, oldC, oldD }()

	tests := []struct {
		name       string
		preset     string
		main       string
		want       string
		wantCommit string
	}{
		{"from module", "dev", "v0.3.1", "v0.3.1", "abc123"},
		{"devel build", "dev", "(devel)", "dev", "abc123"},
		{"ldflags win", "v9.9.9", "v0.3.1", "v9.9.9", "abc123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, Commit, Date = tt.preset, "none", "unknown"
			fill(&debug.BuildInfo{
				Main:     debug.Module{Version: tt.main},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}, {Key: "vcs.time", Value: "2026-01-02T03:04:05Z"}},
			})
			if Version != tt.want {
				t.Errorf("Version = %q, want %q", Version, tt.want)
			}
			if Commit != tt.wantCommit {
				t.Errorf("Commit = %q, want %q", Commit, tt.wantCommit)
			}
			if Date != "2026-01-02T03:04:05Z" {
				t.Errorf("Date = %q", Date)
			}
		})
	}
}

func TestTemplate(t *testing.T) {
	if !strings.HasPrefix(Template(), "{{.Name}} version ") {
		t.Errorf("Template() = %q", Template())
	}
	if got := Get(); got.Version != Version || got.Commit != Commit {
		t.Errorf("Get() = %+v", got)
	}
}
