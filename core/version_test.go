package core

import (
	"strings"
	"testing"
)

func TestGetVersionInfo(t *testing.T) {
	got := GetVersionInfo()
	for _, part := range []string{Version, BuildTime, GitCommit} {
		if !strings.Contains(got, part) {
			t.Errorf("GetVersionInfo() = %q, missing %q", got, part)
		}
	}
}

func TestBuildLdflags(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		buildTime string
		gitCommit string
		want      string
	}{
		{"all", "v1.2.0", "2026-01-01T00:00:00Z", "abc1234",
			"-X img2img/core.Version=v1.2.0 -X img2img/core.BuildTime=2026-01-01T00:00:00Z -X img2img/core.GitCommit=abc1234"},
		{"version only", "v1.2.0", "", "", "-X img2img/core.Version=v1.2.0"},
		{"none", "", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildLdflags(tt.version, tt.buildTime, tt.gitCommit); got != tt.want {
				t.Errorf("BuildLdflags() = %q, want %q", got, tt.want)
			}
		})
	}
}
