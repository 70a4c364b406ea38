package core

import "fmt"

// Build information, injected with
//
//	go build -ldflags "-X img2img/core.Version=$(git describe --tags --always) \
//	  -X img2img/core.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ) \
//	  -X img2img/core.GitCommit=$(git rev-parse --short HEAD)" .
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// GetVersionInfo returns e.g. "v1.0.0 (built 2024-01-15T10:30:00Z, commit abc1234)".
func GetVersionInfo() string {
	return fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit)
}

// BuildLdflags returns the -X flags that stamp the given build information.
// Empty values are left out.
func BuildLdflags(version, buildTime, gitCommit string) string {
	var flags string
	for _, kv := range [][2]string{
		{"Version", version},
		{"BuildTime", buildTime},
		{"GitCommit", gitCommit},
	} {
		if kv[1] == "" {
			continue
		}
		if flags != "" {
			flags += " "
		}
		flags += "-X img2img/core." + kv[0] + "=" + kv[1]
	}
	return flags
}
