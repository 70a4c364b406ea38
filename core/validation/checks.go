package validation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"img2img/core"
	"img2img/form"
	"img2img/pipeline"
)

// MinFreeBytes is the free space below which the output directory check
// warns.
const MinFreeBytes = 100 * core.BytesPerMB

// Startup returns the checks run before the server starts.
func Startup(cfg *core.Config, specs []form.Spec, client *http.Client) []Check {
	return []Check{
		ConfigCheck(cfg),
		OutputDirCheck(cfg.OutputDir, cfg.SaveOutputs),
		FormConfigCheck(cfg.FormConfigPath, specs),
		PipelineCheck(cfg, client),
	}
}

// ConfigCheck re-validates the loaded configuration.
func ConfigCheck(cfg *core.Config) Check {
	return Check{
		Name: "Configuration",
		Run: func(ctx context.Context) Report {
			if err := cfg.Validate(); err != nil {
				return Fail("invalid settings", err)
			}
			return Pass("%s pipeline, listening on %s", cfg.PipelineVariant, cfg.Addr())
		},
	}
}

// OutputDirCheck makes sure generated images can be written to dir.
func OutputDirCheck(dir string, enabled bool) Check {
	return Check{
		Name: "Output Directory",
		Run: func(ctx context.Context) Report {
			if !enabled {
				return Skip("saving disabled")
			}
			if err := probeWritable(dir); err != nil {
				return Fail("not writable", core.ErrOutputDirUnusable(dir, err.Error()))
			}

			info, err := GetDiskSpace(dir)
			if err != nil {
				return Warn("writable, free space unknown", err)
			}
			if info.Free < MinFreeBytes {
				return Warn(fmt.Sprintf("%s free", core.FormatBytes(info.Free)),
					&DiskSpaceError{Path: dir, Required: MinFreeBytes, Available: info.Free})
			}
			return Pass("%s (%s free)", dir, core.FormatBytes(info.Free))
		},
	}
}

func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// FormConfigCheck loads the overrides file and applies it to specs.
func FormConfigCheck(path string, specs []form.Spec) Check {
	return Check{
		Name: "Form Configuration",
		Run: func(ctx context.Context) Report {
			if path == "" {
				return Skip("built-in defaults")
			}
			ov, err := form.LoadOverrides(path)
			if err == nil {
				_, err = ov.Apply(specs)
			}
			if err != nil {
				return Fail("cannot apply overrides", core.ErrFormConfigInvalid(path, err.Error()))
			}
			return Pass("%d field overrides from %s", len(ov), filepath.Base(path))
		},
	}
}

// PipelineCheck sends a HEAD request to the pipeline server. Any HTTP
// response counts as reachable.
func PipelineCheck(cfg *core.Config, client *http.Client) Check {
	return Check{
		Name:            "Pipeline Server",
		RequiresPassing: true,
		Run: func(ctx context.Context) Report {
			if pipeline.Variant(cfg.PipelineVariant) == pipeline.VariantPreview {
				return Skip("preview pipeline runs in-process")
			}
			if cfg.PipelineURL == "" {
				return Skip("hosted API")
			}
			return checkReachable(ctx, client, cfg.PipelineURL)
		},
	}
}

func checkReachable(ctx context.Context, client *http.Client, url string) Report {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return Fail("bad URL", core.ErrPipelineUnreachable(url, err.Error()))
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "connection timed out"
		}
		return Fail("connection failed", core.ErrPipelineUnreachable(url, reason))
	}
	resp.Body.Close()

	return Pass("reachable (status %d, latency %v)", resp.StatusCode, latency.Round(time.Millisecond))
}
