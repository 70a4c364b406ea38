package validation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"img2img/core"
	"img2img/form"
	"img2img/pipeline"
)

func validConfig(t *testing.T) *core.Config {
	t.Helper()
	return &core.Config{
		WebUIHost:       "localhost",
		WebUIPort:       3000,
		MaxUploadMB:     20,
		PipelineVariant: "preview",
		PreviewMaxSide:  512,
		OutputDir:       t.TempDir(),
		SaveOutputs:     true,
		LogLevel:        "info",
	}
}

func run(c Check) Report {
	return c.Run(context.Background())
}

func TestConfigCheck(t *testing.T) {
	cfg := validConfig(t)
	if rep := run(ConfigCheck(cfg)); rep.Status != StepPassed {
		t.Errorf("valid config: %+v", rep)
	}

	cfg.PipelineVariant = "a1111"
	rep := run(ConfigCheck(cfg))
	if rep.Status != StepFailed || core.GetErrorCode(rep.Err) != core.ErrCodeMissingPipelineURL {
		t.Errorf("a1111 without URL: %+v", rep)
	}
}

func TestOutputDirCheck(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	if rep := run(OutputDirCheck(dir, true)); rep.Status != StepPassed && rep.Status != StepWarning {
		t.Errorf("fresh dir: %+v", rep)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory not created: %v", err)
	}

	if rep := run(OutputDirCheck(dir, false)); rep.Status != StepSkipped {
		t.Errorf("disabled: %+v", rep)
	}

	file := filepath.Join(t.TempDir(), "file")
	os.WriteFile(file, []byte("x"), 0o644)
	rep := run(OutputDirCheck(filepath.Join(file, "sub"), true))
	if rep.Status != StepFailed || core.GetErrorCode(rep.Err) != core.ErrCodeOutputDirUnusable {
		t.Errorf("dir under a file: %+v", rep)
	}
}

func TestFormConfigCheck(t *testing.T) {
	specs := form.DefaultSpecs(pipeline.Capabilities{Strength: true, Guidance: true, Seed: true})
	dir := t.TempDir()

	if rep := run(FormConfigCheck("", specs)); rep.Status != StepSkipped {
		t.Errorf("no path: %+v", rep)
	}

	good := filepath.Join(dir, "good.yaml")
	os.WriteFile(good, []byte("steps:\n  max: 30\n  default: 8\n"), 0o644)
	if rep := run(FormConfigCheck(good, specs)); rep.Status != StepPassed {
		t.Errorf("valid overrides: %+v", rep)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("steps:\n  colour: red\n"), 0o644)
	rep := run(FormConfigCheck(bad, specs))
	if rep.Status != StepFailed || core.GetErrorCode(rep.Err) != core.ErrCodeFormConfigInvalid {
		t.Errorf("unknown key: %+v", rep)
	}

	rep = run(FormConfigCheck(filepath.Join(dir, "missing.yaml"), specs))
	if rep.Status != StepFailed {
		t.Errorf("missing file: %+v", rep)
	}
}

func TestPipelineCheck(t *testing.T) {
	cfg := validConfig(t)
	if rep := run(PipelineCheck(cfg, nil)); rep.Status != StepSkipped {
		t.Errorf("preview: %+v", rep)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	cfg.PipelineVariant = "a1111"
	cfg.PipelineURL = srv.URL
	if rep := run(PipelineCheck(cfg, srv.Client())); rep.Status != StepPassed {
		t.Errorf("reachable server: %+v", rep)
	}

	srv.Close()
	rep := run(PipelineCheck(cfg, nil))
	if rep.Status != StepFailed || core.GetErrorCode(rep.Err) != core.ErrCodePipelineUnreachable {
		t.Errorf("closed server: %+v", rep)
	}
}

func TestGetDiskSpace_MissingPathUsesParent(t *testing.T) {
	dir := t.TempDir()
	info, err := GetDiskSpace(filepath.Join(dir, "a", "b"))
	if err != nil {
		t.Fatalf("GetDiskSpace() error = %v", err)
	}
	if info.Path != dir || info.Total <= 0 {
		t.Errorf("info = %+v", info)
	}
	if p := info.UsedPercent(); p < 0 || p > 100 {
		t.Errorf("UsedPercent() = %v", p)
	}
}
