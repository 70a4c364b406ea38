package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/kardianos/service"

	"img2img/core"
	"img2img/logging"
)

func TestCLI_Parse(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		command string
		check   func(t *testing.T, cli *CLI)
	}{
		{"default is serve", nil, "serve", nil},
		{"serve flags", []string{"serve", "--skip-checks"}, "serve", func(t *testing.T, cli *CLI) {
			if !cli.Serve.SkipChecks {
				t.Error("SkipChecks not set")
			}
		}},
		{"service action", []string{"service", "install"}, "service <action>", func(t *testing.T, cli *CLI) {
			if cli.Service.Action != "install" {
				t.Errorf("Action = %q", cli.Service.Action)
			}
		}},
		{"version", []string{"version"}, "version", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cli CLI
			parser, err := kong.New(&cli, kong.Name("img2img"))
			if err != nil {
				t.Fatalf("kong.New() error = %v", err)
			}
			ctx, err := parser.Parse(tt.args)
			if err != nil {
				t.Fatalf("Parse(%v) error = %v", tt.args, err)
			}
			if ctx.Command() != tt.command {
				t.Errorf("Command() = %q, want %q", ctx.Command(), tt.command)
			}
			if tt.check != nil {
				tt.check(t, &cli)
			}
		})
	}
}

func TestCLI_RejectsUnknownServiceAction(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("img2img"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse([]string{"service", "explode"}); err == nil {
		t.Error("Parse() accepted an unknown service action")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, core.ExitCodeSuccess},
		{"signal", &exitError{code: core.ExitCodeSIGTERM}, core.ExitCodeSIGTERM},
		{"config error", core.ErrMissingAuth("openai"), core.ExitCodeConfig},
		{"wrapped exit", &exitError{code: core.ExitCodeConfig, err: errors.New("bad")}, core.ExitCodeConfig},
		{"other", errors.New("listen tcp: address in use"), core.ExitCodeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := loadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing file: %v", err)
	}

	path := filepath.Join(dir, "app.env")
	os.WriteFile(path, []byte("IMG2IMG_TEST_VALUE=from-file\n"), 0o644)
	t.Setenv("IMG2IMG_TEST_VALUE", "")
	os.Unsetenv("IMG2IMG_TEST_VALUE")

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile() error = %v", err)
	}
	if got := os.Getenv("IMG2IMG_TEST_VALUE"); got != "from-file" {
		t.Errorf("IMG2IMG_TEST_VALUE = %q", got)
	}
}

func TestServiceConfig(t *testing.T) {
	cfg := serviceConfig("/etc/img2img.env")
	if cfg.Name != "img2img" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if got := strings.Join(cfg.Arguments, " "); got != "--env-file /etc/img2img.env serve" {
		t.Errorf("Arguments = %q", got)
	}
	if statusText(service.StatusRunning, nil) != "Service is running" {
		t.Error("running status text")
	}
	if statusText(service.StatusUnknown, service.ErrNotInstalled) != "Service is not installed" {
		t.Error("not installed status text")
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 48, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 48; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 5), G: uint8(y * 7), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestBuild_GenerateWithPreviewPipeline(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "outputs")
	cfg := &core.Config{
		WebUIHost:       "127.0.0.1",
		WebUIPort:       3000,
		MaxUploadMB:     5,
		PipelineVariant: "preview",
		PreviewMaxSide:  128,
		OutputDir:       outDir,
		SaveOutputs:     true,
		LogLevel:        "info",
	}

	app, err := build(&ServeCmd{}, cfg, logging.NewNop(), appOptions{output: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	defer app.manager.Shutdown()
	h := app.server.Handler()

	// Generate before any upload.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", nil))
	if !strings.Contains(rec.Body.String(), "Please upload an image first.") {
		t.Fatalf("missing-image press: %s", rec.Body.String())
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("image", "in.png")
	fw.Write(testPNG(t))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"outcome":"rendered"`) {
		t.Fatalf("generate: %d %s", rec.Code, rec.Body.String())
	}

	files, _ := filepath.Glob(filepath.Join(outDir, "*.png"))
	if len(files) != 1 {
		t.Errorf("saved %d images, want 1", len(files))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/output/generated.png", nil))
	if _, err := png.Decode(rec.Body); err != nil {
		t.Errorf("generated image is not a PNG: %v", err)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "img2img_") {
		t.Error("metrics endpoint does not expose generation metrics")
	}
}

func TestBuild_StartupChecksFail(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	os.WriteFile(file, []byte("x"), 0o644)
	cfg := &core.Config{
		WebUIHost:       "127.0.0.1",
		WebUIPort:       3000,
		MaxUploadMB:     5,
		PipelineVariant: "preview",
		PreviewMaxSide:  128,
		OutputDir:       filepath.Join(file, "out"),
		SaveOutputs:     true,
		LogLevel:        "info",
	}

	_, err := build(&ServeCmd{}, cfg, logging.NewNop(), appOptions{output: &bytes.Buffer{}})
	var ee *exitError
	if !errors.As(err, &ee) || ee.code != core.ExitCodeConfig {
		t.Fatalf("build() error = %v, want a configuration exit", err)
	}
	if core.GetErrorCode(err) != core.ErrCodeOutputDirUnusable {
		t.Errorf("GetErrorCode() = %q", core.GetErrorCode(err))
	}
}
