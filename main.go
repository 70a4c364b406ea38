// Command img2img serves a browser UI for image-to-image generation: upload
// a picture, tune the prompt and sampler settings, press Generate.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"img2img/core"
)

// CLI is the command line. serve is the default command.
type CLI struct {
	EnvFile string `name:"env-file" help:"Environment file to load before reading configuration." default:".env" type:"path"`

	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Run the web UI (default)."`
	Service ServiceCmd `cmd:"" help:"Install or control the background service."`
	Version VersionCmd `cmd:"" help:"Print version information."`
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return core.ExitCodeName(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("img2img"),
		kong.Description("Image-to-image generation studio."),
		kong.UsageOnError(),
	)

	if err := loadEnvFile(cli.EnvFile); err != nil {
		printError(err)
		os.Exit(core.ExitCodeConfig)
	}

	err := ctx.Run(&cli)
	os.Exit(exitCode(err))
}

// loadEnvFile loads path when it exists. Variables already in the
// environment win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return core.ErrEnvFileInvalid(path, err.Error())
	}
	return nil
}

func exitCode(err error) int {
	if err == nil {
		return core.ExitCodeSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			printError(ee.err)
		}
		return ee.code
	}
	printError(err)
	if core.IsConfigError(err) {
		return core.ExitCodeConfig
	}
	return core.ExitCodeError
}

func printError(err error) {
	color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
	fmt.Fprintln(os.Stderr, err)
}

// VersionCmd prints build information.
type VersionCmd struct{}

func (VersionCmd) Run() error {
	fmt.Println("img2img", core.GetVersionInfo())
	return nil
}
