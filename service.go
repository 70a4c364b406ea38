package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/kardianos/service"
)

const serviceStopTimeout = 45 * time.Second

// ServiceCmd manages the installed background service.
type ServiceCmd struct {
	Action string `arg:"" enum:"install,uninstall,start,stop,restart,status" help:"One of: install, uninstall, start, stop, restart, status."`
}

func (c *ServiceCmd) Run(cli *CLI) error {
	s, err := service.New(&program{cmd: &cli.Serve}, serviceConfig(cli.EnvFile))
	if err != nil {
		return fmt.Errorf("service: %w", err)
	}

	if c.Action == "status" {
		st, err := s.Status()
		if err != nil && !errors.Is(err, service.ErrNotInstalled) {
			return fmt.Errorf("service status: %w", err)
		}
		fmt.Println(statusText(st, err))
		return nil
	}

	if err := service.Control(s, c.Action); err != nil {
		return err
	}
	color.New(color.FgGreen).Printf("✓ service %s: done\n", c.Action)
	return nil
}

func statusText(st service.Status, err error) string {
	if errors.Is(err, service.ErrNotInstalled) {
		return "Service is not installed"
	}
	switch st {
	case service.StatusRunning:
		return "Service is running"
	case service.StatusStopped:
		return "Service is stopped"
	default:
		return "Service status unknown"
	}
}

// serviceConfig describes the service to the platform's service manager.
// The service runs serve from the directory it was installed in, so
// relative paths in the env file keep working.
func serviceConfig(envFile string) *service.Config {
	wd, _ := os.Getwd()
	return &service.Config{
		Name:             "img2img",
		DisplayName:      "img2img Studio",
		Description:      "Browser UI for image-to-image generation.",
		Arguments:        []string{"--env-file", envFile, "serve"},
		WorkingDirectory: wd,
		Option: service.KeyValue{
			"StartType":        "automatic",
			"Restart":          "on-failure",
			"OnFailure":        "restart",
			"DelayedAutoStart": false,
		},
	}
}

func isInteractive() bool {
	return service.Interactive()
}

// runService hands control to the service manager, which calls Start and
// Stop on the program.
func runService(cmd *ServeCmd) error {
	s, err := service.New(&program{cmd: cmd}, serviceConfig(".env"))
	if err != nil {
		return fmt.Errorf("service: %w", err)
	}
	return s.Run()
}

// program adapts App to service.Interface.
type program struct {
	cmd  *ServeCmd
	app  *App
	done chan error
}

func (p *program) Start(s service.Service) error {
	app, err := newApp(p.cmd, appOptions{output: io.Discard})
	if err != nil {
		return err
	}
	p.app = app
	p.done = make(chan error, 1)
	go func() { p.done <- app.Run() }()
	return nil
}

func (p *program) Stop(s service.Service) error {
	if p.app == nil {
		return nil
	}
	p.app.Stop()
	select {
	case err := <-p.done:
		return err
	case <-time.After(serviceStopTimeout):
		return errors.New("timed out waiting for shutdown")
	}
}
