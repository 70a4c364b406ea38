// Package validation runs the startup checks and prints their progress to
// the console.
package validation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// StepStatus is the outcome of one check.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepPassed
	StepFailed
	StepWarning
	StepSkipped
)

func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepWarning:
		return "warning"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Report is what a check returns.
type Report struct {
	Status  StepStatus
	Message string
	Err     error
}

// Pass reports success.
func Pass(format string, args ...any) Report {
	return Report{Status: StepPassed, Message: fmt.Sprintf(format, args...)}
}

// Warn reports a problem that does not stop startup.
func Warn(msg string, err error) Report {
	return Report{Status: StepWarning, Message: msg, Err: err}
}

// Fail reports a problem that stops startup.
func Fail(msg string, err error) Report {
	return Report{Status: StepFailed, Message: msg, Err: err}
}

// Skip reports a check that did not apply.
func Skip(format string, args ...any) Report {
	return Report{Status: StepSkipped, Message: fmt.Sprintf(format, args...)}
}

// Check is one named startup check.
type Check struct {
	Name string
	Run  func(ctx context.Context) Report

	// RequiresPassing skips the check when an earlier one failed.
	RequiresPassing bool
}

// Step is a finished check.
type Step struct {
	Name    string
	Status  StepStatus
	Message string
	Err     error
	Latency time.Duration
}

// Result is the outcome of a whole run.
type Result struct {
	Steps    []Step
	Passed   int
	Failed   int
	Warnings int
	Skipped  int
	Duration time.Duration
}

// Success reports whether no check failed.
func (r Result) Success() bool {
	return r.Failed == 0
}

// Err joins the errors of every failed step.
func (r Result) Err() error {
	var errs []error
	for _, s := range r.Steps {
		if s.Status == StepFailed && s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return errors.Join(errs...)
}

// Summary is a one-line description of the run.
func (r Result) Summary() string {
	var sb strings.Builder
	if r.Success() {
		sb.WriteString("Startup checks passed: ")
	} else {
		sb.WriteString("Startup checks failed: ")
	}
	fmt.Fprintf(&sb, "%d/%d passed", r.Passed, len(r.Steps))
	if r.Failed > 0 {
		fmt.Fprintf(&sb, ", %d failed", r.Failed)
	}
	if r.Warnings > 0 {
		fmt.Fprintf(&sb, ", %d warnings", r.Warnings)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(&sb, ", %d skipped", r.Skipped)
	}
	fmt.Fprintf(&sb, " (took %v)", r.Duration.Round(time.Millisecond))
	return sb.String()
}

// Suite runs checks in order.
type Suite struct {
	title        string
	checks       []Check
	output       io.Writer
	showProgress bool
	failFast     bool
	timeout      time.Duration
}

// NewSuite returns a suite printing to stdout.
func NewSuite(title string, checks ...Check) *Suite {
	return &Suite{
		title:        title,
		checks:       checks,
		output:       os.Stdout,
		showProgress: true,
		timeout:      30 * time.Second,
	}
}

// WithOutput sets where progress is printed.
func (s *Suite) WithOutput(w io.Writer) *Suite {
	s.output = w
	return s
}

// WithShowProgress enables or disables progress output.
func (s *Suite) WithShowProgress(show bool) *Suite {
	s.showProgress = show
	return s
}

// WithFailFast stops at the first failure.
func (s *Suite) WithFailFast(failFast bool) *Suite {
	s.failFast = failFast
	return s
}

// WithTimeout bounds the whole run.
func (s *Suite) WithTimeout(d time.Duration) *Suite {
	s.timeout = d
	return s
}

// Run executes every check.
func (s *Suite) Run(ctx context.Context) Result {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if s.showProgress {
		s.printHeader()
	}

	res := Result{Steps: make([]Step, 0, len(s.checks))}
	for _, c := range s.checks {
		var step Step
		if c.RequiresPassing && res.Failed > 0 {
			step = Step{Name: c.Name, Status: StepSkipped, Message: "skipped after earlier failures"}
		} else {
			step = s.runCheck(ctx, c)
		}
		if s.showProgress {
			s.printStep(step)
		}

		res.Steps = append(res.Steps, step)
		switch step.Status {
		case StepPassed:
			res.Passed++
		case StepFailed:
			res.Failed++
		case StepWarning:
			res.Warnings++
		case StepSkipped:
			res.Skipped++
		}
		if s.failFast && step.Status == StepFailed {
			break
		}
	}
	res.Duration = time.Since(start)

	if s.showProgress {
		s.printSummary(res)
	}
	return res
}

func (s *Suite) runCheck(ctx context.Context, c Check) (step Step) {
	step = Step{Name: c.Name}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			step.Status = StepFailed
			step.Message = "check panicked"
			step.Err = fmt.Errorf("%s: %v", c.Name, r)
		}
		step.Latency = time.Since(start)
	}()

	rep := c.Run(ctx)
	step.Status = rep.Status
	step.Message = rep.Message
	step.Err = rep.Err
	return step
}

func (s *Suite) printHeader() {
	fmt.Fprintln(s.output)
	color.New(color.FgCyan, color.Bold).Fprintf(s.output, "━━━ %s ━━━\n", s.title)
	fmt.Fprintln(s.output)
}

func (s *Suite) printStep(step Step) {
	var icon string
	var clr *color.Color
	switch step.Status {
	case StepPassed:
		icon, clr = "✓", color.New(color.FgGreen)
	case StepFailed:
		icon, clr = "✗", color.New(color.FgRed)
	case StepWarning:
		icon, clr = "!", color.New(color.FgYellow)
	case StepSkipped:
		icon, clr = "○", color.New(color.FgHiBlack)
	default:
		icon, clr = "?", color.New(color.FgWhite)
	}

	clr.Fprintf(s.output, "  %s %s", icon, step.Name)
	if step.Message != "" {
		color.New(color.FgHiBlack).Fprintf(s.output, " - %s", step.Message)
	}
	fmt.Fprintln(s.output)

	if step.Err != nil && (step.Status == StepFailed || step.Status == StepWarning) {
		clr.Fprintf(s.output, "    └─ %s\n", step.Err.Error())
	}
}

func (s *Suite) printSummary(res Result) {
	fmt.Fprintln(s.output)
	dim := color.New(color.FgHiBlack)
	if res.Success() {
		ok := color.New(color.FgGreen, color.Bold)
		ok.Fprint(s.output, "━━━ Ready ")
		dim.Fprintf(s.output, "(%d/%d checks passed in %v)", res.Passed, len(res.Steps), res.Duration.Round(time.Millisecond))
		ok.Fprintln(s.output, " ━━━")
	} else {
		bad := color.New(color.FgRed, color.Bold)
		bad.Fprint(s.output, "━━━ Startup checks failed ")
		dim.Fprintf(s.output, "(%d passed, %d failed)", res.Passed, res.Failed)
		bad.Fprintln(s.output, " ━━━")
	}
	fmt.Fprintln(s.output)
}
