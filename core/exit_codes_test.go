package core

import (
	"os"
	"syscall"
	"testing"
)

func TestExitCodeName(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{ExitCodeSuccess, "success"},
		{ExitCodeError, "error"},
		{ExitCodeConfig, "configuration error"},
		{ExitCodeSIGINT, "interrupted (SIGINT)"},
		{ExitCodeSIGTERM, "terminated (SIGTERM)"},
		{42, "unknown"},
	}
	for _, tt := range tests {
		if got := ExitCodeName(tt.code); got != tt.want {
			t.Errorf("ExitCodeName(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestExitCodeForSignal(t *testing.T) {
	tests := []struct {
		name string
		sig  os.Signal
		want int
	}{
		{"none", nil, ExitCodeSuccess},
		{"interrupt", os.Interrupt, ExitCodeSIGINT},
		{"terminate", syscall.SIGTERM, ExitCodeSIGTERM},
		{"other", syscall.SIGHUP, ExitCodeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCodeForSignal(tt.sig); got != tt.want {
				t.Errorf("ExitCodeForSignal(%v) = %d, want %d", tt.sig, got, tt.want)
			}
		})
	}
}

func TestIsSignalExit(t *testing.T) {
	if !IsSignalExit(ExitCodeSIGINT) || !IsSignalExit(ExitCodeSIGTERM) {
		t.Error("signal exit codes not recognised")
	}
	if IsSignalExit(ExitCodeConfig) {
		t.Error("IsSignalExit(ExitCodeConfig) = true")
	}
}
