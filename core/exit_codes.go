package core

import (
	"os"
	"syscall"
)

// Process exit codes. Signal exits follow the 128 + signal number convention.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1

	// ExitCodeConfig means the configuration was rejected before serving.
	ExitCodeConfig = 2

	ExitCodeSIGINT  = 130 // 128 + 2
	ExitCodeSIGTERM = 143 // 128 + 15
)

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeConfig:
		return "configuration error"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}

// ExitCodeForSignal maps the signal that stopped the server to an exit code.
// A nil signal means the server stopped on its own.
func ExitCodeForSignal(sig os.Signal) int {
	switch sig {
	case nil:
		return ExitCodeSuccess
	case os.Interrupt:
		return ExitCodeSIGINT
	case syscall.SIGTERM:
		return ExitCodeSIGTERM
	default:
		return ExitCodeError
	}
}

// IsSignalExit reports whether code came from SIGINT or SIGTERM.
func IsSignalExit(code int) bool {
	return code == ExitCodeSIGINT || code == ExitCodeSIGTERM
}
