package studio

import (
	"errors"
	"fmt"
)

// MissingImageMessage is shown, verbatim, when Generate is pressed with an
// empty upload slot.
const MissingImageMessage = "Please upload an image first."

// ErrorPrefix starts every generic failure line.
const ErrorPrefix = "An error occurred: "

var (
	// ErrBusy is returned by OnTrigger while another generation is running.
	ErrBusy = errors.New("studio: a generation is already running")

	// ErrPipelinePanic wraps a panic recovered while a press was running.
	ErrPipelinePanic = errors.New("studio: pipeline panicked")

	// ErrPersist wraps output store failures.
	ErrPersist = errors.New("studio: could not save output")
)

// FailureKind classifies why a press did not render images.
type FailureKind int

const (
	MissingInput FailureKind = iota + 1
	DecodeFailure
	PipelineFailure
	PersistenceFailure
)

func (k FailureKind) String() string {
	switch k {
	case MissingInput:
		return "missing_input"
	case DecodeFailure:
		return "decode_failure"
	case PipelineFailure:
		return "pipeline_failure"
	case PersistenceFailure:
		return "persistence_failure"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Failure is the failed branch of an Outcome.
type Failure struct {
	Kind FailureKind
	Err  error

	// Message is the single line shown on the surface.
	Message string
}

func newFailure(kind FailureKind, err error) *Failure {
	if kind == MissingInput {
		return &Failure{Kind: kind, Err: err, Message: MissingImageMessage}
	}
	return &Failure{Kind: kind, Err: err, Message: ErrorPrefix + oneLine(err.Error())}
}
