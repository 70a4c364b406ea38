package metrics

// Recorder receives generation lifecycle events. Implementations must be
// safe for concurrent use.
type Recorder interface {
	// GenerationStarted marks a press as in flight.
	GenerationStarted()

	// GenerationFinished records a press started with GenerationStarted.
	GenerationFinished(rec AttemptRecord)

	// GenerationRefused counts a press turned away because another one was
	// still running.
	GenerationRefused()
}

// Multi fans events out to several recorders.
type Multi []Recorder

// GenerationStarted implements Recorder.
func (m Multi) GenerationStarted() {
	for _, r := range m {
		r.GenerationStarted()
	}
}

// GenerationFinished implements Recorder.
func (m Multi) GenerationFinished(rec AttemptRecord) {
	for _, r := range m {
		r.GenerationFinished(rec)
	}
}

// GenerationRefused implements Recorder.
func (m Multi) GenerationRefused() {
	for _, r := range m {
		r.GenerationRefused()
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) GenerationStarted()               {}
func (Nop) GenerationFinished(AttemptRecord) {}
func (Nop) GenerationRefused()               {}

var (
	_ Recorder = Multi(nil)
	_ Recorder = Nop{}
)
