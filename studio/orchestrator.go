// Package studio runs a Generate press: it snapshots the form, calls the
// pipeline once and replaces the output surface with the result or with a
// single error line.
package studio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"img2img/form"
	"img2img/logging"
	"img2img/metrics"
	"img2img/pipeline"
)

// State is the orchestrator's position in the press lifecycle.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateGenerating
	StateFailed
	StateRendered
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateGenerating:
		return "generating"
	case StateFailed:
		return "failed"
	case StateRendered:
		return "rendered"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Trigger is what the web server calls when Generate is pressed.
type Trigger interface {
	OnTrigger(ctx context.Context) (*Outcome, error)
}

// Snapshotter supplies the form values for a press.
type Snapshotter interface {
	Snapshot() form.Snapshot
}

// Outcome is the result of one press. Exactly one of Render and Failure is
// set.
type Outcome struct {
	ID       string
	Seed     int64
	Render   *Render
	Failure  *Failure
	Duration time.Duration
}

// Rendered reports whether the press produced images.
func (o *Outcome) Rendered() bool {
	return o != nil && o.Render != nil
}

// Config wires an Orchestrator.
type Config struct {
	Pipeline pipeline.Pipeline
	Form     Snapshotter
	Surface  *Surface

	// Store persists generated images. nil disables saving.
	Store *OutputStore

	Recorder metrics.Recorder
	Logger   *logging.Logger

	// BaseContext bounds every generation. Cancelling it aborts a running
	// press; cancelling the caller's context does not.
	BaseContext context.Context

	// MaxImagePixels rejects uploads whose width*height exceeds it before
	// they are decoded. Zero means pipeline.DefaultMaxImagePixels.
	MaxImagePixels int64

	// Timeout limits a single pipeline call. Zero means no limit.
	Timeout time.Duration

	// RandomSeed draws a seed when the random flag is set. Defaults to
	// pipeline.RandomSeed.
	RandomSeed func() int64

	// OnState observes every state change.
	OnState func(State)
}

// Orchestrator handles Generate presses. At most one runs at a time.
type Orchestrator struct {
	cfg Config

	run   sync.Mutex
	mu    sync.RWMutex
	state State
}

// NewOrchestrator validates cfg and returns an idle orchestrator.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("studio: pipeline is required")
	}
	if cfg.Form == nil {
		return nil, errors.New("studio: form is required")
	}
	if cfg.Surface == nil {
		return nil, errors.New("studio: surface is required")
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	if cfg.MaxImagePixels <= 0 {
		cfg.MaxImagePixels = pipeline.DefaultMaxImagePixels
	}
	if cfg.RandomSeed == nil {
		cfg.RandomSeed = pipeline.RandomSeed
	}
	return &Orchestrator{cfg: cfg}, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Busy reports whether a press is in progress.
func (o *Orchestrator) Busy() bool {
	s := o.State()
	return s == StateValidating || s == StateGenerating
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	if o.cfg.OnState != nil {
		o.cfg.OnState(s)
	}
}

// OnTrigger handles one press. Failures are rendered on the surface and
// reported in the Outcome; the returned error is non-nil only when the
// press was refused with ErrBusy, in which case the surface is untouched.
func (o *Orchestrator) OnTrigger(ctx context.Context) (*Outcome, error) {
	if !o.run.TryLock() {
		o.cfg.Recorder.GenerationRefused()
		o.cfg.Logger.Warn("generate refused, previous press still running")
		return nil, ErrBusy
	}
	defer o.run.Unlock()

	start := time.Now()
	out := &Outcome{ID: uuid.NewString()}
	o.cfg.Recorder.GenerationStarted()
	o.setState(StateValidating)

	o.cfg.Surface.Clear()
	snap := o.cfg.Form.Snapshot()

	gen := logging.Generation{
		Variant:    o.cfg.Pipeline.Name(),
		PromptLen:  len(snap.Prompt),
		Steps:      snap.Steps,
		RandomSeed: snap.UseRandomSeed,
	}

	runCtx, cancel := o.detach(ctx)
	defer cancel()

	render, failure := o.press(runCtx, snap, out, &gen)
	out.Duration = time.Since(start)
	gen.Duration = out.Duration
	gen.Seed = out.Seed

	rec := metrics.AttemptRecord{
		ID:        out.ID,
		Variant:   gen.Variant,
		Seed:      out.Seed,
		StartTime: start,
		Duration:  out.Duration,
	}

	if failure != nil {
		out.Failure = failure
		if failure.Kind == MissingInput {
			o.cfg.Surface.ShowMessage(failure.Message)
		} else {
			o.cfg.Surface.ShowError(failure.Message)
		}
		failure.Message = o.cfg.Surface.Current().Message
		rec.Outcome = failure.Kind.String()
		rec.ErrorMsg = failure.Message
		gen.Outcome = rec.Outcome
		o.cfg.Logger.Warn("generation failed",
			zap.String("id", out.ID),
			logging.GenerationFields(gen),
			zap.Error(failure.Err))
		o.setState(StateFailed)
	} else {
		out.Render = render
		o.cfg.Surface.ShowRender(*render)
		rec.Outcome = metrics.OutcomeRendered
		gen.Outcome = rec.Outcome
		gen.SavedPath = render.SavedPath
		o.cfg.Logger.Info("generation rendered",
			zap.String("id", out.ID),
			logging.GenerationFields(gen))
		o.setState(StateRendered)
	}

	o.cfg.Recorder.GenerationFinished(rec)
	o.setState(StateIdle)
	return out, nil
}

// detach keeps ctx values but ties cancellation to the base context, so a
// dropped HTTP request does not abort a started generation.
func (o *Orchestrator) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(o.cfg.BaseContext, cancel)

	if o.cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, o.cfg.Timeout)
		return runCtx, func() {
			cancelTimeout()
			stop()
			cancel()
		}
	}
	return runCtx, func() {
		stop()
		cancel()
	}
}

// press runs the validating and generating stages. A panic anywhere from
// decode to save becomes a pipeline failure.
func (o *Orchestrator) press(ctx context.Context, snap form.Snapshot, out *Outcome, gen *logging.Generation) (render *Render, failure *Failure) {
	defer func() {
		if r := recover(); r != nil {
			render = nil
			failure = newFailure(PipelineFailure, fmt.Errorf("%w: %v", ErrPipelinePanic, r))
		}
	}()

	if !snap.HasImage() {
		return nil, newFailure(MissingInput, errors.New("no image uploaded"))
	}

	source, _, err := pipeline.DecodeImageWithin(snap.Upload.Content, o.cfg.MaxImagePixels)
	if err != nil {
		return nil, newFailure(DecodeFailure, err)
	}

	out.Seed = o.resolveSeed(snap)
	req := o.buildRequest(snap, source, out.Seed)
	gen.Strength, gen.Guidance = req.Strength, req.GuidanceScale

	o.setState(StateGenerating)
	generated, err := o.invoke(ctx, req)
	if err != nil {
		return nil, newFailure(PipelineFailure, err)
	}

	inputPNG, err := pipeline.EncodePNG(source)
	if err != nil {
		return nil, newFailure(PipelineFailure, err)
	}
	generatedPNG, err := pipeline.EncodePNG(generated)
	if err != nil {
		return nil, newFailure(PipelineFailure, err)
	}
	figurePNG, err := pipeline.EncodePNG(ComposeFigure(source, generated))
	if err != nil {
		return nil, newFailure(PipelineFailure, err)
	}

	render = &Render{
		ID:        out.ID,
		Input:     inputPNG,
		Generated: generatedPNG,
		Figure:    figurePNG,
		Seed:      out.Seed,
	}

	if o.cfg.Store != nil {
		path, err := o.cfg.Store.Save(generatedPNG)
		if err != nil {
			return nil, newFailure(PersistenceFailure, err)
		}
		render.SavedPath = path
	}
	return render, nil
}

// resolveSeed returns the user seed, or a fresh one when the random flag is
// set.
func (o *Orchestrator) resolveSeed(snap form.Snapshot) int64 {
	if snap.UseRandomSeed {
		return o.cfg.RandomSeed()
	}
	return snap.Seed
}

// buildRequest copies snapshot values into a new request. Optional fields
// are forwarded only when the pipeline declares them.
func (o *Orchestrator) buildRequest(snap form.Snapshot, source image.Image, seed int64) pipeline.Request {
	caps := o.cfg.Pipeline.Capabilities()
	req := pipeline.Request{
		Prompt:    snap.Prompt,
		Image:     source,
		Steps:     snap.Steps,
		Generator: pipeline.NewGenerator(seed),
	}
	if caps.Strength && snap.Strength != nil {
		req.Strength = pipeline.Float(*snap.Strength)
	}
	if caps.Guidance && snap.GuidanceScale != nil {
		req.GuidanceScale = pipeline.Float(*snap.GuidanceScale)
	}
	return req
}

// invoke calls the pipeline once and returns image 0.
func (o *Orchestrator) invoke(ctx context.Context, req pipeline.Request) (image.Image, error) {
	res, err := o.cfg.Pipeline.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.First()
}

var _ Trigger = (*Orchestrator)(nil)
