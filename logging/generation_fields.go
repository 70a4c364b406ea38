package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Generation describes one Generate press for structured logging. The
// prompt itself is not logged, only its length.
type Generation struct {
	Variant    string
	PromptLen  int
	Steps      int
	Strength   *float64
	Guidance   *float64
	Seed       int64
	RandomSeed bool
	Outcome    string
	Duration   time.Duration
	SavedPath  string
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (g Generation) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("variant", g.Variant)
	enc.AddInt("prompt_len", g.PromptLen)
	enc.AddInt("steps", g.Steps)
	if g.Strength != nil {
		enc.AddFloat64("strength", *g.Strength)
	}
	if g.Guidance != nil {
		enc.AddFloat64("guidance_scale", *g.Guidance)
	}
	enc.AddInt64("seed", g.Seed)
	enc.AddBool("random_seed", g.RandomSeed)
	if g.Outcome != "" {
		enc.AddString("outcome", g.Outcome)
	}
	if g.Duration > 0 {
		enc.AddDuration("duration", g.Duration)
	}
	if g.SavedPath != "" {
		enc.AddString("saved_path", g.SavedPath)
	}
	return nil
}

// GenerationFields wraps g as a single "generation" field.
//
// Example:
//
//	logger.Info("generation rendered", logging.GenerationFields(g))
func GenerationFields(g Generation) zap.Field {
	return zap.Object("generation", g)
}

// UploadFields returns the fields logged for an accepted upload.
func UploadFields(filename string, size int) []zap.Field {
	return []zap.Field{
		zap.String("filename", filename),
		zap.Int("bytes", size),
	}
}
