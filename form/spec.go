package form

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"img2img/pipeline"
)

// Field names as submitted by the page.
const (
	FieldPrompt        = "prompt"
	FieldSteps         = "steps"
	FieldStrength      = "strength"
	FieldGuidanceScale = "guidance_scale"
	FieldSeed          = "seed"
	FieldRandomSeed    = "random_seed"
)

// Default values and bounds for the built-in fields.
const (
	DefaultPrompt        = "Transform the image into..."
	DefaultSteps         = 4
	MinSteps             = 1
	MaxSteps             = 50
	DefaultStrength      = 0.8
	DefaultGuidanceScale = 0.0
	MaxGuidanceScale     = 10.0
	DefaultSeed          = 1
)

// Kind is the value type of a field.
type Kind string

const (
	KindText  Kind = "text"
	KindInt   Kind = "int"
	KindFloat Kind = "float"
	KindBool  Kind = "bool"
)

// Value is a parsed field value. Only the member matching Kind is meaningful.
type Value struct {
	Kind  Kind
	Text  string
	Int   int64
	Float float64
	Bool  bool
}

// String formats the value the way the page submits it.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Text
	}
}

// Spec declares one editable field.
type Spec struct {
	Name    string
	Label   string
	Kind    Kind
	Min     float64 // numeric kinds only
	Max     float64 // numeric kinds only
	Step    float64 // slider granularity, numeric kinds only
	Default Value
}

// Field is a spec paired with its current value, used to render the form.
type Field struct {
	Spec
	Value Value
}

// DefaultSpecs returns the built-in fields in display order. strength and
// guidance_scale are included only when caps declares them.
func DefaultSpecs(caps pipeline.Capabilities) []Spec {
	specs := []Spec{
		{Name: FieldPrompt, Label: "Prompt", Kind: KindText, Default: Value{Kind: KindText, Text: DefaultPrompt}},
		{Name: FieldSteps, Label: "Steps", Kind: KindInt, Min: MinSteps, Max: MaxSteps, Step: 1,
			Default: Value{Kind: KindInt, Int: DefaultSteps}},
	}
	if caps.Strength {
		specs = append(specs, Spec{Name: FieldStrength, Label: "Strength", Kind: KindFloat, Min: 0, Max: 1, Step: 0.05,
			Default: Value{Kind: KindFloat, Float: DefaultStrength}})
	}
	if caps.Guidance {
		specs = append(specs, Spec{Name: FieldGuidanceScale, Label: "Guidance Scale", Kind: KindFloat, Min: 0, Max: MaxGuidanceScale, Step: 0.5,
			Default: Value{Kind: KindFloat, Float: DefaultGuidanceScale}})
	}
	specs = append(specs,
		Spec{Name: FieldSeed, Label: "Seed", Kind: KindInt, Min: 0, Max: float64(pipeline.MaxSeed), Step: 1,
			Default: Value{Kind: KindInt, Int: DefaultSeed}},
		Spec{Name: FieldRandomSeed, Label: "Random Seed", Kind: KindBool, Default: Value{Kind: KindBool}},
	)
	return specs
}

// knownField reports whether name is one of the built-in fields, whether or
// not the active variant exposes it.
func knownField(name string) bool {
	switch name {
	case FieldPrompt, FieldSteps, FieldStrength, FieldGuidanceScale, FieldSeed, FieldRandomSeed:
		return true
	}
	return false
}

// Parse converts a raw UI value into a Value of the spec's kind. Numbers
// outside [Min, Max] are clamped to the nearest bound.
func (s Spec) Parse(raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	switch s.Kind {
	case KindText:
		return Value{Kind: KindText, Text: raw}, nil

	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			// Number widgets may submit "4.0".
			f, ferr := strconv.ParseFloat(raw, 64)
			if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return Value{}, fmt.Errorf("%w: %s expects an integer, got %q", ErrInvalidValue, s.Name, raw)
			}
			f = s.clamp(math.Round(f))
			return Value{Kind: KindInt, Int: int64(f)}, nil
		}
		if float64(n) < s.Min {
			n = int64(s.Min)
		} else if float64(n) > s.Max {
			n = int64(s.Max)
		}
		return Value{Kind: KindInt, Int: n}, nil

	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("%w: %s expects a number, got %q", ErrInvalidValue, s.Name, raw)
		}
		return Value{Kind: KindFloat, Float: s.clamp(f)}, nil

	case KindBool:
		switch strings.ToLower(raw) {
		case "true", "1", "yes", "on":
			return Value{Kind: KindBool, Bool: true}, nil
		case "false", "0", "no", "off", "":
			return Value{Kind: KindBool, Bool: false}, nil
		}
		return Value{}, fmt.Errorf("%w: %s expects true or false, got %q", ErrInvalidValue, s.Name, raw)
	}
	return Value{}, fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidValue, s.Name, s.Kind)
}

func (s Spec) clamp(f float64) float64 {
	return math.Max(s.Min, math.Min(s.Max, f))
}

// validate checks that the spec bounds are consistent and contain the default.
func (s Spec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: field without a name", ErrInvalidSpec)
	}
	if s.Default.Kind != s.Kind {
		return fmt.Errorf("%w: %s default is %s, want %s", ErrInvalidSpec, s.Name, s.Default.Kind, s.Kind)
	}
	var def float64
	switch s.Kind {
	case KindInt:
		def = float64(s.Default.Int)
	case KindFloat:
		def = s.Default.Float
	default:
		return nil
	}
	if s.Min > s.Max {
		return fmt.Errorf("%w: %s min %v exceeds max %v", ErrInvalidSpec, s.Name, s.Min, s.Max)
	}
	if def < s.Min || def > s.Max {
		return fmt.Errorf("%w: %s default %v outside [%v, %v]", ErrInvalidSpec, s.Name, def, s.Min, s.Max)
	}
	return nil
}
