package form

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Override adjusts the declaration of one field. Unset members keep the
// built-in value.
type Override struct {
	Label   *string  `yaml:"label"`
	Min     *float64 `yaml:"min"`
	Max     *float64 `yaml:"max"`
	Step    *float64 `yaml:"step"`
	Default any      `yaml:"default"`
}

// Overrides maps field names to their overrides.
type Overrides map[string]Override

// LoadOverrides reads a YAML overrides file such as:
//
//	steps:
//	  max: 30
//	  default: 8
//	prompt:
//	  default: "A watercolour painting"
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading form overrides: %w", err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes YAML overrides. Unknown keys inside a field are
// rejected.
func ParseOverrides(data []byte) (Overrides, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	out := make(Overrides, len(raw))
	for name, node := range raw {
		var o Override
		if err := decodeStrict(&node, &o); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSpec, name, err)
		}
		out[name] = o
	}
	return out, nil
}

func decodeStrict(node *yaml.Node, out *Override) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch key := node.Content[i].Value; key {
		case "label", "min", "max", "step", "default":
		default:
			return fmt.Errorf("unknown key %q", key)
		}
	}
	return node.Decode(out)
}

// Apply returns a copy of specs with the overrides applied. Overrides for
// built-in fields the variant does not expose are ignored; any other
// unknown name is an error. Every resulting spec must keep min <= default
// <= max.
func (o Overrides) Apply(specs []Spec) ([]Spec, error) {
	out := make([]Spec, len(specs))
	copy(out, specs)

	byName := make(map[string]int, len(out))
	for i, s := range out {
		byName[s.Name] = i
	}

	for name, ov := range o {
		i, ok := byName[name]
		if !ok {
			if knownField(name) {
				continue
			}
			return nil, fmt.Errorf("%w: override for unknown field %q", ErrInvalidSpec, name)
		}

		s := out[i]
		if ov.Label != nil {
			s.Label = *ov.Label
		}
		if s.Kind == KindInt || s.Kind == KindFloat {
			if ov.Min != nil {
				s.Min = *ov.Min
			}
			if ov.Max != nil {
				s.Max = *ov.Max
			}
			if ov.Step != nil {
				s.Step = *ov.Step
			}
		} else if ov.Min != nil || ov.Max != nil || ov.Step != nil {
			return nil, fmt.Errorf("%w: %s is not numeric", ErrInvalidSpec, name)
		}

		if ov.Default != nil {
			def, err := parseDefault(s, ov.Default)
			if err != nil {
				return nil, err
			}
			s.Default = def
		}

		if err := s.validate(); err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// parseDefault converts a YAML scalar into a Value without clamping, so an
// out-of-range default is reported rather than silently moved.
func parseDefault(s Spec, v any) (Value, error) {
	unbounded := s
	unbounded.Min, unbounded.Max = -1e18, 1e18
	val, err := unbounded.Parse(fmt.Sprint(v))
	if err != nil {
		return Value{}, fmt.Errorf("%w: default: %v", ErrInvalidSpec, err)
	}
	return val, nil
}
