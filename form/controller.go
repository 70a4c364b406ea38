// Package form holds the user-editable generation parameters and the
// single-image upload slot.
//
// The Controller is pure state: editing a field never triggers generation,
// and nothing here decodes images or performs I/O. The orchestrator reads a
// consistent view through Snapshot.
package form

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Upload is one pending image exactly as received. It is never modified
// after creation; a new upload replaces the whole value.
type Upload struct {
	Content    []byte
	Filename   string
	UploadedAt time.Time
}

// Size returns the content length in bytes.
func (u *Upload) Size() int {
	if u == nil {
		return 0
	}
	return len(u.Content)
}

// UploadSlot holds at most one pending image. There is no clear operation.
type UploadSlot struct {
	pending *Upload
}

// Put replaces the pending image with a copy of content.
func (s *UploadSlot) Put(content []byte, filename string, now time.Time) {
	buf := make([]byte, len(content))
	copy(buf, content)
	s.pending = &Upload{Content: buf, Filename: filename, UploadedAt: now}
}

// Pending returns the current upload or nil.
func (s *UploadSlot) Pending() *Upload {
	return s.pending
}

// Snapshot is an immutable copy of the form at one instant.
type Snapshot struct {
	Prompt string
	Steps  int

	// Strength and GuidanceScale are nil when the field is not exposed.
	Strength      *float64
	GuidanceScale *float64

	Seed          int64
	UseRandomSeed bool

	// Upload is nil when no image has been provided.
	Upload *Upload
}

// HasImage reports whether the snapshot carries a non-empty upload.
func (s Snapshot) HasImage() bool {
	return s.Upload != nil && len(s.Upload.Content) > 0
}

// Controller owns the field values and the upload slot. Safe for
// concurrent use.
type Controller struct {
	specs []Spec
	index map[string]int

	mu     sync.RWMutex
	values []Value
	slot   UploadSlot
	now    func() time.Time
}

// NewController builds a controller over specs, with every field at its
// default. Specs are validated.
func NewController(specs []Spec) (*Controller, error) {
	c := &Controller{
		specs:  make([]Spec, len(specs)),
		index:  make(map[string]int, len(specs)),
		values: make([]Value, len(specs)),
		now:    time.Now,
	}
	copy(c.specs, specs)

	for i, s := range c.specs {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidSpec, s.Name)
		}
		c.index[s.Name] = i
		c.values[i] = s.Default
	}
	return c, nil
}

// Has reports whether the field is exposed.
func (c *Controller) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// SetField parses raw for the named field and stores it. Out-of-range
// numbers are clamped. On error the stored value is unchanged.
func (c *Controller) SetField(name, raw string) error {
	i, ok := c.index[name]
	if !ok {
		if knownField(name) {
			return fmt.Errorf("%w: %s", ErrFieldUnavailable, name)
		}
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	v, err := c.specs[i].Parse(raw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.values[i] = v
	c.mu.Unlock()
	return nil
}

// SetFields applies a whole form submission. Each field is applied on its
// own; failures are joined and do not prevent the other fields from being
// stored.
func (c *Controller) SetFields(values map[string]string) error {
	var errs []error
	// Spec order keeps the joined error stable.
	for _, s := range c.specs {
		raw, ok := values[s.Name]
		if !ok {
			continue
		}
		if err := c.SetField(s.Name, raw); err != nil {
			errs = append(errs, err)
		}
	}
	for name := range values {
		if !c.Has(name) {
			errs = append(errs, c.SetField(name, values[name]))
		}
	}
	return errors.Join(errs...)
}

// Value returns the current value of the named field.
func (c *Controller) Value(name string) (Value, bool) {
	i, ok := c.index[name]
	if !ok {
		return Value{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[i], true
}

// Upload replaces the pending image. The content is copied and not decoded.
func (c *Controller) Upload(content []byte, filename string) {
	c.mu.Lock()
	c.slot.Put(content, filename, c.now())
	c.mu.Unlock()
}

// Pending returns the pending upload or nil.
func (c *Controller) Pending() *Upload {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slot.Pending()
}

// Snapshot returns a consistent copy of all values and the pending upload.
// The slot is left as is.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{Upload: c.slot.Pending()}
	for i, s := range c.specs {
		v := c.values[i]
		switch s.Name {
		case FieldPrompt:
			snap.Prompt = v.Text
		case FieldSteps:
			snap.Steps = int(v.Int)
		case FieldStrength:
			f := v.Float
			snap.Strength = &f
		case FieldGuidanceScale:
			f := v.Float
			snap.GuidanceScale = &f
		case FieldSeed:
			snap.Seed = v.Int
		case FieldRandomSeed:
			snap.UseRandomSeed = v.Bool
		}
	}
	return snap
}

// Fields returns the field descriptors in display order with their current
// values.
func (c *Controller) Fields() []Field {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fields := make([]Field, len(c.specs))
	for i, s := range c.specs {
		fields[i] = Field{Spec: s, Value: c.values[i]}
	}
	return fields
}
