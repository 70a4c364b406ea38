package studio

import (
	"html"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Panel titles of a rendered pair.
const (
	InputTitle     = "Input Image"
	GeneratedTitle = "Generated Image"
)

// ContentKind says what the surface currently shows.
type ContentKind string

const (
	ContentEmpty   ContentKind = "empty"
	ContentMessage ContentKind = "message"
	ContentError   ContentKind = "error"
	ContentRender  ContentKind = "render"
)

// Render is a successful result as displayed.
type Render struct {
	ID        string
	Input     []byte // PNG
	Generated []byte // PNG
	Figure    []byte // PNG, both panels with titles
	Seed      int64
	SavedPath string
}

// Content is one full replacement of the output region.
type Content struct {
	Version   uint64
	Kind      ContentKind
	Message   string
	Render    *Render
	UpdatedAt time.Time
}

// Surface is the single output region. Every Show or Clear replaces what
// was there; subscribers receive the latest content and may miss
// intermediate states.
type Surface struct {
	policy *bluemonday.Policy

	mu      sync.RWMutex
	current Content
	nextSub int
	subs    map[int]chan Content
	now     func() time.Time
}

// NewSurface returns an empty surface.
func NewSurface() *Surface {
	s := &Surface{
		policy: bluemonday.StrictPolicy(),
		subs:   make(map[int]chan Content),
		now:    time.Now,
	}
	s.current = Content{Kind: ContentEmpty, UpdatedAt: s.now()}
	return s
}

// Clear empties the region.
func (s *Surface) Clear() {
	s.replace(Content{Kind: ContentEmpty})
}

// ShowMessage replaces the region with a plain informational line.
func (s *Surface) ShowMessage(msg string) {
	s.replace(Content{Kind: ContentMessage, Message: s.plain(msg)})
}

// ShowError replaces the region with a single error line. Markup coming
// from backends is stripped.
func (s *Surface) ShowError(msg string) {
	s.replace(Content{Kind: ContentError, Message: s.plain(msg)})
}

// ShowRender replaces the region with a rendered pair.
func (s *Surface) ShowRender(r Render) {
	s.replace(Content{Kind: ContentRender, Render: &r})
}

// Current returns what the region shows now.
func (s *Surface) Current() Content {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe returns a channel that receives every later replacement and a
// function that cancels the subscription. The channel holds only the
// latest content.
func (s *Surface) Subscribe() (<-chan Content, func()) {
	ch := make(chan Content, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Surface) replace(c Content) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.Version = s.current.Version + 1
	c.UpdatedAt = s.now()
	s.current = c

	for _, ch := range s.subs {
		// Drop a stale pending value so the newest always fits.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c:
		default:
		}
	}
}

// plain strips markup and folds the text onto one line.
func (s *Surface) plain(msg string) string {
	return oneLine(html.UnescapeString(s.policy.Sanitize(msg)))
}

// oneLine collapses all whitespace runs, newlines included, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
