package progress

import (
	"sync"
	"time"
)

// Stream identifies which output stream of the tool produced some text.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

func (s Stream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

// Indicator is a bounded progress display such as a progress bar.
type Indicator interface {
	Bounds() (min, max int)
	SetValue(v int)
}

// TextSink receives the full text to display. Each call replaces the
// previous text.
type TextSink interface {
	SetText(s string)
}

// Result is emitted once per run when the tool exits or fails to start.
type Result struct {
	ExitCode int
	Duration time.Duration
	Err      error // nil on success
}

// Bar is an in-memory Indicator that is safe for concurrent use.
type Bar struct {
	mu       sync.Mutex
	min, max int
	value    int
	onChange func(v int)
}

// NewBar returns a Bar spanning min..max and starting at min. onChange, if
// non-nil, is called after every value change.
func NewBar(min, max int, onChange func(v int)) *Bar {
	return &Bar{min: min, max: max, value: min, onChange: onChange}
}

func (b *Bar) Bounds() (int, int) {
	return b.min, b.max
}

func (b *Bar) SetValue(v int) {
	b.mu.Lock()
	changed := v != b.value
	b.value = v
	fn := b.onChange
	b.mu.Unlock()
	if changed && fn != nil {
		fn(v)
	}
}

// Value returns the last value set.
func (b *Bar) Value() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Fraction returns the value as 0..1 of the bar's span.
func (b *Bar) Fraction() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max <= b.min {
		return 0
	}
	return float64(b.value-b.min) / float64(b.max-b.min)
}

// Text is an in-memory TextSink that is safe for concurrent use.
type Text struct {
	mu   sync.Mutex
	text string
	sets int
}

func (t *Text) SetText(s string) {
	t.mu.Lock()
	t.text = s
	t.sets++
	t.mu.Unlock()
}

// String returns the last text set.
func (t *Text) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}

// Sets returns how many times SetText was called.
func (t *Text) Sets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sets
}
