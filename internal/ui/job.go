package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"wfstui/internal/wipe"
)

// jobState is the latest state published by the running wipe.
type jobState struct {
	stdout string
	stderr string
	label  string

	stage, fs, total int
}

// teaSink receives pump updates on their goroutines and nudges the program
// to redraw. Nudges are dropped when the channel is full; the model always
// reads the newest state, so nothing is lost.
type teaSink struct {
	mu  sync.Mutex
	cur jobState
	ch  chan tea.Msg
}

func newTeaSink(ch chan tea.Msg) *teaSink {
	return &teaSink{ch: ch}
}

func (s *teaSink) update(fn func(*jobState)) {
	s.mu.Lock()
	fn(&s.cur)
	s.mu.Unlock()
	select {
	case s.ch <- refreshMsg{}:
	default:
	}
}

func (s *teaSink) state() jobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Sinks adapts the sink to the displays a wipe run publishes to.
func (s *teaSink) Sinks() wipe.Sinks {
	return wipe.Sinks{
		Output:     textFunc(func(t string) { s.update(func(j *jobState) { j.stdout = t }) }),
		Errors:     textFunc(func(t string) { s.update(func(j *jobState) { j.stderr = t }) }),
		Label:      textFunc(func(t string) { s.update(func(j *jobState) { j.label = t }) }),
		Stage:      barFunc(func(v int) { s.update(func(j *jobState) { j.stage = v }) }),
		Filesystem: barFunc(func(v int) { s.update(func(j *jobState) { j.fs = v }) }),
		Total:      barFunc(func(v int) { s.update(func(j *jobState) { j.total = v }) }),
	}
}

type textFunc func(string)

func (f textFunc) SetText(s string) { f(s) }

// barFunc is a percentage indicator.
type barFunc func(int)

func (barFunc) Bounds() (int, int) { return 0, 100 }

func (f barFunc) SetValue(v int) { f(v) }
