package cmd

import (
	"io"
	"strings"
	"sync"

	"wfstui/internal/logging"
	"wfstui/internal/progress"
	"wfstui/internal/wipe"
)

// appendWriter prints only what was appended to the transcript since the
// last call.
type appendWriter struct {
	mu      sync.Mutex
	w       io.Writer
	printed string
}

func (a *appendWriter) SetText(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	suffix := text
	if strings.HasPrefix(text, a.printed) {
		suffix = text[len(a.printed):]
	}
	if suffix != "" {
		_, _ = io.WriteString(a.w, suffix)
	}
	a.printed = text
}

type labelLogger struct {
	mu   sync.Mutex
	last string
}

func (l *labelLogger) SetText(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if name != "" && name != l.last {
		logging.Info().Str("filesystem", name).Msg("wiping filesystem")
	}
	l.last = name
}

func plainSinks(stdout, stderr io.Writer) wipe.Sinks {
	total := progress.NewBar(0, 100, func(v int) {
		logging.Info().Int("percent", v).Msg("total progress")
	})
	stage := progress.NewBar(0, 100, func(v int) {
		logging.Debug().Int("percent", v).Msg("stage progress")
	})
	return wipe.Sinks{
		Output:     &appendWriter{w: stdout},
		Errors:     &appendWriter{w: stderr},
		Stage:      stage,
		Filesystem: progress.NewBar(0, 100, nil),
		Total:      total,
		Label:      &labelLogger{},
	}
}
