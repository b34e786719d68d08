package ui

import (
	"fmt"
	"strings"
	"time"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
)

func (m Model) viewHeader() string {
	title := m.styles.Title.Render("wfstui · wipe free space")
	fs := m.job.label
	if fs == "" {
		fs = "waiting for the first filesystem"
	}
	sub := m.styles.Subtitle.Render(fmt.Sprintf("%d filesystem(s) • q: interrupt", len(m.opts.Filesystems)))
	header := title + "\n" + sub + "\n"
	if m.command != "" {
		header += m.styles.Faint.Render(truncate(m.command, max(m.width-2, 60))) + "\n"
	}
	return header + m.styles.Label.Render(fs)
}

func (m Model) viewBars() string {
	var b strings.Builder
	row := func(name string, bar bubblesprogress.Model, v int) {
		b.WriteString(m.styles.Box.Render(m.styles.BarName.Render(name) + bar.ViewAs(float64(v)/100.0)))
		b.WriteString("\n")
	}
	row("Stage", m.stageBar, m.job.stage)
	row("Filesystem", m.fsBar, m.job.fs)
	row("Total", m.totalBar, m.job.total)
	return b.String()
}

func (m Model) viewOutput() string {
	return m.styles.Output.Render(m.output.View()) + "\n"
}

func (m Model) viewErrors() string {
	tail := stderrTail(m.job.stderr, stderrTailSize)
	if len(tail) == 0 {
		return ""
	}
	var b strings.Builder
	for _, line := range tail {
		b.WriteString(m.styles.Warning.Render(truncate(line, max(m.width-2, 40))))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewStatus() string {
	if !m.done {
		return m.styles.Spinner.Render(m.spinner.View()) + " " + m.styles.Faint.Render("wiping")
	}
	elapsed := m.result.Duration.Round(100 * time.Millisecond)
	if m.result.Err != nil {
		return m.styles.Error.Render(fmt.Sprintf("✗ exit %d after %s: %v", m.result.ExitCode, elapsed, m.result.Err))
	}
	return m.styles.Success.Render(fmt.Sprintf("✓ done in %s", elapsed))
}

func truncate(s string, n int) string {
	if n <= 0 || len([]rune(s)) <= n {
		return s
	}
	rs := []rune(s)
	return string(rs[:n-1]) + "…"
}
