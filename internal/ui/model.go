package ui

import (
	"context"
	"strings"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"wfstui/internal/model"
	"wfstui/internal/progress"
)

const (
	barWidth       = 40
	outputHeight   = 10
	stderrTailSize = 5
	// chrome is the number of lines the view uses outside the output box.
	chrome = 18
)

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	opts    model.Options
	command string
	sink    *teaSink
	job     jobState

	done   bool
	result progress.Result

	// UI
	width, height int
	styles        Styles
	spinner       spinner.Model
	stageBar      bubblesprogress.Model
	fsBar         bubblesprogress.Model
	totalBar      bubblesprogress.Model
	output        viewport.Model

	// Internal event channel fed by the sink and the run goroutine
	eventCh chan tea.Msg
}

func NewModel(ctx context.Context, opts model.Options) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()

	sp := spinner.New()
	sp.Style = sty.Spinner

	newBar := func() bubblesprogress.Model {
		return bubblesprogress.New(
			bubblesprogress.WithDefaultGradient(),
			bubblesprogress.WithWidth(barWidth),
		)
	}

	events := make(chan tea.Msg, 256)
	return Model{
		ctx:      c,
		cancel:   cancel,
		opts:     opts,
		sink:     newTeaSink(events),
		styles:   sty,
		spinner:  sp,
		stageBar: newBar(),
		fsBar:    newBar(),
		totalBar: newBar(),
		output:   viewport.New(80, outputHeight),
		eventCh:  events,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenEventsCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			if m.done {
				return m, tea.Quit
			}
			// Keep running until the interrupted tool reports its result.
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.output.Width = max(msg.Width-4, 20)
		m.output.Height = max(msg.Height-chrome, 3)
		m.output.SetContent(m.job.stdout)
		m.output.GotoBottom()

	case refreshMsg:
		m.refresh()
		return m, m.listenEventsCmd()

	case resultMsg:
		m.refresh()
		m.done = true
		m.result = msg.R
		return m, tea.Quit
	}

	var cmds []tea.Cmd
	var c tea.Cmd
	if !m.done {
		m.spinner, c = m.spinner.Update(msg)
		cmds = append(cmds, c)
	}
	m.output, c = m.output.Update(msg)
	cmds = append(cmds, c)
	return m, tea.Batch(cmds...)
}

func (m *Model) refresh() {
	prev := m.job.stdout
	m.job = m.sink.state()
	if m.job.stdout != prev {
		atBottom := m.output.AtBottom() || prev == ""
		m.output.SetContent(m.job.stdout)
		if atBottom {
			m.output.GotoBottom()
		}
	}
}

func (m Model) View() string {
	return m.viewHeader() + "\n\n" + m.viewBars() + "\n" + m.viewOutput() + m.viewErrors() + "\n" + m.viewStatus()
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		return <-m.eventCh
	}
}

// publish delivers the final result. Unlike refreshes it never drops,
// unless the caller has given up on the program.
func (m Model) publish(parent context.Context, r progress.Result) {
	select {
	case m.eventCh <- resultMsg{R: r}:
	case <-parent.Done():
	}
}

// stderrTail returns the last n non-empty lines of s.
func stderrTail(s string, n int) []string {
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
