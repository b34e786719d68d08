package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"wfstui/internal/model"
	"wfstui/internal/progress"
	"wfstui/internal/util"
	"wfstui/internal/wipe"
)

// Run wipes opts.Filesystems while showing the interactive view. svcOpts
// configure the underlying wipe.Service; its sinks are always replaced by
// the view's own.
func Run(ctx context.Context, opts model.Options, svcOpts ...wipe.Option) (progress.Result, error) {
	m := NewModel(ctx, opts)
	defer m.cancel()
	svc := wipe.NewService(append(svcOpts, wipe.WithSinks(m.sink.Sinks()))...)
	m.command = util.ShellQuote(svc.Command(opts))

	uiCtx, uiDone := context.WithCancel(context.Background())
	results := make(chan progress.Result, 1)
	go func() {
		res := svc.Run(m.ctx, opts)
		results <- res
		m.publish(uiCtx, res)
	}()

	prog := tea.NewProgram(m, tea.WithContext(ctx))
	_, err := prog.Run()
	uiDone()
	// Interrupts the tool if the program ended before it did.
	m.cancel()
	res := <-results
	if err != nil && ctx.Err() == nil {
		return res, err
	}
	return res, nil
}
