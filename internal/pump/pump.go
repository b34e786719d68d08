// Package pump tails one output stream of the wipe tool, keeps its transcript
// and publishes text and progress at a fixed polling interval.
package pump

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"

	"wfstui/internal/logging"
	"wfstui/internal/progress"
	"wfstui/internal/wfs"
)

// DefaultInterval is the wait between two polls of the stream.
const DefaultInterval = 100 * time.Millisecond

// retryDelay is how long Start waits before retrying while a stopped loop
// is still finishing its last iteration.
const retryDelay = 5 * time.Millisecond

// Config describes one pump. Source and Text are required.
type Config struct {
	Source Source
	Text   progress.TextSink

	// Progress indicators. When all three are nil the transcript is only
	// published as text and no progress is computed.
	Stage      progress.Indicator
	Filesystem progress.Indicator
	Total      progress.Indicator

	// Label receives the current filesystem name.
	Label progress.TextSink

	TotalFilesystems int // <= 0 means 1
	Stages           int // <= 0 means 3

	Interval time.Duration     // 0 means DefaultInterval
	Encoding encoding.Encoding // nil means the locale charset
	OnError  func(err error, context string)
}

func (c Config) tracked() bool {
	return c.Stage != nil || c.Filesystem != nil || c.Total != nil
}

// Pump drains a Source on a background goroutine. A stopped pump may be
// started again; every start begins a new transcript.
type Pump struct {
	cfg Config

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// group admits at most one loop at a time.
	group *errgroup.Group

	publishMu sync.Mutex
	loops     atomic.Int32
	ended     atomic.Bool
}

// New returns a pump in the created state. It panics when cfg.Source or
// cfg.Text is nil.
func New(cfg Config) *Pump {
	if cfg.Source == nil {
		panic("pump: nil Source")
	}
	if cfg.Text == nil {
		panic("pump: nil Text sink")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.OnError == nil {
		cfg.OnError = logging.HandleError
	}

	g := new(errgroup.Group)
	g.SetLimit(1)
	done := make(chan struct{})
	close(done)
	return &Pump{cfg: cfg, group: g, done: done}
}

// Start begins polling. It does nothing while the pump is running.
func (p *Pump) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r := p.newRun()
	p.ended.Store(false)
	loop := func() error {
		defer close(done)
		p.loop(ctx, r)
		return nil
	}
	for !p.group.TryGo(loop) {
		time.Sleep(retryDelay)
	}
	p.running = true
	p.cancel = cancel
	p.done = done
}

// Stop asks the loop to exit at its next wake-up. It is safe to call at any
// time and any number of times.
func (p *Pump) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.cancel()
}

// Running reports whether the pump is between Start and Stop.
func (p *Pump) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Done is closed when the most recently started loop has exited. For a
// pump that was never started it is already closed.
func (p *Pump) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Ended reports whether the current run has seen its source end. The last
// text is published before the loop exits, so a caller that sees true can
// Stop and wait on Done without losing output.
func (p *Pump) Ended() bool {
	return p.ended.Load()
}

// run is the state of one Start..Stop lifetime.
type run struct {
	transcript strings.Builder
	tracker    *wfs.Tracker
	decoder    *Decoder
	buf        []byte
	cycle      int
	flushed    bool
}

func (p *Pump) newRun() *run {
	r := &run{}
	if p.cfg.Encoding != nil {
		r.decoder = NewDecoder(p.cfg.Encoding)
	} else {
		r.decoder = NewLocaleDecoder()
	}
	if p.cfg.tracked() {
		r.tracker = wfs.NewTracker(
			p.cfg.TotalFilesystems,
			p.cfg.Stages,
			rangeOf(p.cfg.Stage),
			rangeOf(p.cfg.Filesystem),
			rangeOf(p.cfg.Total),
		)
	}
	return r
}

func rangeOf(ind progress.Indicator) wfs.Range {
	if ind == nil {
		return wfs.Percent()
	}
	lo, hi := ind.Bounds()
	return wfs.Range{Min: lo, Max: hi}
}

func (p *Pump) loop(ctx context.Context, r *run) {
	p.loops.Add(1)
	defer p.loops.Add(-1)

	timer := time.NewTimer(p.cfg.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}
		p.cycle(r)
		timer.Reset(p.cfg.Interval)
	}
}

// cycle reads everything available, updates the transcript and publishes.
// A panic is reported and the cycle skipped.
func (p *Pump) cycle(r *run) {
	r.cycle++
	defer func() {
		if v := recover(); v != nil {
			p.cfg.OnError(fmt.Errorf("%v", v), fmt.Sprintf("pump cycle %d", r.cycle))
		}
	}()

	n, err := p.cfg.Source.Available()
	if err != nil {
		// The stream has ended; emit a partial character held by the
		// decoder once.
		if !r.flushed {
			r.flushed = true
			p.ended.Store(true)
			p.extend(r, r.decoder.Flush())
		}
		return
	}
	if n <= 0 {
		return
	}
	if cap(r.buf) < n {
		r.buf = make([]byte, n)
	}
	buf := r.buf[:n]
	read := 0
	for read < n {
		m, err := p.cfg.Source.Read(buf[read:])
		read += m
		if err != nil || m == 0 {
			break
		}
	}
	if read == 0 {
		return
	}
	p.extend(r, r.decoder.Decode(buf[:read]))
}

// extend adds text to the transcript and publishes the result.
func (p *Pump) extend(r *run, text string) {
	if text == "" {
		return
	}
	r.transcript.WriteString(text)
	full := r.transcript.String()

	var snap wfs.Snapshot
	switch {
	case r.tracker != nil:
		snap = r.tracker.Update(full)
	case p.cfg.Label != nil:
		snap.Filesystem, _ = wfs.Scan(full).Markers()
	}
	p.publish(full, snap, r.tracker != nil)
}

func (p *Pump) publish(text string, snap wfs.Snapshot, tracked bool) {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	p.cfg.Text.SetText(text)
	if tracked {
		if p.cfg.Stage != nil {
			p.cfg.Stage.SetValue(snap.Bars.Stage)
		}
		if p.cfg.Filesystem != nil {
			p.cfg.Filesystem.SetValue(snap.Bars.Filesystem)
		}
		if p.cfg.Total != nil {
			p.cfg.Total.SetValue(snap.Bars.Total)
		}
	}
	if p.cfg.Label != nil {
		p.cfg.Label.SetText(snap.Filesystem)
	}
}
