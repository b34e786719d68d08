// Package wipe runs the wipefreespace tool and feeds its output streams to
// two pumps.
package wipe

import (
	"context"
	"errors"
	"time"

	"golang.org/x/text/encoding"

	"wfstui/internal/logging"
	"wfstui/internal/model"
	"wfstui/internal/progress"
	"wfstui/internal/pump"
	"wfstui/internal/util"
	"wfstui/internal/wfs"
)

// DefaultDrainTimeout bounds how long Run waits for the pumps to consume
// the last output after the tool has exited.
const DefaultDrainTimeout = 2 * time.Second

// ErrNoFilesystems is returned when Run is called without targets.
var ErrNoFilesystems = errors.New("no filesystems selected")

// Sinks are the displays a run publishes to. Nil text sinks discard text;
// nil indicators are simply not updated.
type Sinks struct {
	Output progress.TextSink // stdout transcript
	Errors progress.TextSink // stderr transcript

	Stage      progress.Indicator
	Filesystem progress.Indicator
	Total      progress.Indicator
	Label      progress.TextSink // current filesystem
}

// Service supervises one tool process at a time.
type Service struct {
	runner       util.CmdRunner
	sinks        Sinks
	interval     time.Duration
	drainTimeout time.Duration
	encoding     encoding.Encoding
	onError      func(err error, context string)
	binary       string
}

// Option configures a Service.
type Option func(*Service)

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithSinks attaches the displays that receive text and progress.
func WithSinks(sk Sinks) Option {
	return func(s *Service) {
		s.sinks = sk
	}
}

// WithInterval overrides the pump polling interval.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		s.interval = d
	}
}

// WithDrainTimeout overrides DefaultDrainTimeout.
func WithDrainTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.drainTimeout = d
	}
}

// WithEncoding fixes the output encoding instead of using the locale.
func WithEncoding(enc encoding.Encoding) Option {
	return func(s *Service) {
		s.encoding = enc
	}
}

// WithErrorHandler replaces logging.HandleError as the error sink.
func WithErrorHandler(fn func(err error, context string)) Option {
	return func(s *Service) {
		s.onError = fn
	}
}

// WithBinary sets a resolved tool path that takes precedence over
// Options.WfsPath.
func WithBinary(path string) Option {
	return func(s *Service) {
		s.binary = path
	}
}

// NewService constructs a Service with the provided options.
// It applies sensible defaults for missing components.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner()
	}
	if s.sinks.Output == nil {
		s.sinks.Output = &progress.Text{}
	}
	if s.sinks.Errors == nil {
		s.sinks.Errors = &progress.Text{}
	}
	if s.drainTimeout <= 0 {
		s.drainTimeout = DefaultDrainTimeout
	}
	if s.onError == nil {
		s.onError = logging.HandleError
	}
	return s
}

// Command returns the binary and arguments Run would execute for opts.
func (s *Service) Command(opts model.Options) (string, []string) {
	path := s.binary
	if path == "" {
		path = opts.Binary()
	}
	return path, wfs.BuildArgs(opts)
}

// Run starts the tool, pumps both output streams until the tool exits and
// returns its exit status. Cancelling ctx interrupts the tool.
func (s *Service) Run(ctx context.Context, opts model.Options) progress.Result {
	start := time.Now()
	if len(opts.Filesystems) == 0 {
		return progress.Result{ExitCode: -1, Err: ErrNoFilesystems}
	}

	path, args := s.Command(opts)
	stdout, stderr := pump.NewBuffer(), pump.NewBuffer()

	proc, err := s.runner.Start(ctx, util.CmdSpec{
		Path:    path,
		Args:    args,
		Verbose: opts.Verbose,
		Stdout:  stdout,
		Stderr:  stderr,
	})
	if err != nil {
		s.onError(err, "exec")
		return progress.Result{ExitCode: -1, Err: err, Duration: time.Since(start)}
	}

	outPump := pump.New(pump.Config{
		Source:           stdout,
		Text:             s.sinks.Output,
		Stage:            s.sinks.Stage,
		Filesystem:       s.sinks.Filesystem,
		Total:            s.sinks.Total,
		Label:            s.sinks.Label,
		TotalFilesystems: len(opts.Filesystems),
		Stages:           opts.Stages(),
		Interval:         s.interval,
		Encoding:         s.encoding,
		OnError:          s.onError,
	})
	errPump := pump.New(pump.Config{
		Source:   stderr,
		Text:     s.sinks.Errors,
		Interval: s.interval,
		Encoding: s.encoding,
		OnError:  s.onError,
	})
	outPump.Start()
	errPump.Start()

	code, werr := proc.Wait()
	_ = stdout.Close()
	_ = stderr.Close()

	s.awaitDrained(map[progress.Stream]*pump.Pump{
		progress.StreamStdout: outPump,
		progress.StreamStderr: errPump,
	})
	outPump.Stop()
	errPump.Stop()
	<-outPump.Done()
	<-errPump.Done()

	logging.Debug().Int("exit_code", code).Dur("elapsed", time.Since(start)).Msg("wipe finished")
	return progress.Result{ExitCode: code, Err: werr, Duration: time.Since(start)}
}

// awaitDrained gives the pumps a chance to read their closed streams to the
// end and publish the tail of the output.
func (s *Service) awaitDrained(pumps map[progress.Stream]*pump.Pump) {
	deadline := time.Now().Add(s.drainTimeout)
	tick := s.interval
	if tick <= 0 {
		tick = pump.DefaultInterval
	}
	for {
		var pending []string
		for stream, p := range pumps {
			if !p.Ended() {
				pending = append(pending, stream.String())
			}
		}
		if len(pending) == 0 {
			return
		}
		if !time.Now().Before(deadline) {
			logging.Warn().Strs("streams", pending).Dur("timeout", s.drainTimeout).Msg("output not fully drained")
			return
		}
		time.Sleep(tick / 2)
	}
}
