package pump

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"wfstui/internal/progress"
)

const (
	testInterval = 5 * time.Millisecond
	waitFor      = 2 * time.Second
)

type recordedError struct {
	err     error
	context string
}

type errorRecorder struct {
	mu   sync.Mutex
	errs []recordedError
}

func (r *errorRecorder) handle(err error, context string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, recordedError{err: err, context: context})
}

func (r *errorRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

type bars struct {
	stage, fs, total *progress.Bar
}

func newBars() bars {
	return bars{
		stage: progress.NewBar(0, 100, nil),
		fs:    progress.NewBar(0, 100, nil),
		total: progress.NewBar(0, 100, nil),
	}
}

func newStdoutPump(src Source, text, label *progress.Text, b bars, rec *errorRecorder) *Pump {
	return New(Config{
		Source:           src,
		Text:             text,
		Stage:            b.stage,
		Filesystem:       b.fs,
		Total:            b.total,
		Label:            label,
		TotalFilesystems: 2,
		Stages:           3,
		Interval:         testInterval,
		Encoding:         unicode.UTF8,
		OnError:          rec.handle,
	})
}

func TestStopIsIdempotent(t *testing.T) {
	p := New(Config{Source: NewBuffer(), Text: &progress.Text{}, Interval: testInterval})

	p.Stop()
	p.Stop()
	assert.False(t, p.Running())
	select {
	case <-p.Done():
	default:
		t.Fatal("Done() should be closed for a pump that never started")
	}

	p.Start()
	assert.True(t, p.Running())
	p.Stop()
	p.Stop()
	assert.False(t, p.Running())
	select {
	case <-p.Done():
	case <-time.After(waitFor):
		t.Fatal("loop did not exit after Stop")
	}
}

func TestStartTwiceRunsOneLoop(t *testing.T) {
	p := New(Config{Source: NewBuffer(), Text: &progress.Text{}, Interval: testInterval})
	defer p.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Start()
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return p.loops.Load() == 1 }, waitFor, time.Millisecond)
	time.Sleep(5 * testInterval)
	assert.Equal(t, int32(1), p.loops.Load())

	p.Stop()
	<-p.Done()
	assert.Equal(t, int32(0), p.loops.Load())
}

func TestPumpEndToEnd(t *testing.T) {
	buf := NewBuffer()
	text, label := &progress.Text{}, &progress.Text{}
	b := newBars()
	rec := &errorRecorder{}
	p := newStdoutPump(buf, text, label, b, rec)
	p.Start()
	defer p.Stop()

	_, err := buf.Write([]byte("wipefreespace:/dev/sda1: \n*** \n"))
	require.NoError(t, err)

	// The label is published last.
	require.Eventually(t, func() bool { return label.String() == "/dev/sda1" }, waitFor, time.Millisecond)
	assert.Equal(t, "wipefreespace:/dev/sda1: \n*** \n", text.String())
	assert.Equal(t, 3, b.stage.Value())
	assert.Equal(t, 1, b.fs.Value())
	assert.Equal(t, 0, b.total.Value())

	_, err = buf.Write([]byte("wipefreespace:/dev/sdb1: \n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return label.String() == "/dev/sdb1" }, waitFor, time.Millisecond)
	assert.Equal(t, 0, b.stage.Value())
	assert.Equal(t, 0, b.fs.Value())
	assert.Equal(t, 50, b.total.Value())
	assert.Zero(t, rec.count())
}

func TestPumpPublishesOncePerRead(t *testing.T) {
	buf := NewBuffer()
	text := &progress.Text{}
	p := New(Config{Source: buf, Text: text, Interval: testInterval, Encoding: unicode.UTF8})
	p.Start()
	defer p.Stop()

	_, _ = buf.Write([]byte("hello\n"))
	require.Eventually(t, func() bool { return text.Sets() == 1 }, waitFor, time.Millisecond)

	// Quiet polls publish nothing.
	time.Sleep(10 * testInterval)
	assert.Equal(t, 1, text.Sets())
}

func TestPumpWithoutIndicatorsOnlyPublishesText(t *testing.T) {
	buf := NewBuffer()
	text := &progress.Text{}
	p := New(Config{Source: buf, Text: text, Interval: testInterval, Encoding: unicode.UTF8})
	p.Start()
	defer p.Stop()

	_, _ = buf.Write([]byte("wipefreespace:/dev/sda1: error: device busy\n"))
	require.Eventually(t, func() bool { return text.String() != "" }, waitFor, time.Millisecond)
	assert.Nil(t, p.cfg.Label)
	assert.Contains(t, text.String(), "device busy")
}

func TestPumpSplitMultibyte(t *testing.T) {
	buf := NewBuffer()
	text := &progress.Text{}
	rec := &errorRecorder{}
	p := New(Config{Source: buf, Text: text, Interval: testInterval, Encoding: unicode.UTF8, OnError: rec.handle})
	p.Start()
	defer p.Stop()

	msg := []byte("zażółć gęślą\n")
	// Cut inside the two-byte "ż".
	_, _ = buf.Write(msg[:3])
	require.Eventually(t, func() bool { return text.String() == "za" }, waitFor, time.Millisecond)

	_, _ = buf.Write(msg[3:])
	require.Eventually(t, func() bool { return text.String() == string(msg) }, waitFor, time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestPumpFlushesPartialCharacterAtEOF(t *testing.T) {
	buf := NewBuffer()
	text := &progress.Text{}
	p := New(Config{Source: buf, Text: text, Interval: testInterval, Encoding: unicode.UTF8})
	p.Start()
	defer p.Stop()

	// The stream ends inside the three-byte "€".
	_, _ = buf.Write([]byte("done\n\xe2\x82"))
	require.NoError(t, buf.Close())

	require.Eventually(t, func() bool { return text.Sets() == 2 }, waitFor, time.Millisecond)
	assert.True(t, p.Ended())
	assert.True(t, strings.HasPrefix(text.String(), "done\n�"), "got %q", text.String())

	// The tail is emitted once.
	time.Sleep(10 * testInterval)
	assert.Equal(t, 2, text.Sets())
}

func TestPumpCleanEOFPublishesNothingMore(t *testing.T) {
	buf := NewBuffer()
	text := &progress.Text{}
	p := New(Config{Source: buf, Text: text, Interval: testInterval, Encoding: unicode.UTF8})
	p.Start()
	defer p.Stop()

	_, _ = buf.Write([]byte("done\n"))
	require.NoError(t, buf.Close())
	require.Eventually(t, p.Ended, waitFor, time.Millisecond)

	time.Sleep(10 * testInterval)
	assert.Equal(t, 1, text.Sets())
	assert.Equal(t, "done\n", text.String())
}

func TestPumpLabelWithoutIndicators(t *testing.T) {
	buf := NewBuffer()
	text, label := &progress.Text{}, &progress.Text{}
	p := New(Config{Source: buf, Text: text, Label: label, Interval: testInterval, Encoding: unicode.UTF8})
	p.Start()
	defer p.Stop()

	_, _ = buf.Write([]byte("wipefreespace:/dev/sda1: \n*** \n"))
	require.Eventually(t, func() bool { return label.String() == "/dev/sda1" }, waitFor, time.Millisecond)

	_, _ = buf.Write([]byte("wipefreespace:/dev/sdb1: \n"))
	require.Eventually(t, func() bool { return label.String() == "/dev/sdb1" }, waitFor, time.Millisecond)
}

func TestPumpDefaultsToLocaleCharset(t *testing.T) {
	t.Setenv("LC_ALL", "pl_PL.ISO-8859-2")
	buf := NewBuffer()
	text := &progress.Text{}
	p := New(Config{Source: buf, Text: text, Interval: testInterval})
	p.Start()
	defer p.Stop()

	// 0xBF is "ż" in ISO-8859-2.
	_, _ = buf.Write([]byte("\xbfaba\n"))
	require.Eventually(t, func() bool { return text.String() == "żaba\n" }, waitFor, time.Millisecond)
}

type panickyText struct {
	progress.Text
	mu     sync.Mutex
	panics int
}

func (p *panickyText) SetText(s string) {
	p.mu.Lock()
	first := p.panics == 0
	p.panics++
	p.mu.Unlock()
	if first {
		panic("display went away")
	}
	p.Text.SetText(s)
}

func TestPumpRecoversFromPanics(t *testing.T) {
	buf := NewBuffer()
	text := &panickyText{}
	rec := &errorRecorder{}
	p := New(Config{Source: buf, Text: text, Interval: testInterval, Encoding: unicode.UTF8, OnError: rec.handle})
	p.Start()
	defer p.Stop()

	_, _ = buf.Write([]byte("first\n"))
	require.Eventually(t, func() bool { return rec.count() == 1 }, waitFor, time.Millisecond)

	_, _ = buf.Write([]byte("second\n"))
	require.Eventually(t, func() bool { return text.String() == "first\nsecond\n" }, waitFor, time.Millisecond)
	assert.True(t, p.Running())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Contains(t, rec.errs[0].context, "pump cycle")
	assert.EqualError(t, rec.errs[0].err, "display went away")
}

type failingSource struct{}

func (failingSource) Read([]byte) (int, error) { return 0, errors.New("read failed") }
func (failingSource) Available() (int, error)  { return 3, nil }

func TestPumpSurvivesReadErrors(t *testing.T) {
	text := &progress.Text{}
	rec := &errorRecorder{}
	p := New(Config{Source: failingSource{}, Text: text, Interval: testInterval, OnError: rec.handle})
	p.Start()
	time.Sleep(10 * testInterval)
	assert.True(t, p.Running())
	p.Stop()
	<-p.Done()

	assert.Zero(t, text.Sets())
	assert.Zero(t, rec.count())
}

func TestPumpRestartBeginsNewTranscript(t *testing.T) {
	buf := NewBuffer()
	text := &progress.Text{}
	p := New(Config{Source: buf, Text: text, Interval: testInterval, Encoding: unicode.UTF8})

	p.Start()
	_, _ = buf.Write([]byte("one\n"))
	require.Eventually(t, func() bool { return text.String() == "one\n" }, waitFor, time.Millisecond)
	p.Stop()
	<-p.Done()

	_, _ = buf.Write([]byte("two\n"))
	p.Start()
	defer p.Stop()
	require.Eventually(t, func() bool { return text.String() == "two\n" }, waitFor, time.Millisecond)
}

func TestNewPanicsOnMissingRequired(t *testing.T) {
	assert.Panics(t, func() { New(Config{Text: &progress.Text{}}) })
	assert.Panics(t, func() { New(Config{Source: NewBuffer()}) })
}
