package wfs

// Range is the value range of one progress indicator.
type Range struct {
	Min, Max int
}

// Percent returns the 0..100 range.
func Percent() Range { return Range{Min: 0, Max: 100} }

// Span is the width of the range, never negative.
func (r Range) Span() int {
	if r.Max < r.Min {
		return 0
	}
	return r.Max - r.Min
}

// At returns the value offset from Min, clamped into the range.
func (r Range) At(offset int) int {
	v := r.Min + offset
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Bars holds the three derived indicator values.
type Bars struct {
	Stage      int
	Filesystem int
	Total      int
}

// Snapshot is the tracker output after one update.
type Snapshot struct {
	Filesystem string // current filesystem, "" before the first marker
	Bars       Bars
	Active     bool // a marker has been seen
}

// Tracker turns a growing transcript into stage, per-filesystem and total
// progress. It keeps the last filesystem name and the current bar values
// between updates. A Tracker is not safe for concurrent use.
type Tracker struct {
	totalFS int
	stages  int

	stage, fs, total Range

	last string
	bars Bars
}

// NewTracker returns a tracker for a run over totalFS filesystems with the
// given number of stages each. totalFS <= 0 is treated as 1 and stages <= 0
// as 3.
func NewTracker(totalFS, stages int, stage, fs, total Range) *Tracker {
	if totalFS <= 0 {
		totalFS = 1
	}
	if stages <= 0 {
		stages = 3
	}
	return &Tracker{
		totalFS: totalFS,
		stages:  stages,
		stage:   stage,
		fs:      fs,
		total:   total,
		bars:    Bars{Stage: stage.Min, Filesystem: fs.Min, Total: total.Min},
	}
}

// Update rescans the whole transcript and recomputes the bars.
func (t *Tracker) Update(transcript string) Snapshot {
	tr := Scan(transcript)
	current, transitions := tr.Markers()
	if current == "" {
		return t.Snapshot()
	}

	if current != t.last && t.last != "" {
		// The previous filesystem is done. Start its successor from zero and
		// credit whole filesystems only.
		t.bars.Stage = t.stage.Min
		t.bars.Filesystem = t.fs.Min
		t.bars.Total = t.total.At((transitions - 1) * t.total.Span() / t.totalFS)
	}
	t.last = current

	st := tr.Stages(t.last)
	if v, ok := stageValue(st, t.stage); ok {
		t.bars.Stage = v
	}

	sum := st[0].Percent + st[1].Percent + st[2].Percent
	t.bars.Filesystem = t.fs.At(sum * t.fs.Span() / (t.stages * 100))

	t.bars.Total = t.total.At(t.totalOffset(transitions, t.bars.Filesystem-t.fs.Min))
	return t.Snapshot()
}

// Snapshot returns the current state without rescanning.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Filesystem: t.last,
		Bars:       t.bars,
		Active:     t.last != "",
	}
}

// totalOffset is completed*span/N + fsDone*span/(N*fsSpan) evaluated as one
// fraction and floored once.
func (t *Tracker) totalOffset(completed, fsDone int) int {
	span := int64(t.total.Span())
	fsSpan := int64(t.fs.Span())
	n := int64(t.totalFS)
	if fsSpan == 0 {
		return int(int64(completed) * span / n)
	}
	num := (int64(completed)*fsSpan + int64(fsDone)) * span
	return int(num / (n * fsSpan))
}

// stageValue picks the first present stage below 100%. When every present
// stage is complete the bar is full; with no stage lines there is no value.
func stageValue(st Stages, r Range) (int, bool) {
	seen := false
	for _, s := range st {
		if !s.Present {
			continue
		}
		seen = true
		if s.Percent < 100 {
			return r.At(s.Percent * r.Span() / 100), true
		}
	}
	if seen {
		return r.Max, true
	}
	return 0, false
}
