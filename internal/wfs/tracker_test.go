package wfs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPercentTracker(totalFS, stages int) *Tracker {
	return NewTracker(totalFS, stages, Percent(), Percent(), Percent())
}

func stageLine(marker byte, percent int) string {
	return strings.Repeat(string(marker), percent) + "\n"
}

func TestTrackerNoMarkers(t *testing.T) {
	tr := newPercentTracker(2, 3)

	for _, text := range []string{"", "starting\n", "***\n---\n"} {
		snap := tr.Update(text)
		assert.False(t, snap.Active)
		assert.Equal(t, "", snap.Filesystem)
		assert.Equal(t, Bars{}, snap.Bars)
	}
}

func TestTrackerEndToEnd(t *testing.T) {
	tr := newPercentTracker(2, 3)

	text := "wipefreespace:/dev/sda1: \n*** \n"
	snap := tr.Update(text)
	require.True(t, snap.Active)
	assert.Equal(t, "/dev/sda1", snap.Filesystem)
	assert.Equal(t, 3, snap.Bars.Stage)
	assert.Equal(t, 1, snap.Bars.Filesystem)
	assert.Equal(t, 0, snap.Bars.Total)

	text += "wipefreespace:/dev/sdb1: \n"
	snap = tr.Update(text)
	assert.Equal(t, "/dev/sdb1", snap.Filesystem)
	assert.Equal(t, 0, snap.Bars.Stage)
	assert.Equal(t, 0, snap.Bars.Filesystem)
	assert.Equal(t, 50, snap.Bars.Total)
}

func TestTrackerStageCompleteForcesMax(t *testing.T) {
	tr := NewTracker(1, 3, Range{Min: 0, Max: 1000}, Percent(), Percent())

	snap := tr.Update("wipefreespace:/dev/sda1: x\n" + stageLine('*', 100))
	assert.Equal(t, 1000, snap.Bars.Stage)
}

func TestTrackerFirstIncompleteStageWins(t *testing.T) {
	tr := newPercentTracker(1, 3)

	text := "wipefreespace:/dev/sda1: x\n" + stageLine('*', 100) + stageLine('-', 40)
	snap := tr.Update(text)
	assert.Equal(t, 40, snap.Bars.Stage)
	assert.Equal(t, 46, snap.Bars.Filesystem) // 140 of 300
}

func TestTrackerQuietReadKeepsStage(t *testing.T) {
	tr := newPercentTracker(1, 3)

	text := "wipefreespace:/dev/sda1: x\n" + stageLine('*', 30)
	require.Equal(t, 30, tr.Update(text).Bars.Stage)

	text += "some unrelated chatter\n"
	assert.Equal(t, 30, tr.Update(text).Bars.Stage)
}

func TestTrackerTransitionResets(t *testing.T) {
	tr := newPercentTracker(4, 1)

	text := "wipefreespace:A: x\n" + stageLine('=', 50)
	before := tr.Update(text)
	require.Equal(t, 50, before.Bars.Stage)
	require.Equal(t, 50, before.Bars.Filesystem)
	require.Equal(t, 12, before.Bars.Total)

	text += "wipefreespace:B: x\n"
	after := tr.Update(text)
	assert.Equal(t, "B", after.Filesystem)
	assert.Equal(t, 0, after.Bars.Stage)
	assert.Equal(t, 0, after.Bars.Filesystem)
	assert.Equal(t, 25, after.Bars.Total)
	assert.Greater(t, after.Bars.Total, before.Bars.Total)
}

func TestTrackerCoercesCounts(t *testing.T) {
	tr := newPercentTracker(0, 0)

	snap := tr.Update("wipefreespace:A: x\n" + stageLine('*', 100) + stageLine('-', 100) + stageLine('=', 100))
	assert.Equal(t, 100, snap.Bars.Filesystem)
	assert.Equal(t, 100, snap.Bars.Total)
}

func TestTrackerBoundaries(t *testing.T) {
	full := stageLine('*', 100) + stageLine('-', 100) + stageLine('=', 100)

	t.Run("single filesystem run", func(t *testing.T) {
		tr := newPercentTracker(1, 3)
		snap := tr.Update("wipefreespace:A: x\n" + full)
		assert.Equal(t, 100, snap.Bars.Total)
		assert.Equal(t, 100, snap.Bars.Filesystem)
		assert.Equal(t, 100, snap.Bars.Stage)
	})

	t.Run("first filesystem in progress", func(t *testing.T) {
		tr := newPercentTracker(3, 3)
		snap := tr.Update("wipefreespace:A: x\n" + stageLine('*', 99))
		assert.Equal(t, 33, snap.Bars.Filesystem)
		assert.Equal(t, 11, snap.Bars.Total)
	})

	t.Run("last filesystem complete", func(t *testing.T) {
		tr := newPercentTracker(3, 3)
		text := "wipefreespace:A: x\n" + full + "wipefreespace:B: x\n" + full + "wipefreespace:C: x\n" + full
		snap := tr.Update(text)
		assert.Equal(t, 100, snap.Bars.Total)
	})

	t.Run("more transitions than filesystems stays in range", func(t *testing.T) {
		tr := newPercentTracker(1, 3)
		snap := tr.Update("wipefreespace:A: x\nwipefreespace:B: x\nwipefreespace:C: x\n" + full)
		assert.Equal(t, 100, snap.Bars.Total)
		assert.GreaterOrEqual(t, snap.Bars.Filesystem, 0)
	})

	t.Run("fewer configured stages than printed", func(t *testing.T) {
		tr := newPercentTracker(2, 1)
		snap := tr.Update("wipefreespace:A: x\n" + full)
		assert.Equal(t, 100, snap.Bars.Filesystem)
		assert.Equal(t, 50, snap.Bars.Total)
	})
}

func TestTrackerNonZeroRangeMinimum(t *testing.T) {
	r := Range{Min: 10, Max: 110}
	tr := NewTracker(2, 3, r, r, r)

	assert.Equal(t, Bars{Stage: 10, Filesystem: 10, Total: 10}, tr.Snapshot().Bars)

	snap := tr.Update("wipefreespace:A: x\n" + stageLine('*', 60))
	assert.Equal(t, 70, snap.Bars.Stage)
	assert.Equal(t, 30, snap.Bars.Filesystem)
	assert.Equal(t, 20, snap.Bars.Total)
}

func TestTrackerTotalIsMonotonic(t *testing.T) {
	var b strings.Builder
	for _, fs := range []string{"/dev/sda1", "/dev/sda2", "/dev/sdb1"} {
		b.WriteString("wipefreespace:" + fs + ": Wiping\n")
		// The tool grows one line per stage, one marker character at a time.
		for _, m := range []byte{'*', '-', '='} {
			b.WriteString(stageLine(m, 100))
		}
	}
	full := b.String()

	tr := newPercentTracker(3, 3)
	prev := -1
	// Feed the transcript in uneven chunks to mimic arbitrary read sizes.
	for end := 0; end <= len(full); end += 13 {
		snap := tr.Update(full[:end])
		require.GreaterOrEqual(t, snap.Bars.Total, prev, "total regressed at offset %d", end)
		require.LessOrEqual(t, snap.Bars.Total, 100)
		prev = snap.Bars.Total
	}
	assert.Equal(t, 100, tr.Update(full).Bars.Total)
}
