package wfs

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MarkerPrefix starts every filesystem marker line printed by the tool.
const MarkerPrefix = "wipefreespace:"

// The name is the run between the first and second colon. The trailing
// group is either whitespace on the same line or the end of the line; the
// latter only counts when a line separator actually followed.
var markerRe = regexp.MustCompile(`^wipefreespace:([^:]+):([ \t\v\f]|$)`)

// stageMarkers maps the first character of a stage line to its stage index.
var stageMarkers = [...]byte{'*', '-', '='}

// Stage is the completion of one wiping stage for the active filesystem.
type Stage struct {
	Percent int // 0..100
	Present bool
}

// Stages holds partition slack, undelete metadata and free space, in order.
type Stages [3]Stage

// Facts is everything the parser extracts from one transcript.
type Facts struct {
	Filesystem  string // name from the last marker line, "" when none
	Transitions int    // name changes between consecutive markers
	Stages      Stages // stage lines of the segment for the requested name
}

type line struct {
	text       string
	terminated bool // a \r or \n followed this line
}

// Transcript is a transcript split into lines. Any run of \r and \n
// characters is a single separator.
type Transcript struct {
	lines []line
}

// Scan splits text into lines. It never fails.
func Scan(text string) Transcript {
	var lines []line
	start := 0
	for i := 0; i < len(text); {
		if c := text[i]; c != '\r' && c != '\n' {
			i++
			continue
		}
		lines = append(lines, line{text: text[start:i], terminated: true})
		for i < len(text) && (text[i] == '\r' || text[i] == '\n') {
			i++
		}
		start = i
	}
	if start < len(text) {
		lines = append(lines, line{text: text[start:]})
	}
	return Transcript{lines: lines}
}

// Len returns the number of lines.
func (t Transcript) Len() int { return len(t.lines) }

// Markers returns the filesystem named by the last marker line and how many
// times the name changed from one marker to the next. The first marker is
// not a transition.
func (t Transcript) Markers() (current string, transitions int) {
	for _, l := range t.lines {
		name, ok := l.marker()
		if !ok {
			continue
		}
		if current != "" && name != current {
			transitions++
		}
		current = name
	}
	return current, transitions
}

// Stages returns the stage progress found in the segment for name. The
// segment runs from the first line starting with the marker for name to the
// end of the transcript; the last line seen for each stage wins.
func (t Transcript) Stages(name string) Stages {
	var st Stages
	if name == "" {
		return st
	}

	prefix := MarkerPrefix + name + ":"
	start := -1
	for i, l := range t.lines {
		if strings.HasPrefix(l.text, prefix) {
			start = i
			break
		}
	}
	if start < 0 {
		return st
	}

	for _, l := range t.lines[start:] {
		if l.text == "" {
			continue
		}
		idx := stageIndex(l.text[0])
		if idx < 0 {
			continue
		}
		st[idx] = Stage{Percent: stagePercent(l.text), Present: true}
	}
	return st
}

// Parse scans transcript and returns its marker facts together with the
// stage progress recorded for name.
func Parse(transcript, name string) Facts {
	t := Scan(transcript)
	current, transitions := t.Markers()
	return Facts{
		Filesystem:  current,
		Transitions: transitions,
		Stages:      t.Stages(name),
	}
}

func (l line) marker() (string, bool) {
	m := markerRe.FindStringSubmatch(l.text)
	if m == nil {
		return "", false
	}
	if m[2] == "" && !l.terminated {
		// "wipefreespace:name:" with nothing after it yet; the rest of the
		// line may still be on its way.
		return "", false
	}
	return m[1], true
}

func stageIndex(c byte) int {
	for i, m := range stageMarkers {
		if c == m {
			return i
		}
	}
	return -1
}

// stagePercent is the length of the line without trailing blanks and
// control characters, capped at 100.
func stagePercent(s string) int {
	s = strings.TrimRightFunc(s, func(r rune) bool { return r <= ' ' })
	n := utf8.RuneCountInString(s)
	if n > 100 {
		// An overlong stage line fills the stage bar rather than leaving
		// it unchanged.
		return 100
	}
	return n
}
