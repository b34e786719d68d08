// Package format renders sizes for terminal output.
package format

import "strconv"

var units = []string{"KB", "MB", "GB", "TB", "PB", "EB"}

// HumanizeBytes converts a byte count into a human-readable string using
// binary multiples (e.g., "1.5 GB").
func HumanizeBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatUint(b, 10) + " B"
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit && exp < len(units)-1; n /= unit {
		div *= unit
		exp++
	}
	var buf [24]byte
	s := strconv.AppendFloat(buf[:0], float64(b)/float64(div), 'f', 1, 64)
	return string(s) + " " + units[exp]
}
