// Package mounts reports the mounted filesystems of the host, so targets
// can be checked before a wipe starts.
package mounts

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/shirou/gopsutil/v4/disk"
)

// Mount is one mounted filesystem.
type Mount struct {
	Device     string
	Mountpoint string
	Fstype     string
	ReadOnly   bool

	// Total and Free are zero when usage could not be read.
	Total uint64
	Free  uint64
}

// List returns every mounted filesystem, including virtual ones when all
// is true. Usage is collected best effort.
func List(ctx context.Context, all bool) ([]Mount, error) {
	partitions, err := disk.PartitionsWithContext(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("failed to get partitions: %w", err)
	}

	out := make([]Mount, 0, len(partitions))
	for _, p := range partitions {
		m := Mount{
			Device:     p.Device,
			Mountpoint: p.Mountpoint,
			Fstype:     p.Fstype,
			ReadOnly:   slices.Contains(p.Opts, "ro"),
		}
		if u, err := disk.UsageWithContext(ctx, p.Mountpoint); err == nil {
			m.Total = u.Total
			m.Free = u.Free
		}
		out = append(out, m)
	}
	return out, nil
}

// Find returns the mount whose device or mountpoint is target.
// Symlinked device names such as /dev/disk/by-uuid entries are resolved.
func Find(mounts []Mount, target string) (Mount, bool) {
	candidates := []string{filepath.Clean(target)}
	if resolved, err := filepath.EvalSymlinks(target); err == nil && resolved != candidates[0] {
		candidates = append(candidates, resolved)
	}
	for _, m := range mounts {
		for _, c := range candidates {
			if m.Device == c || m.Mountpoint == c {
				return m, true
			}
		}
	}
	return Mount{}, false
}

// Writable returns the targets that are currently mounted read-write.
func Writable(mounts []Mount, targets []string) []Mount {
	var out []Mount
	for _, t := range targets {
		if m, ok := Find(mounts, t); ok && !m.ReadOnly {
			out = append(out, m)
		}
	}
	return out
}
