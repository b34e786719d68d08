package model

// DefaultWfsPath is the tool name looked up in PATH when no explicit path is set.
const DefaultWfsPath = "wipefreespace"

// Unset marks a numeric option that should not be passed to the tool.
const Unset = -1

// Options holds the parameters of one wipe run as assembled from flags,
// profile files and config. It is built once and passed by value.
type Options struct {
	Filesystems []string
	WfsPath     string // Path or name of the wipefreespace binary

	BlockSize        int   // -B; Unset to omit
	SuperblockOffset int64 // -b; Unset to omit
	Iterations       int   // -n; Unset to omit

	Force    bool
	UseIoctl bool
	LastZero bool
	AllZeros bool

	// Phase switches. Each one disables a stage of the per-filesystem wipe.
	NoPart bool // partition slack
	NoUnrm bool // undelete metadata
	NoWfs  bool // free space

	Method           string // empty = tool default
	NoWipeZeroBlocks bool
	UseDedicated     bool
	Order            string // empty = tool default

	Verbose bool
	NoUI    bool
}

// DefaultOptions returns Options with every numeric value unset.
func DefaultOptions() Options {
	return Options{
		WfsPath:          DefaultWfsPath,
		BlockSize:        Unset,
		SuperblockOffset: Unset,
		Iterations:       Unset,
	}
}

// Stages returns how many wiping stages the tool runs per filesystem.
// Zero means every phase was disabled.
func (o Options) Stages() int {
	n := 3
	if o.NoPart {
		n--
	}
	if o.NoUnrm {
		n--
	}
	if o.NoWfs {
		n--
	}
	return n
}

// Binary returns the configured tool path, falling back to DefaultWfsPath.
func (o Options) Binary() string {
	if o.WfsPath == "" {
		return DefaultWfsPath
	}
	return o.WfsPath
}

// WithFilesystems returns a copy of o with fs appended to its filesystem list.
func (o Options) WithFilesystems(fs ...string) Options {
	out := make([]string, 0, len(o.Filesystems)+len(fs))
	out = append(out, o.Filesystems...)
	for _, f := range fs {
		if f != "" {
			out = append(out, f)
		}
	}
	o.Filesystems = out
	return o
}
