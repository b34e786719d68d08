// Package wfs understands the wipefreespace tool: how to invoke it and how to
// read the progress protocol it prints in verbose mode.
package wfs

import (
	"strconv"

	"wfstui/internal/model"
)

// BuildArgs constructs wipefreespace arguments (without the binary itself).
// Negative numeric options are left out. --verbose is always added because
// progress tracking depends on the verbose protocol. Filesystems come last.
func BuildArgs(opts model.Options) []string {
	args := make([]string, 0, 20+len(opts.Filesystems))

	if opts.BlockSize >= 0 {
		args = append(args, "-B", strconv.Itoa(opts.BlockSize))
	}
	if opts.Force {
		args = append(args, "--force")
	}
	if opts.UseIoctl {
		args = append(args, "--use-ioctl")
	}
	if opts.Iterations >= 0 {
		args = append(args, "-n", strconv.Itoa(opts.Iterations))
	}
	if opts.LastZero {
		args = append(args, "--last-zero")
	}
	if opts.NoPart {
		args = append(args, "--nopart")
	}
	if opts.NoUnrm {
		args = append(args, "--nounrm")
	}
	if opts.NoWfs {
		args = append(args, "--nowfs")
	}
	if opts.AllZeros {
		args = append(args, "--all-zeros")
	}
	if opts.SuperblockOffset >= 0 {
		args = append(args, "-b", strconv.FormatInt(opts.SuperblockOffset, 10))
	}
	if opts.Method != "" {
		args = append(args, "--method", opts.Method)
	}
	if opts.NoWipeZeroBlocks {
		args = append(args, "--no-wipe-zero-blocks")
	}
	if opts.UseDedicated {
		args = append(args, "--use-dedicated")
	}
	if opts.Order != "" {
		args = append(args, "--order", opts.Order)
	}

	args = append(args, "--verbose")
	args = append(args, opts.Filesystems...)
	return args
}
