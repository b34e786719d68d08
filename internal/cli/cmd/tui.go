package cmd

import (
	"github.com/spf13/cobra"
)

func newTuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tui [filesystems...]",
		Short:         "Force the interactive progress view",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PreRunE:       runPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Force TUI; if stdout is not a terminal, bubbletea reports the error.
			return runExecute(cmd, args, runMode{ForceTUI: true})
		},
	}
	bindRunFlags(cmd.Flags())
	return cmd
}
