package cmd

import (
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plan [filesystems...]",
		Short:         "Show the wipefreespace command without running it",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PreRunE:       runPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, args, runMode{DryRunOnly: true})
		},
	}
	bindRunFlags(cmd.Flags())
	return cmd
}
