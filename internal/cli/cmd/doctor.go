package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wfstui/internal/mounts"
	"wfstui/internal/util/deps"
	"wfstui/internal/util/format"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Locate wipefreespace and list mounted filesystems",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			bin, err := deps.FindWipeFreeSpace(viper.GetString("wfs_path"))
			if err != nil {
				return &ExitError{Code: ExitMissingDep, Err: err}
			}
			fmt.Fprintf(out, "wipefreespace: %s\n\n", bin)

			ms, err := mounts.List(cmd.Context(), false)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DEVICE\tMOUNTPOINT\tTYPE\tMODE\tFREE\tTOTAL")
			for _, m := range ms {
				mode := "rw"
				if m.ReadOnly {
					mode = "ro"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					m.Device, m.Mountpoint, m.Fstype, mode,
					format.HumanizeBytes(m.Free), format.HumanizeBytes(m.Total))
			}
			return tw.Flush()
		},
	}
}
