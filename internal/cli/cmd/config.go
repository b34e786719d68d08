package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wfstui/internal/config"
	"wfstui/internal/logging"
	"wfstui/internal/model"
	"wfstui/internal/util"
	"wfstui/internal/wfs"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Save and inspect wipe profiles",
	}
	cmd.AddCommand(newConfigSaveCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "save <file> [filesystems...]",
		Short:         "Write the effective options to a profile",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := assembleRunInputs(cmd, args[1:])
			if err != nil {
				return err
			}
			if err := config.WriteFile(args[0], opts); err != nil {
				return &ExitError{Code: ExitConfigError, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", args[0])
			return nil
		},
	}
	bindRunFlags(cmd.Flags())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "show <file>",
		Short:         "Print the options stored in a profile",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := config.ReadFile(args[0], model.DefaultOptions(), logging.HandleError)
			if err != nil {
				return &ExitError{Code: ExitConfigError, Err: err}
			}
			printOptions(cmd, opts)
			return nil
		},
	}
}

func printOptions(cmd *cobra.Command, o model.Options) {
	w := cmd.OutOrStdout()
	num := func(n int64) string {
		if n == model.Unset {
			return "tool default"
		}
		return fmt.Sprint(n)
	}
	str := func(s string) string {
		if s == "" {
			return "tool default"
		}
		return s
	}
	fmt.Fprintf(w, "- Filesystems:    %s\n", strings.Join(o.Filesystems, ", "))
	fmt.Fprintf(w, "- Binary:         %s\n", o.Binary())
	fmt.Fprintf(w, "- Block size:     %s\n", num(int64(o.BlockSize)))
	fmt.Fprintf(w, "- Superblock:     %s\n", num(o.SuperblockOffset))
	fmt.Fprintf(w, "- Iterations:     %s\n", num(int64(o.Iterations)))
	fmt.Fprintf(w, "- Method:         %s\n", str(o.Method))
	fmt.Fprintf(w, "- Order:          %s\n", str(o.Order))
	fmt.Fprintf(w, "- Stages per fs:  %d\n", o.Stages())
	fmt.Fprintf(w, "- Command:        %s\n", util.ShellQuote(o.Binary(), wfs.BuildArgs(o)))
}
