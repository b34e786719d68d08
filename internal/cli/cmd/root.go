package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"wfstui/internal/config"
	"wfstui/internal/dirs"
	"wfstui/internal/logging"
)

const (
	ExitOK          = 0
	ExitCLIError    = 1
	ExitMissingDep  = 2
	ExitWipeError   = 3
	ExitConfigError = 4
)

// Version is set at build time with -ldflags "-X wfstui/internal/cli/cmd.Version=...".
var Version = "dev"

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wfstui [filesystems...]",
		Short: "Terminal front-end for wipefreespace",
		Long: "wfstui runs wipefreespace on one or more filesystems and follows its progress: " +
			"the current filesystem, the current wiping stage and the overall run.",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.ArbitraryArgs,
		PersistentPreRunE: setupRun,
		PreRunE:           runPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Same behavior as `wfstui run`.
			return runExecute(cmd, args, runMode{})
		},
	}

	// Persistent flags available to all subcommands
	root.PersistentFlags().String("wfs-path", "", "Path to the wipefreespace binary (default: look up in PATH)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Debug logging and --verbose for the tool")
	root.PersistentFlags().Bool("log-file", false, "Also log to a rotating file under the state directory")
	root.PersistentFlags().Bool("no-ui", false, "Disable TUI; use plain textual output")

	// Also bind run-specific flags on root, so `wfstui /dev/sdX` works.
	bindRunFlags(root.Flags())

	root.AddCommand(newRunCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newLicenseCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindRunFlags(fs *pflag.FlagSet) {
	fs.String("conf", "", "Read options from a saved profile before applying flags")
	fs.Bool("all-zeros", false, "Use only zeros for wiping")
	fs.Int64P("superblock", "b", -1, "Superblock offset on the given filesystems")
	fs.IntP("blocksize", "B", -1, "Block size on the given filesystems")
	fs.BoolP("force", "f", false, "Wipe even if the filesystem has errors")
	fs.IntP("iterations", "n", -1, "Number of wiping passes")
	fs.Bool("last-zero", false, "Perform an additional wiping with zeros")
	fs.String("method", "", "Wiping method: gutmann, random, schneier, dod")
	fs.Bool("nopart", false, "Do not wipe the partially used blocks")
	fs.Bool("nounrm", false, "Do not wipe the undelete information")
	fs.Bool("nowfs", false, "Do not wipe the free space")
	fs.Bool("no-wipe-zero-blocks", false, "Do not wipe blocks that are already all zeros")
	fs.String("order", "", "Wiping order: mode, block, or blocks with the wipe mode")
	fs.Bool("use-dedicated", false, "Use the filesystem's dedicated wiping support")
	fs.Bool("use-ioctl", false, "Disable device caching during work")
}

// setupRun loads configuration and starts logging before any command runs.
func setupRun(cmd *cobra.Command, _ []string) error {
	if err := config.Init(cmd.Root()); err != nil {
		return &ExitError{Code: ExitConfigError, Err: fmt.Errorf("reading config: %w", err)}
	}

	debug := viper.GetBool("verbose")
	if !viper.GetBool("log_file") {
		logging.Init(debug)
		return nil
	}
	logDir, err := dirs.LogsDir()
	if err != nil {
		logging.Init(debug)
		logging.Warn().Err(err).Msg("log directory unavailable, logging to stderr only")
		return nil
	}
	if err := logging.InitWithFile(debug, logging.FileConfig{Dir: logDir}); err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	logging.Debug().Str("file", logging.FilePath()).Msg("file logging enabled")
	return nil
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}
