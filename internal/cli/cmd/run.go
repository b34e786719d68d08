package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"wfstui/internal/config"
	"wfstui/internal/logging"
	"wfstui/internal/model"
	"wfstui/internal/mounts"
	"wfstui/internal/progress"
	"wfstui/internal/ui"
	"wfstui/internal/util"
	"wfstui/internal/util/deps"
	"wfstui/internal/wipe"
)

type runMode struct {
	ForceTUI   bool
	DryRunOnly bool
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "run [filesystems...]",
		Short:         "Wipe the free space of the given filesystems",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PreRunE:       runPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, args, runMode{})
		},
	}
	bindRunFlags(cmd.Flags())
	return cmd
}

type ctxKey string

const runInputsKey ctxKey = "runInputs"

func runPreRun(cmd *cobra.Command, args []string) error {
	opts, err := assembleRunInputs(cmd, args)
	if err != nil {
		return err
	}
	cmd.SetContext(context.WithValue(cmd.Context(), runInputsKey, opts))
	return nil
}

// assembleRunInputs builds the run options. Later sources win: defaults,
// config file and environment, the --conf profile, then flags given on the
// command line. Positional filesystems are added to the profile's list.
func assembleRunInputs(cmd *cobra.Command, args []string) (model.Options, error) {
	flags := cmd.Flags()
	opts := model.DefaultOptions()

	if p := viper.GetString("wfs_path"); p != "" && !flags.Changed("wfs-path") {
		opts.WfsPath = p
	}

	if conf, _ := flags.GetString("conf"); conf != "" {
		var err error
		opts, err = config.ReadFile(conf, opts, logging.HandleError)
		if err != nil {
			return opts, &ExitError{Code: ExitConfigError, Err: err}
		}
		logging.Debug().Str("profile", conf).Msg("profile loaded")
	}

	applyRunFlags(flags, &opts)
	if flags.Changed("wfs-path") {
		opts.WfsPath, _ = flags.GetString("wfs-path")
	}
	opts.Verbose = viper.GetBool("verbose")
	opts.NoUI = viper.GetBool("no_ui")

	if err := validateOptions(opts); err != nil {
		return opts, &ExitError{Code: ExitCLIError, Err: err}
	}
	return opts.WithFilesystems(args...), nil
}

// applyRunFlags copies explicitly set run flags into opts.
func applyRunFlags(flags *pflag.FlagSet, opts *model.Options) {
	bools := map[string]*bool{
		"all-zeros":           &opts.AllZeros,
		"force":               &opts.Force,
		"last-zero":           &opts.LastZero,
		"nopart":              &opts.NoPart,
		"nounrm":              &opts.NoUnrm,
		"nowfs":               &opts.NoWfs,
		"no-wipe-zero-blocks": &opts.NoWipeZeroBlocks,
		"use-dedicated":       &opts.UseDedicated,
		"use-ioctl":           &opts.UseIoctl,
	}
	for name, dst := range bools {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}
	if flags.Changed("blocksize") {
		opts.BlockSize, _ = flags.GetInt("blocksize")
	}
	if flags.Changed("iterations") {
		opts.Iterations, _ = flags.GetInt("iterations")
	}
	if flags.Changed("superblock") {
		opts.SuperblockOffset, _ = flags.GetInt64("superblock")
	}
	if flags.Changed("method") {
		opts.Method, _ = flags.GetString("method")
	}
	if flags.Changed("order") {
		opts.Order, _ = flags.GetString("order")
	}
}

func validateOptions(opts model.Options) error {
	if opts.BlockSize == 0 || opts.BlockSize < model.Unset {
		return fmt.Errorf("invalid --blocksize: %d", opts.BlockSize)
	}
	if opts.Iterations == 0 || opts.Iterations < model.Unset {
		return fmt.Errorf("invalid --iterations: %d", opts.Iterations)
	}
	if opts.SuperblockOffset < model.Unset {
		return fmt.Errorf("invalid --superblock: %d", opts.SuperblockOffset)
	}
	return nil
}

func inputsFrom(cmd *cobra.Command, args []string) (model.Options, error) {
	if v, ok := cmd.Context().Value(runInputsKey).(model.Options); ok {
		return v, nil
	}
	return assembleRunInputs(cmd, args)
}

func runExecute(cmd *cobra.Command, args []string, mode runMode) error {
	opts, err := inputsFrom(cmd, args)
	if err != nil {
		return err
	}
	if len(opts.Filesystems) == 0 {
		return &ExitError{Code: ExitCLIError, Err: errors.New("no filesystems given; pass them as arguments or in a --conf profile")}
	}

	if mode.DryRunOnly {
		printPlan(cmd.OutOrStdout(), opts)
		return nil
	}

	bin, err := deps.FindWipeFreeSpace(opts.WfsPath)
	if err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}
	warnWritable(cmd.Context(), opts.Filesystems)

	var res progress.Result
	useTUI := mode.ForceTUI || (!opts.NoUI && isTerminal())
	if useTUI {
		logging.SetInteractive(true)
		res, err = ui.Run(cmd.Context(), opts, wipe.WithBinary(bin))
		logging.SetInteractive(false)
		if err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
	} else {
		svc := wipe.NewService(
			wipe.WithBinary(bin),
			wipe.WithSinks(plainSinks(cmd.OutOrStdout(), cmd.ErrOrStderr())),
		)
		logging.Info().Str("command", util.ShellQuote(svc.Command(opts))).Msg("starting wipe")
		res = svc.Run(cmd.Context(), opts)
	}
	return wipeResult(res)
}

func wipeResult(res progress.Result) error {
	if res.Err == nil {
		logging.Info().Dur("elapsed", res.Duration).Msg("wipe completed")
		return nil
	}
	if errors.Is(res.Err, context.Canceled) {
		return &ExitError{Code: ExitWipeError, Err: errors.New("wipe interrupted")}
	}
	return &ExitError{Code: ExitWipeError, Err: fmt.Errorf("wipe failed: %w", res.Err)}
}

// warnWritable logs targets that are mounted read-write; the tool may refuse
// them or leave data in flight unwiped.
func warnWritable(ctx context.Context, targets []string) {
	ms, err := mounts.List(ctx, true)
	if err != nil {
		logging.Debug().Err(err).Msg("cannot list mounts")
		return
	}
	for _, m := range mounts.Writable(ms, targets) {
		logging.Warn().
			Str("device", m.Device).
			Str("mountpoint", m.Mountpoint).
			Msg("filesystem is mounted read-write; consider unmounting it first")
	}
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// printPlan outputs the command a run would execute without starting it.
func printPlan(w io.Writer, opts model.Options) {
	path, args := wipe.NewService().Command(opts)
	fmt.Fprintln(w, "Plan:")
	fmt.Fprintf(w, "- Binary:         %s\n", path)
	for _, fs := range opts.Filesystems {
		fmt.Fprintf(w, "- Filesystem:     %s\n", fs)
	}
	fmt.Fprintf(w, "- Stages per fs:  %d\n", opts.Stages())
	fmt.Fprintf(w, "- Command:        %s\n", util.ShellQuote(path, args))
}
