package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"wfstui/internal/logging"
)

// DefaultInterruptGrace is how long a cancelled child gets to exit after
// SIGINT before it is killed.
const DefaultInterruptGrace = 5 * time.Second

// CmdSpec describes a subprocess to start.
type CmdSpec struct {
	Path    string   // Binary path
	Args    []string // Arguments
	Env     []string // Optional environment variables (KEY=VALUE). If nil, inherit.
	Dir     string   // Working directory; empty = inherit.
	Verbose bool     // Log the command line before starting

	// Destinations for the child's output. exec copies into them until the
	// child closes its end, and Wait returns only after the copy is done.
	Stdout io.Writer
	Stderr io.Writer
}

// Process is a started subprocess.
type Process interface {
	// Wait blocks until the process exits and its output has been copied.
	// code is -1 when the process did not exit normally.
	Wait() (code int, err error)
}

// CmdRunner starts subprocesses. Tests substitute a fake.
type CmdRunner interface {
	Start(ctx context.Context, spec CmdSpec) (Process, error)
}

type execRunner struct {
	grace time.Duration
}

// NewDefaultRunner returns a CmdRunner backed by os/exec. Cancelling the
// context sends SIGINT and kills the child after DefaultInterruptGrace.
func NewDefaultRunner() CmdRunner {
	return execRunner{grace: DefaultInterruptGrace}
}

func (r execRunner) Start(ctx context.Context, spec CmdSpec) (Process, error) {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.grace

	if spec.Verbose {
		logging.Debug().Str("cmd", ShellQuote(spec.Path, spec.Args)).Msg("starting subprocess")
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Path, err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return code, fmt.Errorf("command failed (exit %d): %w", code, err)
}

// ShellQuote returns a printable shell-like command string for display.
func ShellQuote(path string, args []string) string {
	b := &strings.Builder{}
	b.WriteString(quote(path))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quote(a))
	}
	return b.String()
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	// Simple quoting: wrap in single quotes and escape existing single quotes.
	if strings.ContainsAny(s, " \t\n\"'\\$`(){}[]*&;|<>?!") {
		return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
	}
	return s
}
