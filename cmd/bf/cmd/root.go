// Package cmd implements the bf command line interface.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/brainfuck/program"
)

// Exit codes. Structural failures cover bad program text and bad usage;
// everything that fails while running exits 1.
const (
	exitOK         = 0
	exitRuntime    = 1
	exitStructural = 2
)

// codeError pins a specific exit code to an error.
type codeError struct {
	code int
	err  error
}

func (e *codeError) Error() string { return e.err.Error() }
func (e *codeError) Unwrap() error { return e.err }

func usageErr(err error) error {
	return &codeError{code: exitStructural, err: err}
}

// usageArgs wraps a cobra argument validator so its failures exit like
// other usage errors.
func usageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return usageErr(err)
		}
		return nil
	}
}

var rootCmd = &cobra.Command{
	Use:   "bf",
	Short: "Brainfuck toolchain",
	Long: `bf runs, checks, snapshots, debugs and serves Brainfuck programs.

A program is plain text: every byte except the eight instruction
characters > < + - . , [ ] is a comment, and a leading #! line is
skipped so programs can run as scripts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return usageErr(fmt.Errorf("unknown command %q", args[0]))
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bf: %v\n", err)
		return exitCodeFor(err)
	}
	return exitOK
}

// exitCodeFor maps a command error to the process exit code.
func exitCodeFor(err error) int {
	var ce *codeError
	if errors.As(err, &ce) {
		return ce.code
	}
	var serr *program.StructuralError
	if errors.As(err, &serr) {
		return exitStructural
	}
	return exitRuntime
}

func init() {
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErr(err)
	})
}
