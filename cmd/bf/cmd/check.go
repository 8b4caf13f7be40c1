package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/brainfuck/program"
)

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Resolve programs without running them",
	Long: `Check that each FILE scans and resolves cleanly.

check prints ok for every well-formed program and the position of the
unmatched bracket otherwise.`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		if err := checkFile(path); err != nil {
			failed++
			var serr *program.StructuralError
			if errors.As(err, &serr) {
				fmt.Printf("%s:%d:%d: unmatched %q\n", path, serr.Line, serr.Column, serr.Bracket)
			} else {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			}
			continue
		}
		fmt.Printf("%s: ok\n", path)
	}
	if failed > 0 {
		return &codeError{
			code: exitStructural,
			err:  fmt.Errorf("%d of %d programs failed to resolve", failed, len(args)),
		}
	}
	return nil
}

func checkFile(path string) error {
	prog, err := program.Load(path)
	if err != nil {
		return err
	}
	_, err = program.Resolve(prog)
	return err
}
