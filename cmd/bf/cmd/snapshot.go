package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/brainfuck/program"
	"github.com/chazu/brainfuck/vm"
)

var (
	snapshotSteps uint64
	snapshotOut   string
	snapshotInput string
	snapshotTape  int
	snapshotEOF   string
	snapshotFlush bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot FILE",
	Short: "Run part of a program and save the machine",
	Long: `Run FILE for at most --steps machine steps, then save the paused
machine to a snapshot file that bf resume can pick up later.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().Uint64Var(&snapshotSteps, "steps", 0, "step budget before the snapshot is taken")
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "", "snapshot file (default FILE with a .bfsnap extension)")
	snapshotCmd.Flags().StringVar(&snapshotInput, "input", "", "serve , reads from this file instead of stdin")
	snapshotCmd.Flags().IntVarP(&snapshotTape, "tape-length", "t", vm.DefaultTapeLength, "number of tape cells")
	snapshotCmd.Flags().StringVar(&snapshotEOF, "eof", "zero", "EOF policy for , reads: zero or halt")
	snapshotCmd.Flags().BoolVar(&snapshotFlush, "flush", true, "flush output after every write")
	snapshotCmd.MarkFlagRequired("steps")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	prog, err := program.Load(args[0])
	if err != nil {
		return err
	}
	policy, err := vm.ParseEOFPolicy(snapshotEOF)
	if err != nil {
		return usageErr(err)
	}

	in, closeIn, err := openInput(snapshotInput)
	if err != nil {
		return err
	}
	defer closeIn()

	out := bufio.NewWriter(os.Stdout)
	machine, err := vm.New(prog, in, out,
		vm.WithTapeLength(snapshotTape),
		vm.WithEOFPolicy(policy),
		vm.WithFlush(snapshotFlush),
		vm.WithStepBudget(snapshotSteps),
	)
	if err != nil {
		return err
	}

	runErr := runMachine(machine)
	if runErr != nil && !errors.Is(runErr, vm.ErrStepBudget) {
		out.Flush()
		return runErr
	}
	if err := out.Flush(); err != nil {
		return err
	}

	dest := snapshotDest(args[0], snapshotOut)
	if err := machine.SaveSnapshot(dest); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved %s after %d steps\n", dest, machine.Steps())
	return nil
}

// snapshotDest picks the snapshot file: the -o flag when given, else
// the program path with a .bfsnap extension.
func snapshotDest(progPath, out string) string {
	if out != "" {
		return out
	}
	return strings.TrimSuffix(progPath, ".bf") + ".bfsnap"
}
