package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/brainfuck/vm"
)

var (
	resumeEOF   string
	resumeFlush bool
	resumeSteps uint64
	resumeInput string
)

var resumeCmd = &cobra.Command{
	Use:   "resume SNAPSHOT",
	Short: "Resume a snapshotted machine",
	Long: `Load SNAPSHOT and run the machine to completion.

Tape, pointer, instruction position and source all come from the
snapshot. Fresh streams are wired in: stdout for output, and stdin or
--input for , reads. The snapshot's EOF policy and flush mode apply
unless overridden here.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
	resumeCmd.Flags().StringVar(&resumeEOF, "eof", "zero", "override the snapshot's EOF policy: zero or halt")
	resumeCmd.Flags().BoolVar(&resumeFlush, "flush", true, "override the snapshot's flush mode")
	resumeCmd.Flags().Uint64Var(&resumeSteps, "steps", 0, "step budget, 0 means unlimited")
	resumeCmd.Flags().StringVar(&resumeInput, "input", "", "serve , reads from this file instead of stdin")
}

func runResume(cmd *cobra.Command, args []string) error {
	var opts []vm.Option
	if cmd.Flags().Changed("eof") {
		policy, err := vm.ParseEOFPolicy(resumeEOF)
		if err != nil {
			return usageErr(err)
		}
		opts = append(opts, vm.WithEOFPolicy(policy))
	}
	if cmd.Flags().Changed("flush") {
		opts = append(opts, vm.WithFlush(resumeFlush))
	}
	if cmd.Flags().Changed("steps") {
		opts = append(opts, vm.WithStepBudget(resumeSteps))
	}

	in, closeIn, err := openInput(resumeInput)
	if err != nil {
		return err
	}
	defer closeIn()

	out := bufio.NewWriter(os.Stdout)
	machine, err := vm.OpenSnapshot(args[0], in, out, opts...)
	if err != nil {
		return err
	}

	runErr := runMachine(machine)
	if err := out.Flush(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}
	fmt.Println()
	return nil
}
