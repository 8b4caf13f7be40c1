package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chazu/brainfuck/manifest"
	"github.com/chazu/brainfuck/program"
	"github.com/chazu/brainfuck/vm"
)

var (
	runTapeLength int
	runEOF        string
	runFlush      bool
	runSteps      uint64
	runInput      string
)

var runCmd = &cobra.Command{
	Use:   "run [FILE]",
	Short: "Run a Brainfuck program",
	Long: `Run a Brainfuck program to completion.

With FILE the program text is read from that file. Without FILE the
entry of the nearest bf.toml is used when one is found walking up from
the working directory; otherwise the program text is read from stdin
until EOF, and stdin keeps serving , reads afterwards.`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

// addRunFlags binds the shared execution flags. run and lib run carry
// the same set, so they share the backing variables; only one command
// executes per process.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runTapeLength, "tape-length", "t", vm.DefaultTapeLength, "number of tape cells")
	cmd.Flags().StringVar(&runEOF, "eof", "zero", "EOF policy for , reads: zero or halt")
	cmd.Flags().BoolVar(&runFlush, "flush", true, "flush output after every write")
	cmd.Flags().Uint64Var(&runSteps, "steps", 0, "step budget, 0 means unlimited")
	cmd.Flags().StringVar(&runInput, "input", "", "serve , reads from this file instead of stdin")
}

// runFlagOptions builds machine options from the execution flags. With
// all false only flags the user actually set are returned, so manifest
// settings stay in charge of the rest.
func runFlagOptions(cmd *cobra.Command, all bool) ([]vm.Option, error) {
	var opts []vm.Option
	if all || cmd.Flags().Changed("tape-length") {
		opts = append(opts, vm.WithTapeLength(runTapeLength))
	}
	if all || cmd.Flags().Changed("eof") {
		policy, err := vm.ParseEOFPolicy(runEOF)
		if err != nil {
			return nil, usageErr(err)
		}
		opts = append(opts, vm.WithEOFPolicy(policy))
	}
	if all || cmd.Flags().Changed("flush") {
		opts = append(opts, vm.WithFlush(runFlush))
	}
	if all || cmd.Flags().Changed("steps") {
		opts = append(opts, vm.WithStepBudget(runSteps))
	}
	return opts, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	prog, opts, inputPath, err := resolveRunTarget(cmd, args)
	if err != nil {
		return err
	}

	if prog.Len() == 0 {
		return nil
	}

	in, closeIn, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer closeIn()

	out := bufio.NewWriter(os.Stdout)
	machine, err := vm.New(prog, in, out, opts...)
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

// resolveRunTarget picks the program, its machine options and the input
// path: an explicit FILE argument, the nearest manifest entry, or
// program text from stdin.
func resolveRunTarget(cmd *cobra.Command, args []string) (program.Program, []vm.Option, string, error) {
	if len(args) == 1 {
		prog, err := program.Load(args[0])
		if err != nil {
			return program.Program{}, nil, "", err
		}
		opts, err := runFlagOptions(cmd, true)
		return prog, opts, runInput, err
	}

	wd, err := os.Getwd()
	if err != nil {
		return program.Program{}, nil, "", err
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		return program.Program{}, nil, "", usageErr(err)
	}

	if m == nil {
		prog, err := program.LoadReader(os.Stdin)
		if err != nil {
			return program.Program{}, nil, "", err
		}
		opts, err := runFlagOptions(cmd, true)
		return prog, opts, runInput, err
	}

	if m.EntryPath() == "" {
		return program.Program{}, nil, "", usageErr(fmt.Errorf("bf.toml in %s has no run.entry", m.Dir))
	}
	prog, err := program.Load(m.EntryPath())
	if err != nil {
		return program.Program{}, nil, "", err
	}

	opts := m.Options()
	flagOpts, err := runFlagOptions(cmd, false)
	if err != nil {
		return program.Program{}, nil, "", err
	}
	opts = append(opts, flagOpts...)

	inputPath := runInput
	if inputPath == "" {
		inputPath = m.InputPath()
	}
	return prog, opts, inputPath, nil
}

// openInput picks the stream serving , reads. An empty path means stdin.
func openInput(path string) (io.ByteReader, func() error, error) {
	if path == "" {
		return bufio.NewReader(os.Stdin), func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return bufio.NewReader(f), f.Close, nil
}

// runMachine executes m until it halts, fails, or the process receives
// SIGINT or SIGTERM.
func runMachine(m *vm.Machine) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return m.Run(ctx)
}
