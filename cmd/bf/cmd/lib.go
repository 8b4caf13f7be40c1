package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/brainfuck/program"
	"github.com/chazu/brainfuck/store"
	"github.com/chazu/brainfuck/vm"
)

var libAddName string

var libCmd = &cobra.Command{
	Use:   "lib",
	Short: "Manage the program library",
	Long: `Manage the local program library.

Programs are stored content-addressed in a SQLite database under
~/.bf/library.db (override with BF_LIBRARY_DB). Runs started with
bf lib run are recorded in the run history; plain bf run is not.`,
}

var libAddCmd = &cobra.Command{
	Use:   "add FILE",
	Short: "Add a program to the library",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  runLibAdd,
}

var libLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List library programs",
	Args:    usageArgs(cobra.NoArgs),
	RunE:    runLibLs,
}

var libRunCmd = &cobra.Command{
	Use:   "run NAME",
	Short: "Run a library program",
	Long: `Run a library program by name or digest prefix.

The run is recorded in the history with its step count and outcome.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runLibRun,
}

var libRmCmd = &cobra.Command{
	Use:     "rm NAME",
	Aliases: []string{"remove"},
	Short:   "Remove a program and its run history",
	Args:    usageArgs(cobra.ExactArgs(1)),
	RunE:    runLibRm,
}

func init() {
	rootCmd.AddCommand(libCmd)
	libCmd.AddCommand(libAddCmd, libLsCmd, libRunCmd, libRmCmd)

	libAddCmd.Flags().StringVar(&libAddName, "name", "", "library name (default: file name without extension)")
	addRunFlags(libRunCmd)
}

func runLibAdd(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	// Broken programs are rejected at add time, so everything in the
	// library is runnable.
	if _, err := program.Resolve(program.Scan(src)); err != nil {
		return err
	}

	name := libAddName
	if name == "" {
		base := filepath.Base(args[0])
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	st, err := store.OpenDefault()
	if err != nil {
		return err
	}
	defer st.Close()

	digest, err := st.AddProgram(name, src)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", digest, name)
	return nil
}

func runLibLs(cmd *cobra.Command, args []string) error {
	st, err := store.OpenDefault()
	if err != nil {
		return err
	}
	defer st.Close()

	programs, err := st.Programs()
	if err != nil {
		return err
	}
	if len(programs) == 0 {
		fmt.Println("library is empty")
		return nil
	}

	fmt.Printf("%-20s %-12s %7s  %s\n", "NAME", "DIGEST", "SIZE", "ADDED")
	for _, p := range programs {
		fmt.Printf("%-20s %-12s %7d  %s\n",
			p.Name, shortDigest(p.Digest), len(p.Source), p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runLibRun(cmd *cobra.Command, args []string) error {
	st, err := store.OpenDefault()
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.ProgramByName(args[0])
	if errors.Is(err, store.ErrNotFound) {
		rec, err = st.ProgramByDigest(args[0])
	}
	if err != nil {
		return err
	}

	opts, err := runFlagOptions(cmd, true)
	if err != nil {
		return err
	}
	in, closeIn, err := openInput(runInput)
	if err != nil {
		return err
	}
	defer closeIn()

	out := bufio.NewWriter(os.Stdout)
	started := time.Now()
	machine, err := vm.New(program.Scan(rec.Source), in, out, opts...)
	if err != nil {
		// A stored program that no longer resolves still gets a
		// history row; lib add's resolve gate means the source was
		// rewritten behind the library's back.
		var serr *program.StructuralError
		if errors.As(err, &serr) {
			return recordLibRun(st, rec.Digest, started, 0, err)
		}
		return err
	}

	runErr := runMachine(machine)
	if err := out.Flush(); err != nil && runErr == nil {
		runErr = err
	}
	if err := recordLibRun(st, rec.Digest, started, machine.Steps(), runErr); err != nil {
		return err
	}
	fmt.Println()
	return nil
}

// recordLibRun appends a run to the history. runErr stays the primary
// error; a recording failure surfaces only when the run itself was clean.
func recordLibRun(st *store.Store, digest string, started time.Time, steps uint64, runErr error) error {
	record := store.RunRecord{
		ProgramDigest: digest,
		StartedAt:     started,
		FinishedAt:    time.Now(),
		Steps:         steps,
		Outcome:       outcomeFor(runErr),
	}
	if runErr != nil {
		record.Error = runErr.Error()
	}
	if err := st.RecordRun(record); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func runLibRm(cmd *cobra.Command, args []string) error {
	st, err := store.OpenDefault()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.RemoveProgram(args[0]); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", args[0])
	return nil
}

// outcomeFor classifies a finished run for the history store.
func outcomeFor(err error) store.Outcome {
	var serr *program.StructuralError
	switch {
	case err == nil:
		return store.OutcomeOK
	case errors.As(err, &serr):
		return store.OutcomeStructural
	case errors.Is(err, context.Canceled):
		return store.OutcomeCanceled
	default:
		return store.OutcomeRuntime
	}
}

// shortDigest abbreviates a digest for table output.
func shortDigest(d string) string {
	if len(d) > 10 {
		return d[:10]
	}
	return d
}
