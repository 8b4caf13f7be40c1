package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chazu/brainfuck/debugger"
	"github.com/chazu/brainfuck/vm"
)

var (
	debugInput string
	debugTape  int
	debugEOF   string
)

var debugCmd = &cobra.Command{
	Use:   "debug FILE",
	Short: "Step through a program in the terminal",
	Long: `Open FILE in the interactive terminal debugger.

Keys:
  s / space    execute one step
  r            run in bounded slices
  p            pause
  g            restart from the beginning
  up / down    scroll the output pane
  q / ctrl+c   quit

The UI owns the terminal, so , reads are served from --input, or from
an empty buffer without it.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runDebug,
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.Flags().StringVar(&debugInput, "input", "", "serve , reads from this file")
	debugCmd.Flags().IntVarP(&debugTape, "tape-length", "t", vm.DefaultTapeLength, "number of tape cells")
	debugCmd.Flags().StringVar(&debugEOF, "eof", "zero", "EOF policy for , reads: zero or halt")
}

func runDebug(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var input []byte
	if debugInput != "" {
		input, err = os.ReadFile(debugInput)
		if err != nil {
			return err
		}
	}

	policy, err := vm.ParseEOFPolicy(debugEOF)
	if err != nil {
		return usageErr(err)
	}

	return debugger.Run(debugger.Config{
		Name:   filepath.Base(args[0]),
		Source: src,
		Input:  input,
		Options: []vm.Option{
			vm.WithTapeLength(debugTape),
			vm.WithEOFPolicy(policy),
		},
	})
}
