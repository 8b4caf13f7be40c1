package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/brainfuck/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [NAME]",
	Short: "Show recorded runs",
	Long: `Show runs recorded by bf lib run, newest first.

With NAME only the runs of that library program are listed.`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := store.OpenDefault()
	if err != nil {
		return err
	}
	defer st.Close()

	digest := ""
	if len(args) == 1 {
		p, err := st.ProgramByName(args[0])
		if err != nil {
			return err
		}
		digest = p.Digest
	}

	runs, err := st.Runs(digest, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	fmt.Printf("%-19s %-12s %10s  %-8s %s\n", "STARTED", "PROGRAM", "STEPS", "OUTCOME", "ERROR")
	for _, r := range runs {
		fmt.Printf("%-19s %-12s %10d  %-8s %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"),
			shortDigest(r.ProgramDigest),
			r.Steps,
			r.Outcome,
			r.Error)
	}
	return nil
}
