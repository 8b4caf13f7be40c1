package cmd

import (
	"github.com/spf13/cobra"

	"github.com/chazu/brainfuck/server"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the language server on stdio",
	Long: `Run the bf language server over stdio.

The server publishes bracket diagnostics and answers hover, definition,
references and document symbol requests for .bf files.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runLsp,
}

func init() {
	rootCmd.AddCommand(lspCmd)
}

func runLsp(cmd *cobra.Command, args []string) error {
	return server.NewLSP(Version).Run()
}
