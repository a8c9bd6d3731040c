package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tocinlang/tocin/internal/lexer"
	"github.com/tocinlang/tocin/internal/report"
)

var lexCmd = &cobra.Command{
	Use:   "lex <file.to>",
	Short: "Tokenize a source file and print the token stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			exitWithError("%v", err)
		}
		indent, _ := cmd.Flags().GetInt("indent-width")
		maxErrors, _ := cmd.Flags().GetInt("max-errors")

		reporter := report.New()
		lx := lexer.New(string(data), args[0], reporter,
			lexer.WithIndentWidth(indent), lexer.WithMaxErrors(maxErrors))
		for _, tok := range lx.Tokenize() {
			fmt.Printf("%s\t%s\n", tok.Pos, tok)
		}
		for _, d := range reporter.Sorted() {
			fmt.Fprintln(os.Stderr, d)
		}
		if reporter.HasErrors() {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lexCmd)
}
