package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tocinlang/tocin/pkg/tocin"
)

var compileCmd = &cobra.Command{
	Use:   "compile <file.to>",
	Short: "Compile a source file to IR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := optionsFromFlags(cmd)
		emitIR, _ := cmd.Flags().GetBool("emit-ir")
		output, _ := cmd.Flags().GetString("output")

		result, err := tocin.CompileFile(args[0], opts)
		if err != nil {
			exitWithError("%v", err)
		}

		for _, d := range result.Reporter.Sorted() {
			fmt.Fprintln(os.Stderr, d)
		}
		if result.HasErrors() {
			os.Exit(1)
		}

		if emitIR || output != "" {
			dump := result.IR.Dump()
			if output == "" || output == "-" {
				fmt.Print(dump)
			} else if err := os.WriteFile(output, []byte(dump), 0o644); err != nil {
				exitWithError("writing %s: %v", output, err)
			}
		}
		return nil
	},
}

func optionsFromFlags(cmd *cobra.Command) tocin.Options {
	indent, _ := cmd.Flags().GetInt("indent-width")
	maxErrors, _ := cmd.Flags().GetInt("max-errors")
	paths, _ := cmd.Flags().GetStringSlice("module-path")
	return tocin.Options{
		IndentWidth: indent,
		MaxErrors:   maxErrors,
		ModulePaths: paths,
	}
}

func init() {
	compileCmd.Flags().Bool("emit-ir", false, "print the IR module to stdout")
	compileCmd.Flags().StringP("output", "o", "", "write the IR dump to a file")
	rootCmd.AddCommand(compileCmd)
}
