package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "tocin",
	Short: "Tocin compiler front-end",
	Long: `tocin compiles Tocin source files to a typed intermediate
representation.

Tocin is a statically-typed, object-oriented, concurrent language with:
  - Significant indentation and template literals
  - Generics, nullable types, and pattern matching
  - Ownership and borrow checking with move semantics
  - Goroutines, channels, select, and async/await

The compiler runs the front-end and middle-end pipeline: lexing, parsing,
module loading, semantic analysis, and IR lowering. Code generation for a
machine target is performed by a separate back-end consuming the IR.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().IntP("indent-width", "w", 4, "spaces per indentation level")
	rootCmd.PersistentFlags().Int("max-errors", 100, "diagnostic limit before aborting")
	rootCmd.PersistentFlags().StringSliceP("module-path", "I", nil, "module search path (repeatable)")
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
