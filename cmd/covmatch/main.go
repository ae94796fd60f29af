// covmatch runs FLAME or DAME almost-exact matching on categorical CSV data.
//
// Usage:
//
//	covmatch run --units units.csv --treatment treated --outcome y [--holdout holdout.csv]
//	covmatch version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "covmatch",
	Short: "Almost-exact matching for causal inference on categorical data",
	Long: "covmatch groups treated and control units that agree on as many important\n" +
		"covariates as possible, using the FLAME or DAME algorithm.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
