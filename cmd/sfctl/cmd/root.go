// Package cmd contains the CLI commands for sfctl.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Used for flags
	verbose bool
	output  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sfctl",
	Short: "sfctl - ScriptFlow log query tool",
	Long: `sfctl inspects ScriptFlow log queries from the command line.

The query language accepts field filters in Portuguese or English,
date directives and free text, for example:

  tipo=erro severidade>=error date:24h
  usuario=maria@example.com OR origem=api "falha de conexao"

Examples:
  # Show how a query is interpreted
  sfctl parse "tipo=erro date:hoje"

  # Show the generated SQL condition
  sfctl parse "severidade>=warning" --sql

  # Print the query language reference
  sfctl help-query`,
	// Run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json, plain)")
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintError prints an error message and exits if fatal is true.
func PrintError(msg string, fatal bool) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	if fatal {
		os.Exit(1)
	}
}
