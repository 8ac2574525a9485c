package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scriptflow/scriptflow/internal/query"
)

var helpQueryCmd = &cobra.Command{
	Use:   "help-query",
	Short: "Print the query language reference",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(query.Help())
	},
}

func init() {
	rootCmd.AddCommand(helpQueryCmd)
}
