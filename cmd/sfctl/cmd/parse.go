package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/scriptflow/scriptflow/internal/query"
)

var parseShowSQL bool

var parseCmd = &cobra.Command{
	Use:   "parse [query]",
	Short: "Show how a log query is interpreted",
	Long: `Parse a log query string and print the resulting filters,
text search and date range. Queries accept field names and values in
Portuguese or English.

Examples:
  # Field filters with a date directive
  sfctl parse "tipo=erro severidade>=error date:24h"

  # OR logic and free text
  sfctl parse 'usuario=maria@example.com OR origem=api "falha de conexao"'

  # Show the SQL condition the server would run
  sfctl parse "severidade>=warning" --sql

  # JSON output
  sfctl parse "tipo=erro" -o json`,
	Args: cobra.ExactArgs(1),
	Run:  runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().BoolVar(&parseShowSQL, "sql", false, "show the generated SQL condition")
}

func runParse(cmd *cobra.Command, args []string) {
	pq := query.Parse(args[0], time.Now())

	if GetOutput() == "json" {
		data, err := json.MarshalIndent(pq, "", "  ")
		if err != nil {
			PrintError(fmt.Sprintf("encode query: %v", err), true)
			return
		}
		fmt.Println(string(data))
	} else {
		printParsed(pq)
	}

	if parseShowSQL {
		printSQL(pq)
	}
}

func printParsed(pq *query.ParsedQuery) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	if len(pq.Filters) == 0 {
		fmt.Fprintln(w, "filters:\t(none)")
	} else {
		for i, f := range pq.Filters {
			logic := string(f.Logic)
			if i == 0 {
				logic = "-"
			}
			fmt.Fprintf(w, "filter %d:\t%s %s %q\t[%s]\n", i+1, f.Field, f.Operator, f.Value, logic)
		}
	}

	if pq.TextSearch != "" {
		fmt.Fprintf(w, "text:\t%q\n", pq.TextSearch)
	}
	if pq.DateRange != nil && !pq.DateRange.IsZero() {
		start, end := "-", "-"
		if !pq.DateRange.Start.IsZero() {
			start = pq.DateRange.Start.Format(time.RFC3339)
		}
		if !pq.DateRange.End.IsZero() {
			end = pq.DateRange.End.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "period:\t%s .. %s\n", start, end)
	}

	w.Flush()
}

func printSQL(pq *query.ParsedQuery) {
	res := query.BuildWhere(pq)
	if res.SQL == "" {
		fmt.Println("\nSQL: (no restriction)")
		return
	}

	args := make([]string, len(res.Args))
	for i, a := range res.Args {
		args[i] = fmt.Sprintf("%v", a)
	}
	fmt.Printf("\nSQL:  WHERE %s\nargs: [%s]\n", res.SQL, strings.Join(args, ", "))
}
