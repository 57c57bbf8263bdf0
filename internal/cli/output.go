package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"quantEngine/internal/ports"
	"quantEngine/internal/strategy/analytics"
)

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printStatistics renders a statistics table with one column per period.
func printStatistics(w io.Writer, table analytics.Table) error {
	periods := table.Periods()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "Statistic\t")
	for _, p := range periods {
		fmt.Fprintf(tw, "%s\t", p)
	}
	fmt.Fprintln(tw)
	for _, s := range analytics.AllStatistics {
		fmt.Fprintf(tw, "%s\t", s)
		for _, p := range periods {
			v, ok := table[p][s]
			switch {
			case !ok:
				fmt.Fprint(tw, "-\t")
			case s == analytics.TradeFrequency:
				fmt.Fprintf(tw, "%s\t", analytics.Frequency(v.IntPart()))
			default:
				fmt.Fprintf(tw, "%s\t", v.String())
			}
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// tableFromRows rebuilds a statistics table from stored rows.
func tableFromRows(rows []ports.StatisticRow) analytics.Table {
	table := analytics.Table{}
	for _, r := range rows {
		if table[r.Period] == nil {
			table[r.Period] = map[analytics.Statistic]decimal.Decimal{}
		}
		table[r.Period][analytics.Statistic(r.Name)] = r.Value
	}
	return table
}

// rowsFromTable flattens a statistics table in reporting order.
func rowsFromTable(table analytics.Table) []ports.StatisticRow {
	var rows []ports.StatisticRow
	for _, p := range table.Periods() {
		for _, s := range analytics.AllStatistics {
			if v, ok := table[p][s]; ok {
				rows = append(rows, ports.StatisticRow{Period: p, Name: string(s), Value: v})
			}
		}
	}
	return rows
}
