package parser

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
)

// Describe renders a compact human-readable sketch of the document: the
// column names and the first SampleRows rows. It is derived from the parsed
// rows, so it always agrees with what gets scored.
func (d *Document) Describe() string {
	if d.Kind == KindText {
		return d.Text
	}

	var b strings.Builder
	fmt.Fprintf(&b, "File Type: %s\n", d.Format)
	fmt.Fprintf(&b, "Columns: [%s]\n", strings.Join(d.Table.Columns, ", "))
	fmt.Fprintf(&b, "Rows: %d\n\n", len(d.Table.Rows))

	sample := d.Table.Sample(SampleRows)
	fmt.Fprintf(&b, "First %d Rows:\n", len(sample))

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(d.Table.Columns, "\t"))
	for _, row := range sample {
		cells := make([]string, len(d.Table.Columns))
		for i, col := range d.Table.Columns {
			cells[i] = FormatValue(row[col])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	return b.String()
}

// FormatValue renders a Row value the way it was most likely written in the source.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// Sample returns up to n rows from the table, in order.
func (t *Table) Sample(n int) []models.Row {
	return t.Rows[:min(n, len(t.Rows))]
}
