package console

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// RenderResult prints result as a table followed by the elapsed time line.
func RenderResult(w io.Writer, result *Result) {
	t := newTable(w)

	header := make(table.Row, 0, len(result.Columns))
	for _, column := range result.Columns {
		header = append(header, column)
	}
	t.AppendHeader(header)

	for _, values := range result.Rows {
		row := make(table.Row, 0, len(values))
		for _, v := range values {
			row = append(row, FormatValue(v))
		}
		t.AppendRow(row)
	}
	t.Render()

	if result.Truncated {
		fmt.Fprintf(w, "(showing first %d rows)\n", len(result.Rows))
	}
	fmt.Fprintf(w, "Query executed in %.3f seconds\n", result.Elapsed.Seconds())
}

func RenderDatabases(w io.Writer, databases []LogicalDatabaseView) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Database", "Schema", "Tables"})
	for _, db := range databases {
		for _, schema := range db.Schemas {
			t.AppendRow(table.Row{db.Name, schema.Name, fmt.Sprint(schema.Tables)})
		}
	}
	t.Render()
}

func RenderExamples(w io.Writer, examples []Example) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Example", "Query"})
	for i, example := range examples {
		t.AppendRow(table.Row{i + 1, example.Title, example.Query})
	}
	t.Render()
}
