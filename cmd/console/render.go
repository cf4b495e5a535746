package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matthewbaird/streamconsole/internal/console"
)

// renderList draws the list as a table with an id column first and a
// pagination footer.
func renderList(v console.ListView) string {
	headers := make([]string, 0, len(v.Columns)+1)
	headers = append(headers, "ID")
	for _, c := range v.Columns {
		headers = append(headers, c.Title)
	}
	rows := make([][]string, 0, len(v.Rows))
	for _, r := range v.Rows {
		row := make([]string, 0, len(headers))
		row = append(row, cell(r["id"]))
		for _, c := range v.Columns {
			row = append(row, cell(r[c.DataIndex]))
		}
		rows = append(rows, row)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	pg := v.Pagination
	return fmt.Sprintf("%s\n%s: page %d of %d, %d total", t.String(), v.Label, pg.Current, pg.TotalPages, pg.Total)
}

func cell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
