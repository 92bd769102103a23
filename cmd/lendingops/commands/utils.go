package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	return t
}

// summary renders key/value rows under a title.
func summary(title string, rows ...table.Row) {
	t := newTable(title)
	t.AppendRows(rows)
	t.Render()
}
