// Package format renders run summaries as terminal or Markdown tables.
package format

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode selects how a Table is rendered.
type Mode int

const (
	ASCII    Mode = iota // box-drawing terminal table
	Markdown             // GitHub-flavoured Markdown
)

// ParseMode maps "ascii"/"table" or "markdown"/"md" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "ascii", "table":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	}
	return ASCII, fmt.Errorf("format: unknown table mode %q", s)
}

// Table is a report table with a fixed header.
type Table struct {
	w    table.Writer
	mode Mode
	cols map[int]table.ColumnConfig
}

// NewTable starts a table with the given column headers.
func NewTable(m Mode, header ...string) *Table {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	row := make(table.Row, len(header))
	for i, h := range header {
		row[i] = h
	}
	w.AppendHeader(row)
	return &Table{w: w, mode: m, cols: map[int]table.ColumnConfig{}}
}

// Right right-aligns the given 1-based columns.
func (t *Table) Right(cols ...int) *Table { return t.align(text.AlignRight, cols) }

// Center centers the given 1-based columns.
func (t *Table) Center(cols ...int) *Table { return t.align(text.AlignCenter, cols) }

func (t *Table) align(a text.Align, cols []int) *Table {
	for _, n := range cols {
		c := t.col(n)
		c.Align = a
		t.cols[n] = c
	}
	return t
}

func (t *Table) col(n int) table.ColumnConfig {
	if c, ok := t.cols[n]; ok {
		return c
	}
	return table.ColumnConfig{Number: n}
}

// Row appends a data row.
func (t *Table) Row(vals ...any) { t.w.AppendRow(table.Row(vals)) }

// Footer appends a totals row.
func (t *Table) Footer(vals ...any) { t.w.AppendFooter(table.Row(vals)) }

func (t *Table) String() string {
	cfgs := make([]table.ColumnConfig, 0, len(t.cols))
	for _, n := range SortedKeys(t.cols) {
		cfgs = append(cfgs, t.cols[n])
	}
	t.w.SetColumnConfigs(cfgs)
	if t.mode == Markdown {
		return t.w.RenderMarkdown()
	}
	return t.w.Render()
}

// Section renders t under an "=== title ===" line, followed by a newline.
// An empty title renders the table alone.
func Section(title string, t *Table) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "=== %s ===\n", title)
	}
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}
