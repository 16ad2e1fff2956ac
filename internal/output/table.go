package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Table renders aligned columns for text output.
type Table struct {
	headers  []string
	rows     [][]string
	maxWidth map[int]int
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, maxWidth: map[int]int{}}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Truncate caps column col at width runes, eliding the middle of longer
// cells. Addresses stay recognizable by prefix and suffix.
func (t *Table) Truncate(col, width int) {
	t.maxWidth[col] = width
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(t.rows)+1)
	rows = append(rows, t.headers)
	for _, row := range t.rows {
		rows = append(rows, t.clip(row))
	}
	widths := columnWidths(rows)

	for i, row := range rows {
		if err := renderRow(w, row, widths); err != nil {
			return err
		}
		if i == 0 {
			if err := renderRule(w, widths); err != nil {
				return err
			}
		}
	}
	return nil
}

// String returns the table as a string.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

func (t *Table) clip(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = elide(cell, t.maxWidth[i])
	}
	return out
}

// elide shortens s to width runes as "head...tail". A width of zero or
// below 5 leaves s alone.
func elide(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if width < 5 || n <= width {
		return s
	}
	r := []rune(s)
	keep := width - 3
	head := (keep + 1) / 2
	tail := keep - head
	return string(r[:head]) + "..." + string(r[n-tail:])
}

func columnWidths(rows [][]string) []int {
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	widths := make([]int, cols)
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}
	return widths
}

func renderRow(w io.Writer, cells []string, widths []int) error {
	parts := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = cell + strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell))
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	return err
}

func renderRule(w io.Writer, widths []int) error {
	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = strings.Repeat("-", width)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, "  "))
	return err
}
