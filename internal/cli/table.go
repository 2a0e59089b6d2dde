package cli

import (
	"fmt"
	"io"
	"strings"
)

// PlainTableWriter provides kubectl-style plain table output without
// box-drawing characters.
type PlainTableWriter struct {
	headers      []string
	rows         [][]string
	columnWidths []int
	minPadding   int
	showHeaders  bool
	output       io.Writer
}

// NewPlainTableWriter creates a table writer with the given column headers.
func NewPlainTableWriter(output io.Writer, headers ...string) *PlainTableWriter {
	w := &PlainTableWriter{
		minPadding:  3,
		showHeaders: true,
		output:      output,
	}
	w.headers = make([]string, len(headers))
	w.columnWidths = make([]int, len(headers))
	for i, h := range headers {
		upper := strings.ToUpper(h)
		w.headers[i] = upper
		w.columnWidths[i] = len(upper)
	}
	return w
}

// SetNoHeaders controls whether to suppress the header row.
func (w *PlainTableWriter) SetNoHeaders(noHeaders bool) {
	w.showHeaders = !noHeaders
	if noHeaders {
		for i := range w.columnWidths {
			w.columnWidths[i] = 0
		}
		for _, row := range w.rows {
			w.widen(row)
		}
	}
}

// AppendRow adds a row, padding or truncating it to the number of columns.
// A table created without headers takes its columns from the widest row.
// Only the last column may contain color codes; earlier columns are padded
// by byte length.
func (w *PlainTableWriter) AppendRow(row ...string) {
	if len(w.headers) == 0 && len(row) > len(w.columnWidths) {
		w.columnWidths = append(w.columnWidths, make([]int, len(row)-len(w.columnWidths))...)
		for i, existing := range w.rows {
			grown := make([]string, len(w.columnWidths))
			copy(grown, existing)
			w.rows[i] = grown
		}
	}
	normalized := make([]string, len(w.columnWidths))
	copy(normalized, row)
	w.widen(normalized)
	w.rows = append(w.rows, normalized)
}

func (w *PlainTableWriter) widen(row []string) {
	for i, cell := range row {
		if len(cell) > w.columnWidths[i] {
			w.columnWidths[i] = len(cell)
		}
	}
}

// Render writes the table.
func (w *PlainTableWriter) Render() {
	if len(w.rows) == 0 && (!w.showHeaders || len(w.headers) == 0) {
		return
	}

	if w.showHeaders && len(w.headers) > 0 {
		w.printRow(w.headers)
	}
	for _, row := range w.rows {
		w.printRow(row)
	}
}

func (w *PlainTableWriter) printRow(row []string) {
	var sb strings.Builder
	for i, cell := range row {
		if i == len(row)-1 {
			sb.WriteString(cell)
		} else {
			fmt.Fprintf(&sb, "%-*s", w.columnWidths[i]+w.minPadding, cell)
		}
	}
	fmt.Fprintln(w.output, strings.TrimRight(sb.String(), " "))
}
