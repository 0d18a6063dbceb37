// Package table rebuilds row/column structure from unstructured OCR text.
//
// Each line is split independently with the first delimiter strategy that
// matches it; there is no cross-row alignment. Empty cells are dropped,
// which also collapses genuinely empty table cells: that is a known
// limitation of the heuristic. Rows are right-padded so the result is
// rectangular.
package table

import (
	"regexp"
	"strings"
)

// Table is a rectangular grid of text cells. All rows have the same length.
type Table struct {
	Rows [][]string
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Columns returns the common row length, or 0 for an empty table.
func (t Table) Columns() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// Empty reports whether no rows were reconstructed.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Header returns row 0, or nil for an empty table.
func (t Table) Header() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0]
}

// String renders the table as tab-separated lines.
func (t Table) String() string {
	var b strings.Builder
	for i, row := range t.Rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(row, "\t"))
	}
	return b.String()
}

// Strategy is one delimiter heuristic: Match decides whether the line uses
// it and Split produces the raw cells.
type Strategy struct {
	Name  string
	Match func(line string) bool
	Split func(line string) []string
}

var multiSpace = regexp.MustCompile(` {2,}`)

// DefaultStrategies is the fixed priority order
// tab > multi-space > pipe > comma > single cell. Later strategies assume
// the earlier ones did not match.
var DefaultStrategies = []Strategy{
	{
		Name:  "tab",
		Match: func(line string) bool { return strings.Contains(line, "\t") },
		Split: func(line string) []string { return strings.Split(line, "\t") },
	},
	{
		Name:  "spaces",
		Match: func(line string) bool { return strings.Contains(line, "  ") },
		Split: func(line string) []string { return multiSpace.Split(line, -1) },
	},
	{
		Name:  "pipe",
		Match: func(line string) bool { return strings.Contains(line, "|") },
		Split: func(line string) []string { return strings.Split(line, "|") },
	},
	{
		Name:  "comma",
		Match: func(line string) bool { return strings.Contains(line, ",") },
		Split: func(line string) []string { return strings.Split(line, ",") },
	},
	{
		Name:  "single",
		Match: func(string) bool { return true },
		Split: func(line string) []string { return []string{line} },
	},
}

// Reconstruct parses OCR text into a Table using DefaultStrategies.
func Reconstruct(text string) Table {
	return ReconstructWith(text, DefaultStrategies)
}

// ReconstructWith parses text using strategies in order. A line matched by
// no strategy becomes a single-cell row.
func ReconstructWith(text string, strategies []Strategy) Table {
	var rows [][]string
	maxCols := 0
	for _, line := range strings.Split(text, "\n") {
		cells := SplitLine(line, strategies)
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, cells)
		maxCols = max(maxCols, len(cells))
	}

	for i, row := range rows {
		for len(row) < maxCols {
			row = append(row, "")
		}
		rows[i] = row
	}
	return Table{Rows: rows}
}

// SplitLine trims line, splits it with the first matching strategy and
// returns the non-empty trimmed cells. Blank lines yield nil.
func SplitLine(line string, strategies []Strategy) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	raw := []string{line}
	for _, s := range strategies {
		if s.Match(line) {
			raw = s.Split(line)
			break
		}
	}

	cells := make([]string, 0, len(raw))
	for _, c := range raw {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

// StrategyFor returns the name of the strategy that line would use.
func StrategyFor(line string, strategies []Strategy) string {
	line = strings.TrimSpace(line)
	for _, s := range strategies {
		if s.Match(line) {
			return s.Name
		}
	}
	return ""
}
