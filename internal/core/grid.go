package core

import (
	"regexp"
	"strings"
)

// Grid is a parsed BOM: an ordered list of rows, each an ordered list of
// cells. Rows may be jagged. A Grid is produced by one parse pass and is only
// sliced afterwards, never reshaped.
type Grid [][]string

// DefaultPreviewRows is how many rows the mapping step shows.
const DefaultPreviewRows = 5

var (
	lineSplit = regexp.MustCompile(`\r?\n`)
	cellSplit = regexp.MustCompile(`\t|;`)
)

// ParseText turns pasted spreadsheet text into a Grid. Lines are split on
// newlines, blank lines are dropped, cells are split on tabs or semicolons and
// trimmed. Whitespace-only input returns ErrNoData.
func ParseText(raw string) (Grid, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoData
	}

	var grid Grid
	for _, line := range lineSplit.Split(raw, -1) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := cellSplit.Split(line, -1)
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		grid = append(grid, cells)
	}

	if len(grid) == 0 {
		return nil, ErrNoData
	}
	return grid, nil
}

// MaxWidth returns the widest row length.
func (g Grid) MaxWidth() int {
	w := 0
	for _, row := range g {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// Preview returns the first n rows.
func (g Grid) Preview(n int) Grid {
	if n <= 0 || n >= len(g) {
		return g
	}
	return g[:n]
}
