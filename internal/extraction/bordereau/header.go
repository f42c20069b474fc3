package bordereau

import (
	"strconv"
	"strings"

	"github.com/shandysiswandi/gobordereau/internal/extraction/entity"
)

// clean trims every cell, pads rows to the same width and removes blank
// rows and columns that are empty in every row.
func clean(rows [][]string) [][]string {
	width := 0
	grid := make([][]string, 0, len(rows))
	for _, row := range rows {
		if entity.BlankRow(row) {
			continue
		}
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.TrimSpace(c)
		}
		grid = append(grid, cells)
		width = max(width, len(cells))
	}
	if len(grid) == 0 {
		return nil
	}

	keep := make([]int, 0, width)
	for col := range width {
		for _, row := range grid {
			if col < len(row) && row[col] != "" {
				keep = append(keep, col)
				break
			}
		}
	}

	for i, row := range grid {
		out := make([]string, len(keep))
		for j, col := range keep {
			if col < len(row) {
				out[j] = row[col]
			}
		}
		grid[i] = out
	}
	return grid
}

// splitHeader takes the header from the first row of a cleaned grid. Empty
// header cells are sub-columns of the last named column on their left when
// the next row names them: both get "<name>_<sub-column name>" and that row
// is consumed. Otherwise an empty header cell is named "col<index>".
func splitHeader(grid [][]string) (header []string, body [][]string) {
	raw, body := grid[0], grid[1:]

	header = make([]string, len(raw))
	if len(body) == 0 || !subHeader(raw, body[0]) {
		for i, name := range raw {
			header[i] = collapse(name)
			if header[i] == "" {
				header[i] = "col" + strconv.Itoa(i)
			}
		}
		return dedupe(header), body
	}

	sub := body[0]
	body = body[1:]
	subName := func(i int) string {
		if i < len(sub) {
			return collapse(sub[i])
		}
		return ""
	}

	base := "col0"
	baseIndex := -1
	for i, name := range raw {
		if name != "" {
			base, baseIndex = collapse(name), i
			header[i] = base
			continue
		}
		if baseIndex >= 0 && header[baseIndex] == base {
			header[baseIndex] = joinName(base, subName(baseIndex))
		}
		header[i] = joinName(base, subName(i))
	}
	return dedupe(header), body
}

// subHeader reports whether row names the sub-columns of header: at least
// one value sits under an empty header cell and every other value sits
// under a named cell followed by an empty one.
func subHeader(header, row []string) bool {
	under := false
	for i, v := range row {
		if v == "" {
			continue
		}
		switch {
		case i < len(header) && header[i] == "":
			under = true
		case i+1 < len(header) && header[i+1] == "":
		default:
			return false
		}
	}
	return under
}

func joinName(base, sub string) string {
	if sub == "" {
		return base
	}
	return base + "_" + sub
}

// dedupe suffixes repeated names with their column index.
func dedupe(names []string) []string {
	seen := make(map[string]int, len(names))
	for _, n := range names {
		seen[n]++
	}
	for i, n := range names {
		if seen[n] > 1 {
			names[i] = n + "_" + strconv.Itoa(i)
		}
	}
	return names
}
