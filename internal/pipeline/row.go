package pipeline

import "github.com/rs/zerolog/log"

// promptColumns is the column layout of an unprocessed row:
// identifier, prompt text, post description, comma-separated tags.
// A processed row carries one extra trailing cell, the run timestamp.
const promptColumns = 4

// PromptRow is one selected prompt task, destructured from its grid row.
type PromptRow struct {
	// Index is the row's position within the grid (0 is the header).
	Index       int
	ID          string
	Prompt      string
	Description string
	Tags        string
}

// eligible reports whether a data row is still unprocessed: it has exactly
// as many cells as the header. Processing appends a run-timestamp cell, so a
// processed row is one cell longer. The cell count is the sole marker.
func eligible(row, header []string) bool {
	return len(row) == len(header)
}

// SelectRow scans the data rows in grid order and returns the first
// unprocessed one. Rows too short to destructure are skipped with a warning.
func SelectRow(grid [][]string) (PromptRow, bool) {
	if len(grid) < 2 {
		return PromptRow{}, false
	}
	header := grid[0]

	for i, row := range grid[1:] {
		if !eligible(row, header) {
			continue
		}
		if len(row) < promptColumns {
			log.Warn().Int("row", i+1).Int("cells", len(row)).Msg("Row too short to destructure, skipping")
			continue
		}
		return PromptRow{
			Index:       i + 1,
			ID:          row[0],
			Prompt:      row[1],
			Description: row[2],
			Tags:        row[3],
		}, true
	}
	return PromptRow{}, false
}
