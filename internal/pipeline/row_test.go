package pipeline

import "testing"

func TestSelectRowPicksFirstUnprocessed(t *testing.T) {
	grid := [][]string{
		{"id", "prompt", "description", "tags"},
		{"1", "p1", "d1", "t1", "2024_04_01_08_00"}, // processed: extra timestamp cell
		{"2", "p2", "d2", "t2"},
		{"3", "p3", "d3", "t3"},
	}

	row, ok := SelectRow(grid)
	if !ok {
		t.Fatal("expected a row to be selected")
	}
	if row.Index != 2 {
		t.Errorf("expected row index 2, got %d", row.Index)
	}
	if row.ID != "2" || row.Prompt != "p2" || row.Description != "d2" || row.Tags != "t2" {
		t.Errorf("unexpected destructured row: %+v", row)
	}
}

func TestSelectRowAllProcessed(t *testing.T) {
	grid := [][]string{
		{"id", "prompt", "description", "tags"},
		{"1", "p1", "d1", "t1", "2024_04_01_08_00"},
		{"2", "p2", "d2", "t2", "2024_04_02_08_00"},
	}

	if _, ok := SelectRow(grid); ok {
		t.Error("expected no selection when every row is processed")
	}
}

func TestSelectRowHeaderOnly(t *testing.T) {
	if _, ok := SelectRow([][]string{{"id", "prompt", "description", "tags"}}); ok {
		t.Error("expected no selection from a header-only grid")
	}
	if _, ok := SelectRow(nil); ok {
		t.Error("expected no selection from an empty grid")
	}
}

func TestSelectRowSkipsRowsTooShortToDestructure(t *testing.T) {
	// Header with fewer than the expected prompt columns: matching rows are
	// eligible by cell count but cannot be destructured.
	grid := [][]string{
		{"id", "prompt", "description"},
		{"1", "p1", "d1"},
	}

	if _, ok := SelectRow(grid); ok {
		t.Error("expected short rows to be skipped")
	}
}
