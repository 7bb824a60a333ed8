package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"ID", "Quality", "Hours"}
	rows := [][]string{
		{"1", "OK", "7:30:00"},
		{"12", "Excellent", "10:05:00"},
	}
	rightAlign := map[int]bool{0: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "ID  Quality       Hours" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != " 1  OK          7:30:00" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "12  Excellent  10:05:00" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"A", "B"}, [][]string{{"睡眠", "x"}}, nil)
	if lines[0] != "A     B" {
		t.Fatalf("expected header padded to wide cell, got %q", lines[0])
	}
	if lines[1] != "睡眠  x" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
}
