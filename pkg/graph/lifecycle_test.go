package graph

import "testing"

func TestSumColumn(t *testing.T) {
	// Per-node aggregation: one row per deleted node, n=1 each.
	rows := []map[string]any{
		{"n": int64(1)},
		{"n": int64(1)},
		{"n": int64(1)},
	}
	if got := sumColumn(rows, "n"); got != 3 {
		t.Errorf("sumColumn = %d, want 3", got)
	}

	if got := sumColumn(nil, "n"); got != 0 {
		t.Errorf("sumColumn(nil) = %d, want 0", got)
	}
	if got := sumColumn([]map[string]any{{"other": int64(5)}}, "n"); got != 0 {
		t.Errorf("missing column should count as zero, got %d", got)
	}
}
