package graph

import "testing"

func TestParseHourRange(t *testing.T) {
	tests := []struct {
		in        string
		wantStart int
		wantEnd   int
	}{
		{"7-12", 7, 12},
		{" 14 - 16 ", 14, 16},
		{"bad", 9, 17},
		{"a-b", 9, 17},
		{"", 9, 17},
	}
	for _, tt := range tests {
		start, end := parseHourRange(tt.in, 9, 17)
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("parseHourRange(%q) = %d-%d, want %d-%d", tt.in, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}

func TestDefaultPhases(t *testing.T) {
	want := []string{"Planning", "Preparation", "Execution", "Review"}
	if len(DefaultPhases) != len(want) {
		t.Fatalf("phases = %v", DefaultPhases)
	}
	for i := range want {
		if DefaultPhases[i] != want[i] {
			t.Errorf("phase[%d] = %q, want %q", i, DefaultPhases[i], want[i])
		}
	}
}
