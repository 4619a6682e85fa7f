package graph

import (
	"testing"
	"time"
)

func TestTitleVariants(t *testing.T) {
	variants := titleVariants("meetings")
	if len(variants) == 0 || variants[0] != "meeting" {
		t.Errorf("plural should strip s: %v", variants)
	}

	variants = titleVariants("call")
	if variants[0] != "calls" {
		t.Errorf("singular should gain s: %v", variants)
	}

	// Short words never get the plural stripped.
	variants = titleVariants("gas")
	if variants[0] != "gass" {
		t.Errorf("3-letter word treated as plural: %v", variants)
	}
}

func TestKeywordTokens(t *testing.T) {
	got := keywordTokens("Pay The Electricity Bill at 5")
	want := []string{"pay", "the", "electricity", "bill"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		in      string
		wantDay int
		wantErr bool
	}{
		{"2026-03-15T10:00:00Z", 15, false},
		{"2026-03-15T10:00:00", 15, false},
		{"2026-03-15", 15, false},
		{"2026-03-15T10:00:00.123456", 15, false},
		{"yesterday", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDueDate(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseDueDate(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDueDate(%q) failed: %v", tt.in, err)
			continue
		}
		if got.Day() != tt.wantDay {
			t.Errorf("parseDueDate(%q).Day() = %d, want %d", tt.in, got.Day(), tt.wantDay)
		}
	}
}

func TestNextOccurrence(t *testing.T) {
	ref := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		due        time.Time
		recurrence string
		want       time.Time
	}{
		// One step forward when already near ref.
		{time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), "daily", time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)},
		// Skips all missed occurrences.
		{time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "daily", time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)},
		{time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC), "weekly", time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC)},
		// Calendar month arithmetic, not 30-day spans.
		{time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC), "monthly", time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC)},
		{time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), "yearly", time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := nextOccurrence(tt.due, tt.recurrence, ref)
		if err != nil {
			t.Errorf("nextOccurrence(%v, %s) failed: %v", tt.due, tt.recurrence, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("nextOccurrence(%v, %s) = %v, want %v", tt.due, tt.recurrence, got, tt.want)
		}
	}

	if _, err := nextOccurrence(ref, "hourly", ref); err == nil {
		t.Error("unknown recurrence should error")
	}
}

func TestFormatReminderTags(t *testing.T) {
	tests := []struct {
		rtype    string
		priority int
		snoozes  int
		want     string
	}{
		{"one_time", 1, 0, ""},
		{"", 2, 0, ""},
		{"daily", 1, 0, " [daily]"},
		{"one_time", 4, 0, " [priority:4]"},
		{"weekly", 3, 2, " [weekly, priority:3, snoozed:2x]"},
	}
	for _, tt := range tests {
		if got := formatReminderTags(tt.rtype, tt.priority, tt.snoozes); got != tt.want {
			t.Errorf("formatReminderTags(%q, %d, %d) = %q, want %q", tt.rtype, tt.priority, tt.snoozes, got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	if asInt(int64(7)) != 7 || asInt(3.0) != 3 || asInt(5) != 5 || asInt("x") != 0 {
		t.Error("asInt conversion mismatch")
	}
}
