package memory

import (
	"encoding/json"
	"testing"
)

func TestKeyLayout(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{workingKey("s1"), "working_memory:s1"},
		{summaryKey("s1"), "conversation_summary:s1"},
		{pendingKey("s1"), "pending_action:s1"},
		{countKey("s1"), "msg_count:s1"},
		{activeKey("s1"), "active_project:s1"},
		{dailyKey("2026-08-26"), "daily_summary:2026-08-26"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestTurnRoundTrip(t *testing.T) {
	turn := Turn{Role: "user", Content: "صرفت ٢٥ ريال", TS: 1700000000}

	raw, err := json.Marshal(turn)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var back Turn
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if back != turn {
		t.Errorf("round trip mismatch: %+v != %+v", back, turn)
	}
}

func TestDumpEntrySerialisation(t *testing.T) {
	entry := DumpEntry{
		Key:    "working_memory:s1",
		Type:   "list",
		TTLSec: 86400,
		List:   []string{`{"role":"user","content":"hi","ts":1}`},
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var back DumpEntry
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if back.Key != entry.Key || back.Type != entry.Type || back.TTLSec != entry.TTLSec {
		t.Errorf("round trip mismatch: %+v", back)
	}
	if len(back.List) != 1 {
		t.Errorf("list not preserved: %+v", back.List)
	}
}
