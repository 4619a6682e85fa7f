package ner

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFilterEntities(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://x", MinConfidence: 0.7})

	raw := []Entity{
		{Group: "PER", Word: "خالد", Score: 0.95},
		{Group: "PER", Word: "خالد", Score: 0.91}, // duplicate
		{Group: "LOC", Word: "الرياض", Score: 0.88},
		{Group: "ORG", Word: "##أرامكو", Score: 0.90},
		{Group: "PER", Word: "س", Score: 0.99},      // too short
		{Group: "MISC", Word: "شيء ما", Score: 0.5}, // low confidence
	}

	got := c.filterEntities(raw)
	if len(got) != 3 {
		t.Fatalf("entities = %+v", got)
	}
	if got[0].Group != "Person" || got[0].Word != "خالد" {
		t.Errorf("first entity = %+v", got[0])
	}
	if got[1].Group != "Location" {
		t.Errorf("group not mapped: %+v", got[1])
	}
	if got[2].Word != "أرامكو" {
		t.Errorf("subword marker not stripped: %+v", got[2])
	}
}

func TestFormatHints(t *testing.T) {
	entities := []Entity{
		{Group: "Person", Word: "خالد"},
		{Group: "Person", Word: "سارة"},
		{Group: "Location", Word: "جدة"},
	}
	got := FormatHints(entities)
	want := "[NER hints: Person: خالد, سارة; Location: جدة]"
	if got != want {
		t.Errorf("hints = %q, want %q", got, want)
	}

	if FormatHints(nil) != "" {
		t.Error("empty entities should render empty")
	}
}

func TestExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ner" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"entities": []Entity{
				{Group: "PER", Word: "خالد", Score: 0.92},
				{Group: "LOC", Word: "مكة", Score: 0.4},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	got := c.Extract(context.Background(), "قابلت خالد في مكة")
	if len(got) != 1 || got[0].Word != "خالد" {
		t.Errorf("entities = %+v", got)
	}
}

func TestPostClosesErrorResponses(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	srv.Start()
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	for range 3 {
		if _, err := c.post(context.Background(), "/ner", map[string]any{"text": "نص"}); err == nil {
			t.Fatal("expected error for HTTP 400")
		}
	}

	// An unclosed error body pins its connection, forcing a new one per
	// request.
	if got := conns.Load(); got != 1 {
		t.Errorf("connections opened = %d, want 1", got)
	}
}

func TestExtractDisabled(t *testing.T) {
	c := NewClient(Config{})
	if c.Enabled() {
		t.Error("client with no base URL should be disabled")
	}
	if got := c.Extract(context.Background(), "نص"); got != nil {
		t.Errorf("disabled extract = %+v", got)
	}
}
