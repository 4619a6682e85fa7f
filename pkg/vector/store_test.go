package vector

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestBuildFilter(t *testing.T) {
	filter := buildFilter(map[string]any{"file_hash": "abc123"})

	if len(filter.Must) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(filter.Must))
	}

	field := filter.Must[0].GetField()
	if field == nil {
		t.Fatal("expected field condition")
	}
	if field.Key != "file_hash" {
		t.Errorf("expected key file_hash, got %s", field.Key)
	}
	if field.Match.GetKeyword() != "abc123" {
		t.Errorf("expected keyword abc123, got %s", field.Match.GetKeyword())
	}
}

func TestBuildPayload(t *testing.T) {
	payload, err := buildPayload(map[string]any{
		"source_type": "file",
		"tags":        []any{"a", "b"},
		"checked":     true,
	})
	if err != nil {
		t.Fatalf("buildPayload failed: %v", err)
	}

	if payload["source_type"].GetStringValue() != "file" {
		t.Errorf("string payload not converted")
	}
	if !payload["checked"].GetBoolValue() {
		t.Errorf("bool payload not converted")
	}
	if len(payload["tags"].GetListValue().Values) != 2 {
		t.Errorf("list payload not converted")
	}
}

func TestConvertScored(t *testing.T) {
	points := []*qdrant.ScoredPoint{
		{
			Id:    &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: "p1"}},
			Score: 0.91,
			Payload: map[string]*qdrant.Value{
				"content":   {Kind: &qdrant.Value_StringValue{StringValue: "hello"}},
				"file_hash": {Kind: &qdrant.Value_StringValue{StringValue: "h1"}},
				"count":     {Kind: &qdrant.Value_IntegerValue{IntegerValue: 3}},
			},
		},
	}

	results := convertScored(points)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.ID != "p1" || r.Score != 0.91 {
		t.Errorf("id/score not converted: %+v", r)
	}
	if r.Payload["content"] != "hello" {
		t.Errorf("string payload not converted: %v", r.Payload)
	}
	if r.Payload["count"] != int64(3) {
		t.Errorf("integer payload not converted: %v", r.Payload)
	}
}

func TestPointIDNumeric(t *testing.T) {
	id := &qdrant.PointId{PointIdOptions: &qdrant.PointId_Num{Num: 42}}
	if got := pointID(id); got != "42" {
		t.Errorf("numeric id not converted: %s", got)
	}
	if got := pointID(nil); got != "" {
		t.Errorf("nil id should convert to empty string, got %q", got)
	}
}
