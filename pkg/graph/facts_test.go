package graph

import "testing"

func TestParseFactsPlainJSON(t *testing.T) {
	raw := `{"entities": [{"type": "Person", "name": "خالد", "properties": {"relation": "أخ"}}],
	         "relationships": [{"from": "خالد", "to": "أرامكو", "type": "WORKS_AT"}]}`

	facts, err := ParseFacts(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(facts.Entities) != 1 || facts.Entities[0].Name != "خالد" {
		t.Errorf("entities = %+v", facts.Entities)
	}
	if len(facts.Relationships) != 1 || facts.Relationships[0].Type != "WORKS_AT" {
		t.Errorf("relationships = %+v", facts.Relationships)
	}
}

func TestParseFactsMarkdownFence(t *testing.T) {
	raw := "```json\n{\"entities\": [{\"type\": \"Task\", \"name\": \"تقرير\"}]}\n```"

	facts, err := ParseFacts(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(facts.Entities) != 1 {
		t.Fatalf("entities = %+v", facts.Entities)
	}
	if facts.Entities[0].Properties == nil {
		t.Error("nil properties should be initialised")
	}
}

func TestParseFactsDropsUnknownTypes(t *testing.T) {
	raw := `{"entities": [
		{"type": "Person", "name": "سارة"},
		{"type": "Spaceship", "name": "Enterprise"},
		{"type": "Task", "name": ""}
	]}`

	facts, err := ParseFacts(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(facts.Entities) != 1 || facts.Entities[0].Name != "سارة" {
		t.Errorf("entities = %+v", facts.Entities)
	}
}

func TestParseFactsEmpty(t *testing.T) {
	facts, err := ParseFacts("   ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(facts.Entities) != 0 {
		t.Errorf("entities = %+v", facts.Entities)
	}
}

func TestFilterTypes(t *testing.T) {
	facts := &Facts{
		Entities: []FactEntity{
			{Type: "Person", Name: "خالد"},
			{Type: "Expense", Name: "غداء"},
			{Type: "Knowledge", Name: "ملاحظة"},
		},
		Relationships: []FactRelation{
			{From: "خالد", To: "ملاحظة", Type: "RELATED_TO"},
			{From: "خالد", To: "غداء", Type: "RELATED_TO"},
		},
	}

	facts.FilterTypes(map[string]bool{"Person": true, "Knowledge": true})

	if len(facts.Entities) != 2 {
		t.Errorf("entities = %+v", facts.Entities)
	}
	if len(facts.Relationships) != 1 || facts.Relationships[0].To != "ملاحظة" {
		t.Errorf("relationships = %+v", facts.Relationships)
	}
}
