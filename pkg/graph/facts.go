package graph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Facts is the structured extraction output: entities plus the
// relationships between them.
type Facts struct {
	Entities      []FactEntity   `json:"entities"`
	Relationships []FactRelation `json:"relationships"`
}

// FactEntity is one extracted entity. Properties is a duck-typed bag
// constrained at the upsert boundary.
type FactEntity struct {
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties"`
}

// FactRelation links two extracted entities by name.
type FactRelation struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Type       string `json:"type"`
	TargetType string `json:"target_type,omitempty"`
}

var allowedFactTypes = map[string]bool{
	"Person": true, "Company": true, "Project": true, "Task": true,
	"Expense": true, "Debt": true, "Reminder": true, "Knowledge": true,
	"Topic": true, "Tag": true, "Item": true, "Location": true,
	"Idea": true, "Sprint": true,
}

// ParseFacts decodes extraction JSON, tolerating markdown fences, and
// drops tool-only and unknown entity types.
func ParseFacts(raw string) (*Facts, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	if raw == "" {
		return &Facts{}, nil
	}

	var facts Facts
	if err := json.Unmarshal([]byte(raw), &facts); err != nil {
		return nil, fmt.Errorf("failed to parse facts: %w", err)
	}

	kept := facts.Entities[:0]
	for _, e := range facts.Entities {
		if e.Name == "" || toolOnlyTypes[e.Type] || !allowedFactTypes[e.Type] {
			continue
		}
		if e.Properties == nil {
			e.Properties = map[string]any{}
		}
		kept = append(kept, e)
	}
	facts.Entities = kept

	return &facts, nil
}

// FilterTypes keeps only entities of the given types. Used by the
// auto-extraction path, which is restricted to safe types.
func (f *Facts) FilterTypes(types map[string]bool) {
	kept := f.Entities[:0]
	names := make(map[string]bool)
	for _, e := range f.Entities {
		if types[e.Type] {
			kept = append(kept, e)
			names[e.Name] = true
		}
	}
	f.Entities = kept

	rels := f.Relationships[:0]
	for _, r := range f.Relationships {
		if names[r.From] && names[r.To] {
			rels = append(rels, r)
		}
	}
	f.Relationships = rels
}
