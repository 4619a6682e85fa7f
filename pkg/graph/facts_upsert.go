package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// UpsertResult reports what a facts batch produced.
type UpsertResult struct {
	Entities []string // canonical "Type:name" identifiers
}

func getString(props map[string]any, key string) string {
	v, _ := props[key].(string)
	return v
}

func getFloat(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// UpsertFromFacts routes extracted facts to the typed upserts, creates
// the relationships between them and, when fileHash is set, records
// EXTRACTED_FROM provenance. ensure_file_stub must have been called
// first: provenance edges MATCH the File node, they never create it.
// Upserts from one batch run serialised to keep resolution consistent.
func (s *Service) UpsertFromFacts(ctx context.Context, facts *Facts, fileHash string) (*UpsertResult, error) {
	s.ClearResolutionCache()

	result := &UpsertResult{}
	canonicalByName := make(map[string]string)
	labelByName := make(map[string]string)

	for _, e := range facts.Entities {
		canonical, err := s.upsertFactEntity(ctx, e)
		if err != nil {
			return nil, err
		}
		if canonical == "" {
			continue
		}

		canonicalByName[e.Name] = canonical
		labelByName[e.Name] = e.Type
		result.Entities = append(result.Entities, e.Type+":"+canonical)

		if fileHash != "" && e.Type != "Expense" && e.Type != "Debt" {
			if err := s.addProvenance(ctx, e.Type, canonical, fileHash); err != nil {
				return nil, err
			}
		}

		if e.Type == "Task" {
			if err := s.autoLinkTaskToProject(ctx, canonical, facts.Relationships); err != nil {
				slog.Debug("auto-link task to project skipped", "task", canonical, "error", err)
			}
		}
	}

	for _, rel := range facts.Relationships {
		// Debt edges are created by the debt upsert itself.
		if labelByName[rel.From] == "Debt" {
			continue
		}

		from, okFrom := canonicalByName[rel.From]
		fromLabel := labelByName[rel.From]
		if !okFrom || fromLabel == "" {
			continue
		}

		toLabel := rel.TargetType
		to, okTo := canonicalByName[rel.To]
		if okTo {
			toLabel = labelByName[rel.To]
		} else {
			// Relationship to an entity outside this batch: resolve
			// resolvable labels, take the name as-is otherwise.
			if toLabel == "" {
				continue
			}
			to = rel.To
			if !resolutionSkipTypes[toLabel] {
				resolved, err := s.ResolveEntityName(ctx, rel.To, toLabel)
				if err != nil {
					return nil, err
				}
				to = resolved
			}
		}

		relType := rel.Type
		if relType == "" {
			relType = "RELATED_TO"
		}

		if err := s.CreateRelationship(ctx,
			fromLabel, keyFieldFor(fromLabel), from,
			relType,
			toLabel, keyFieldFor(toLabel), to); err != nil {
			slog.Warn("failed to create extracted relationship",
				"from", from, "to", to, "type", relType, "error", err)
		}
	}

	return result, nil
}

func (s *Service) upsertFactEntity(ctx context.Context, e FactEntity) (string, error) {
	props := e.Properties

	switch e.Type {
	case "Person":
		return s.UpsertPerson(ctx, e.Name, props)
	case "Company":
		return s.UpsertCompany(ctx, e.Name)
	case "Project":
		return s.UpsertProject(ctx, e.Name, props)
	case "Topic":
		return s.UpsertTopic(ctx, e.Name)
	case "Tag":
		return s.UpsertTag(ctx, e.Name)
	case "Task":
		return s.UpsertTask(ctx, e.Name, props)
	case "Knowledge":
		title := e.Name
		if t := getString(props, "title"); t != "" {
			title = t
		}
		return s.UpsertKnowledge(ctx, title, props)
	case "Expense":
		amount := getFloat(props, "amount")
		if amount <= 0 {
			return "", nil
		}
		return s.UpsertExpense(ctx, amount, props)
	case "Debt":
		person := getString(props, "person")
		amount := getFloat(props, "amount")
		if person == "" || amount <= 0 {
			return "", nil
		}
		return s.UpsertDebt(ctx, person, amount, getString(props, "direction"), props)
	case "Reminder":
		title := e.Name
		if t := getString(props, "title"); t != "" {
			title = t
		}
		return s.CreateReminder(ctx, title, props)
	case "Item":
		return s.UpsertItem(ctx, e.Name, props)
	case "Location":
		path := NormalizeLocation(e.Name)
		if path == "" {
			return "", nil
		}
		q := `
		MERGE (l:Location {path: $path})
		ON CREATE SET l.created_at = $now`
		if _, err := s.write(ctx, q, map[string]any{"path": path, "now": now()}); err != nil {
			return "", fmt.Errorf("failed to upsert location %q: %w", path, err)
		}
		return path, nil
	case "Idea":
		return s.UpsertIdea(ctx, e.Name, getString(props, "content"))
	case "Sprint":
		return s.UpsertSprint(ctx, e.Name, props)
	default:
		return "", nil
	}
}

// addProvenance records the EXTRACTED_FROM edge. The File node must
// already exist; a missing stub is a Fatal invariant violation.
func (s *Service) addProvenance(ctx context.Context, label, name, fileHash string) error {
	q := fmt.Sprintf(`
	MATCH (n:%s {%s: $name})
	MATCH (f:File {sha256: $hash})
	MERGE (n)-[:EXTRACTED_FROM]->(f)
	RETURN f.sha256 AS hash`, label, keyFieldFor(label))

	rows, err := s.write(ctx, q, map[string]any{"name": name, "hash": fileHash})
	if err != nil {
		return fmt.Errorf("failed to add provenance for %s %q: %w", label, name, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("provenance edge for %s %q failed: file stub %s missing", label, name, fileHash)
	}
	return nil
}

// autoLinkTaskToProject links an extracted task to an existing project
// whose name appears inside the task title, unless the batch already
// carries a project relationship for it.
func (s *Service) autoLinkTaskToProject(ctx context.Context, title string, rels []FactRelation) error {
	for _, r := range rels {
		if r.From == title && (r.Type == "BELONGS_TO" || r.TargetType == "Project") {
			return nil
		}
	}

	rows, err := s.read(ctx, "MATCH (p:Project) RETURN p.name AS name", nil)
	if err != nil {
		return err
	}

	taskLower := strings.ToLower(title)
	for _, row := range rows {
		pname, _ := row["name"].(string)
		if pname != "" && strings.Contains(taskLower, strings.ToLower(pname)) {
			if err := s.CreateRelationship(ctx, "Task", "title", title, "BELONGS_TO", "Project", "name", pname); err != nil {
				return err
			}
			slog.Info("auto-linked task to project", "task", title, "project", pname)
			return nil
		}
	}
	return nil
}
