package graph

import (
	"context"
	"fmt"
	"strings"
)

// DefaultPhases are the phase sections created for a new phased project.
var DefaultPhases = []string{"Planning", "Preparation", "Execution", "Review"}

// CreateSection creates a Section under a project. Sections are scoped
// to their project, so same-named sections can exist across projects.
func (s *Service) CreateSection(ctx context.Context, projectName, sectionName string, props map[string]any) (map[string]any, error) {
	projectName, err := s.ResolveEntityName(ctx, projectName, "Project")
	if err != nil {
		return nil, err
	}
	props = cleanProps(props)

	inline := ""
	params := map[string]any{"pname": projectName, "sname": sectionName, "now": now()}
	for k, v := range props {
		inline += fmt.Sprintf(", %s: $%s", k, k)
		params[k] = v
	}

	q := fmt.Sprintf(`
	MATCH (p:Project {name: $pname})
	CREATE (s:Section {name: $sname, created_at: $now%s})
	CREATE (p)-[:HAS_SECTION]->(s)
	RETURN s.name AS name`, inline)

	rows, err := s.write(ctx, q, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("Project '%s' not found", projectName)}, nil
	}
	return map[string]any{"status": "created", "section": sectionName, "project": projectName}, nil
}

// UpdateSection sets properties on a project's section.
func (s *Service) UpdateSection(ctx context.Context, projectName, sectionName string, props map[string]any) (map[string]any, error) {
	projectName, err := s.ResolveEntityName(ctx, projectName, "Project")
	if err != nil {
		return nil, err
	}
	props = cleanProps(props)
	if len(props) == 0 {
		return map[string]any{"error": "No fields to update"}, nil
	}

	params := map[string]any{"pname": projectName, "sname": sectionName, "now": now()}
	for k, v := range props {
		params[k] = v
	}

	q := fmt.Sprintf(`
	MATCH (p:Project {name: $pname})-[:HAS_SECTION]->(s:Section {name: $sname})
	SET s.updated_at = $now%s
	RETURN s.name AS name`, setClause("s", props))

	rows, err := s.write(ctx, q, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{
			"error": fmt.Sprintf("Section '%s' not found in project '%s'", sectionName, projectName),
		}, nil
	}
	return map[string]any{"status": "updated", "section": sectionName}, nil
}

// DeleteSection removes a section and its IN_SECTION edges. Member
// entities survive.
func (s *Service) DeleteSection(ctx context.Context, projectName, sectionName string) (map[string]any, error) {
	projectName, err := s.ResolveEntityName(ctx, projectName, "Project")
	if err != nil {
		return nil, err
	}

	q := `
	MATCH (p:Project {name: $pname})-[:HAS_SECTION]->(s:Section {name: $sname})
	OPTIONAL MATCH (e)-[r:IN_SECTION]->(s)
	DELETE r
	DETACH DELETE s
	RETURN p.name AS name`

	rows, err := s.write(ctx, q, map[string]any{"pname": projectName, "sname": sectionName})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{
			"error": fmt.Sprintf("Section '%s' not found in project '%s'", sectionName, projectName),
		}, nil
	}
	return map[string]any{"status": "deleted", "section": sectionName}, nil
}

// AssignToSection links an existing entity into a section.
func (s *Service) AssignToSection(ctx context.Context, projectName, sectionName, entityType, entityName string) (map[string]any, error) {
	projectName, err := s.ResolveEntityName(ctx, projectName, "Project")
	if err != nil {
		return nil, err
	}

	keyField := keyFieldFor(entityType)
	q := fmt.Sprintf(`
	MATCH (p:Project {name: $pname})-[:HAS_SECTION]->(s:Section {name: $sname})
	MATCH (e:%s {%s: $ename})
	MERGE (e)-[:IN_SECTION]->(s)
	RETURN e.%s AS name`, entityType, keyField, keyField)

	rows, err := s.write(ctx, q, map[string]any{
		"pname": projectName, "sname": sectionName, "ename": entityName,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{
			"error": fmt.Sprintf("Could not link %s '%s' to section '%s'", entityType, entityName, sectionName),
		}, nil
	}
	return map[string]any{"status": "assigned", "entity": entityName, "section": sectionName}, nil
}

// CreateProjectWithPhases creates a project with the default phase
// sections and marks the first phase active.
func (s *Service) CreateProjectWithPhases(ctx context.Context, name string, props map[string]any) (map[string]any, error) {
	canonical, err := s.UpsertProject(ctx, name, props)
	if err != nil {
		return nil, err
	}
	for i, phase := range DefaultPhases {
		if _, err := s.CreateSection(ctx, canonical, phase, map[string]any{
			"section_type": "phase",
			"order":        i + 1,
		}); err != nil {
			return nil, err
		}
	}

	q := `
	MATCH (p:Project {name: $name})
	SET p.active_phase = $phase`
	if _, err := s.write(ctx, q, map[string]any{"name": canonical, "phase": DefaultPhases[0]}); err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "name": canonical, "phases": DefaultPhases}, nil
}

// SetActivePhase moves a project to one of its phase sections.
func (s *Service) SetActivePhase(ctx context.Context, projectName, phaseName string) (map[string]any, error) {
	projectName, err := s.ResolveEntityName(ctx, projectName, "Project")
	if err != nil {
		return nil, err
	}

	q := `
	MATCH (p:Project {name: $pname})-[:HAS_SECTION]->(s:Section {name: $sname})
	WHERE s.section_type = 'phase'
	SET p.active_phase = $sname
	RETURN p.name AS name`

	rows, err := s.write(ctx, q, map[string]any{"pname": projectName, "sname": phaseName})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{
			"error": fmt.Sprintf("Phase '%s' not found in project '%s'", phaseName, projectName),
		}, nil
	}
	return map[string]any{"status": "updated", "project": projectName, "active_phase": phaseName}, nil
}

// CreateList creates a List node, optionally attached to a project and
// a section within it.
func (s *Service) CreateList(ctx context.Context, name, listType, projectName, sectionName string) (map[string]any, error) {
	if listType == "" {
		listType = "checklist"
	}

	q := `CREATE (l:List {name: $name, created_at: $now, list_type: $list_type})`
	if _, err := s.write(ctx, q, map[string]any{"name": name, "now": now(), "list_type": listType}); err != nil {
		return nil, fmt.Errorf("failed to create list %q: %w", name, err)
	}

	if projectName != "" {
		canonical, err := s.ResolveEntityName(ctx, projectName, "Project")
		if err != nil {
			return nil, err
		}
		projectName = canonical
		if err := s.CreateRelationship(ctx, "List", "name", name,
			"BELONGS_TO", "Project", "name", projectName); err != nil {
			return nil, err
		}
		if sectionName != "" {
			// Best effort: a missing section does not fail list creation.
			_, _ = s.AssignToSection(ctx, projectName, sectionName, "List", name)
		}
	}
	return map[string]any{"status": "created", "name": name, "list_type": listType}, nil
}

// AddListEntry appends an unchecked entry to a list.
func (s *Service) AddListEntry(ctx context.Context, listName, content string) (map[string]any, error) {
	q := `
	MATCH (l:List {name: $lname})
	CREATE (e:ListEntry {content: $content, checked: false, added_at: $now})
	CREATE (l)-[:HAS_ENTRY]->(e)
	RETURN e.content AS content`

	rows, err := s.write(ctx, q, map[string]any{"lname": listName, "content": content, "now": now()})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("List '%s' not found", listName)}, nil
	}
	return map[string]any{"status": "added", "list": listName, "entry": content}, nil
}

// CheckListEntry checks or unchecks an entry by fuzzy content match.
func (s *Service) CheckListEntry(ctx context.Context, listName, content string, checked bool) (map[string]any, error) {
	q := `
	MATCH (l:List {name: $lname})-[:HAS_ENTRY]->(e:ListEntry)
	WHERE toLower(e.content) CONTAINS toLower($content)
	SET e.checked = $checked, e.checked_at = $now
	RETURN e.content AS content`

	rows, err := s.write(ctx, q, map[string]any{
		"lname": listName, "content": content, "checked": checked, "now": now(),
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{
			"error": fmt.Sprintf("Entry '%s' not found in list '%s'", content, listName),
		}, nil
	}

	status := "unchecked"
	if checked {
		status = "checked"
	}
	return map[string]any{"status": status, "entry": rows[0]["content"]}, nil
}

// RemoveListEntry deletes an entry by fuzzy content match.
func (s *Service) RemoveListEntry(ctx context.Context, listName, content string) (map[string]any, error) {
	q := `
	MATCH (l:List {name: $lname})-[:HAS_ENTRY]->(e:ListEntry)
	WHERE toLower(e.content) CONTAINS toLower($content)
	DETACH DELETE e
	RETURN l.name AS name`

	rows, err := s.write(ctx, q, map[string]any{"lname": listName, "content": content})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{
			"error": fmt.Sprintf("Entry '%s' not found in list '%s'", content, listName),
		}, nil
	}
	return map[string]any{"status": "removed", "list": listName, "entry": content}, nil
}

// QueryList renders a single list with its checkbox entries.
func (s *Service) QueryList(ctx context.Context, listName string) (string, error) {
	q := `
	MATCH (l:List {name: $lname})
	OPTIONAL MATCH (l)-[:HAS_ENTRY]->(e:ListEntry)
	RETURN l.name AS name, l.list_type AS list_type,
	       collect({content: e.content, checked: e.checked, added_at: e.added_at}) AS entries`

	rows, err := s.read(ctx, q, map[string]any{"lname": listName})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return fmt.Sprintf("List '%s' not found.", listName), nil
	}

	name, _ := rows[0]["name"].(string)
	listType, _ := rows[0]["list_type"].(string)
	if listType == "" {
		listType = "checklist"
	}
	parts := []string{fmt.Sprintf("List: %s (%s)", name, listType)}

	entries, _ := rows[0]["entries"].([]any)
	hasEntries := false
	for _, raw := range entries {
		e, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		content, _ := e["content"].(string)
		if content == "" {
			continue
		}
		hasEntries = true
		mark := " "
		if checked, _ := e["checked"].(bool); checked {
			mark = "x"
		}
		parts = append(parts, fmt.Sprintf("  [%s] %s", mark, content))
	}
	if !hasEntries {
		parts = append(parts, "  (empty)")
	}
	return strings.Join(parts, "\n"), nil
}

// QueryListsOverview renders all lists, or a project's lists, with
// checked/total counts.
func (s *Service) QueryListsOverview(ctx context.Context, projectName string) (string, error) {
	var rows []map[string]any
	var err error

	if projectName != "" {
		projectName, err = s.ResolveEntityName(ctx, projectName, "Project")
		if err != nil {
			return "", err
		}
		q := `
		MATCH (l:List)-[:BELONGS_TO]->(p:Project {name: $pname})
		OPTIONAL MATCH (l)-[:HAS_ENTRY]->(e:ListEntry)
		RETURN l.name AS name, l.list_type AS list_type, count(e) AS total,
		       sum(CASE WHEN e.checked = true THEN 1 ELSE 0 END) AS checked`
		rows, err = s.read(ctx, q, map[string]any{"pname": projectName})
	} else {
		q := `
		MATCH (l:List)
		OPTIONAL MATCH (l)-[:HAS_ENTRY]->(e:ListEntry)
		RETURN l.name AS name, l.list_type AS list_type, count(e) AS total,
		       sum(CASE WHEN e.checked = true THEN 1 ELSE 0 END) AS checked
		LIMIT 30`
		rows, err = s.read(ctx, q, nil)
	}
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "No lists found.", nil
	}

	parts := []string{"Lists:"}
	for _, r := range rows {
		name, _ := r["name"].(string)
		listType, _ := r["list_type"].(string)
		total := asInt(r["total"])
		checked := asInt(r["checked"])
		progress := ""
		if total > 0 {
			progress = fmt.Sprintf(" (%d/%d checked)", checked, total)
		}
		parts = append(parts, fmt.Sprintf("  - %s [%s]%s", name, listType, progress))
	}
	return strings.Join(parts, "\n"), nil
}

// DeleteList removes a list and all its entries.
func (s *Service) DeleteList(ctx context.Context, listName string) (map[string]any, error) {
	qEntries := `
	MATCH (l:List {name: $name})-[:HAS_ENTRY]->(e:ListEntry)
	DETACH DELETE e`
	if _, err := s.write(ctx, qEntries, map[string]any{"name": listName}); err != nil {
		return nil, err
	}

	q := `
	MATCH (l:List {name: $name})
	WITH l, l.name AS n
	DETACH DELETE l
	RETURN n AS name`
	rows, err := s.write(ctx, q, map[string]any{"name": listName})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("List '%s' not found", listName)}, nil
	}
	return map[string]any{"status": "deleted", "name": listName}, nil
}
