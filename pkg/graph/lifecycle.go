package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// DeleteProject deletes a project by fuzzy name match together with
// its tasks, sections, lists and list entries.
func (s *Service) DeleteProject(ctx context.Context, name string) (map[string]any, error) {
	q := `
	MATCH (p:Project) WHERE toLower(p.name) CONTAINS toLower($name)
	OPTIONAL MATCH (t:Task)-[:BELONGS_TO]->(p)
	OPTIONAL MATCH (p)-[:HAS_SECTION]->(s:Section)
	OPTIONAL MATCH (l:List)-[:BELONGS_TO]->(p)
	OPTIONAL MATCH (l)-[:HAS_ENTRY]->(le:ListEntry)
	WITH p, p.name AS pname, collect(DISTINCT t) AS tasks,
	     collect(DISTINCT t.title) AS task_titles,
	     collect(DISTINCT s) AS sections,
	     collect(DISTINCT l) AS lists,
	     collect(DISTINCT le) AS list_entries
	DETACH DELETE p
	FOREACH (t IN tasks | DETACH DELETE t)
	FOREACH (s IN sections | DETACH DELETE s)
	FOREACH (l IN lists | DETACH DELETE l)
	FOREACH (le IN list_entries | DETACH DELETE le)
	RETURN pname, task_titles`

	rows, err := s.write(ctx, q, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("No project found matching '%s'", name)}, nil
	}

	pname, _ := rows[0]["pname"].(string)
	var taskTitles []string
	if raw, ok := rows[0]["task_titles"].([]any); ok {
		for _, t := range raw {
			if title, ok := t.(string); ok && title != "" {
				taskTitles = append(taskTitles, title)
			}
		}
	}
	return map[string]any{
		"deleted": pname, "tasks_deleted": len(taskTitles), "task_titles": taskTitles,
	}, nil
}

// SetProjectAliases records alias surface forms on a project node.
func (s *Service) SetProjectAliases(ctx context.Context, name string, aliases []string) error {
	canonical, err := s.ResolveEntityName(ctx, name, "Project")
	if err != nil {
		return err
	}
	for _, alias := range aliases {
		if alias == "" || alias == canonical {
			continue
		}
		if err := s.AddAlias(ctx, "Project", canonical, alias); err != nil {
			return err
		}
	}
	return nil
}

// RegisterAliasesInVector indexes alias embeddings pointing at the
// canonical name so resolution finds them later.
func (s *Service) RegisterAliasesInVector(ctx context.Context, canonical string, aliases []string, entityType string) error {
	if s.embedder == nil || s.vectors == nil {
		return nil
	}
	if entityType == "" {
		entityType = "Project"
	}
	for _, alias := range aliases {
		if alias == "" || alias == canonical {
			continue
		}
		vec, err := s.embedder.Embed(ctx, alias)
		if err != nil {
			slog.Debug("alias vector registration failed", "alias", alias, "error", err)
			continue
		}
		if err := s.vectors.Upsert(ctx, uuid.NewString(), vec, map[string]any{
			"source_type": "entity",
			"entity_type": entityType,
			"entity_name": canonical,
			"content":     alias,
		}); err != nil {
			slog.Debug("alias vector registration failed", "alias", alias, "error", err)
			continue
		}
		slog.Info("alias vector registered", "alias", alias, "canonical", canonical, "type", entityType)
	}
	return nil
}

// MergeProjects merges source projects into target: tasks, sections
// and lists re-link to the target, the sources are deleted.
func (s *Service) MergeProjects(ctx context.Context, sourceNames []string, targetName string) (map[string]any, error) {
	if _, err := s.UpsertProject(ctx, targetName, nil); err != nil {
		return nil, err
	}

	tasksMoved := 0
	sourcesDeleted := 0

	for _, src := range sourceNames {
		qRelink := `
		MATCH (t:Task)-[r:BELONGS_TO]->(src:Project)
		WHERE toLower(src.name) CONTAINS toLower($src_name)
		MATCH (tgt:Project {name: $target_name})
		DELETE r
		MERGE (t)-[:BELONGS_TO]->(tgt)
		RETURN count(t) AS n`
		rows, err := s.write(ctx, qRelink, map[string]any{"src_name": src, "target_name": targetName})
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			tasksMoved += asInt(rows[0]["n"])
		}

		qSections := `
		MATCH (src:Project)-[r:HAS_SECTION]->(s:Section)
		WHERE toLower(src.name) CONTAINS toLower($src_name)
		MATCH (tgt:Project {name: $target_name})
		DELETE r
		MERGE (tgt)-[:HAS_SECTION]->(s)`
		if _, err := s.write(ctx, qSections, map[string]any{"src_name": src, "target_name": targetName}); err != nil {
			return nil, err
		}

		qLists := `
		MATCH (l:List)-[r:BELONGS_TO]->(src:Project)
		WHERE toLower(src.name) CONTAINS toLower($src_name)
		MATCH (tgt:Project {name: $target_name})
		DELETE r
		MERGE (l)-[:BELONGS_TO]->(tgt)`
		if _, err := s.write(ctx, qLists, map[string]any{"src_name": src, "target_name": targetName}); err != nil {
			return nil, err
		}

		// Carry the source's aliases onto the target before it goes.
		qAliases := `
		MATCH (p:Project)
		WHERE toLower(p.name) CONTAINS toLower($src_name) AND p.name <> $target_name
		RETURN p.name AS name, p.name_aliases AS aliases`
		aliasRows, err := s.read(ctx, qAliases, map[string]any{"src_name": src, "target_name": targetName})
		if err != nil {
			return nil, err
		}
		for _, row := range aliasRows {
			if srcName, _ := row["name"].(string); srcName != "" {
				if err := s.AddAlias(ctx, "Project", targetName, srcName); err != nil {
					return nil, err
				}
			}
			if raw, ok := row["aliases"].([]any); ok {
				for _, a := range raw {
					if alias, ok := a.(string); ok && alias != "" {
						if err := s.AddAlias(ctx, "Project", targetName, alias); err != nil {
							return nil, err
						}
					}
				}
			}
		}

		qDel := `
		MATCH (p:Project)
		WHERE toLower(p.name) CONTAINS toLower($src_name) AND p.name <> $target_name
		WITH p, count(p) AS n
		DETACH DELETE p
		RETURN n`
		delRows, err := s.write(ctx, qDel, map[string]any{"src_name": src, "target_name": targetName})
		if err != nil {
			return nil, err
		}
		sourcesDeleted += sumColumn(delRows, "n")
	}

	s.ClearResolutionCache()
	return map[string]any{
		"target": targetName, "sources_deleted": sourcesDeleted, "tasks_moved": tasksMoved,
	}, nil
}

// DeleteTask deletes tasks by fuzzy title match.
func (s *Service) DeleteTask(ctx context.Context, title string) (map[string]any, error) {
	q := `
	MATCH (t:Task) WHERE toLower(t.title) CONTAINS toLower($title)
	WITH t, t.title AS tname
	DETACH DELETE t
	RETURN tname`

	rows, err := s.write(ctx, q, map[string]any{"title": title})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("No task found matching '%s'", title)}, nil
	}

	deleted := make([]string, 0, len(rows))
	for _, row := range rows {
		if t, ok := row["tname"].(string); ok {
			deleted = append(deleted, t)
		}
	}
	return map[string]any{"deleted": deleted, "count": len(deleted)}, nil
}

// TaskUpdate carries the optional fields of a direct task update. Nil
// means leave unchanged.
type TaskUpdate struct {
	NewTitle *string
	Status   *string
	DueDate  *string
	Priority *int
	Project  *string
}

// UpdateTask updates task fields by fuzzy title match. Completing a
// task auto-dismisses reminders that match its title.
func (s *Service) UpdateTask(ctx context.Context, title string, upd TaskUpdate) (map[string]any, error) {
	var sets []string
	params := map[string]any{"title": title, "now": now()}
	if upd.NewTitle != nil {
		sets = append(sets, "t.title = $new_title")
		params["new_title"] = *upd.NewTitle
	}
	if upd.Status != nil {
		sets = append(sets, "t.status = $status")
		params["status"] = *upd.Status
	}
	if upd.DueDate != nil {
		sets = append(sets, "t.due_date = $due_date")
		params["due_date"] = *upd.DueDate
	}
	if upd.Priority != nil {
		sets = append(sets, "t.priority = $priority")
		params["priority"] = *upd.Priority
	}
	if len(sets) == 0 && upd.Project == nil {
		return map[string]any{"error": "No fields to update"}, nil
	}
	sets = append(sets, "t.updated_at = $now")

	q := fmt.Sprintf(`
	MATCH (t:Task) WHERE toLower(t.title) CONTAINS toLower($title)
	SET %s
	RETURN t.title AS title, t.status AS status, t.due_date AS due_date, t.priority AS priority`,
		strings.Join(sets, ", "))

	rows, err := s.write(ctx, q, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("No task found matching '%s'", title)}, nil
	}

	result := rows[0]
	matchedTitle, _ := result["title"].(string)

	if upd.Status != nil && *upd.Status == "done" {
		dismissed, err := s.AutoDismissReminders(ctx, matchedTitle)
		if err != nil {
			slog.Warn("reminder auto-dismiss failed", "task", matchedTitle, "error", err)
		} else if len(dismissed) > 0 {
			result["dismissed_reminders"] = dismissed
		}
	}

	if upd.Project != nil {
		if _, err := s.UpsertProject(ctx, *upd.Project, nil); err != nil {
			return nil, err
		}
		if err := s.CreateRelationship(ctx, "Task", "title", matchedTitle,
			"BELONGS_TO", "Project", "name", *upd.Project); err != nil {
			slog.Debug("task-project link skipped", "task", matchedTitle, "error", err)
		} else {
			result["project"] = *upd.Project
		}
	}
	return result, nil
}

// MergeDuplicateTasks collapses active tasks that share a normalised
// title. Keeper preference: in_progress over todo, highest priority,
// earliest due date, stable id.
func (s *Service) MergeDuplicateTasks(ctx context.Context) (map[string]any, error) {
	qAll := `
	MATCH (t:Task)
	WHERE t.status IN ['todo', 'in_progress']
	OPTIONAL MATCH (t)-[:BELONGS_TO]->(p:Project)
	RETURN elementId(t) AS id, t.title AS title, t.due_date AS due_date,
	       t.priority AS priority, t.status AS status,
	       t.energy_level AS energy_level, t.description AS description,
	       p.name AS project
	ORDER BY t.title`

	rows, err := s.read(ctx, qAll, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"merged_groups": []any{}, "total_removed": 0}, nil
	}

	groups := make(map[string][]map[string]any)
	for _, row := range rows {
		title, _ := row["title"].(string)
		key := strings.ToLower(strings.TrimSpace(title))
		groups[key] = append(groups[key], row)
	}

	var mergedGroups []map[string]any
	totalRemoved := 0

	for _, items := range groups {
		if len(items) < 2 {
			continue
		}

		sort.Slice(items, func(i, j int) bool {
			ri, rj := items[i], items[j]
			si, sj := 1, 1
			if ri["status"] == "in_progress" {
				si = 0
			}
			if rj["status"] == "in_progress" {
				sj = 0
			}
			if si != sj {
				return si < sj
			}
			pi, pj := asInt(ri["priority"]), asInt(rj["priority"])
			if pi != pj {
				return pi > pj
			}
			di, _ := ri["due_date"].(string)
			dj, _ := rj["due_date"].(string)
			if di == "" {
				di = "9999"
			}
			if dj == "" {
				dj = "9999"
			}
			if di != dj {
				return di < dj
			}
			idi, _ := ri["id"].(string)
			idj, _ := rj["id"].(string)
			return idi < idj
		})

		keep := items[0]
		remove := items[1:]

		bestPriority := asInt(keep["priority"])
		bestDescription, _ := keep["description"].(string)
		bestEnergy, _ := keep["energy_level"].(string)
		bestProject, _ := keep["project"].(string)
		for _, item := range remove {
			if p := asInt(item["priority"]); p > bestPriority {
				bestPriority = p
			}
			if bestDescription == "" {
				bestDescription, _ = item["description"].(string)
			}
			if bestEnergy == "" {
				bestEnergy, _ = item["energy_level"].(string)
			}
			if bestProject == "" {
				bestProject, _ = item["project"].(string)
			}
		}

		keepID, _ := keep["id"].(string)
		updateSets := []string{"t.updated_at = $now"}
		updateParams := map[string]any{"kid": keepID, "now": now()}
		if bestPriority > 0 && bestPriority != asInt(keep["priority"]) {
			updateSets = append(updateSets, "t.priority = $priority")
			updateParams["priority"] = bestPriority
		}
		if bestDescription != "" {
			if cur, _ := keep["description"].(string); cur != bestDescription {
				updateSets = append(updateSets, "t.description = $description")
				updateParams["description"] = bestDescription
			}
		}
		if bestEnergy != "" {
			if cur, _ := keep["energy_level"].(string); cur != bestEnergy {
				updateSets = append(updateSets, "t.energy_level = $energy_level")
				updateParams["energy_level"] = bestEnergy
			}
		}

		qUpdate := fmt.Sprintf(`
		MATCH (t:Task) WHERE elementId(t) = $kid
		SET %s`, strings.Join(updateSets, ", "))
		if _, err := s.write(ctx, qUpdate, updateParams); err != nil {
			return nil, err
		}

		keepTitle, _ := keep["title"].(string)
		if keepProject, _ := keep["project"].(string); bestProject != "" && keepProject == "" {
			if err := s.CreateRelationship(ctx, "Task", "title", keepTitle,
				"BELONGS_TO", "Project", "name", bestProject); err != nil {
				slog.Debug("task-project link skipped during merge", "task", keepTitle, "error", err)
			}
		}

		removeIDs := make([]string, 0, len(remove))
		for _, item := range remove {
			if id, ok := item["id"].(string); ok {
				removeIDs = append(removeIDs, id)
			}
		}
		qDelete := `
		MATCH (t:Task) WHERE elementId(t) IN $ids
		DETACH DELETE t`
		if _, err := s.write(ctx, qDelete, map[string]any{"ids": removeIDs}); err != nil {
			return nil, err
		}

		mergedGroups = append(mergedGroups, map[string]any{
			"kept":          keepTitle,
			"removed_count": len(remove),
		})
		totalRemoved += len(remove)
	}

	return map[string]any{"merged_groups": mergedGroups, "total_removed": totalRemoved}, nil
}

// RecordDebtPayment applies a payment to the open or partial debt of a
// person. When several debts match, it returns the options instead of
// guessing.
func (s *Service) RecordDebtPayment(ctx context.Context, person string, amount float64, direction string) (map[string]any, error) {
	directionClause := ""
	params := map[string]any{"person": person}
	if direction != "" {
		directionClause = "AND d.direction = $direction"
		params["direction"] = NormalizeDirection(direction)
	}

	qFind := fmt.Sprintf(`
	MATCH (d:Debt)-[:INVOLVES]->(p:Person)
	WHERE toLower(p.name) CONTAINS toLower($person)
	  AND d.status IN ['open', 'partial']
	  %s
	RETURN d.id AS debt_id, d.amount AS amount, d.direction AS direction,
	       p.name AS person, d.original_amount AS original_amount, d.reason AS reason
	ORDER BY d.amount DESC`, directionClause)

	rows, err := s.read(ctx, qFind, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("No open debt found for '%s'", person)}, nil
	}

	if len(rows) > 1 {
		options := make([]map[string]any, 0, len(rows))
		for i, r := range rows {
			reason, _ := r["reason"].(string)
			options = append(options, map[string]any{
				"index":           i + 1,
				"debt_id":         r["debt_id"],
				"current_amount":  r["amount"],
				"direction":       r["direction"],
				"person":          r["person"],
				"original_amount": r["original_amount"],
				"reason":          reason,
			})
		}
		return map[string]any{"disambiguation_needed": true, "options": options}, nil
	}

	return s.applyDebtPayment(ctx, rows[0], amount)
}

// ApplyDebtPaymentByID applies a payment to one specific debt, used
// after disambiguation.
func (s *Service) ApplyDebtPaymentByID(ctx context.Context, debtID string, amount float64) (map[string]any, error) {
	q := `
	MATCH (d:Debt)-[:INVOLVES]->(p:Person)
	WHERE d.id = $debt_id
	RETURN d.id AS debt_id, d.amount AS amount, d.direction AS direction,
	       p.name AS person, d.original_amount AS original_amount, d.reason AS reason`

	rows, err := s.read(ctx, q, map[string]any{"debt_id": debtID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": "Debt not found"}, nil
	}
	return s.applyDebtPayment(ctx, rows[0], amount)
}

func (s *Service) applyDebtPayment(ctx context.Context, row map[string]any, amount float64) (map[string]any, error) {
	debtID, _ := row["debt_id"].(string)
	currentAmount := getFloat(row, "amount")
	debtDir, _ := row["direction"].(string)
	personName, _ := row["person"].(string)
	origAmount := getFloat(row, "original_amount")
	if origAmount == 0 {
		origAmount = currentAmount
	}

	remaining := currentAmount - amount
	if remaining <= 0 {
		q := `
		MATCH (d:Debt) WHERE d.id = $debt_id
		SET d.amount = 0, d.status = 'paid', d.paid_at = $now,
		    d.original_amount = $orig`
		if _, err := s.write(ctx, q, map[string]any{"debt_id": debtID, "now": now(), "orig": origAmount}); err != nil {
			return nil, err
		}
		return map[string]any{
			"person": personName, "paid": amount, "remaining": 0.0,
			"status": "paid", "direction": debtDir,
		}, nil
	}

	q := `
	MATCH (d:Debt) WHERE d.id = $debt_id
	SET d.amount = $remaining, d.status = 'partial',
	    d.original_amount = $orig`
	if _, err := s.write(ctx, q, map[string]any{"debt_id": debtID, "remaining": remaining, "orig": origAmount}); err != nil {
		return nil, err
	}
	return map[string]any{
		"person": personName, "paid": amount, "remaining": remaining,
		"status": "partial", "direction": debtDir,
	}, nil
}
