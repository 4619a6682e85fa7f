package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// CreateReminder updates an existing pending/snoozed reminder with the
// same title (case-insensitive) or creates a new one. Returns the title.
func (s *Service) CreateReminder(ctx context.Context, title string, props map[string]any) (string, error) {
	props = cleanProps(props)
	if _, ok := props["snooze_count"]; !ok {
		props["snooze_count"] = 0
	}
	if _, ok := props["reminder_type"]; !ok {
		props["reminder_type"] = "one_time"
	}
	if due, _ := props["due_date"].(string); due == "" {
		// A reminder's due_date is never empty.
		props["due_date"] = time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
	}

	// The store cannot MERGE case-insensitively; match first.
	qMatch := fmt.Sprintf(`
	MATCH (r:Reminder)
	WHERE toLower(r.title) = toLower($title)
	  AND r.status IN ['pending', 'snoozed']
	SET r.updated_at = $now%s
	RETURN r.title AS title`, setClause("r", props))

	params := map[string]any{"title": title, "now": now()}
	for k, v := range props {
		params[k] = v
	}

	rows, err := s.write(ctx, qMatch, params)
	if err != nil {
		return "", fmt.Errorf("failed to update reminder %q: %w", title, err)
	}
	if len(rows) > 0 {
		existing, _ := rows[0]["title"].(string)
		return existing, nil
	}

	qCreate := fmt.Sprintf(`
	CREATE (r:Reminder {title: $title, status: 'pending', created_at: $now})
	SET r.title = $title%s
	RETURN r.title AS title`, setClause("r", props))

	if _, err := s.write(ctx, qCreate, params); err != nil {
		return "", fmt.Errorf("failed to create reminder %q: %w", title, err)
	}
	return title, nil
}

// reminderMatch is a matched reminder title with its element id.
type reminderMatch struct {
	Title string
	ID    string
}

// findMatchingReminders finds reminders for a free-text title using the
// multi-strategy matcher:
//  1. direct CONTAINS
//  2. CONTAINS with a singular/plural variant (English s-suffix and
//     Arabic article/suffix variants)
//  3. all-keywords (every word of length >= 3 appears in the title)
//  4. reverse CONTAINS (the query contains the stored title)
//  5. vector similarity via entity resolution
func (s *Service) findMatchingReminders(ctx context.Context, title string, statuses []string) ([]reminderMatch, error) {
	statusClause := ""
	params := map[string]any{"title": title}
	if len(statuses) > 0 {
		statusClause = " AND r.status IN $statuses"
		params["statuses"] = statuses
	}

	qContains := fmt.Sprintf(`
	MATCH (r:Reminder) WHERE toLower(r.title) CONTAINS toLower($title)%s
	RETURN r.title AS title, elementId(r) AS id`, statusClause)

	rows, err := s.read(ctx, qContains, params)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return toReminderMatches(rows), nil
	}

	// Strategy 2: singular/plural variants.
	for _, variant := range titleVariants(title) {
		p := map[string]any{"title": variant}
		if len(statuses) > 0 {
			p["statuses"] = statuses
		}
		rows, err = s.read(ctx, qContains, p)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			slog.Info("reminder matched with variant", "variant", variant, "original", title)
			return toReminderMatches(rows), nil
		}
	}

	// Strategy 3: all keywords.
	words := keywordTokens(title)
	if len(words) >= 2 {
		conds := make([]string, len(words))
		kwParams := map[string]any{}
		if len(statuses) > 0 {
			kwParams["statuses"] = statuses
		}
		for i, w := range words {
			key := fmt.Sprintf("w%d", i)
			conds[i] = fmt.Sprintf("toLower(r.title) CONTAINS $%s", key)
			kwParams[key] = w
		}
		qKw := fmt.Sprintf(`
		MATCH (r:Reminder) WHERE %s%s
		RETURN r.title AS title, elementId(r) AS id`, strings.Join(conds, " AND "), statusClause)

		rows, err = s.read(ctx, qKw, kwParams)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			slog.Info("reminder matched via keywords", "keywords", words, "original", title)
			return toReminderMatches(rows), nil
		}
	}

	// Strategy 4: reverse CONTAINS.
	qRev := fmt.Sprintf(`
	MATCH (r:Reminder) WHERE toLower($title) CONTAINS toLower(r.title)%s
	RETURN r.title AS title, elementId(r) AS id`, statusClause)
	rows, err = s.read(ctx, qRev, params)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		slog.Info("reminder matched via reverse contains", "original", title)
		return toReminderMatches(rows), nil
	}

	// Strategy 5: vector similarity for transliteration variants.
	if s.vectors != nil && s.embedder != nil {
		resolved, err := s.resolveReminderTitle(ctx, title)
		if err == nil && resolved != "" && !strings.EqualFold(resolved, title) {
			p := map[string]any{"title": resolved}
			if len(statuses) > 0 {
				p["statuses"] = statuses
			}
			rows, err = s.read(ctx, qContains, p)
			if err != nil {
				return nil, err
			}
			if len(rows) > 0 {
				slog.Info("reminder matched via vector similarity", "resolved", resolved, "original", title)
				return toReminderMatches(rows), nil
			}
		}
	}

	return nil, nil
}

// resolveReminderTitle runs a vector lookup over indexed reminder
// titles, bypassing the resolution skip list.
func (s *Service) resolveReminderTitle(ctx context.Context, title string) (string, error) {
	vec, err := s.embedder.Embed(ctx, title)
	if err != nil {
		return "", err
	}
	results, err := s.vectors.Search(ctx, vec, 3, map[string]any{
		"source_type": "entity",
		"entity_type": "Reminder",
	})
	if err != nil {
		return "", err
	}
	for _, r := range results {
		name, _ := r.Payload["entity_name"].(string)
		if name != "" && r.Score >= 0.40 {
			return name, nil
		}
	}
	return "", nil
}

// SearchReminders returns titles matching a free-text query via the
// multi-strategy matcher.
func (s *Service) SearchReminders(ctx context.Context, query string, statuses []string) ([]string, error) {
	matches, err := s.findMatchingReminders(ctx, query, statuses)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		titles = append(titles, m.Title)
	}
	return titles, nil
}

func toReminderMatches(rows []map[string]any) []reminderMatch {
	out := make([]reminderMatch, 0, len(rows))
	for _, row := range rows {
		t, _ := row["title"].(string)
		id, _ := row["id"].(string)
		out = append(out, reminderMatch{Title: t, ID: id})
	}
	return out
}

// titleVariants builds singular/plural spelling variants.
func titleVariants(title string) []string {
	t := strings.TrimSpace(title)
	var variants []string

	if strings.HasSuffix(t, "s") && len(t) > 3 {
		variants = append(variants, t[:len(t)-1])
	} else {
		variants = append(variants, t+"s")
	}

	for _, v := range arabicVariants(t) {
		if v != t {
			variants = append(variants, v)
		}
	}
	return variants
}

func keywordTokens(title string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(title)) {
		if len([]rune(w)) >= 3 {
			words = append(words, w)
		}
	}
	return words
}

// UpdateReminderStatus marks matched reminders done, snoozed or
// cancelled, or deletes them.
func (s *Service) UpdateReminderStatus(ctx context.Context, title, action, snoozeUntil string) (map[string]any, error) {
	matches, err := s.findMatchingReminders(ctx, title, nil)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return map[string]any{"error": fmt.Sprintf("No reminder found matching '%s'", title)}, nil
	}

	for _, m := range matches {
		var q string
		params := map[string]any{"title": m.Title, "now": now()}

		switch action {
		case "done":
			q = `
			MATCH (r:Reminder) WHERE r.title = $title
			SET r.status = 'done', r.completed_at = $now`
		case "snooze":
			q = `
			MATCH (r:Reminder) WHERE r.title = $title
			SET r.status = 'snoozed',
			    r.snooze_count = coalesce(r.snooze_count, 0) + 1,
			    r.snoozed_until = $snooze_until`
			params["snooze_until"] = snoozeUntil
		case "cancel":
			q = `
			MATCH (r:Reminder) WHERE r.title = $title
			SET r.status = 'cancelled', r.cancelled_at = $now`
		case "delete":
			q = `
			MATCH (r:Reminder) WHERE r.title = $title
			DETACH DELETE r`
		default:
			return nil, fmt.Errorf("unknown reminder action: %s", action)
		}

		if _, err := s.write(ctx, q, params); err != nil {
			return nil, err
		}
	}

	status := action
	if action == "delete" {
		status = "deleted"
	}
	return map[string]any{"title": matches[0].Title, "status": status}, nil
}

// AdvanceRecurringReminder moves a pending recurring reminder's due
// date forward by its recurrence until the date is in the future.
func (s *Service) AdvanceRecurringReminder(ctx context.Context, title, recurrence string) (map[string]any, error) {
	qFind := `
	MATCH (r:Reminder)
	WHERE toLower(r.title) CONTAINS toLower($title)
	  AND r.status = 'pending'
	RETURN r.title AS title, r.due_date AS due_date
	LIMIT 1`

	rows, err := s.read(ctx, qFind, map[string]any{"title": title})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("No pending reminder found matching '%s'", title)}, nil
	}

	rTitle, _ := rows[0]["title"].(string)
	dueStr, _ := rows[0]["due_date"].(string)
	if dueStr == "" {
		return map[string]any{"error": fmt.Sprintf("Reminder '%s' has no due_date to advance", rTitle)}, nil
	}

	due, err := parseDueDate(dueStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse due date %q: %w", dueStr, err)
	}

	next, err := nextOccurrence(due, recurrence, time.Now().UTC())
	if err != nil {
		return map[string]any{"error": err.Error()}, nil
	}
	nextStr := next.Format(time.RFC3339)

	qUpdate := `
	MATCH (r:Reminder)
	WHERE toLower(r.title) CONTAINS toLower($title)
	  AND r.status = 'pending'
	SET r.due_date = $next_due, r.updated_at = $now, r.notified_at = NULL`
	if _, err := s.write(ctx, qUpdate, map[string]any{"title": title, "next_due": nextStr, "now": now()}); err != nil {
		return nil, err
	}

	return map[string]any{"title": rTitle, "next_due": nextStr, "recurrence": recurrence}, nil
}

func parseDueDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if len(s) >= 19 {
		if t, err := time.Parse("2006-01-02T15:04:05", s[:19]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date format")
}

// nextOccurrence advances due by one recurrence step at a time until
// the result is after ref. Calendar months and years, not fixed spans.
func nextOccurrence(due time.Time, recurrence string, ref time.Time) (time.Time, error) {
	step := func(t time.Time) time.Time { return t }
	switch strings.ToLower(strings.TrimSpace(recurrence)) {
	case "daily":
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case "weekly":
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	case "monthly":
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	case "yearly":
		step = func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }
	default:
		return time.Time{}, fmt.Errorf("unknown recurrence: %s", recurrence)
	}

	next := step(due)
	for !next.After(ref) {
		next = step(next)
	}
	return next, nil
}

// AutoDismissReminders marks pending reminders matching a completed
// task title as done. Uses the multi-strategy matcher restricted to
// pending reminders.
func (s *Service) AutoDismissReminders(ctx context.Context, taskTitle string) ([]string, error) {
	matches, err := s.findMatchingReminders(ctx, taskTitle, []string{"pending"})
	if err != nil {
		return nil, err
	}

	var dismissed []string
	for _, m := range matches {
		q := `
		MATCH (r:Reminder) WHERE r.title = $title AND r.status = 'pending'
		SET r.status = 'done', r.completed_at = $now`
		if _, err := s.write(ctx, q, map[string]any{"title": m.Title, "now": now()}); err != nil {
			return dismissed, err
		}
		dismissed = append(dismissed, m.Title)
	}

	if len(dismissed) > 0 {
		slog.Info("auto-dismissed reminders", "task", taskTitle, "dismissed", dismissed)
	}
	return dismissed, nil
}

// MarkReminderNotified records delivery. A set operation, idempotent
// under duplicate delivery.
func (s *Service) MarkReminderNotified(ctx context.Context, title string) error {
	q := `
	MATCH (r:Reminder) WHERE r.title = $title
	SET r.notified_at = $now`
	if _, err := s.write(ctx, q, map[string]any{"title": title, "now": now()}); err != nil {
		return fmt.Errorf("failed to mark reminder notified: %w", err)
	}
	return nil
}

// UpdateReminder updates reminder fields by fuzzy title match.
func (s *Service) UpdateReminder(ctx context.Context, title string, updates map[string]any) (map[string]any, error) {
	updates = cleanProps(updates)
	if len(updates) == 0 {
		return map[string]any{"error": "No fields to update"}, nil
	}

	var sets []string
	params := map[string]any{"title": title, "now": now()}
	for k, v := range updates {
		field := k
		if k == "new_title" {
			field = "title"
		}
		sets = append(sets, fmt.Sprintf("r.%s = $%s", field, k))
		params[k] = v
	}
	sets = append(sets, "r.updated_at = $now")

	q := fmt.Sprintf(`
	MATCH (r:Reminder) WHERE toLower(r.title) CONTAINS toLower($title)
	SET %s
	RETURN r.title AS title, r.status AS status, r.due_date AS due_date`, strings.Join(sets, ", "))

	rows, err := s.write(ctx, q, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("No reminder found matching '%s'", title)}, nil
	}
	return rows[0], nil
}

// DeleteReminder deletes reminders by fuzzy title match.
func (s *Service) DeleteReminder(ctx context.Context, title string) (map[string]any, error) {
	q := `
	MATCH (r:Reminder) WHERE toLower(r.title) CONTAINS toLower($title)
	WITH r, r.title AS t
	DETACH DELETE r
	RETURN t AS title`

	rows, err := s.write(ctx, q, map[string]any{"title": title})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("No reminder found matching '%s'", title)}, nil
	}

	deleted := make([]string, 0, len(rows))
	for _, row := range rows {
		if t, ok := row["title"].(string); ok {
			deleted = append(deleted, t)
		}
	}
	return map[string]any{"deleted": deleted, "count": len(deleted)}, nil
}

// DeleteAllReminders deletes every reminder, optionally filtered by
// status. Returns the count and titles.
func (s *Service) DeleteAllReminders(ctx context.Context, status string) (map[string]any, error) {
	q := `
	MATCH (r:Reminder)
	WITH r, r.title AS t
	DETACH DELETE r
	RETURN t AS title`
	params := map[string]any{}
	if status != "" {
		q = `
		MATCH (r:Reminder {status: $status})
		WITH r, r.title AS t
		DETACH DELETE r
		RETURN t AS title`
		params["status"] = status
	}

	rows, err := s.write(ctx, q, params)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(rows))
	for _, row := range rows {
		if t, ok := row["title"].(string); ok {
			titles = append(titles, t)
		}
	}
	return map[string]any{"deleted_count": len(titles), "titles": titles}, nil
}

// MergeDuplicateReminders groups pending/snoozed reminders by
// normalised title, keeps the best of each group (pending first, then
// earliest due, then stable id), merges the best properties into the
// keeper and deletes the rest.
func (s *Service) MergeDuplicateReminders(ctx context.Context) (map[string]any, error) {
	qAll := `
	MATCH (r:Reminder)
	WHERE r.status IN ['pending', 'snoozed']
	RETURN elementId(r) AS id, r.title AS title, r.due_date AS due_date,
	       r.priority AS priority, r.recurrence AS recurrence,
	       r.status AS status, r.description AS description
	ORDER BY r.title`

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
			si, sj := 0, 0
			if ri["status"] != "pending" {
				si = 1
			}
			if rj["status"] != "pending" {
				sj = 1
			}
			if si != sj {
				return si < sj
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
		bestRecurrence, _ := keep["recurrence"].(string)
		bestDescription, _ := keep["description"].(string)
		for _, item := range remove {
			if p := asInt(item["priority"]); p > bestPriority {
				bestPriority = p
			}
			if bestRecurrence == "" {
				bestRecurrence, _ = item["recurrence"].(string)
			}
			if bestDescription == "" {
				bestDescription, _ = item["description"].(string)
			}
		}

		keepID, _ := keep["id"].(string)
		updateSets := []string{"r.updated_at = $now"}
		updateParams := map[string]any{"kid": keepID, "now": now()}
		if bestPriority > 0 && bestPriority != asInt(keep["priority"]) {
			updateSets = append(updateSets, "r.priority = $priority")
			updateParams["priority"] = bestPriority
		}
		if bestRecurrence != "" {
			if cur, _ := keep["recurrence"].(string); cur != bestRecurrence {
				updateSets = append(updateSets, "r.recurrence = $recurrence")
				updateParams["recurrence"] = bestRecurrence
			}
		}
		if bestDescription != "" {
			if cur, _ := keep["description"].(string); cur != bestDescription {
				updateSets = append(updateSets, "r.description = $description")
				updateParams["description"] = bestDescription
			}
		}

		qUpdate := fmt.Sprintf(`
		MATCH (r:Reminder) WHERE elementId(r) = $kid
		SET %s`, strings.Join(updateSets, ", "))
		if _, err := s.write(ctx, qUpdate, updateParams); err != nil {
			return nil, err
		}

		removeIDs := make([]string, 0, len(remove))
		for _, item := range remove {
			if id, ok := item["id"].(string); ok {
				removeIDs = append(removeIDs, id)
			}
		}
		qDelete := `
		MATCH (r:Reminder) WHERE elementId(r) IN $ids
		DETACH DELETE r`
		if _, err := s.write(ctx, qDelete, map[string]any{"ids": removeIDs}); err != nil {
			return nil, err
		}

		keepTitle, _ := keep["title"].(string)
		mergedGroups = append(mergedGroups, map[string]any{
			"kept":          keepTitle,
			"removed_count": len(remove),
		})
		totalRemoved += len(remove)
	}

	return map[string]any{"merged_groups": mergedGroups, "total_removed": totalRemoved}, nil
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// sumColumn totals an integer column across every row. Aggregations
// grouped per matched node come back as one row per node.
func sumColumn(rows []map[string]any, key string) int {
	total := 0
	for _, row := range rows {
		total += asInt(row[key])
	}
	return total
}

// QueryReminders renders reminders grouped by overdue and upcoming or
// snoozed, with type and priority tags.
func (s *Service) QueryReminders(ctx context.Context, status string, includeOverdue bool) (string, error) {
	nowStr := now()
	var parts []string

	if includeOverdue {
		qOverdue := `
		MATCH (r:Reminder)
		WHERE r.status = 'pending' AND r.due_date IS NOT NULL AND r.due_date < $now
		RETURN r.title AS title, r.due_date AS due_date, r.reminder_type AS reminder_type,
		       r.priority AS priority, r.snooze_count AS snooze_count
		ORDER BY r.due_date
		LIMIT 20`
		rows, err := s.read(ctx, qOverdue, map[string]any{"now": nowStr})
		if err != nil {
			return "", err
		}
		if len(rows) > 0 {
			parts = append(parts, "⚠ Overdue reminders:")
			for _, r := range rows {
				title, _ := r["title"].(string)
				due, _ := r["due_date"].(string)
				rt, _ := r["reminder_type"].(string)
				parts = append(parts, fmt.Sprintf("  - %s (due: %s)%s",
					title, due, formatReminderTags(rt, asInt(r["priority"]), asInt(r["snooze_count"]))))
			}
		}
	}

	filterStatus := status
	if filterStatus == "" {
		filterStatus = "pending"
	}
	qUpcoming := `
	MATCH (r:Reminder {status: $status})
	WHERE r.due_date IS NULL OR r.due_date >= $now
	RETURN r.title AS title, r.due_date AS due_date, r.reminder_type AS reminder_type,
	       r.priority AS priority, r.snooze_count AS snooze_count
	ORDER BY r.due_date
	LIMIT 20`
	rows, err := s.read(ctx, qUpcoming, map[string]any{"status": filterStatus, "now": nowStr})
	if err != nil {
		return "", err
	}
	if len(rows) > 0 {
		label := "Upcoming reminders:"
		if filterStatus == "snoozed" {
			label = "Snoozed reminders:"
		}
		parts = append(parts, label)
		for _, r := range rows {
			title, _ := r["title"].(string)
			due, _ := r["due_date"].(string)
			if due != "" {
				due = fmt.Sprintf(" (due: %s)", due)
			}
			rt, _ := r["reminder_type"].(string)
			parts = append(parts, fmt.Sprintf("  - %s%s%s",
				title, due, formatReminderTags(rt, asInt(r["priority"]), asInt(r["snooze_count"]))))
		}
	}

	if len(parts) == 0 {
		return "No reminders found.", nil
	}
	return strings.Join(parts, "\n"), nil
}

func formatReminderTags(reminderType string, priority, snoozeCount int) string {
	var tags []string
	if reminderType != "" && reminderType != "one_time" {
		tags = append(tags, reminderType)
	}
	if priority >= 3 {
		tags = append(tags, fmt.Sprintf("priority:%d", priority))
	}
	if snoozeCount > 0 {
		tags = append(tags, fmt.Sprintf("snoozed:%dx", snoozeCount))
	}
	if len(tags) == 0 {
		return ""
	}
	return " [" + strings.Join(tags, ", ") + "]"
}

// DueReminders returns pending reminders due at or before the given
// instant, for the scheduler's notification pass.
func (s *Service) DueReminders(ctx context.Context, until time.Time) ([]map[string]any, error) {
	q := `
	MATCH (r:Reminder)
	WHERE r.status = 'pending'
	  AND r.due_date IS NOT NULL
	  AND r.due_date <= $until
	  AND r.notified_at IS NULL
	RETURN r.title AS title, r.due_date AS due_date, r.reminder_type AS reminder_type,
	       r.recurrence AS recurrence, r.persistent AS persistent, r.priority AS priority
	ORDER BY r.due_date`

	return s.read(ctx, q, map[string]any{"until": until.UTC().Format(time.RFC3339)})
}

// ReschedulePersistentReminders re-arms notified persistent reminders
// so the next nag cycle picks them up again.
func (s *Service) ReschedulePersistentReminders(ctx context.Context) (int, error) {
	q := `
	MATCH (r:Reminder)
	WHERE r.status = 'pending' AND r.persistent = true AND r.notified_at IS NOT NULL
	SET r.notified_at = NULL, r.updated_at = $now
	RETURN count(r) AS n`

	rows, err := s.write(ctx, q, map[string]any{"now": now()})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return asInt(rows[0]["n"]), nil
}
