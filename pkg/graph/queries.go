package graph

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
)

// hop-3 traversal is restricted to the structural relationship types;
// an unrestricted third hop drowns the context in noise.
var hop3Relationships = []string{
	"BELONGS_TO", "INVOLVES", "WORKS_AT", "RELATED_TO",
	"TAGGED_WITH", "STORED_IN", "SIMILAR_TO",
}

// QueryEntityContext walks the neighbourhood of an entity and renders
// it as text for the LLM. Hops one and two are unrestricted; with
// MaxHops >= 3 a third, type-restricted hop is added.
func (s *Service) QueryEntityContext(ctx context.Context, label, keyField, value string) (string, error) {
	if s.config.MaxHops <= 2 {
		q := fmt.Sprintf(`
		MATCH (root:%s {%s: $value})
		OPTIONAL MATCH (root)-[r1]-(n1)
		OPTIONAL MATCH (n1)-[r2]-(n2)
		WHERE n2 <> root
		RETURN root, type(r1) AS r1, labels(n1)[0] AS l1, n1,
		       type(r2) AS r2, labels(n2)[0] AS l2, n2
		LIMIT 50`, label, keyField)

		rows, err := s.read(ctx, q, map[string]any{"value": value})
		if err != nil {
			return "", err
		}
		return formatGraphContext(rows, false), nil
	}

	q := fmt.Sprintf(`
	MATCH (root:%s {%s: $value})
	OPTIONAL MATCH (root)-[r1]-(n1)
	OPTIONAL MATCH (n1)-[r2]-(n2)
	WHERE n2 <> root
	OPTIONAL MATCH (n2)-[r3]-(n3)
	WHERE n3 <> root AND n3 <> n1 AND type(r3) IN $hop3
	RETURN root, type(r1) AS r1, labels(n1)[0] AS l1, n1,
	       type(r2) AS r2, labels(n2)[0] AS l2, n2,
	       type(r3) AS r3, labels(n3)[0] AS l3, n3
	LIMIT 80`, label, keyField)

	rows, err := s.read(ctx, q, map[string]any{"value": value, "hop3": hop3Relationships})
	if err != nil {
		return "", err
	}
	return formatGraphContext(rows, true), nil
}

// formatGraphContext renders traversal rows as one deduplicated path
// line each. Capped at 20 lines for 2-hop, 30 for 3-hop.
func formatGraphContext(rows []map[string]any, threeHop bool) string {
	if len(rows) == 0 {
		return ""
	}

	maxLines := 20
	if threeHop {
		maxLines = 30
	}

	seen := make(map[string]bool)
	var parts []string
	for _, row := range rows {
		var desc []string
		if root := nodeProps(row["root"]); root != nil {
			desc = append(desc, formatRootNode(visibleProps(root)))
		}
		appendHop(&desc, row["r1"], row["l1"], row["n1"])
		appendHop(&desc, row["r2"], row["l2"], row["n2"])
		if threeHop {
			appendHop(&desc, row["r3"], row["l3"], row["n3"])
		}
		if len(desc) == 0 {
			continue
		}
		line := strings.Join(desc, " ")
		if !seen[line] {
			seen[line] = true
			parts = append(parts, line)
		}
		if len(parts) >= maxLines {
			break
		}
	}
	return strings.Join(parts, "\n")
}

// formatRootNode renders the root with all visible props, sorted for
// stable output.
func formatRootNode(props map[string]any) string {
	var b strings.Builder
	b.WriteString(displayName(props))

	keys := make([]string, 0, len(props))
	for k := range props {
		if k == "name" || k == "name_ar" || k == "title" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := props[k]; v != nil && v != "" {
			fmt.Fprintf(&b, ", %s=%v", k, v)
		}
	}
	return b.String()
}

func appendHop(desc *[]string, rel, label, node any) {
	relType, _ := rel.(string)
	nodeLabel, _ := label.(string)
	props := nodeProps(node)
	if relType == "" || props == nil {
		return
	}
	*desc = append(*desc, fmt.Sprintf("-[%s]-> [%s] %s", relType, nodeLabel, displayName(props)))
}

var personQueryStopWords = map[string]bool{
	"how": true, "old": true, "is": true, "my": true, "the": true,
	"what": true, "who": true, "when": true, "where": true,
	"about": true, "tell": true, "me": true, "many": true, "much": true,
	"does": true, "do": true, "are": true, "was": true,
	"number": true, "name": true, "age": true, "born": true, "date": true,
	"family": true, "all": true, "list": true,
}

// QueryPersonContext finds people mentioned in free query text: exact
// name first, then candidate tokens (capitalised English words and
// Arabic words), then a summary of everyone known.
func (s *Service) QueryPersonContext(ctx context.Context, query string) (string, error) {
	if ctxText, err := s.QueryEntityContext(ctx, "Person", "name", query); err != nil {
		return "", err
	} else if ctxText != "" {
		return ctxText, nil
	}

	var candidates []string
	for _, w := range strings.Fields(query) {
		clean := strings.TrimSuffix(strings.TrimSuffix(w, "'s"), "s")
		if clean == "" {
			continue
		}
		runes := []rune(clean)
		if len(runes) > 2 && unicode.IsUpper(runes[0]) && isAlpha(clean) &&
			!personQueryStopWords[strings.ToLower(clean)] {
			candidates = append(candidates, clean)
		}
	}
	for _, w := range strings.Fields(query) {
		if len([]rune(w)) > 1 && hasNonASCII(w) {
			candidates = append(candidates, w)
		}
	}

	var allParts []string
	seenNames := make(map[string]bool)
	for _, candidate := range candidates {
		rows, err := s.read(ctx,
			"MATCH (p:Person) WHERE toLower(p.name) CONTAINS toLower($w) RETURN p.name AS name LIMIT 5",
			map[string]any{"w": candidate})
		if err != nil {
			return "", err
		}
		for _, row := range rows {
			name, _ := row["name"].(string)
			if name == "" || seenNames[name] {
				continue
			}
			seenNames[name] = true
			ctxText, err := s.QueryEntityContext(ctx, "Person", "name", name)
			if err != nil {
				return "", err
			}
			if ctxText != "" {
				allParts = append(allParts, ctxText)
			}
		}
	}
	if len(allParts) > 0 {
		return strings.Join(allParts, "\n\n"), nil
	}

	return s.queryAllPersons(ctx)
}

func (s *Service) queryAllPersons(ctx context.Context) (string, error) {
	q := `
	MATCH (p:Person)
	OPTIONAL MATCH (p)-[r]->(other:Person)
	RETURN p, collect(DISTINCT {rel: type(r), target: other.name}) AS rels
	ORDER BY p.name LIMIT 20`

	rows, err := s.read(ctx, q, nil)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}

	parts := []string{"Known persons:"}
	for _, row := range rows {
		props := visibleProps(nodeProps(row["p"]))
		display := displayName(props)

		var details []string
		keys := make([]string, 0, len(props))
		for k := range props {
			if k == "name" || k == "name_ar" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := props[k]; v != nil && v != "" {
				details = append(details, fmt.Sprintf("%s: %v", k, v))
			}
		}

		var relStrs []string
		if rels, ok := row["rels"].([]any); ok {
			for _, raw := range rels {
				rel, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				target, _ := rel["target"].(string)
				relType, _ := rel["rel"].(string)
				if target != "" {
					relStrs = append(relStrs, fmt.Sprintf("%s -> %s", relType, target))
				}
			}
		}

		line := "  - " + display
		if len(details) > 0 {
			line += " (" + strings.Join(details, ", ") + ")"
		}
		if len(relStrs) > 0 {
			line += " [" + strings.Join(relStrs, ", ") + "]"
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "\n"), nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

func hasNonASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return true
		}
	}
	return false
}

// QueryProjectContext is the multi-hop context walk rooted at a project.
func (s *Service) QueryProjectContext(ctx context.Context, name string) (string, error) {
	return s.QueryEntityContext(ctx, "Project", "name", name)
}

// QueryProjectDetails renders everything about one project: props,
// aliases, sections with their members, unsectioned tasks and lists.
func (s *Service) QueryProjectDetails(ctx context.Context, name string) (string, error) {
	canonical, err := s.ResolveEntityName(ctx, name, "Project")
	if err != nil {
		return "", err
	}
	name = canonical

	q := `
	MATCH (p:Project)
	WHERE toLower(p.name) CONTAINS toLower($name)
	OPTIONAL MATCH (t:Task)-[:BELONGS_TO]->(p)
	WHERE NOT (t)-[:IN_SECTION]->(:Section)
	OPTIONAL MATCH (p)-[:HAS_SECTION]->(s:Section)
	RETURN p,
	       collect(DISTINCT {title: t.title, status: t.status, priority: t.priority}) AS tasks,
	       collect(DISTINCT {sname: s.name, stype: s.section_type, sorder: s.order, sstatus: s.status}) AS sections`

	rows, err := s.read(ctx, q, map[string]any{"name": name})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No project found matching '%s'.", name), nil
	}

	props := nodeProps(rows[0]["p"])
	pname, _ := props["name"].(string)
	if pname == "" {
		pname = name
	}

	parts := []string{"Project: " + pname}
	if aliases, ok := props["name_aliases"].([]any); ok && len(aliases) > 0 {
		strs := make([]string, 0, len(aliases))
		for _, a := range aliases {
			if v, ok := a.(string); ok {
				strs = append(strs, v)
			}
		}
		parts = append(parts, "  aliases: "+strings.Join(strs, ", "))
	}

	skip := map[string]bool{"name": true, "created_at": true, "updated_at": true, "name_aliases": true}
	propKeys := make([]string, 0, len(props))
	for k := range props {
		if !skip[k] {
			propKeys = append(propKeys, k)
		}
	}
	sort.Strings(propKeys)
	for _, k := range propKeys {
		if v := props[k]; v != nil {
			parts = append(parts, fmt.Sprintf("  %s: %v", k, v))
		}
	}

	type sectionInfo struct {
		name  string
		stype string
		order int
	}
	var sections []sectionInfo
	if raw, ok := rows[0]["sections"].([]any); ok {
		for _, item := range raw {
			sec, ok := item.(map[string]any)
			if !ok {
				continue
			}
			sname, _ := sec["sname"].(string)
			if sname == "" {
				continue
			}
			stype, _ := sec["stype"].(string)
			order := asInt(sec["sorder"])
			if order == 0 {
				order = 999
			}
			sections = append(sections, sectionInfo{name: sname, stype: stype, order: order})
		}
	}
	sort.Slice(sections, func(i, j int) bool {
		if sections[i].order != sections[j].order {
			return sections[i].order < sections[j].order
		}
		return sections[i].name < sections[j].name
	})

	activePhase, _ := props["active_phase"].(string)
	seenSections := make(map[string]bool)
	for _, sec := range sections {
		if seenSections[sec.name] {
			continue
		}
		seenSections[sec.name] = true

		label := ""
		if sec.stype == "phase" {
			label = " (phase)"
		}
		active := ""
		if activePhase == sec.name {
			active = " *active*"
		}
		parts = append(parts, fmt.Sprintf("\n  Section: %s%s%s", sec.name, label, active))

		qSec := `
		MATCH (s:Section {name: $sname})<-[:IN_SECTION]-(e)
		MATCH (:Project {name: $pname})-[:HAS_SECTION]->(s)
		RETURN labels(e)[0] AS label, e.name AS name, e.title AS title, e.status AS status
		LIMIT 50`
		secRows, err := s.read(ctx, qSec, map[string]any{"sname": sec.name, "pname": pname})
		if err != nil {
			return "", err
		}
		if len(secRows) == 0 {
			parts = append(parts, "    (empty)")
			continue
		}
		for _, sr := range secRows {
			elabel, _ := sr["label"].(string)
			ename, _ := sr["name"].(string)
			if ename == "" {
				ename, _ = sr["title"].(string)
			}
			if ename == "" {
				ename = "?"
			}
			estatus := ""
			if st, _ := sr["status"].(string); st != "" {
				estatus = fmt.Sprintf(" [%s]", st)
			}
			parts = append(parts, fmt.Sprintf("    - [%s] %s%s", elabel, ename, estatus))
		}
	}

	var unsectioned []map[string]any
	if raw, ok := rows[0]["tasks"].([]any); ok {
		for _, item := range raw {
			t, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if title, _ := t["title"].(string); title != "" {
				unsectioned = append(unsectioned, t)
			}
		}
	}
	if len(unsectioned) > 0 {
		parts = append(parts, fmt.Sprintf("\n  Tasks (unsectioned, %d):", len(unsectioned)))
		for _, t := range unsectioned {
			title, _ := t["title"].(string)
			statusTag := ""
			if st, _ := t["status"].(string); st != "" {
				statusTag = fmt.Sprintf(" [%s]", st)
			}
			parts = append(parts, fmt.Sprintf("    - %s%s", title, statusTag))
		}
	}

	qLists := `
	MATCH (l:List)-[:BELONGS_TO]->(p:Project {name: $pname})
	OPTIONAL MATCH (l)-[:HAS_ENTRY]->(e:ListEntry)
	RETURN l.name AS name, l.list_type AS list_type, count(e) AS total,
	       sum(CASE WHEN e.checked = true THEN 1 ELSE 0 END) AS checked`
	listRows, err := s.read(ctx, qLists, map[string]any{"pname": pname})
	if err != nil {
		return "", err
	}
	hasLists := false
	for _, r := range listRows {
		if lname, _ := r["name"].(string); lname != "" {
			hasLists = true
			break
		}
	}
	if hasLists {
		parts = append(parts, "\n  Lists:")
		for _, r := range listRows {
			lname, _ := r["name"].(string)
			if lname == "" {
				continue
			}
			ltype, _ := r["list_type"].(string)
			total := asInt(r["total"])
			checked := asInt(r["checked"])
			progress := ""
			if total > 0 {
				progress = fmt.Sprintf(" (%d/%d)", checked, total)
			}
			parts = append(parts, fmt.Sprintf("    - %s [%s]%s", lname, ltype, progress))
		}
	}

	return strings.Join(parts, "\n"), nil
}

// QueryProjectsOverview lists projects with progress and, for active
// ones moving recently, a rough ETA from the 3-week task velocity.
func (s *Service) QueryProjectsOverview(ctx context.Context, status string) (string, error) {
	filterClause := ""
	params := map[string]any{}
	if status != "" {
		filterClause = "WHERE toLower(p.status) = toLower($status)"
		params["status"] = status
	}

	q := fmt.Sprintf(`
	MATCH (p:Project)
	%s
	OPTIONAL MATCH (t:Task)-[:BELONGS_TO]->(p)
	RETURN p.name AS name, p.status AS status, p.description AS description,
	       p.priority AS priority,
	       count(t) AS total_tasks,
	       sum(CASE WHEN t.status = 'done' THEN 1 ELSE 0 END) AS done_tasks
	ORDER BY p.priority DESC, p.name
	LIMIT 30`, filterClause)

	rows, err := s.read(ctx, q, params)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		label := ""
		if status != "" {
			label = fmt.Sprintf(" with status '%s'", status)
		}
		return fmt.Sprintf("No projects found%s.", label), nil
	}

	threeWeeksAgo := time.Now().UTC().AddDate(0, 0, -21).Format(time.RFC3339)

	parts := []string{"Projects:"}
	for _, r := range rows {
		name, _ := r["name"].(string)
		pstatus, _ := r["status"].(string)
		desc, _ := r["description"].(string)
		priority := asInt(r["priority"])
		total := asInt(r["total_tasks"])
		done := asInt(r["done_tasks"])

		progress := ""
		if total > 0 {
			pct := math.Round(float64(done)/float64(total)*1000) / 10
			progress = fmt.Sprintf(" (%.1f%% complete, %d/%d tasks)", pct, done, total)
		}
		priorityTag := ""
		if priority > 0 {
			priorityTag = fmt.Sprintf(" [priority:%d]", priority)
		}
		statusTag := ""
		if pstatus != "" {
			statusTag = fmt.Sprintf(" [%s]", pstatus)
		}

		etaTag := ""
		if total > 0 && done < total && (pstatus == "active" || pstatus == "in_progress" || pstatus == "") {
			qVel := `
			MATCH (t:Task)-[:BELONGS_TO]->(p:Project {name: $pname})
			WHERE t.status = 'done' AND t.updated_at >= $since
			RETURN count(t) AS n`
			velRows, err := s.read(ctx, qVel, map[string]any{"pname": name, "since": threeWeeksAgo})
			if err != nil {
				return "", err
			}
			doneRecent := 0
			if len(velRows) > 0 {
				doneRecent = asInt(velRows[0]["n"])
			}
			if doneRecent > 0 {
				tasksPerWeek := float64(doneRecent) / 3
				weeksLeft := float64(total-done) / tasksPerWeek
				etaDate := time.Now().UTC().Add(time.Duration(weeksLeft * 7 * 24 * float64(time.Hour)))
				etaTag = fmt.Sprintf(" [ETA: ~%s]", etaDate.Format("2006-01-02"))
			}
		}

		parts = append(parts, fmt.Sprintf("  - %s%s%s%s%s", name, statusTag, priorityTag, progress, etaTag))
		if desc != "" {
			if len([]rune(desc)) > 100 {
				desc = string([]rune(desc)[:100])
			}
			parts = append(parts, "    "+desc)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// QueryKnowledge lists knowledge entries, optionally filtered by a
// topic matched against title, content and category.
func (s *Service) QueryKnowledge(ctx context.Context, topic string) (string, error) {
	var rows []map[string]any
	var err error
	if topic != "" {
		q := `
		MATCH (k:Knowledge)
		WHERE toLower(k.title) CONTAINS toLower($topic)
		   OR toLower(k.content) CONTAINS toLower($topic)
		   OR toLower(k.category) CONTAINS toLower($topic)
		RETURN k.title AS title, k.content AS content, k.category AS category, k.source AS source
		LIMIT 20`
		rows, err = s.read(ctx, q, map[string]any{"topic": topic})
	} else {
		q := `
		MATCH (k:Knowledge)
		RETURN k.title AS title, k.content AS content, k.category AS category, k.source AS source
		ORDER BY k.created_at DESC
		LIMIT 20`
		rows, err = s.read(ctx, q, nil)
	}
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		label := ""
		if topic != "" {
			label = fmt.Sprintf(" about '%s'", topic)
		}
		return fmt.Sprintf("No knowledge entries found%s.", label), nil
	}

	parts := []string{"Knowledge:"}
	for _, r := range rows {
		title, _ := r["title"].(string)
		content, _ := r["content"].(string)
		category, _ := r["category"].(string)
		source, _ := r["source"].(string)

		catTag := ""
		if category != "" {
			catTag = fmt.Sprintf(" [%s]", category)
		}
		srcTag := ""
		if source != "" {
			srcTag = fmt.Sprintf(" (source: %s)", source)
		}
		parts = append(parts, fmt.Sprintf("  - %s%s%s", title, catTag, srcTag))
		if content != "" {
			runes := []rune(content)
			if len(runes) > 150 {
				content = string(runes[:150]) + "..."
			}
			parts = append(parts, "    "+content)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// QueryActiveTasks lists tasks with their scheduling and project tags.
// Default filter is todo and in_progress.
func (s *Service) QueryActiveTasks(ctx context.Context, status string) (string, error) {
	filterClause := "WHERE t.status IN ['todo', 'in_progress']"
	params := map[string]any{}
	if status != "" {
		filterClause = "WHERE t.status = $status"
		params["status"] = status
	}

	q := fmt.Sprintf(`
	MATCH (t:Task)
	%s
	OPTIONAL MATCH (t)-[:BELONGS_TO]->(p:Project)
	RETURN t.title AS title, t.status AS status, t.due_date AS due_date,
	       t.priority AS priority, p.name AS project,
	       t.estimated_duration AS estimated_duration, t.energy_level AS energy_level,
	       t.start_time AS start_time, t.end_time AS end_time
	ORDER BY t.priority DESC, t.due_date
	LIMIT 30`, filterClause)

	rows, err := s.read(ctx, q, params)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		label := ""
		if status != "" {
			label = fmt.Sprintf(" with status '%s'", status)
		}
		return fmt.Sprintf("No active tasks found%s.", label), nil
	}

	parts := []string{"Tasks:"}
	for _, r := range rows {
		title, _ := r["title"].(string)
		tstatus, _ := r["status"].(string)
		dueDate, _ := r["due_date"].(string)
		project, _ := r["project"].(string)
		energy, _ := r["energy_level"].(string)
		startT, _ := r["start_time"].(string)
		endT, _ := r["end_time"].(string)
		priority := asInt(r["priority"])
		estDur := asInt(r["estimated_duration"])

		line := fmt.Sprintf("  - %s [%s]", title, tstatus)
		if priority > 0 {
			line += fmt.Sprintf(" [priority:%d]", priority)
		}
		if estDur > 0 {
			line += fmt.Sprintf(" ~%dmin", estDur)
		}
		if energy != "" {
			line += " energy:" + energy
		}
		if dueDate != "" {
			line += fmt.Sprintf(" (due: %s)", dueDate)
		}
		if len(startT) >= 5 && len(endT) >= 5 {
			line += fmt.Sprintf(" [%s-%s]", startT[len(startT)-5:], endT[len(endT)-5:])
		}
		if project != "" {
			line += " @ " + project
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "\n"), nil
}

// SearchNodes is a free-text substring search over name, title and
// description of every node.
func (s *Service) SearchNodes(ctx context.Context, text string, limit int) (string, error) {
	if limit <= 0 {
		limit = 10
	}
	q := `
	MATCH (n)
	WHERE toLower(n.name) CONTAINS $text
	   OR toLower(n.title) CONTAINS $text
	   OR toLower(n.description) CONTAINS $text
	RETURN labels(n)[0] AS label, coalesce(n.name, n.title) AS name
	LIMIT $limit`

	rows, err := s.read(ctx, q, map[string]any{"text": strings.ToLower(text), "limit": limit})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}

	parts := []string{"Graph search results:"}
	for _, r := range rows {
		label, _ := r["label"].(string)
		name, _ := r["name"].(string)
		parts = append(parts, fmt.Sprintf("  [%s] %s", label, name))
	}
	return strings.Join(parts, "\n"), nil
}

// QueryDailyPlan assembles today's reminders, active tasks and debts I
// owe into one briefing.
func (s *Service) QueryDailyPlan(ctx context.Context) (string, error) {
	today := time.Now().UTC().Format("2006-01-02")
	var parts []string

	qReminders := `
	MATCH (r:Reminder)
	WHERE r.status = 'pending' AND r.due_date IS NOT NULL AND r.due_date <= $eod
	RETURN r.title AS title, r.due_date AS due_date, r.priority AS priority
	ORDER BY r.due_date
	LIMIT 20`
	remRows, err := s.read(ctx, qReminders, map[string]any{"eod": today + "T23:59:59"})
	if err != nil {
		return "", err
	}
	if len(remRows) > 0 {
		parts = append(parts, "Today's reminders:")
		for _, r := range remRows {
			title, _ := r["title"].(string)
			due, _ := r["due_date"].(string)
			prio := ""
			if p := asInt(r["priority"]); p >= 3 {
				prio = fmt.Sprintf(" [priority:%d]", p)
			}
			parts = append(parts, fmt.Sprintf("  - %s (due: %s)%s", title, due, prio))
		}
	}

	qTasks := `
	MATCH (t:Task)
	WHERE t.status IN ['todo', 'in_progress']
	OPTIONAL MATCH (t)-[:BELONGS_TO]->(p:Project)
	RETURN t.title AS title, t.status AS status, t.priority AS priority, p.name AS project
	ORDER BY t.priority DESC
	LIMIT 20`
	taskRows, err := s.read(ctx, qTasks, nil)
	if err != nil {
		return "", err
	}
	if len(taskRows) > 0 {
		parts = append(parts, "Active tasks:")
		for _, r := range taskRows {
			title, _ := r["title"].(string)
			tstatus, _ := r["status"].(string)
			project, _ := r["project"].(string)
			line := fmt.Sprintf("  - %s [%s]", title, tstatus)
			if p := asInt(r["priority"]); p > 0 {
				line += fmt.Sprintf(" [priority:%d]", p)
			}
			if project != "" {
				line += " @ " + project
			}
			parts = append(parts, line)
		}
	}

	qDebts := `
	MATCH (d:Debt)-[:INVOLVES]->(p:Person)
	WHERE d.direction = 'i_owe' AND d.status IN ['open', 'partial']
	RETURN p.name AS person, d.amount AS amount
	ORDER BY d.amount DESC
	LIMIT 10`
	debtRows, err := s.read(ctx, qDebts, nil)
	if err != nil {
		return "", err
	}
	if len(debtRows) > 0 {
		parts = append(parts, "Debts I owe:")
		for _, r := range debtRows {
			person, _ := r["person"].(string)
			parts = append(parts, fmt.Sprintf("  - %s: %.0f SAR", person, getFloat(r, "amount")))
		}
	}

	if len(parts) == 0 {
		return "Nothing scheduled for today.", nil
	}
	return strings.Join(parts, "\n"), nil
}

// QueryFinancialSummary renders the current month's totals by category,
// recent expenses and open debts. With detailed, spending alerts too.
func (s *Service) QueryFinancialSummary(ctx context.Context, detailed bool) (string, error) {
	nowT := time.Now().UTC()
	monthStart := fmt.Sprintf("%d-%02d-01", nowT.Year(), nowT.Month())
	monthEnd := fmt.Sprintf("%d-%02d-%02d", nowT.Year(), nowT.Month(), daysInMonth(nowT.Year(), int(nowT.Month())))

	var parts []string

	qMonthly := `
	MATCH (e:Expense)
	WHERE e.date >= $start AND e.date <= $end
	RETURN e.category AS category, sum(e.amount) AS total, count(e) AS cnt
	ORDER BY total DESC`
	rows, err := s.read(ctx, qMonthly, map[string]any{"start": monthStart, "end": monthEnd})
	if err != nil {
		return "", err
	}

	grandTotal := 0.0
	for _, r := range rows {
		grandTotal += getFloat(r, "total")
	}
	monthLabel := nowT.Format("January 2006")
	if len(rows) > 0 {
		parts = append(parts, fmt.Sprintf("This month (%s): %.0f SAR total", monthLabel, grandTotal))
		for _, r := range rows {
			cat, _ := r["category"].(string)
			if cat == "" {
				cat = "uncategorized"
			}
			total := getFloat(r, "total")
			pct := 0.0
			if grandTotal > 0 {
				pct = total / grandTotal * 100
			}
			parts = append(parts, fmt.Sprintf("  - %s: %.0f SAR (%d items, %.0f%%)", cat, total, asInt(r["cnt"]), pct))
		}
	} else {
		parts = append(parts, fmt.Sprintf("No expenses recorded for %s.", monthLabel))
	}

	qRecent := `
	MATCH (e:Expense)
	RETURN e.description AS description, e.amount AS amount, e.category AS category
	ORDER BY e.created_at DESC LIMIT 10`
	rows, err = s.read(ctx, qRecent, nil)
	if err != nil {
		return "", err
	}
	if len(rows) > 0 {
		parts = append(parts, "\nRecent expenses:")
		for _, r := range rows {
			desc, _ := r["description"].(string)
			cat, _ := r["category"].(string)
			if cat == "" {
				cat = "uncategorized"
			}
			parts = append(parts, fmt.Sprintf("  - %s: %v SAR (%s)", desc, r["amount"], cat))
		}
	}

	qDebts := `
	MATCH (d:Debt)-[:INVOLVES]->(p:Person)
	WHERE d.status IN ['open', 'partial']
	RETURN p.name AS person, d.amount AS amount, d.direction AS direction,
	       d.status AS status, d.original_amount AS original_amount`
	rows, err = s.read(ctx, qDebts, nil)
	if err != nil {
		return "", err
	}
	if len(rows) > 0 {
		parts = append(parts, "\nOpen debts:")
		for _, r := range rows {
			person, _ := r["person"].(string)
			direction := "I owe them"
			if dir, _ := r["direction"].(string); dir == "owed_to_me" {
				direction = "they owe me"
			}
			statusTag := ""
			if st, _ := r["status"].(string); st == "partial" {
				if orig := getFloat(r, "original_amount"); orig > 0 {
					statusTag = fmt.Sprintf(" [partial, originally %v]", orig)
				}
			}
			parts = append(parts, fmt.Sprintf("  - %s: %v SAR (%s)%s", person, r["amount"], direction, statusTag))
		}
	}

	if detailed {
		alerts, err := s.QuerySpendingAlerts(ctx)
		if err != nil {
			return "", err
		}
		if alerts != "" {
			parts = append(parts, "\n"+alerts)
		}
	}

	if len(parts) == 0 {
		return "No financial data found.", nil
	}
	return strings.Join(parts, "\n"), nil
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// QueryMonthlyReport aggregates a month's spending by category.
func (s *Service) QueryMonthlyReport(ctx context.Context, month, year int) (map[string]any, error) {
	start := fmt.Sprintf("%d-%02d-01", year, month)
	end := fmt.Sprintf("%d-%02d-%02d", year, month, daysInMonth(year, month))

	q := `
	MATCH (e:Expense)
	WHERE e.date >= $start AND e.date <= $end
	RETURN e.category AS category, sum(e.amount) AS total, count(e) AS cnt
	ORDER BY total DESC`
	rows, err := s.read(ctx, q, map[string]any{"start": start, "end": end})
	if err != nil {
		return nil, err
	}

	grandTotal := 0.0
	for _, r := range rows {
		grandTotal += getFloat(r, "total")
	}

	categories := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		cat, _ := r["category"].(string)
		if cat == "" {
			cat = "uncategorized"
		}
		total := getFloat(r, "total")
		pct := 0.0
		if grandTotal > 0 {
			pct = math.Round(total/grandTotal*1000) / 10
		}
		categories = append(categories, map[string]any{
			"category": cat, "total": total, "count": asInt(r["cnt"]), "percentage": pct,
		})
	}

	return map[string]any{
		"month": month, "year": year, "total": grandTotal,
		"currency": "SAR", "by_category": categories,
	}, nil
}

// QueryMonthComparison adds a previous-month comparison to a monthly
// report.
func (s *Service) QueryMonthComparison(ctx context.Context, month, year int) (map[string]any, error) {
	current, err := s.QueryMonthlyReport(ctx, month, year)
	if err != nil {
		return nil, err
	}

	prevMonth, prevYear := month-1, year
	if prevMonth < 1 {
		prevMonth, prevYear = 12, year-1
	}
	previous, err := s.QueryMonthlyReport(ctx, prevMonth, prevYear)
	if err != nil {
		return nil, err
	}

	curTotal := getFloat(current, "total")
	prevTotal := getFloat(previous, "total")
	diff := curTotal - prevTotal
	pctChange := 0.0
	if prevTotal > 0 {
		pctChange = math.Round(diff/prevTotal*1000) / 10
	}

	current["comparison"] = map[string]any{
		"previous_month":    prevMonth,
		"previous_year":     prevYear,
		"previous_total":    prevTotal,
		"difference":        math.Round(diff*100) / 100,
		"percentage_change": pctChange,
	}
	return current, nil
}

// QuerySpendingAlerts flags categories running more than 40% above
// their rolling 3-month average.
func (s *Service) QuerySpendingAlerts(ctx context.Context) (string, error) {
	nowT := time.Now().UTC()
	curStart := fmt.Sprintf("%d-%02d-01", nowT.Year(), nowT.Month())
	curEnd := fmt.Sprintf("%d-%02d-%02d", nowT.Year(), nowT.Month(), daysInMonth(nowT.Year(), int(nowT.Month())))

	avgStartT := nowT.AddDate(0, -3, 0)
	avgStart := fmt.Sprintf("%d-%02d-01", avgStartT.Year(), avgStartT.Month())
	prevEndT := nowT.AddDate(0, -1, 0)
	avgEnd := fmt.Sprintf("%d-%02d-%02d", prevEndT.Year(), prevEndT.Month(),
		daysInMonth(prevEndT.Year(), int(prevEndT.Month())))

	qAvg := `
	MATCH (e:Expense)
	WHERE e.date >= $start AND e.date <= $end
	RETURN e.category AS category, sum(e.amount) / 3.0 AS monthly_avg`
	avgRows, err := s.read(ctx, qAvg, map[string]any{"start": avgStart, "end": avgEnd})
	if err != nil {
		return "", err
	}
	avgMap := make(map[string]float64, len(avgRows))
	for _, r := range avgRows {
		cat, _ := r["category"].(string)
		if cat == "" {
			cat = "uncategorized"
		}
		avgMap[cat] = getFloat(r, "monthly_avg")
	}

	qCur := `
	MATCH (e:Expense)
	WHERE e.date >= $start AND e.date <= $end
	RETURN e.category AS category, sum(e.amount) AS total`
	curRows, err := s.read(ctx, qCur, map[string]any{"start": curStart, "end": curEnd})
	if err != nil {
		return "", err
	}

	var alerts []string
	for _, r := range curRows {
		cat, _ := r["category"].(string)
		if cat == "" {
			cat = "uncategorized"
		}
		currentTotal := getFloat(r, "total")
		avg := avgMap[cat]
		if avg > 0 && currentTotal > avg*1.4 {
			pctOver := (currentTotal - avg) / avg * 100
			alerts = append(alerts, fmt.Sprintf(
				"  ⚠ %s: %.0f SAR (+%.0f%% above 3-month avg of %.0f)", cat, currentTotal, pctOver, avg))
		}
	}

	if len(alerts) == 0 {
		return "", nil
	}
	return "Spending alerts:\n" + strings.Join(alerts, "\n"), nil
}

// QueryDebtSummary returns every open or partial debt with totals and
// the net position.
func (s *Service) QueryDebtSummary(ctx context.Context) (map[string]any, error) {
	q := `
	MATCH (d:Debt)-[:INVOLVES]->(p:Person)
	WHERE d.status IN ['open', 'partial']
	RETURN p.name AS person, d.amount AS amount, d.direction AS direction,
	       d.status AS status, d.original_amount AS original_amount, d.reason AS reason`

	rows, err := s.read(ctx, q, nil)
	if err != nil {
		return nil, err
	}

	totalIOwe := 0.0
	totalOwedToMe := 0.0
	debts := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		amount := getFloat(r, "amount")
		direction, _ := r["direction"].(string)
		if direction == "i_owe" {
			totalIOwe += amount
		} else {
			totalOwedToMe += amount
		}
		reason, _ := r["reason"].(string)
		debts = append(debts, map[string]any{
			"person":          r["person"],
			"amount":          amount,
			"direction":       direction,
			"status":          r["status"],
			"original_amount": r["original_amount"],
			"reason":          reason,
		})
	}

	return map[string]any{
		"total_i_owe":      totalIOwe,
		"total_owed_to_me": totalOwedToMe,
		"net_position":     totalOwedToMe - totalIOwe,
		"debts":            debts,
	}, nil
}
