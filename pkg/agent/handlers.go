package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/khalid729/Personal-Life-RAG/pkg/graph"
	"github.com/khalid729/Personal-Life-RAG/pkg/ingest"
)

type toolHandler func(ctx context.Context, args map[string]any) (map[string]any, error)

func (s *Service) handlers() map[string]toolHandler {
	return map[string]toolHandler{
		"search_knowledge":       s.handleSearchKnowledge,
		"search_reminders":       s.handleSearchReminders,
		"create_reminder":        s.handleCreateReminder,
		"update_reminder":        s.handleUpdateReminder,
		"delete_reminder":        s.handleDeleteReminder,
		"add_expense":            s.handleAddExpense,
		"get_expense_report":     s.handleExpenseReport,
		"get_debt_summary":       s.handleDebtSummary,
		"record_debt":            s.handleRecordDebt,
		"pay_debt":               s.handlePayDebt,
		"get_daily_plan":         s.handleDailyPlan,
		"store_note":             s.handleStoreNote,
		"get_person_info":        s.handlePersonInfo,
		"manage_inventory":       s.handleManageInventory,
		"manage_tasks":           s.handleManageTasks,
		"manage_projects":        s.handleManageProjects,
		"merge_projects":         s.handleMergeProjects,
		"manage_lists":           s.handleManageLists,
		"get_productivity_stats": s.handleProductivityStats,
	}
}

// parenRe strips parenthetical decoration the model adds to reminder
// queries, e.g. "(متأخرة)".
var parenRe = regexp.MustCompile(`\s*\([^)]*\)\s*`)

func (s *Service) handleSearchKnowledge(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := str(args["query"])
	if query == "" {
		return map[string]any{"error": "سؤال البحث مطلوب"}, nil
	}

	var parts []string

	resp, err := s.pipeline.SearchDirect(ctx, query, "auto", 5)
	if err == nil {
		for _, hit := range resp.Results {
			if hit.Text != "" {
				parts = append(parts, hit.Text)
			}
		}
	}

	if graphText, err := s.graph.SearchNodes(ctx, query, 10); err == nil && graphText != "" {
		parts = append([]string{graphText}, parts...)
	}

	if len(parts) == 0 {
		return map[string]any{"results": "لا توجد نتائج."}, nil
	}
	return map[string]any{"results": strings.Join(parts, "\n\n")}, nil
}

func (s *Service) handleSearchReminders(ctx context.Context, args map[string]any) (map[string]any, error) {
	status := str(args["status"])
	if status == "" {
		status = "pending"
	}

	if query := str(args["query"]); query != "" {
		var statuses []string
		if status != "all" {
			statuses = []string{status}
		}
		titles, err := s.graph.SearchReminders(ctx, query, statuses)
		if err != nil {
			return nil, err
		}
		if len(titles) == 0 {
			return map[string]any{"reminders": fmt.Sprintf("لا توجد تذكيرات تطابق '%s'", query)}, nil
		}
		lines := make([]string, len(titles))
		for i, t := range titles {
			lines[i] = "  - " + t
		}
		return map[string]any{"reminders": strings.Join(lines, "\n")}, nil
	}

	if status == "all" {
		status = ""
	}
	text, err := s.graph.QueryReminders(ctx, status, true)
	if err != nil {
		return nil, err
	}
	return map[string]any{"reminders": text}, nil
}

func (s *Service) handleCreateReminder(ctx context.Context, args map[string]any) (map[string]any, error) {
	title := str(args["title"])
	if title == "" {
		return map[string]any{"error": "عنوان التذكير مطلوب"}, nil
	}

	props := map[string]any{}
	due := str(args["due_date"])
	if t := str(args["time"]); t != "" && due != "" {
		due = due + "T" + t
	}
	if due != "" {
		props["due_date"] = due
	}
	if rec := str(args["recurrence"]); rec != "" {
		props["recurrence"] = rec
		props["reminder_type"] = "recurring"
	}
	if p, ok := args["priority"]; ok {
		props["priority"] = p
	}

	created, err := s.graph.CreateReminder(ctx, title, props)
	if err != nil {
		return nil, err
	}
	result := map[string]any{"status": "created", "title": created}
	for k, v := range props {
		result[k] = v
	}
	return result, nil
}

func (s *Service) handleUpdateReminder(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := strings.TrimSpace(parenRe.ReplaceAllString(str(args["query"]), " "))
	action := str(args["action"])
	if query == "" || action == "" {
		return map[string]any{"error": "وصف التذكير ونوع الإجراء مطلوبين"}, nil
	}

	switch action {
	case "done", "snooze", "cancel":
		snoozeUntil := ""
		if action == "snooze" {
			snoozeUntil = str(args["due_date"])
		}
		return s.graph.UpdateReminderStatus(ctx, query, action, snoozeUntil)
	}

	updates := map[string]any{}
	due := str(args["due_date"])
	if t := str(args["time"]); t != "" && due != "" {
		due = due + "T" + t
	}
	if due != "" {
		updates["due_date"] = due
	}
	if p, ok := args["priority"]; ok {
		updates["priority"] = p
	}
	if len(updates) == 0 {
		return map[string]any{"error": "لا توجد حقول للتعديل"}, nil
	}
	return s.graph.UpdateReminder(ctx, query, updates)
}

func (s *Service) handleDeleteReminder(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := str(args["query"])
	cleaned := strings.TrimSpace(parenRe.ReplaceAllString(query, " "))
	if cleaned == "" {
		return map[string]any{"error": "وصف التذكير مطلوب"}, nil
	}

	result, err := s.graph.DeleteReminder(ctx, cleaned)
	if err != nil {
		return nil, err
	}
	if _, failed := result["error"]; failed && cleaned != query {
		result, err = s.graph.DeleteReminder(ctx, query)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Service) handleAddExpense(ctx context.Context, args map[string]any) (map[string]any, error) {
	description := str(args["description"])
	amount := num(args["amount"])
	if description == "" || amount <= 0 {
		return map[string]any{"error": "وصف المصروف والمبلغ مطلوبين"}, nil
	}

	props := map[string]any{"description": description}
	if c := str(args["category"]); c != "" {
		props["category"] = c
	}
	if d := str(args["date"]); d != "" {
		props["date"] = d
	}
	if v := str(args["vendor"]); v != "" {
		props["vendor"] = v
	}

	if _, err := s.graph.UpsertExpense(ctx, amount, props); err != nil {
		return nil, err
	}
	result := map[string]any{"status": "created", "description": description, "amount": amount}
	for k, v := range props {
		result[k] = v
	}
	return result, nil
}

func (s *Service) handleExpenseReport(ctx context.Context, args map[string]any) (map[string]any, error) {
	now := s.localNow()
	month := int(num(args["month"]))
	if month == 0 {
		month = int(now.Month())
	}
	year := int(num(args["year"]))
	if year == 0 {
		year = now.Year()
	}
	if compare, _ := args["compare"].(bool); compare {
		return s.graph.QueryMonthComparison(ctx, month, year)
	}
	return s.graph.QueryMonthlyReport(ctx, month, year)
}

func (s *Service) handleDebtSummary(ctx context.Context, _ map[string]any) (map[string]any, error) {
	return s.graph.QueryDebtSummary(ctx)
}

func (s *Service) handleRecordDebt(ctx context.Context, args map[string]any) (map[string]any, error) {
	person := str(args["person"])
	amount := num(args["amount"])
	direction := str(args["direction"])
	if person == "" || amount <= 0 || direction == "" {
		return map[string]any{"error": "اسم الشخص والمبلغ والاتجاه مطلوبين"}, nil
	}

	props := map[string]any{}
	if r := str(args["reason"]); r != "" {
		props["reason"] = r
	}
	if _, err := s.graph.UpsertDebt(ctx, person, amount, direction, props); err != nil {
		return nil, err
	}
	result := map[string]any{"status": "created", "person": person, "amount": amount, "direction": graph.NormalizeDirection(direction)}
	for k, v := range props {
		result[k] = v
	}
	return result, nil
}

func (s *Service) handlePayDebt(ctx context.Context, args map[string]any) (map[string]any, error) {
	person := str(args["person"])
	amount := num(args["amount"])
	if person == "" || amount <= 0 {
		return map[string]any{"error": "اسم الشخص والمبلغ مطلوبين"}, nil
	}
	return s.graph.RecordDebtPayment(ctx, person, amount, str(args["direction"]))
}

func (s *Service) handleDailyPlan(ctx context.Context, _ map[string]any) (map[string]any, error) {
	plan, err := s.graph.QueryDailyPlan(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"plan": plan}, nil
}

func (s *Service) handleStoreNote(ctx context.Context, args map[string]any) (map[string]any, error) {
	text := str(args["text"])
	if text == "" {
		return map[string]any{"error": "النص مطلوب"}, nil
	}
	topic := str(args["topic"])
	if topic == "" {
		topic = "general"
	}

	result, err := s.pipeline.IngestText(ctx, text, ingest.Options{
		SourceType: "note",
		Topic:      topic,
	})
	if err != nil {
		return map[string]any{"error": err.Error()}, nil
	}

	preview := []rune(text)
	if len(preview) > 100 {
		preview = preview[:100]
	}
	return map[string]any{
		"status":          "stored",
		"entities_saved":  result.FactsExtracted,
		"text_preview":    string(preview),
		"chunks_stored":   result.ChunksStored,
	}, nil
}

func (s *Service) handlePersonInfo(ctx context.Context, args map[string]any) (map[string]any, error) {
	name := str(args["name"])
	if name == "" {
		return map[string]any{"error": "اسم الشخص مطلوب"}, nil
	}
	info, err := s.graph.QueryPersonContext(ctx, name)
	if err != nil {
		return nil, err
	}
	if info == "" {
		info = fmt.Sprintf("لا توجد معلومات عن '%s'.", name)
	}
	return map[string]any{"info": info}, nil
}

func (s *Service) handleManageInventory(ctx context.Context, args map[string]any) (map[string]any, error) {
	action := str(args["action"])
	name := str(args["name"])

	switch action {
	case "search":
		text, err := s.graph.QueryInventory(ctx, name, str(args["category"]))
		if err != nil {
			return nil, err
		}
		return map[string]any{"results": text}, nil

	case "report":
		return s.graph.QueryInventoryReport(ctx)

	case "add":
		if name == "" {
			return map[string]any{"error": "اسم الغرض مطلوب"}, nil
		}
		props := map[string]any{}
		if q, ok := args["quantity"]; ok {
			props["quantity"] = q
		}
		if l := str(args["location"]); l != "" {
			props["location"] = l
		}
		if c := str(args["category"]); c != "" {
			props["category"] = c
		}
		canonical, err := s.graph.UpsertItem(ctx, name, props)
		if err != nil {
			return nil, err
		}
		return map[string]any{"status": "created", "name": canonical}, nil

	case "move":
		location := str(args["location"])
		if name == "" || location == "" {
			return map[string]any{"error": "اسم الغرض والموقع الجديد مطلوبين"}, nil
		}
		return s.graph.MoveItem(ctx, name, location)

	case "use":
		if name == "" {
			return map[string]any{"error": "اسم الغرض مطلوب"}, nil
		}
		delta := int(num(args["quantity"]))
		if delta == 0 {
			delta = 1
		}
		return s.graph.AdjustItemQuantity(ctx, name, -delta)
	}
	return map[string]any{"error": "Unknown action: " + action}, nil
}

func (s *Service) handleManageTasks(ctx context.Context, args map[string]any) (map[string]any, error) {
	action := str(args["action"])
	title := str(args["title"])

	switch action {
	case "list":
		text, err := s.graph.QueryActiveTasks(ctx, str(args["status"]))
		if err != nil {
			return nil, err
		}
		return map[string]any{"tasks": text}, nil

	case "create":
		if title == "" {
			return map[string]any{"error": "عنوان المهمة مطلوب"}, nil
		}
		props := map[string]any{}
		if st := str(args["status"]); st != "" {
			props["status"] = st
		}
		if p, ok := args["priority"]; ok {
			props["priority"] = p
		}
		if d := str(args["due_date"]); d != "" {
			props["due_date"] = d
		}
		if _, err := s.graph.UpsertTask(ctx, title, props); err != nil {
			return nil, err
		}
		project := str(args["project"])
		if project != "" {
			if _, err := s.graph.UpsertProject(ctx, project, nil); err == nil {
				_ = s.graph.CreateRelationship(ctx, "Task", "title", title, "BELONGS_TO", "Project", "name", project)
			}
		}
		return map[string]any{"status": "created", "title": title, "project": project}, nil

	case "update":
		if title == "" {
			return map[string]any{"error": "عنوان المهمة مطلوب"}, nil
		}
		upd := graph.TaskUpdate{}
		if st := str(args["status"]); st != "" {
			upd.Status = &st
		}
		if p, ok := args["priority"]; ok {
			pri := int(num(p))
			upd.Priority = &pri
		}
		if d := str(args["due_date"]); d != "" {
			upd.DueDate = &d
		}
		if pr := str(args["project"]); pr != "" {
			upd.Project = &pr
		}
		return s.graph.UpdateTask(ctx, title, upd)

	case "delete":
		if title == "" {
			return map[string]any{"error": "عنوان المهمة مطلوب"}, nil
		}
		return s.graph.DeleteTask(ctx, title)
	}
	return map[string]any{"error": "Unknown action: " + action}, nil
}

func (s *Service) handleManageProjects(ctx context.Context, args map[string]any) (map[string]any, error) {
	action := str(args["action"])
	name := str(args["name"])
	session := str(args["_session_id"])

	props := map[string]any{}
	if st := str(args["status"]); st != "" {
		props["status"] = st
	}
	if d := str(args["description"]); d != "" {
		props["description"] = d
	}
	if p, ok := args["priority"]; ok {
		props["priority"] = p
	}
	aliases := strList(args["aliases"])

	switch action {
	case "list":
		text, err := s.graph.QueryProjectsOverview(ctx, str(args["status"]))
		if err != nil {
			return nil, err
		}
		return map[string]any{"projects": text}, nil

	case "get":
		if name == "" {
			return map[string]any{"error": "اسم المشروع مطلوب"}, nil
		}
		text, err := s.graph.QueryProjectDetails(ctx, name)
		if err != nil {
			return nil, err
		}
		return map[string]any{"projects": text}, nil

	case "create":
		if name == "" {
			return map[string]any{"error": "اسم المشروع مطلوب"}, nil
		}
		withPhases, _ := args["with_phases"].(bool)
		var result map[string]any
		if withPhases {
			created, err := s.graph.CreateProjectWithPhases(ctx, name, props)
			if err != nil {
				return nil, err
			}
			result = created
		} else {
			if _, err := s.graph.UpsertProject(ctx, name, props); err != nil {
				return nil, err
			}
			result = map[string]any{"status": "created", "name": name}
		}
		if len(aliases) > 0 {
			if err := s.graph.SetProjectAliases(ctx, name, aliases); err == nil {
				_ = s.graph.RegisterAliasesInVector(ctx, name, aliases, "Project")
			}
		}
		result["aliases"] = aliases
		return result, nil

	case "update":
		if name == "" {
			return map[string]any{"error": "اسم المشروع مطلوب"}, nil
		}
		if len(props) == 0 && len(aliases) == 0 {
			return map[string]any{"error": "لا توجد حقول للتعديل"}, nil
		}
		if len(aliases) > 0 {
			if err := s.graph.SetProjectAliases(ctx, name, aliases); err == nil {
				_ = s.graph.RegisterAliasesInVector(ctx, name, aliases, "Project")
			}
		}
		if len(props) > 0 {
			if _, err := s.graph.UpsertProject(ctx, name, props); err != nil {
				return nil, err
			}
		}
		return map[string]any{"status": "updated", "name": name, "aliases": aliases}, nil

	case "delete":
		if name == "" {
			return map[string]any{"error": "اسم المشروع مطلوب"}, nil
		}
		return s.graph.DeleteProject(ctx, name)

	case "focus":
		if name == "" {
			return map[string]any{"error": "اسم المشروع مطلوب"}, nil
		}
		resolved, err := s.graph.ResolveEntityName(ctx, name, "Project")
		if err != nil {
			resolved = name
		}
		details, err := s.graph.QueryProjectDetails(ctx, resolved)
		if err != nil || strings.HasPrefix(details, "No project found") {
			return map[string]any{"error": fmt.Sprintf("ما لقيت مشروع باسم '%s'", name)}, nil
		}
		if session != "" {
			_ = s.memory.SetActiveProject(ctx, session, resolved)
		}
		return map[string]any{"status": "focused", "name": resolved}, nil

	case "unfocus":
		if session != "" {
			_ = s.memory.ClearActiveProject(ctx, session)
		}
		return map[string]any{"status": "unfocused"}, nil

	case "add_section":
		sectionName := str(args["section_name"])
		if name == "" || sectionName == "" {
			return map[string]any{"error": "اسم المشروع والقسم مطلوبين"}, nil
		}
		sectionProps := map[string]any{}
		if st := str(args["section_type"]); st != "" {
			sectionProps["section_type"] = st
		}
		if o, ok := args["order"]; ok {
			sectionProps["order"] = o
		}
		return s.graph.CreateSection(ctx, name, sectionName, sectionProps)

	case "update_section":
		sectionName := str(args["section_name"])
		if name == "" || sectionName == "" {
			return map[string]any{"error": "اسم المشروع والقسم مطلوبين"}, nil
		}
		sectionProps := map[string]any{}
		if d := str(args["description"]); d != "" {
			sectionProps["description"] = d
		}
		if st := str(args["status"]); st != "" {
			sectionProps["status"] = st
		}
		if o, ok := args["order"]; ok {
			sectionProps["order"] = o
		}
		return s.graph.UpdateSection(ctx, name, sectionName, sectionProps)

	case "delete_section":
		sectionName := str(args["section_name"])
		if name == "" || sectionName == "" {
			return map[string]any{"error": "اسم المشروع والقسم مطلوبين"}, nil
		}
		return s.graph.DeleteSection(ctx, name, sectionName)

	case "assign_section":
		sectionName := str(args["section_name"])
		entityType := str(args["entity_type"])
		entityName := str(args["entity_name"])
		if name == "" || sectionName == "" || entityType == "" || entityName == "" {
			return map[string]any{"error": "اسم المشروع والقسم ونوع واسم العنصر مطلوبين"}, nil
		}
		return s.graph.AssignToSection(ctx, name, sectionName, entityType, entityName)

	case "set_phase":
		sectionName := str(args["section_name"])
		if name == "" || sectionName == "" {
			return map[string]any{"error": "اسم المشروع والمرحلة مطلوبين"}, nil
		}
		return s.graph.SetActivePhase(ctx, name, sectionName)
	}
	return map[string]any{"error": "Unknown action: " + action}, nil
}

func (s *Service) handleMergeProjects(ctx context.Context, args map[string]any) (map[string]any, error) {
	target := str(args["target_name"])
	sources := strList(args["source_names"])
	if target == "" || len(sources) == 0 {
		return map[string]any{"error": "اسم المشروع الهدف والمصادر مطلوبين"}, nil
	}
	return s.graph.MergeProjects(ctx, sources, target)
}

func (s *Service) handleManageLists(ctx context.Context, args map[string]any) (map[string]any, error) {
	action := str(args["action"])
	name := str(args["name"])
	entry := str(args["entry"])

	switch action {
	case "list":
		text, err := s.graph.QueryListsOverview(ctx, str(args["project"]))
		if err != nil {
			return nil, err
		}
		return map[string]any{"lists": text}, nil

	case "get":
		if name == "" {
			return map[string]any{"error": "اسم القائمة مطلوب"}, nil
		}
		text, err := s.graph.QueryList(ctx, name)
		if err != nil {
			return nil, err
		}
		return map[string]any{"list": text}, nil

	case "create":
		if name == "" {
			return map[string]any{"error": "اسم القائمة مطلوب"}, nil
		}
		listType := str(args["list_type"])
		if listType == "" {
			listType = "checklist"
		}
		return s.graph.CreateList(ctx, name, listType, str(args["project"]), "")

	case "add_entry":
		if name == "" {
			return map[string]any{"error": "اسم القائمة مطلوب"}, nil
		}
		if entries := strList(args["entries"]); len(entries) > 0 {
			for _, e := range entries {
				if _, err := s.graph.AddListEntry(ctx, name, e); err != nil {
					return nil, err
				}
			}
			return map[string]any{"status": "added", "list": name, "entries_added": len(entries)}, nil
		}
		if entry == "" {
			return map[string]any{"error": "محتوى العنصر مطلوب"}, nil
		}
		return s.graph.AddListEntry(ctx, name, entry)

	case "check_entry", "uncheck_entry":
		if name == "" || entry == "" {
			return map[string]any{"error": "اسم القائمة والعنصر مطلوبين"}, nil
		}
		return s.graph.CheckListEntry(ctx, name, entry, action == "check_entry")

	case "remove_entry":
		if name == "" || entry == "" {
			return map[string]any{"error": "اسم القائمة والعنصر مطلوبين"}, nil
		}
		return s.graph.RemoveListEntry(ctx, name, entry)

	case "delete":
		if name == "" {
			return map[string]any{"error": "اسم القائمة مطلوب"}, nil
		}
		return s.graph.DeleteList(ctx, name)
	}
	return map[string]any{"error": "Unknown action: " + action}, nil
}

func (s *Service) handleProductivityStats(ctx context.Context, args map[string]any) (map[string]any, error) {
	switch str(args["type"]) {
	case "focus":
		return s.graph.QueryFocusStats(ctx)
	case "sprint":
		sprints, err := s.graph.QuerySprints(ctx, "")
		if err != nil {
			return nil, err
		}
		return map[string]any{"sprints": sprints}, nil
	}

	focus, err := s.graph.QueryFocusStats(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := s.graph.QueryActiveTasks(ctx, "")
	if err != nil {
		return nil, err
	}
	projects, err := s.graph.QueryProjectsOverview(ctx, "")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"focus":        focus,
		"active_tasks": tasks,
		"projects":     projects,
	}, nil
}

func strList(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
