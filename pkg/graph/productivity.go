package graph

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// UpsertSprint creates or updates a Sprint node. Missing dates default
// to today and today plus the configured sprint length.
func (s *Service) UpsertSprint(ctx context.Context, name string, props map[string]any) (string, error) {
	props = cleanProps(props)

	startDate := getString(props, "start_date")
	if startDate == "" {
		startDate = time.Now().UTC().Format("2006-01-02")
	}
	endDate := getString(props, "end_date")
	if endDate == "" {
		if start, err := time.Parse("2006-01-02", startDate[:min(10, len(startDate))]); err == nil {
			endDate = start.AddDate(0, 0, 7*s.config.SprintDefaultWeeks).Format("2006-01-02")
		}
	}
	delete(props, "start_date")
	delete(props, "end_date")
	project := getString(props, "project")
	delete(props, "project")

	q := fmt.Sprintf(`
	MERGE (s:Sprint {name: $name})
	ON CREATE SET s.start_date = $start_date, s.end_date = $end_date,
	              s.status = 'planning', s.created_at = $now%s
	ON MATCH SET s.updated_at = $now%s
	RETURN s.name AS name`, setClause("s", props), setClause("s", props))

	params := map[string]any{
		"name": name, "start_date": startDate, "end_date": endDate, "now": now(),
	}
	for k, v := range props {
		params[k] = v
	}

	if _, err := s.write(ctx, q, params); err != nil {
		return "", fmt.Errorf("failed to upsert sprint %q: %w", name, err)
	}

	if project != "" {
		if _, err := s.UpsertProject(ctx, project, nil); err != nil {
			return "", err
		}
		if err := s.CreateRelationship(ctx, "Sprint", "name", name,
			"BELONGS_TO", "Project", "name", project); err != nil {
			slog.Debug("sprint-project link skipped", "sprint", name, "error", err)
		}
	}
	return name, nil
}

// UpdateSprint sets sprint properties by exact name.
func (s *Service) UpdateSprint(ctx context.Context, name string, props map[string]any) (map[string]any, error) {
	props = cleanProps(props)
	if len(props) == 0 {
		return map[string]any{"error": "No properties to update"}, nil
	}

	var sets []string
	params := map[string]any{"name": name, "now": now()}
	for k, v := range props {
		sets = append(sets, fmt.Sprintf("s.%s = $%s", k, k))
		params[k] = v
	}
	sets = append(sets, "s.updated_at = $now")

	q := fmt.Sprintf(`
	MATCH (s:Sprint {name: $name})
	SET %s
	RETURN s.name AS name, s.status AS status, s.start_date AS start_date,
	       s.end_date AS end_date, s.goal AS goal`, strings.Join(sets, ", "))

	rows, err := s.write(ctx, q, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("Sprint '%s' not found", name)}, nil
	}
	return rows[0], nil
}

// AssignTaskToSprint links a task to a sprint.
func (s *Service) AssignTaskToSprint(ctx context.Context, taskTitle, sprintName string) (map[string]any, error) {
	q := `
	MATCH (t:Task {title: $task})
	MATCH (s:Sprint {name: $sprint})
	MERGE (t)-[:IN_SPRINT]->(s)
	RETURN t.title AS task, s.name AS sprint`

	rows, err := s.write(ctx, q, map[string]any{"task": taskTitle, "sprint": sprintName})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{
			"error": fmt.Sprintf("Task '%s' or Sprint '%s' not found", taskTitle, sprintName),
		}, nil
	}
	return rows[0], nil
}

// QuerySprint returns sprint details with its task breakdown.
func (s *Service) QuerySprint(ctx context.Context, name string) (map[string]any, error) {
	q := `
	MATCH (s:Sprint {name: $name})
	OPTIONAL MATCH (t:Task)-[:IN_SPRINT]->(s)
	RETURN s.name AS name, s.status AS status, s.start_date AS start_date,
	       s.end_date AS end_date, s.goal AS goal,
	       count(t) AS total,
	       sum(CASE WHEN t.status = 'done' THEN 1 ELSE 0 END) AS done,
	       sum(CASE WHEN t.status = 'in_progress' THEN 1 ELSE 0 END) AS in_progress`

	rows, err := s.read(ctx, q, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("Sprint '%s' not found", name)}, nil
	}

	r := rows[0]
	total := asInt(r["total"])
	done := asInt(r["done"])
	progress := 0.0
	if total > 0 {
		progress = math.Round(float64(done)/float64(total)*1000) / 10
	}
	return map[string]any{
		"name": r["name"], "status": r["status"],
		"start_date": r["start_date"], "end_date": r["end_date"],
		"goal": r["goal"], "total_tasks": total, "done_tasks": done,
		"in_progress_tasks": asInt(r["in_progress"]),
		"progress_pct":      progress,
	}, nil
}

// QuerySprints lists sprints, newest first, optionally by status.
func (s *Service) QuerySprints(ctx context.Context, status string) ([]map[string]any, error) {
	where := ""
	params := map[string]any{}
	if status != "" {
		where = "WHERE s.status = $status"
		params["status"] = status
	}

	q := fmt.Sprintf(`
	MATCH (s:Sprint)
	%s
	OPTIONAL MATCH (t:Task)-[:IN_SPRINT]->(s)
	RETURN s.name AS name, s.status AS status, s.start_date AS start_date,
	       s.end_date AS end_date, s.goal AS goal,
	       count(t) AS total,
	       sum(CASE WHEN t.status = 'done' THEN 1 ELSE 0 END) AS done
	ORDER BY s.start_date DESC
	LIMIT 20`, where)

	rows, err := s.read(ctx, q, params)
	if err != nil {
		return nil, err
	}

	results := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		total := asInt(r["total"])
		done := asInt(r["done"])
		progress := 0.0
		if total > 0 {
			progress = math.Round(float64(done)/float64(total)*1000) / 10
		}
		results = append(results, map[string]any{
			"name": r["name"], "status": r["status"],
			"start_date": r["start_date"], "end_date": r["end_date"],
			"goal": r["goal"], "total_tasks": total, "done_tasks": done,
			"progress_pct": progress,
		})
	}
	return results, nil
}

// QuerySprintBurndown compares the sprint's actual remaining tasks to a
// linear ideal burndown over its date span.
func (s *Service) QuerySprintBurndown(ctx context.Context, name string) (map[string]any, error) {
	sprint, err := s.QuerySprint(ctx, name)
	if err != nil {
		return nil, err
	}
	if _, bad := sprint["error"]; bad {
		return sprint, nil
	}

	total := asInt(sprint["total_tasks"])
	done := asInt(sprint["done_tasks"])
	remaining := total - done

	totalDays, daysPassed, daysLeft := 14, 0, 14
	startStr, _ := sprint["start_date"].(string)
	endStr, _ := sprint["end_date"].(string)
	if start, err1 := time.Parse("2006-01-02", startStr); err1 == nil {
		if end, err2 := time.Parse("2006-01-02", endStr); err2 == nil {
			ref := time.Now().UTC()
			totalDays = max(int(end.Sub(start).Hours()/24), 1)
			daysPassed = max(int(ref.Sub(start).Hours()/24), 0)
			daysLeft = max(int(end.Sub(ref).Hours()/24), 0)
		}
	}

	idealRemaining := float64(total)
	if totalDays > 0 {
		idealRemaining = float64(total) * (1 - float64(daysPassed)/float64(totalDays))
	}

	return map[string]any{
		"name": sprint["name"], "status": sprint["status"],
		"total_tasks": total, "done_tasks": done, "remaining": remaining,
		"total_days": totalDays, "days_passed": daysPassed, "days_left": daysLeft,
		"ideal_remaining": math.Round(idealRemaining*10) / 10,
		"progress_pct":    sprint["progress_pct"],
	}, nil
}

// CompleteSprint marks a sprint completed and records its velocity in
// done tasks per week.
func (s *Service) CompleteSprint(ctx context.Context, name string) (map[string]any, error) {
	sprint, err := s.QuerySprint(ctx, name)
	if err != nil {
		return nil, err
	}
	if _, bad := sprint["error"]; bad {
		return sprint, nil
	}

	total := asInt(sprint["total_tasks"])
	done := asInt(sprint["done_tasks"])

	velocity := 0.0
	startStr, _ := sprint["start_date"].(string)
	if start, err := time.Parse("2006-01-02", startStr); err == nil {
		weeks := math.Max(time.Since(start).Hours()/24/7, 1)
		velocity = math.Round(float64(done)/weeks*10) / 10
	}

	q := `
	MATCH (s:Sprint {name: $name})
	SET s.status = 'completed', s.completed_at = $now, s.velocity = $velocity`
	if _, err := s.write(ctx, q, map[string]any{"name": name, "now": now(), "velocity": velocity}); err != nil {
		return nil, err
	}

	return map[string]any{
		"name": name, "status": "completed", "done_tasks": done,
		"total_tasks": total, "velocity": velocity,
	}, nil
}

// QuerySprintVelocity averages velocity over completed sprints,
// optionally scoped to one project.
func (s *Service) QuerySprintVelocity(ctx context.Context, projectName string) (map[string]any, error) {
	q := `
	MATCH (s:Sprint)
	WHERE s.status = 'completed' AND s.velocity IS NOT NULL
	RETURN avg(s.velocity) AS avg_vel, count(s) AS cnt`
	params := map[string]any{}
	if projectName != "" {
		q = `
		MATCH (s:Sprint)-[:BELONGS_TO]->(p:Project {name: $project})
		WHERE s.status = 'completed' AND s.velocity IS NOT NULL
		RETURN avg(s.velocity) AS avg_vel, count(s) AS cnt`
		params["project"] = projectName
	}

	rows, err := s.read(ctx, q, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || asInt(rows[0]["cnt"]) == 0 {
		return map[string]any{"avg_velocity": 0.0, "completed_sprints": 0}, nil
	}

	avg, _ := rows[0]["avg_vel"].(float64)
	return map[string]any{
		"avg_velocity":      math.Round(avg*10) / 10,
		"completed_sprints": asInt(rows[0]["cnt"]),
	}, nil
}

// StartFocusSession creates a FocusSession node and links it to a task
// when one matches the given title.
func (s *Service) StartFocusSession(ctx context.Context, durationMinutes int, taskTitle string) (map[string]any, error) {
	if durationMinutes <= 0 {
		durationMinutes = 25
	}
	started := now()
	sid := strings.NewReplacer(":", "", "-", "").Replace(started)
	if len(sid) > 14 {
		sid = sid[:14]
	}

	q := `
	CREATE (f:FocusSession {session_id: $sid, started_at: $now,
	                        duration_minutes: $dur, completed: false})`
	if _, err := s.write(ctx, q, map[string]any{"sid": sid, "now": started, "dur": durationMinutes}); err != nil {
		return nil, fmt.Errorf("failed to start focus session: %w", err)
	}

	result := map[string]any{
		"session_id": sid, "started_at": started, "duration_minutes": durationMinutes,
	}
	if taskTitle != "" {
		qLink := `
		MATCH (f:FocusSession {session_id: $sid})
		MATCH (t:Task)
		WHERE toLower(t.title) CONTAINS toLower($task)
		MERGE (f)-[:WORKED_ON]->(t)
		RETURN t.title AS title`
		rows, err := s.write(ctx, qLink, map[string]any{"sid": sid, "task": taskTitle})
		if err != nil {
			slog.Debug("focus-task link skipped", "task", taskTitle, "error", err)
		} else if len(rows) > 0 {
			result["task"] = rows[0]["title"]
		}
	}
	return result, nil
}

// CompleteFocusSession completes the given session, or the latest
// incomplete one when no id is given.
func (s *Service) CompleteFocusSession(ctx context.Context, sessionID string, completed bool) (map[string]any, error) {
	var q string
	params := map[string]any{"completed": completed, "now": now()}
	if sessionID != "" {
		q = `
		MATCH (f:FocusSession {session_id: $sid})
		WHERE f.completed = false
		SET f.completed = $completed, f.ended_at = $now
		RETURN f.session_id AS session_id, f.started_at AS started_at,
		       f.ended_at AS ended_at, f.duration_minutes AS duration_minutes`
		params["sid"] = sessionID
	} else {
		q = `
		MATCH (f:FocusSession)
		WHERE f.completed = false
		WITH f ORDER BY f.started_at DESC LIMIT 1
		SET f.completed = $completed, f.ended_at = $now
		RETURN f.session_id AS session_id, f.started_at AS started_at,
		       f.ended_at AS ended_at, f.duration_minutes AS duration_minutes`
	}

	rows, err := s.write(ctx, q, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": "No active focus session found"}, nil
	}

	out := rows[0]
	out["completed"] = completed
	return out, nil
}

// QueryFocusStats aggregates completed focus sessions for today, the
// last week and all time, plus a per-task breakdown.
func (s *Service) QueryFocusStats(ctx context.Context) (map[string]any, error) {
	today := time.Now().UTC().Format("2006-01-02")
	weekAgo := time.Now().UTC().AddDate(0, 0, -7).Format("2006-01-02")

	count := func(since string) (int, int, error) {
		q := `
		MATCH (f:FocusSession)
		WHERE f.completed = true`
		params := map[string]any{}
		if since != "" {
			q += ` AND f.started_at >= $since`
			params["since"] = since
		}
		q += `
		RETURN count(f) AS cnt, sum(f.duration_minutes) AS mins`

		rows, err := s.read(ctx, q, params)
		if err != nil {
			return 0, 0, err
		}
		if len(rows) == 0 {
			return 0, 0, nil
		}
		return asInt(rows[0]["cnt"]), asInt(rows[0]["mins"]), nil
	}

	todaySessions, todayMinutes, err := count(today)
	if err != nil {
		return nil, err
	}
	weekSessions, weekMinutes, err := count(weekAgo)
	if err != nil {
		return nil, err
	}
	totalSessions, totalMinutes, err := count("")
	if err != nil {
		return nil, err
	}

	qByTask := `
	MATCH (f:FocusSession)-[:WORKED_ON]->(t:Task)
	WHERE f.completed = true
	RETURN t.title AS task, count(f) AS sessions, sum(f.duration_minutes) AS minutes
	ORDER BY sum(f.duration_minutes) DESC
	LIMIT 10`
	rows, err := s.read(ctx, qByTask, nil)
	if err != nil {
		return nil, err
	}
	byTask := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		byTask = append(byTask, map[string]any{
			"task": r["task"], "sessions": asInt(r["sessions"]), "minutes": asInt(r["minutes"]),
		})
	}

	return map[string]any{
		"today_sessions": todaySessions, "today_minutes": todayMinutes,
		"week_sessions": weekSessions, "week_minutes": weekMinutes,
		"total_sessions": totalSessions, "total_minutes": totalMinutes,
		"by_task": byTask,
	}, nil
}

// TimeBlock is one suggested slot for a task.
type TimeBlock struct {
	TaskTitle   string `json:"task_title"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	EnergyLevel string `json:"energy_level"`
	Priority    int    `json:"priority"`
}

func parseHourRange(s string, defStart, defEnd int) (int, int) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return defStart, defEnd
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return defStart, defEnd
	}
	return start, end
}

// SuggestTimeBlocks buckets unscheduled tasks by energy level and lays
// them out over the day: high-energy tasks in the peak window, low in
// the low window, medium in whatever remains.
func (s *Service) SuggestTimeBlocks(ctx context.Context, dateStr, energyProfile string) (map[string]any, error) {
	profile := energyProfile
	if profile == "" {
		profile = s.config.DefaultEnergyProfile
	}

	peakStart, peakEnd := parseHourRange(s.config.EnergyPeakHours, 7, 12)
	lowStart, lowEnd := parseHourRange(s.config.EnergyLowHours, 14, 16)

	switch profile {
	case "tired":
		peakStart++
		peakEnd--
		lowStart--
		lowEnd++
	case "energized":
		peakStart--
		peakEnd++
	}

	dayStart, dayEnd := s.config.WorkDayStart, s.config.WorkDayEnd
	peakStart = max(peakStart, dayStart)
	peakEnd = min(peakEnd, dayEnd)
	lowStart = max(lowStart, dayStart)
	lowEnd = min(lowEnd, dayEnd)

	q := `
	MATCH (t:Task)
	WHERE t.status IN ['todo', 'in_progress']
	  AND (t.start_time IS NULL OR t.start_time = '')
	  AND (t.due_date IS NULL OR t.due_date <= $eod)
	RETURN t.title AS title, t.priority AS priority,
	       t.energy_level AS energy_level, t.estimated_duration AS estimated_duration
	ORDER BY t.priority DESC
	LIMIT 20`
	rows, err := s.read(ctx, q, map[string]any{"eod": dateStr + "T23:59:59"})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"blocks": []TimeBlock{}, "energy_profile": profile, "date": dateStr}, nil
	}

	type bucketTask struct {
		title    string
		priority int
		energy   string
		duration int
	}
	var high, medium, low []bucketTask
	for _, r := range rows {
		title, _ := r["title"].(string)
		energy, _ := r["energy_level"].(string)
		if energy == "" {
			energy = "medium"
		}
		dur := asInt(r["estimated_duration"])
		if dur == 0 {
			dur = s.config.TimeBlockSlotMinutes
		}
		t := bucketTask{title: title, priority: asInt(r["priority"]), energy: energy, duration: dur}
		switch strings.ToLower(energy) {
		case "high":
			high = append(high, t)
		case "low":
			low = append(low, t)
		default:
			medium = append(medium, t)
		}
	}

	var blocks []TimeBlock
	schedule := func(tasks []bucketTask, startH, endH int) {
		currentMin := startH * 60
		endMin := endH * 60
		for _, t := range tasks {
			dur := min(t.duration, 120)
			if currentMin+dur > endMin {
				break
			}
			endSlot := currentMin + dur
			blocks = append(blocks, TimeBlock{
				TaskTitle:   t.title,
				StartTime:   fmt.Sprintf("%sT%02d:%02d:00", dateStr, currentMin/60, currentMin%60),
				EndTime:     fmt.Sprintf("%sT%02d:%02d:00", dateStr, endSlot/60, endSlot%60),
				EnergyLevel: t.energy,
				Priority:    t.priority,
			})
			currentMin = endSlot
		}
	}

	schedule(high, peakStart, peakEnd)
	schedule(low, lowStart, lowEnd)
	mediumStart, mediumEnd := peakEnd, lowStart
	if peakEnd >= lowStart {
		mediumStart, mediumEnd = lowEnd, dayEnd
	}
	schedule(medium, mediumStart, mediumEnd)

	if blocks == nil {
		blocks = []TimeBlock{}
	}
	return map[string]any{"blocks": blocks, "energy_profile": profile, "date": dateStr}, nil
}

// ApplyTimeBlocks writes the suggested slots onto the Task nodes.
func (s *Service) ApplyTimeBlocks(ctx context.Context, blocks []TimeBlock, dateStr string) (map[string]any, error) {
	applied := 0
	for _, b := range blocks {
		if b.TaskTitle == "" || b.StartTime == "" || b.EndTime == "" {
			continue
		}
		q := `
		MATCH (t:Task {title: $title})
		SET t.start_time = $start, t.end_time = $end, t.updated_at = $now
		RETURN t.title AS title`
		rows, err := s.write(ctx, q, map[string]any{
			"title": b.TaskTitle, "start": b.StartTime, "end": b.EndTime, "now": now(),
		})
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			applied++
		}
	}
	return map[string]any{"applied": applied, "date": dateStr}, nil
}

