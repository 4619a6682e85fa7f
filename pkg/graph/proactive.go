package graph

import (
	"context"
	"time"
)

// OverduePendingReminders returns pending reminders whose due date has
// passed. Feeds the noon check-in.
func (s *Service) OverduePendingReminders(ctx context.Context) ([]map[string]any, error) {
	q := `
		MATCH (r:Reminder)
		WHERE r.status = 'pending' AND r.due_date IS NOT NULL AND r.due_date < $now
		RETURN r.title AS title, r.due_date AS due_date, r.priority AS priority
		ORDER BY r.due_date
		LIMIT 20`
	return s.read(ctx, q, map[string]any{"now": now()})
}

// EveningSummary gathers what got done today and what tomorrow holds.
type EveningSummary struct {
	TasksDone          []map[string]any `json:"tasks_done"`
	RemindersCompleted []map[string]any `json:"reminders_completed"`
	TomorrowReminders  []map[string]any `json:"tomorrow_reminders"`
}

func (s *Service) QueryEveningSummary(ctx context.Context) (*EveningSummary, error) {
	today := time.Now().UTC().Format("2006-01-02")
	tomorrow := time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02")

	summary := &EveningSummary{
		TasksDone:          []map[string]any{},
		RemindersCompleted: []map[string]any{},
		TomorrowReminders:  []map[string]any{},
	}

	rows, err := s.read(ctx, `
		MATCH (t:Task)
		WHERE t.status = 'done' AND t.updated_at >= $today
		RETURN t.title AS title
		ORDER BY t.updated_at DESC`,
		map[string]any{"today": today})
	if err != nil {
		return nil, err
	}
	summary.TasksDone = rows

	rows, err = s.read(ctx, `
		MATCH (r:Reminder)
		WHERE r.status = 'done' AND r.completed_at >= $today
		RETURN r.title AS title`,
		map[string]any{"today": today})
	if err != nil {
		return nil, err
	}
	summary.RemindersCompleted = rows

	rows, err = s.read(ctx, `
		MATCH (r:Reminder)
		WHERE r.status = 'pending'
		  AND r.due_date >= $tomorrow AND r.due_date <= $tomorrowEnd
		RETURN r.title AS title, r.due_date AS due_date
		ORDER BY r.due_date`,
		map[string]any{"tomorrow": tomorrow, "tomorrowEnd": tomorrow + "T23:59:59"})
	if err != nil {
		return nil, err
	}
	summary.TomorrowReminders = rows

	return summary, nil
}

// StalledProjects returns active projects with no task activity within
// the window. Activity falls back to the project's own timestamps for
// projects without tasks.
func (s *Service) StalledProjects(ctx context.Context, days int) ([]map[string]any, error) {
	if days <= 0 {
		days = 14
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	q := `
		MATCH (p:Project)
		WHERE p.status IS NULL OR p.status IN ['active', 'in_progress']
		OPTIONAL MATCH (t:Task)-[:BELONGS_TO]->(p)
		WITH p, max(coalesce(t.updated_at, p.updated_at, p.created_at)) AS last_activity
		WHERE last_activity < $cutoff
		RETURN p.name AS name, p.status AS status, last_activity
		ORDER BY last_activity`
	return s.read(ctx, q, map[string]any{"cutoff": cutoff})
}

// OldDebts returns debts the user owes that have sat unpaid past the
// window, largest first.
func (s *Service) OldDebts(ctx context.Context, days int) ([]map[string]any, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	q := `
		MATCH (d:Debt)-[:INVOLVES]->(p:Person)
		WHERE d.status IN ['open', 'partial'] AND d.direction = 'i_owe'
		  AND d.created_at < $cutoff
		RETURN p.name AS person, d.amount AS amount, d.status AS status,
		       d.reason AS reason, d.created_at AS created_at
		ORDER BY d.amount DESC`
	return s.read(ctx, q, map[string]any{"cutoff": cutoff})
}
