// Package scheduler runs the proactive jobs: daily check-ins, reminder
// notifications, periodic alerts and the nightly backup.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/khalid729/Personal-Life-RAG/pkg/backup"
	"github.com/khalid729/Personal-Life-RAG/pkg/graph"
)

type Config struct {
	TimezoneOffsetHours  int
	MorningHour          int
	NoonHour             int
	EveningHour          int
	ReminderCheckMinutes int
	AlertCheckHours      int
	StalledProjectDays   int
	OldDebtDays          int
	InventoryUnusedDays  int
	BackupHour           int
	JobTimeoutSecs       int
	NotifyURL            string
}

type Service struct {
	graph  *graph.Service
	backup *backup.Service
	cfg    Config
	cron   *cron.Cron
	client *http.Client
}

func NewService(g *graph.Service, b *backup.Service, cfg Config) *Service {
	if cfg.MorningHour == 0 {
		cfg.MorningHour = 7
	}
	if cfg.NoonHour == 0 {
		cfg.NoonHour = 13
	}
	if cfg.EveningHour == 0 {
		cfg.EveningHour = 21
	}
	if cfg.ReminderCheckMinutes <= 0 {
		cfg.ReminderCheckMinutes = 30
	}
	if cfg.AlertCheckHours <= 0 {
		cfg.AlertCheckHours = 6
	}
	if cfg.StalledProjectDays <= 0 {
		cfg.StalledProjectDays = 14
	}
	if cfg.OldDebtDays <= 0 {
		cfg.OldDebtDays = 30
	}
	if cfg.InventoryUnusedDays <= 0 {
		cfg.InventoryUnusedDays = 90
	}
	if cfg.BackupHour == 0 {
		cfg.BackupHour = 3
	}
	if cfg.JobTimeoutSecs <= 0 {
		cfg.JobTimeoutSecs = 120
	}
	return &Service{
		graph:  g,
		backup: b,
		cfg:    cfg,
		cron:   cron.New(),
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// utcHour converts a local wall-clock hour to the UTC hour the cron
// entry must fire at. The process runs in UTC.
func utcHour(localHour, tzOffset int) int {
	h := (localHour - tzOffset) % 24
	if h < 0 {
		h += 24
	}
	return h
}

// Start registers all jobs and starts the cron loop.
func (s *Service) Start() error {
	tz := s.cfg.TimezoneOffsetHours
	entries := []struct {
		spec string
		name string
		job  func(context.Context)
	}{
		{fmt.Sprintf("0 %d * * *", utcHour(s.cfg.MorningHour, tz)), "morning_briefing", s.morningBriefing},
		{fmt.Sprintf("0 %d * * *", utcHour(s.cfg.NoonHour, tz)), "noon_checkin", s.noonCheckin},
		{fmt.Sprintf("0 %d * * *", utcHour(s.cfg.EveningHour, tz)), "evening_summary", s.eveningSummary},
		{fmt.Sprintf("*/%d * * * *", s.cfg.ReminderCheckMinutes), "reminder_check", s.reminderCheck},
		{fmt.Sprintf("0 */%d * * *", s.cfg.AlertCheckHours), "alert_check", s.alertCheck},
		{fmt.Sprintf("0 %d * * *", utcHour(s.cfg.BackupHour, tz)), "nightly_backup", s.nightlyBackup},
	}

	for _, e := range entries {
		name, job := e.name, e.job
		if _, err := s.cron.AddFunc(e.spec, func() { s.run(name, job) }); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", name, err)
		}
		slog.Info("scheduled job", "job", name, "cron", e.spec)
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// run executes a job under the configured wall-clock budget.
func (s *Service) run(name string, job func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(s.cfg.JobTimeoutSecs)*time.Second)
	defer cancel()

	start := time.Now()
	job(ctx)
	slog.Debug("job finished", "job", name, "took", time.Since(start).Round(time.Millisecond))
}

func (s *Service) morningBriefing(ctx context.Context) {
	plan, err := s.graph.QueryDailyPlan(ctx)
	if err != nil {
		slog.Error("morning briefing failed", "error", err)
		return
	}

	parts := []string{"صباح الخير! خطة اليوم:", plan}
	if alerts, err := s.graph.QuerySpendingAlerts(ctx); err == nil && alerts != "" {
		parts = append(parts, alerts)
	}
	s.notify(ctx, "morning_briefing", strings.Join(parts, "\n\n"))
}

func (s *Service) noonCheckin(ctx context.Context) {
	overdue, err := s.graph.OverduePendingReminders(ctx)
	if err != nil {
		slog.Error("noon checkin failed", "error", err)
		return
	}
	if len(overdue) == 0 {
		return
	}

	lines := []string{"عندك تذكيرات متأخرة:"}
	for _, r := range overdue {
		lines = append(lines, fmt.Sprintf("  - %v (كان موعدها %v)", r["title"], r["due_date"]))
	}
	s.notify(ctx, "noon_checkin", strings.Join(lines, "\n"))
}

func (s *Service) eveningSummary(ctx context.Context) {
	summary, err := s.graph.QueryEveningSummary(ctx)
	if err != nil {
		slog.Error("evening summary failed", "error", err)
		return
	}

	var lines []string
	if n := len(summary.TasksDone); n > 0 {
		lines = append(lines, fmt.Sprintf("أنجزت اليوم %d مهمة:", n))
		for _, t := range summary.TasksDone {
			lines = append(lines, fmt.Sprintf("  - %v", t["title"]))
		}
	}
	if n := len(summary.RemindersCompleted); n > 0 {
		lines = append(lines, fmt.Sprintf("وخلصت %d تذكير.", n))
	}
	if n := len(summary.TomorrowReminders); n > 0 {
		lines = append(lines, "بكرة عندك:")
		for _, r := range summary.TomorrowReminders {
			lines = append(lines, fmt.Sprintf("  - %v (%v)", r["title"], r["due_date"]))
		}
	}
	if len(lines) == 0 {
		return
	}
	s.notify(ctx, "evening_summary", strings.Join(lines, "\n"))
}

// reminderCheck notifies due reminders, then advances recurring ones
// and re-arms persistent ones.
func (s *Service) reminderCheck(ctx context.Context) {
	due, err := s.graph.DueReminders(ctx, time.Now())
	if err != nil {
		slog.Error("reminder check failed", "error", err)
		return
	}

	for _, r := range due {
		title, _ := r["title"].(string)
		if title == "" {
			continue
		}
		s.notify(ctx, "reminder_due", fmt.Sprintf("تذكير: %s", title))

		if recurrence, _ := r["recurrence"].(string); recurrence != "" {
			if _, err := s.graph.AdvanceRecurringReminder(ctx, title, recurrence); err != nil {
				slog.Warn("failed to advance recurring reminder", "title", title, "error", err)
			}
			continue
		}
		if err := s.graph.MarkReminderNotified(ctx, title); err != nil {
			slog.Warn("failed to mark reminder notified", "title", title, "error", err)
		}
	}

	if n, err := s.graph.ReschedulePersistentReminders(ctx); err == nil && n > 0 {
		slog.Info("re-armed persistent reminders", "count", n)
	}
}

// alertCheck surfaces slow-burn problems: stalled projects, debts left
// unpaid and inventory nobody touched.
func (s *Service) alertCheck(ctx context.Context) {
	var lines []string

	if stalled, err := s.graph.StalledProjects(ctx, s.cfg.StalledProjectDays); err == nil && len(stalled) > 0 {
		lines = append(lines, fmt.Sprintf("مشاريع متوقفة من %d يوم:", s.cfg.StalledProjectDays))
		for _, p := range stalled {
			lines = append(lines, fmt.Sprintf("  - %v", p["name"]))
		}
	}

	if debts, err := s.graph.OldDebts(ctx, s.cfg.OldDebtDays); err == nil && len(debts) > 0 {
		lines = append(lines, "ديون قديمة ما انسدّت:")
		for _, d := range debts {
			lines = append(lines, fmt.Sprintf("  - %v: %v ريال", d["person"], d["amount"]))
		}
	}

	if items, err := s.graph.QueryUnusedItems(ctx, s.cfg.InventoryUnusedDays); err == nil && len(items) > 0 {
		lines = append(lines, fmt.Sprintf("أغراض ما استخدمتها من %d يوم: %d غرض", s.cfg.InventoryUnusedDays, len(items)))
	}

	if len(lines) == 0 {
		return
	}
	s.notify(ctx, "alerts", strings.Join(lines, "\n"))
}

func (s *Service) nightlyBackup(ctx context.Context) {
	if s.backup == nil {
		return
	}
	info, err := s.backup.Create(ctx)
	if err != nil {
		slog.Error("nightly backup failed", "error", err)
		return
	}
	if _, err := s.backup.Prune(ctx); err != nil {
		slog.Warn("backup prune failed", "error", err)
	}
	slog.Info("nightly backup done", "timestamp", info.Timestamp)
}

// notify posts the message to the configured webhook. Without a URL
// the message only lands in the log.
func (s *Service) notify(ctx context.Context, kind, message string) {
	if message == "" {
		return
	}
	if s.cfg.NotifyURL == "" {
		slog.Info("notification", "kind", kind, "message", message)
		return
	}

	payload, _ := json.Marshal(map[string]string{
		"kind":    kind,
		"message": message,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.NotifyURL, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Warn("notification delivery failed", "kind", kind, "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		slog.Warn("notification rejected", "kind", kind, "status", resp.StatusCode)
	}
}
