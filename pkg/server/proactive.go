package server

import (
	"errors"
	"net/http"
	"time"
)

func (s *Server) handleMorningSummary(w http.ResponseWriter, r *http.Request) {
	plan, err := s.graph.QueryDailyPlan(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	alerts, err := s.graph.QuerySpendingAlerts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"plan": plan, "alerts": alerts})
}

func (s *Server) handleNoonCheckin(w http.ResponseWriter, r *http.Request) {
	overdue, err := s.graph.OverduePendingReminders(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"overdue": overdue})
}

func (s *Server) handleEveningSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.graph.QueryEveningSummary(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDueReminders(w http.ResponseWriter, r *http.Request) {
	due, err := s.graph.DueReminders(r.Context(), time.Now())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"due": due})
}

type advanceReminderRequest struct {
	Title      string `json:"title"`
	Recurrence string `json:"recurrence"`
}

func (s *Server) handleAdvanceReminder(w http.ResponseWriter, r *http.Request) {
	var req advanceReminderRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Title == "" || req.Recurrence == "" {
		respondError(w, http.StatusBadRequest, errors.New("title and recurrence are required"))
		return
	}

	result, err := s.graph.AdvanceRecurringReminder(r.Context(), req.Title, req.Recurrence)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleStalledProjects(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", s.cfg.StalledProjectDays)
	projects, err := s.graph.StalledProjects(r.Context(), days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"days": days, "stalled": projects})
}

func (s *Server) handleOldDebts(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", s.cfg.OldDebtDays)
	debts, err := s.graph.OldDebts(r.Context(), days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"days": days, "debts": debts})
}

func (s *Server) handleReschedulePersistent(w http.ResponseWriter, r *http.Request) {
	n, err := s.graph.ReschedulePersistentReminders(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"rescheduled": n})
}
