package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/khalid729/Personal-Life-RAG/pkg/graph"
)

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryBool(r *http.Request, key string) bool {
	v := r.URL.Query().Get(key)
	return v == "true" || v == "1"
}

func (s *Server) handleFinancialReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	month := queryInt(r, "month", int(now.Month()))
	year := queryInt(r, "year", now.Year())

	var (
		report map[string]any
		err    error
	)
	if queryBool(r, "compare") {
		report, err = s.graph.QueryMonthComparison(r.Context(), month, year)
	} else {
		report, err = s.graph.QueryMonthlyReport(r.Context(), month, year)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleDebts(w http.ResponseWriter, r *http.Request) {
	summary, err := s.graph.QueryDebtSummary(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

type debtPaymentRequest struct {
	Person    string  `json:"person"`
	Amount    float64 `json:"amount"`
	Direction string  `json:"direction"`
	DebtID    string  `json:"debt_id"`
}

func (s *Server) handleDebtPayment(w http.ResponseWriter, r *http.Request) {
	var req debtPaymentRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, errors.New("amount must be positive"))
		return
	}

	var (
		result map[string]any
		err    error
	)
	if req.DebtID != "" {
		result, err = s.graph.ApplyDebtPaymentByID(r.Context(), req.DebtID, req.Amount)
	} else if req.Person != "" {
		result, err = s.graph.RecordDebtPayment(r.Context(), req.Person, req.Amount, req.Direction)
	} else {
		respondError(w, http.StatusBadRequest, errors.New("person or debt_id is required"))
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSpendingAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.graph.QuerySpendingAlerts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"alerts": alerts})
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	includeOverdue := r.URL.Query().Get("include_overdue") != "false"

	text, err := s.graph.QueryReminders(r.Context(), status, includeOverdue)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"reminders": text})
}

type reminderActionRequest struct {
	Query       string `json:"query"`
	Action      string `json:"action"`
	SnoozeUntil string `json:"snooze_until"`
}

func (s *Server) handleReminderAction(w http.ResponseWriter, r *http.Request) {
	var req reminderActionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	switch req.Action {
	case "done", "snooze", "cancel":
	default:
		respondError(w, http.StatusBadRequest, errors.New("action must be done, snooze or cancel"))
		return
	}

	result, err := s.graph.UpdateReminderStatus(r.Context(), req.Query, req.Action, req.SnoozeUntil)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type reminderUpdateRequest struct {
	Query   string         `json:"query"`
	Updates map[string]any `json:"updates"`
}

func (s *Server) handleReminderUpdate(w http.ResponseWriter, r *http.Request) {
	var req reminderUpdateRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Query == "" || len(req.Updates) == 0 {
		respondError(w, http.StatusBadRequest, errors.New("query and updates are required"))
		return
	}

	result, err := s.graph.UpdateReminder(r.Context(), req.Query, req.Updates)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReminderDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}

	result, err := s.graph.DeleteReminder(r.Context(), req.Query)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReminderDeleteAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.graph.DeleteAllReminders(r.Context(), req.Status)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReminderMergeDuplicates(w http.ResponseWriter, r *http.Request) {
	result, err := s.graph.MergeDuplicateReminders(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	text, err := s.graph.QueryActiveTasks(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"tasks": text})
}

type taskUpdateRequest struct {
	Title    string  `json:"title"`
	NewTitle *string `json:"new_title"`
	Status   *string `json:"status"`
	DueDate  *string `json:"due_date"`
	Priority *int    `json:"priority"`
	Project  *string `json:"project"`
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	var req taskUpdateRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, errors.New("title is required"))
		return
	}

	result, err := s.graph.UpdateTask(r.Context(), req.Title, graph.TaskUpdate{
		NewTitle: req.NewTitle,
		Status:   req.Status,
		DueDate:  req.DueDate,
		Priority: req.Priority,
		Project:  req.Project,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleTaskMergeDuplicates(w http.ResponseWriter, r *http.Request) {
	result, err := s.graph.MergeDuplicateTasks(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	text, err := s.graph.QueryProjectsOverview(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"projects": text})
}

func (s *Server) handleProjectDetails(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	text, err := s.graph.QueryProjectDetails(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"project": text})
}

func (s *Server) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	text, err := s.graph.QueryKnowledge(r.Context(), r.URL.Query().Get("topic"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"knowledge": text})
}
