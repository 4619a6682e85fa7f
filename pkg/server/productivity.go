package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khalid729/Personal-Life-RAG/pkg/graph"
)

func (s *Server) handleSprints(w http.ResponseWriter, r *http.Request) {
	sprints, err := s.graph.QuerySprints(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sprints": sprints})
}

type sprintRequest struct {
	Name  string         `json:"name"`
	Props map[string]any `json:"props"`
}

func (s *Server) handleSprintUpsert(w http.ResponseWriter, r *http.Request) {
	var req sprintRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	name, err := s.graph.UpsertSprint(r.Context(), req.Name, req.Props)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "name": name})
}

func (s *Server) handleSprintDetails(w http.ResponseWriter, r *http.Request) {
	sprint, err := s.graph.QuerySprint(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, sprint)
}

func (s *Server) handleSprintComplete(w http.ResponseWriter, r *http.Request) {
	result, err := s.graph.CompleteSprint(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSprintAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskTitle string `json:"task_title"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.TaskTitle == "" {
		respondError(w, http.StatusBadRequest, errors.New("task_title is required"))
		return
	}

	result, err := s.graph.AssignTaskToSprint(r.Context(), req.TaskTitle, chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSprintBurndown(w http.ResponseWriter, r *http.Request) {
	result, err := s.graph.QuerySprintBurndown(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSprintVelocity(w http.ResponseWriter, r *http.Request) {
	result, err := s.graph.QuerySprintVelocity(r.Context(), r.URL.Query().Get("project"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type focusStartRequest struct {
	DurationMinutes int    `json:"duration_minutes"`
	TaskTitle       string `json:"task_title"`
}

func (s *Server) handleFocusStart(w http.ResponseWriter, r *http.Request) {
	var req focusStartRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.graph.StartFocusSession(r.Context(), req.DurationMinutes, req.TaskTitle)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type focusCompleteRequest struct {
	SessionID string `json:"session_id"`
	Completed bool   `json:"completed"`
}

func (s *Server) handleFocusComplete(w http.ResponseWriter, r *http.Request) {
	var req focusCompleteRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.SessionID == "" {
		respondError(w, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}

	result, err := s.graph.CompleteFocusSession(r.Context(), req.SessionID, req.Completed)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleFocusStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.graph.QueryFocusStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type timeBlockSuggestRequest struct {
	Date          string `json:"date"`
	EnergyProfile string `json:"energy_profile"`
}

func (s *Server) handleTimeBlockSuggest(w http.ResponseWriter, r *http.Request) {
	var req timeBlockSuggestRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.graph.SuggestTimeBlocks(r.Context(), req.Date, req.EnergyProfile)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type timeBlockApplyRequest struct {
	Date   string            `json:"date"`
	Blocks []graph.TimeBlock `json:"blocks"`
}

func (s *Server) handleTimeBlockApply(w http.ResponseWriter, r *http.Request) {
	var req timeBlockApplyRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Blocks) == 0 {
		respondError(w, http.StatusBadRequest, errors.New("blocks are required"))
		return
	}

	result, err := s.graph.ApplyTimeBlocks(r.Context(), req.Blocks, req.Date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
