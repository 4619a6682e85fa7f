package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/khalid729/Personal-Life-RAG/pkg/agent"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}

	result, err := s.agent.Chat(r.Context(), req.Message, req.SessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// handleChatStream writes one JSON object per line. Consumers must
// tolerate event types they do not know.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	emit := func(ev agent.StreamEvent) error {
		if err := enc.Encode(ev); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := s.agent.ChatStream(r.Context(), req.Message, req.SessionID, emit); err != nil {
		// Headers are gone; the best we can do is a final error line.
		_ = emit(agent.StreamEvent{Type: "error", Error: err.Error()})
	}
}

func (s *Server) handleChatSummary(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session_id")
	if session == "" {
		session = "default"
	}

	summary, err := s.memory.GetConversationSummary(r.Context(), session)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	turns, err := s.memory.GetWorking(r.Context(), session, 50)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": session,
		"summary":    summary,
		"turns":      turns,
	})
}
