package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/khalid729/Personal-Life-RAG/pkg/ingest"
)

const maxUploadBytes = 50 << 20

type ingestTextRequest struct {
	Text       string   `json:"text"`
	SourceType string   `json:"source_type"`
	Tags       []string `json:"tags"`
	Topic      string   `json:"topic"`
	SessionID  string   `json:"session_id"`
}

func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	var req ingestTextRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, errors.New("text is required"))
		return
	}
	if req.SourceType == "" {
		req.SourceType = "manual"
	}

	result, err := s.pipeline.IngestText(r.Context(), req.Text, ingest.Options{
		SourceType: req.SourceType,
		Tags:       req.Tags,
		Topic:      req.Topic,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("file field is required"))
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var tags []string
	if v := r.FormValue("tags"); v != "" {
		tags = append(tags, v)
	}

	result, err := s.files.ProcessFile(r.Context(),
		fileBytes,
		header.Filename,
		header.Header.Get("Content-Type"),
		r.FormValue("context"),
		tags,
		r.FormValue("topic"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type ingestURLRequest struct {
	URL       string   `json:"url"`
	Context   string   `json:"context"`
	Tags      []string `json:"tags"`
	Topic     string   `json:"topic"`
	SessionID string   `json:"session_id"`
}

func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	topic := req.Topic
	if topic == "" {
		topic = "general"
	}
	result, err := s.files.IngestURL(r.Context(), req.URL, req.Context, req.Tags, topic)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	path := s.files.FilePath(hash)
	if path == "" {
		respondError(w, http.StatusNotFound, errors.New("file not found"))
		return
	}

	filename := hash + filepath.Ext(path)
	if node, err := s.graph.FindFileByHash(r.Context(), hash); err == nil && node != nil {
		if original, _ := node["filename"].(string); original != "" {
			filename = original
		}
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	http.ServeFile(w, r, path)
}

type searchRequest struct {
	Query  string `json:"query"`
	Source string `json:"source"`
	Limit  int    `json:"limit"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}
	if req.Source == "" {
		req.Source = "auto"
	}

	result, err := s.pipeline.SearchDirect(r.Context(), req.Query, req.Source, req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
