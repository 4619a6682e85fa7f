package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khalid729/Personal-Life-RAG/pkg/graph"
)

func (s *Server) handleBackupCreate(w http.ResponseWriter, r *http.Request) {
	info, err := s.backup.Create(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleBackupList(w http.ResponseWriter, r *http.Request) {
	infos, err := s.backup.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"backups": infos})
}

func (s *Server) handleBackupRestore(w http.ResponseWriter, r *http.Request) {
	result, err := s.backup.Restore(r.Context(), chi.URLParam(r, "timestamp"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) graphExportFromQuery(r *http.Request) (*graph.GraphExport, error) {
	q := r.URL.Query()
	return s.graph.ExportGraph(r.Context(),
		q.Get("type"),
		q.Get("center"),
		queryInt(r, "hops", 2),
		queryInt(r, "limit", 500))
}

func (s *Server) handleGraphExport(w http.ResponseWriter, r *http.Request) {
	export, err := s.graphExportFromQuery(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, export)
}

func (s *Server) handleGraphSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.graph.SchemaSummary(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, schema)
}

func (s *Server) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.graph.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGraphImage(w http.ResponseWriter, r *http.Request) {
	export, err := s.graphExportFromQuery(r)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	png, err := graph.RenderPNG(export,
		queryInt(r, "width", 1600),
		queryInt(r, "height", 1200))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
