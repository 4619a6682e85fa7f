package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleInventoryList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text, err := s.graph.QueryInventory(r.Context(), q.Get("search"), q.Get("category"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"items": text})
}

func (s *Server) handleInventorySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.graph.QueryInventorySummary(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleInventoryReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.graph.QueryInventoryReport(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

type inventoryItemRequest struct {
	Name  string         `json:"name"`
	Props map[string]any `json:"props"`
}

func (s *Server) handleInventoryUpsert(w http.ResponseWriter, r *http.Request) {
	var req inventoryItemRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	canonical, err := s.graph.UpsertItem(r.Context(), req.Name, req.Props)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "name": canonical})
}

type inventoryMoveRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

func (s *Server) handleInventoryMove(w http.ResponseWriter, r *http.Request) {
	var req inventoryMoveRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" || req.Location == "" {
		respondError(w, http.StatusBadRequest, errors.New("name and location are required"))
		return
	}

	result, err := s.graph.MoveItem(r.Context(), req.Name, req.Location)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type inventoryQuantityRequest struct {
	Name  string `json:"name"`
	Delta int    `json:"delta"`
}

func (s *Server) handleInventoryQuantity(w http.ResponseWriter, r *http.Request) {
	var req inventoryQuantityRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" || req.Delta == 0 {
		respondError(w, http.StatusBadRequest, errors.New("name and a non-zero delta are required"))
		return
	}

	result, err := s.graph.AdjustItemQuantity(r.Context(), req.Name, req.Delta)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleInventoryByFile(w http.ResponseWriter, r *http.Request) {
	item, err := s.graph.FindItemByFileHash(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if item == nil {
		respondError(w, http.StatusNotFound, errors.New("no item for file"))
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleInventoryByBarcode(w http.ResponseWriter, r *http.Request) {
	item, err := s.graph.FindItemByBarcode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if item == nil {
		respondError(w, http.StatusNotFound, errors.New("no item for barcode"))
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleInventoryUnused(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", s.cfg.InventoryUnusedDays)
	items, err := s.graph.QueryUnusedItems(r.Context(), days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"days": days, "items": items})
}

func (s *Server) handleInventoryDuplicates(w http.ResponseWriter, r *http.Request) {
	var (
		groups []map[string]any
		err    error
	)
	method := r.URL.Query().Get("method")
	if method == "vector" {
		groups, err = s.graph.DetectDuplicateItemsVector(r.Context())
	} else {
		method = "name"
		groups, err = s.graph.DetectDuplicateItems(r.Context())
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"method": method, "duplicates": groups})
}

func (s *Server) handleInventorySimilar(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	items, err := s.graph.FindSimilarItems(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"name": name, "similar": items})
}
