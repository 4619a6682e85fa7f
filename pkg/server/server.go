// Package server exposes the REST surface: chat, ingestion, search,
// the domain query endpoints, proactive triggers and backups.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/khalid729/Personal-Life-RAG/pkg/agent"
	"github.com/khalid729/Personal-Life-RAG/pkg/backup"
	"github.com/khalid729/Personal-Life-RAG/pkg/files"
	"github.com/khalid729/Personal-Life-RAG/pkg/graph"
	"github.com/khalid729/Personal-Life-RAG/pkg/ingest"
	"github.com/khalid729/Personal-Life-RAG/pkg/memory"
)

type Config struct {
	Host                string
	Port                int
	StalledProjectDays  int
	OldDebtDays         int
	InventoryUnusedDays int
}

type Server struct {
	cfg      Config
	agent    *agent.Service
	pipeline *ingest.Pipeline
	files    *files.Service
	graph    *graph.Service
	memory   *memory.Service
	backup   *backup.Service
	http     *http.Server
}

func New(a *agent.Service, pipeline *ingest.Pipeline, f *files.Service, g *graph.Service, mem *memory.Service, b *backup.Service, cfg Config) *Server {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8500
	}

	s := &Server{
		cfg:      cfg,
		agent:    a,
		pipeline: pipeline,
		files:    f,
		graph:    g,
		memory:   mem,
		backup:   b,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/chat", func(r chi.Router) {
		r.Post("/", s.handleChat)
		r.Post("/stream", s.handleChatStream)
		r.Get("/summary", s.handleChatSummary)
	})

	r.Route("/ingest", func(r chi.Router) {
		r.Post("/text", s.handleIngestText)
		r.Post("/file", s.handleIngestFile)
		r.Post("/url", s.handleIngestURL)
		r.Get("/file/{hash}", s.handleDownloadFile)
	})

	r.Post("/search/", s.handleSearch)

	r.Route("/financial", func(r chi.Router) {
		r.Get("/report", s.handleFinancialReport)
		r.Get("/debts", s.handleDebts)
		r.Post("/debts/payment", s.handleDebtPayment)
		r.Get("/alerts", s.handleSpendingAlerts)
	})

	r.Route("/reminders", func(r chi.Router) {
		r.Get("/", s.handleReminders)
		r.Post("/action", s.handleReminderAction)
		r.Post("/update", s.handleReminderUpdate)
		r.Post("/delete", s.handleReminderDelete)
		r.Post("/delete-all", s.handleReminderDeleteAll)
		r.Post("/merge-duplicates", s.handleReminderMergeDuplicates)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.handleTasks)
		r.Post("/update", s.handleTaskUpdate)
		r.Post("/merge-duplicates", s.handleTaskMergeDuplicates)
	})

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", s.handleProjects)
		r.Get("/{name}", s.handleProjectDetails)
	})

	r.Get("/knowledge/", s.handleKnowledge)

	r.Route("/inventory", func(r chi.Router) {
		r.Get("/", s.handleInventoryList)
		r.Get("/summary", s.handleInventorySummary)
		r.Get("/report", s.handleInventoryReport)
		r.Post("/item", s.handleInventoryUpsert)
		r.Post("/location", s.handleInventoryMove)
		r.Post("/quantity", s.handleInventoryQuantity)
		r.Get("/by-file/{hash}", s.handleInventoryByFile)
		r.Get("/by-barcode/{code}", s.handleInventoryByBarcode)
		r.Get("/unused", s.handleInventoryUnused)
		r.Get("/duplicates", s.handleInventoryDuplicates)
		r.Get("/search-similar", s.handleInventorySimilar)
	})

	r.Route("/productivity", func(r chi.Router) {
		r.Get("/sprints", s.handleSprints)
		r.Post("/sprints", s.handleSprintUpsert)
		r.Get("/sprints/{name}", s.handleSprintDetails)
		r.Post("/sprints/{name}/complete", s.handleSprintComplete)
		r.Post("/sprints/{name}/assign", s.handleSprintAssign)
		r.Get("/sprints/{name}/burndown", s.handleSprintBurndown)
		r.Get("/velocity", s.handleSprintVelocity)
		r.Post("/focus/start", s.handleFocusStart)
		r.Post("/focus/complete", s.handleFocusComplete)
		r.Get("/focus/stats", s.handleFocusStats)
		r.Post("/timeblock/suggest", s.handleTimeBlockSuggest)
		r.Post("/timeblock/apply", s.handleTimeBlockApply)
	})

	r.Route("/proactive", func(r chi.Router) {
		r.Get("/morning-summary", s.handleMorningSummary)
		r.Get("/noon-checkin", s.handleNoonCheckin)
		r.Get("/evening-summary", s.handleEveningSummary)
		r.Get("/due-reminders", s.handleDueReminders)
		r.Post("/advance-reminder", s.handleAdvanceReminder)
		r.Get("/stalled-projects", s.handleStalledProjects)
		r.Get("/old-debts", s.handleOldDebts)
		r.Post("/reschedule-persistent", s.handleReschedulePersistent)
	})

	r.Route("/backup", func(r chi.Router) {
		r.Post("/", s.handleBackupCreate)
		r.Get("/", s.handleBackupList)
		r.Post("/restore/{timestamp}", s.handleBackupRestore)
	})

	r.Route("/graph", func(r chi.Router) {
		r.Get("/export", s.handleGraphExport)
		r.Get("/schema", s.handleGraphSchema)
		r.Get("/stats", s.handleGraphStats)
		r.Get("/image", s.handleGraphImage)
	})

	return r
}

// Start blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	slog.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if err := s.graph.Ping(r.Context()); err != nil {
		status["graph"] = err.Error()
		status["status"] = "degraded"
	}
	if err := s.memory.Ping(r.Context()); err != nil {
		status["memory"] = err.Error()
		status["status"] = "degraded"
	}
	respondJSON(w, http.StatusOK, status)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start).Round(time.Millisecond))
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
