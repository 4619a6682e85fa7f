// liferag is the personal-knowledge assistant service: chat with tool
// calling, file and URL ingestion, a Neo4j knowledge graph, Qdrant
// vector search, Redis memory and the proactive scheduler.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/khalid729/Personal-Life-RAG/pkg/agent"
	"github.com/khalid729/Personal-Life-RAG/pkg/backup"
	"github.com/khalid729/Personal-Life-RAG/pkg/config"
	"github.com/khalid729/Personal-Life-RAG/pkg/files"
	"github.com/khalid729/Personal-Life-RAG/pkg/graph"
	"github.com/khalid729/Personal-Life-RAG/pkg/ingest"
	"github.com/khalid729/Personal-Life-RAG/pkg/llms"
	"github.com/khalid729/Personal-Life-RAG/pkg/logger"
	"github.com/khalid729/Personal-Life-RAG/pkg/memory"
	"github.com/khalid729/Personal-Life-RAG/pkg/ner"
	"github.com/khalid729/Personal-Life-RAG/pkg/scheduler"
	"github.com/khalid729/Personal-Life-RAG/pkg/server"
	"github.com/khalid729/Personal-Life-RAG/pkg/vector"
)

const (
	exitOK      = 0
	exitStartup = 1
	exitStorage = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return exitStartup
	}
	logger.Init(logger.ParseLevel(cfg.LogLevel), os.Stdout)

	llm := llms.NewClient(llms.Config{
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		APIKey:      cfg.LLMAPIKey,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     time.Duration(cfg.LLMTimeoutSecs) * time.Second,
	})
	embedder := llms.NewEmbedder(cfg.EmbeddingBaseURL, cfg.EmbeddingModel, cfg.EmbeddingDimension)

	g, err := graph.NewService(graph.Config{
		URI:                  cfg.GraphURI,
		User:                 cfg.GraphUser,
		Password:             cfg.GraphPassword,
		Database:             cfg.GraphName,
		PersonThreshold:      cfg.PersonThreshold,
		DefaultThreshold:     cfg.DefaultThreshold,
		MaxHops:              cfg.GraphMaxHops,
		SprintDefaultWeeks:   cfg.SprintDefaultWeeks,
		EnergyPeakHours:      cfg.EnergyPeakHours,
		EnergyLowHours:       cfg.EnergyLowHours,
		WorkDayStart:         cfg.WorkDayStart,
		WorkDayEnd:           cfg.WorkDayEnd,
		DefaultEnergyProfile: cfg.DefaultEnergyProfile,
		TimeBlockSlotMinutes: cfg.TimeBlockSlotMinutes,
		InventoryUnusedDays:  cfg.InventoryUnusedDays,
		InventoryReportTopN:  cfg.InventoryReportTopN,
	})
	if err != nil {
		slog.Error("failed to open graph store", "error", err)
		return exitStartup
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := g.Ping(startupCtx); err != nil {
		slog.Error("graph store unreachable", "error", err)
		return exitStorage
	}
	if err := g.EnsureConstraints(startupCtx); err != nil {
		slog.Error("failed to apply graph constraints", "error", err)
		return exitStorage
	}

	vectors, err := vector.NewStore(vector.Config{
		Host:       cfg.QdrantHost,
		Port:       cfg.QdrantPort,
		Collection: cfg.QdrantCollection,
		Dimension:  cfg.EmbeddingDimension,
	})
	if err != nil {
		slog.Error("failed to open vector store", "error", err)
		return exitStartup
	}
	if err := vectors.EnsureCollection(startupCtx); err != nil {
		slog.Error("failed to ensure vector collection", "error", err)
		return exitStorage
	}
	g.SetVectorBackend(embedder, vectors)

	mem := memory.NewService(cfg.RedisAddr, cfg.RedisDB)
	if cfg.CompressionThreshold > 0 {
		mem.CompressionThreshold = cfg.CompressionThreshold
	}
	if cfg.CompressionKeep > 0 {
		mem.CompressionKeep = cfg.CompressionKeep
	}
	if err := mem.Ping(startupCtx); err != nil {
		slog.Error("memory store unreachable", "error", err)
		return exitStorage
	}

	nerClient := ner.NewClient(ner.Config{
		BaseURL:       cfg.NERBaseURL,
		MinConfidence: cfg.NERMinConfidence,
	})

	pipeline := ingest.NewPipeline(llm, embedder, g, vectors, nerClient, ingest.Config{
		ChunkMaxTokens:     cfg.ChunkMaxTokens,
		ChunkOverlapTokens: cfg.ChunkOverlapTokens,
	})

	asr := files.NewTranscriber(files.TranscriberConfig{
		BaseURL: cfg.ASRBaseURL,
		Model:   cfg.ASRModel,
	})
	fileService := files.NewService(llm, pipeline, g, embedder, vectors, asr, files.Config{
		DataDir: cfg.DataDir,
	})

	agentService := agent.NewService(llm, g, vectors, embedder, pipeline, mem, nerClient, agent.Config{
		MaxIterations:        cfg.MaxToolIterations,
		TimezoneOffsetHours:  cfg.TimezoneOffsetHours,
		WorkingMemorySize:    cfg.WorkingMemorySize,
		DailySummaryInterval: cfg.DailySummaryInterval,
		CoreMemoryInterval:   cfg.CoreMemoryInterval,
	})

	backupService := backup.NewService(g, vectors, mem, backup.Config{
		Dir:           filepath.Join(cfg.DataDir, "backups"),
		RetentionDays: cfg.BackupRetentionDays,
	})

	sched := scheduler.NewService(g, backupService, scheduler.Config{
		TimezoneOffsetHours:  cfg.TimezoneOffsetHours,
		MorningHour:          cfg.MorningHour,
		NoonHour:             cfg.NoonHour,
		EveningHour:          cfg.EveningHour,
		ReminderCheckMinutes: cfg.ReminderCheckMinutes,
		AlertCheckHours:      cfg.AlertCheckHours,
		StalledProjectDays:   cfg.StalledProjectDays,
		OldDebtDays:          cfg.OldDebtDays,
		InventoryUnusedDays:  cfg.InventoryUnusedDays,
		BackupHour:           cfg.BackupHour,
		JobTimeoutSecs:       cfg.JobTimeoutSecs,
		NotifyURL:            cfg.NotifyURL,
	})
	if err := sched.Start(); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		return exitStartup
	}
	defer sched.Stop()

	srv := server.New(agentService, pipeline, fileService, g, mem, backupService, server.Config{
		Host:                cfg.APIHost,
		Port:                cfg.APIPort,
		StalledProjectDays:  cfg.StalledProjectDays,
		OldDebtDays:         cfg.OldDebtDays,
		InventoryUnusedDays: cfg.InventoryUnusedDays,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("http server failed", "error", err)
			return exitStartup
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown incomplete", "error", err)
	}

	if err := g.Close(shutdownCtx); err != nil {
		slog.Warn("graph close failed", "error", err)
	}
	if err := vectors.Close(); err != nil {
		slog.Warn("vector close failed", "error", err)
	}
	if err := mem.Close(); err != nil {
		slog.Warn("memory close failed", "error", err)
	}
	return exitOK
}
