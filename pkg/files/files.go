// Package files classifies uploaded artefacts, extracts their text
// (vision for images, markdown for PDFs, ASR for audio, charset
// fallback for plain text) and feeds the result into ingestion.
package files

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/khalid729/Personal-Life-RAG/pkg/graph"
	"github.com/khalid729/Personal-Life-RAG/pkg/ingest"
	"github.com/khalid729/Personal-Life-RAG/pkg/llms"
	"github.com/khalid729/Personal-Life-RAG/pkg/vector"
)

var imageMimes = map[string]bool{
	"image/jpeg": true, "image/png": true, "image/webp": true,
	"image/gif": true, "image/bmp": true,
}

var audioMimes = map[string]bool{
	"audio/mpeg": true, "audio/mp3": true, "audio/wav": true,
	"audio/x-wav": true, "audio/ogg": true, "audio/flac": true,
	"audio/m4a": true, "audio/mp4": true, "audio/x-m4a": true,
	"audio/aac": true,
}

var audioExts = map[string]bool{
	".mp3": true, ".wav": true, ".ogg": true, ".flac": true,
	".m4a": true, ".aac": true,
}

var textMimes = map[string]bool{
	"text/plain": true, "text/markdown": true, "text/csv": true,
}

type Config struct {
	DataDir string
}

// Service is the file processor.
type Service struct {
	llm      *llms.Client
	pipeline *ingest.Pipeline
	graph    *graph.Service
	embedder *llms.Embedder
	vectors  *vector.Store
	asr      *Transcriber

	storageDir string
}

func NewService(llm *llms.Client, pipeline *ingest.Pipeline, g *graph.Service, embedder *llms.Embedder, vectors *vector.Store, asr *Transcriber, cfg Config) *Service {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	return &Service{
		llm:        llm,
		pipeline:   pipeline,
		graph:      g,
		embedder:   embedder,
		vectors:    vectors,
		asr:        asr,
		storageDir: filepath.Join(dataDir, "files"),
	}
}

// Result is the file-processing outcome returned to the uploader.
type Result struct {
	Status          string           `json:"status"`
	Filename        string           `json:"filename"`
	FileType        string           `json:"file_type"`
	FileHash        string           `json:"file_hash"`
	Analysis        map[string]any   `json:"analysis"`
	ChunksStored    int              `json:"chunks_stored"`
	FactsExtracted  int              `json:"facts_extracted"`
	ProcessingSteps []string         `json:"processing_steps"`
	AutoExpense     map[string]any   `json:"auto_expense,omitempty"`
	AutoItem        string           `json:"auto_item,omitempty"`
	SimilarItems    []map[string]any `json:"similar_items,omitempty"`
	Entities        []string         `json:"entities,omitempty"`
	Superseded      string           `json:"superseded,omitempty"`
}

// ProcessFile hashes, dedups, stores and routes an uploaded file to the
// processor for its content type.
func (s *Service) ProcessFile(ctx context.Context, fileBytes []byte, filename, contentType, userContext string, tags []string, topic string) (*Result, error) {
	sum := sha256.Sum256(fileBytes)
	fileHash := hex.EncodeToString(sum[:])

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = guessExt(contentType)
	}

	// Same bytes seen before: nothing to do.
	existing, err := s.graph.FindFileByHash(ctx, fileHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		fileType, _ := existing["file_type"].(string)
		slog.Info("file already processed, skipping",
			"filename", filename, "hash", fileHash[:12])
		return &Result{
			Status:          "duplicate",
			Filename:        filename,
			FileType:        fileType,
			FileHash:        fileHash,
			Analysis:        existing,
			ProcessingSteps: []string{"duplicate_skipped"},
		}, nil
	}

	// Same filename, different bytes: this replaces the old version.
	var (
		oldHash    string
		sectionMap map[string]string
	)
	if prev, err := s.graph.FindFileByFilename(ctx, filename); err == nil && prev != nil {
		prevHash, _ := prev["sha256"].(string)
		if prevHash != "" && prevHash != fileHash {
			sectionMap, err = s.pipeline.PrepareReupload(ctx, prevHash)
			if err != nil {
				return nil, err
			}
			oldHash = prevHash
		}
	}

	path, err := s.saveFile(fileBytes, fileHash, ext)
	if err != nil {
		return nil, err
	}
	steps := []string{"saved:" + path}

	if err := s.graph.EnsureFileStub(ctx, fileHash, filename); err != nil {
		return nil, err
	}

	var result *Result
	switch {
	case imageMimes[contentType]:
		result, err = s.processImage(ctx, fileBytes, filename, fileHash, userContext, tags, topic, steps)
	case contentType == "application/pdf" || ext == ".pdf":
		result, err = s.processPDF(ctx, path, filename, fileHash, userContext, tags, topic, steps)
	case audioMimes[contentType] || audioExts[ext]:
		result, err = s.processAudio(ctx, path, filename, fileHash, userContext, steps)
	case textMimes[contentType] || ext == ".txt" || ext == ".md":
		result, err = s.processText(ctx, fileBytes, filename, fileHash, userContext, tags, topic, steps)
	default:
		result = &Result{
			Status:          "error",
			Filename:        filename,
			FileHash:        fileHash,
			Analysis:        map[string]any{},
			ProcessingSteps: append(steps, "unsupported_content_type"),
		}
	}
	if err != nil {
		return nil, err
	}

	if oldHash != "" && result.Status == "ok" {
		if err := s.pipeline.FinishReupload(ctx, fileHash, oldHash, sectionMap); err != nil {
			slog.Warn("failed to finish re-upload", "old", oldHash[:12], "error", err)
		} else {
			result.Superseded = oldHash
			result.ProcessingSteps = append(result.ProcessingSteps, "superseded:"+oldHash[:12])
		}
	}
	return result, nil
}

// FilePath returns the storage path for a hash, or empty when not on
// disk. Extension-agnostic: the hash prefix dirs hold one file per hash.
func (s *Service) FilePath(fileHash string) string {
	if len(fileHash) < 2 {
		return ""
	}
	matches, err := filepath.Glob(filepath.Join(s.storageDir, fileHash[:2], fileHash+".*"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// saveFile writes bytes to data/files/{hash[:2]}/{hash}{ext}.
func (s *Service) saveFile(fileBytes []byte, fileHash, ext string) (string, error) {
	subdir := filepath.Join(s.storageDir, fileHash[:2])
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create file storage dir: %w", err)
	}
	path := filepath.Join(subdir, fileHash+ext)
	if err := os.WriteFile(path, fileBytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return path, nil
}

func guessExt(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac":
		return ".flac"
	case "audio/m4a", "audio/mp4", "audio/x-m4a":
		return ".m4a"
	case "audio/aac":
		return ".aac"
	case "text/plain":
		return ".txt"
	case "text/markdown":
		return ".md"
	default:
		return ".bin"
	}
}
