package files

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/khalid729/Personal-Life-RAG/pkg/httpclient"
)

// TranscriberConfig points at an OpenAI-compatible ASR server.
type TranscriberConfig struct {
	BaseURL string
	Model   string
}

// Transcriber calls the Whisper sidecar. The model holds a single GPU
// slot, so concurrent calls are collapsed per file hash and the rest
// are serialised.
type Transcriber struct {
	baseURL string
	model   string
	http    *httpclient.Client

	group singleflight.Group
	mu    sync.Mutex
}

func NewTranscriber(cfg TranscriberConfig) *Transcriber {
	if cfg.BaseURL == "" {
		return nil
	}
	return &Transcriber{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 10 * time.Minute}),
			httpclient.WithMaxRetries(0),
		),
	}
}

// Transcribe returns the Arabic transcript of an audio file.
func (t *Transcriber) Transcribe(ctx context.Context, fileBytes []byte, filename, fileHash string) (string, error) {
	out, err, _ := t.group.Do(fileHash, func() (any, error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.transcribe(ctx, fileBytes, filename)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (t *Transcriber) transcribe(ctx context.Context, fileBytes []byte, filename string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(fileBytes); err != nil {
		return "", err
	}
	if err := w.WriteField("model", t.model); err != nil {
		return "", err
	}
	if err := w.WriteField("language", "ar"); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+"/audio/transcriptions", bytes.NewReader(body.Bytes()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	start := time.Now()
	resp, err := t.http.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("unexpected transcription response: %w", err)
	}

	slog.Info("audio transcribed", "file", filename,
		"chars", len(parsed.Text), "took", time.Since(start).Round(time.Millisecond))
	return strings.TrimSpace(parsed.Text), nil
}

// processAudio transcribes the recording and returns the transcript
// without ingesting it. Voice notes go through the chat endpoint so the
// agent can decide what the transcript means; storing raw ASR output as
// knowledge pollutes search.
func (s *Service) processAudio(ctx context.Context, path, filename, fileHash, userContext string, steps []string) (*Result, error) {
	if s.asr == nil {
		return &Result{
			Status:          "error",
			Filename:        filename,
			FileHash:        fileHash,
			Analysis:        map[string]any{"error": "transcription not configured"},
			ProcessingSteps: append(steps, "asr_unavailable"),
		}, nil
	}

	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	transcript, err := s.asr.Transcribe(ctx, fileBytes, filename, fileHash)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	steps = append(steps, "transcribed", "transcription_only")

	preview := []rune(transcript)
	if len(preview) > 200 {
		preview = preview[:200]
	}

	analysis := map[string]any{
		"transcription": transcript,
		"preview":       string(preview),
		"language":      "ar",
	}
	if userContext != "" {
		analysis["user_context"] = userContext
	}

	return &Result{
		Status:          "ok",
		Filename:        filename,
		FileType:        "audio_recording",
		FileHash:        fileHash,
		Analysis:        analysis,
		ProcessingSteps: steps,
	}, nil
}
