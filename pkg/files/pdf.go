package files

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/khalid729/Personal-Life-RAG/pkg/ingest"
)

// Scanned PDFs yield almost no embedded text; below this threshold the
// pages are rendered and read by the vision model instead.
const pdfMinTextChars = 200

const (
	pdfVisionMaxPages = 5
	pdfVisionDPI      = 200
)

func (s *Service) processPDF(ctx context.Context, path, filename, fileHash, userContext string, tags []string, topic string, steps []string) (*Result, error) {
	text, err := extractPDFText(path)
	if err != nil {
		slog.Warn("pdf text extraction failed", "file", filename, "error", err)
	}

	method := "text_layer"
	if len(strings.TrimSpace(text)) < pdfMinTextChars {
		visionText, verr := s.describePDFPages(ctx, path)
		if verr != nil {
			slog.Warn("pdf vision fallback failed", "file", filename, "error", verr)
		} else if visionText != "" {
			text = visionText
			method = "vision"
		}
	}
	steps = append(steps, "extracted:"+method)

	if strings.TrimSpace(text) == "" {
		return &Result{
			Status:          "error",
			Filename:        filename,
			FileType:        "pdf_document",
			FileHash:        fileHash,
			Analysis:        map[string]any{"error": "pdf_empty"},
			ProcessingSteps: append(steps, "no_text_found"),
		}, nil
	}

	ingestText := text
	if userContext != "" {
		ingestText = "[User context: " + userContext + "]\n" + text
	}

	ingestResult, err := s.pipeline.IngestText(ctx, ingestText, ingest.Options{
		SourceType: "file_pdf_document",
		Tags:       tags,
		Topic:      topic,
		FileHash:   fileHash,
	})
	if err != nil {
		return nil, err
	}
	steps = append(steps, fmt.Sprintf("ingested:%dchunks", ingestResult.ChunksStored))

	description := strings.TrimSpace(text)
	if len([]rune(description)) > 300 {
		description = string([]rune(description)[:300])
	}
	if err := s.graph.UpsertFileNode(ctx, fileHash, filename, "pdf_document", description); err != nil {
		return nil, err
	}
	steps = append(steps, "graph_node_created")

	return &Result{
		Status:   "ok",
		Filename: filename,
		FileType: "pdf_document",
		FileHash: fileHash,
		Analysis: map[string]any{
			"extraction_method": method,
			"text_length":       len([]rune(text)),
		},
		ChunksStored:    ingestResult.ChunksStored,
		FactsExtracted:  ingestResult.FactsExtracted,
		Entities:        ingestResult.Entities,
		ProcessingSteps: steps,
	}, nil
}

// extractPDFText pulls the embedded text layer.
func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func pdftoppmArgs(path, prefix string) []string {
	return []string{
		"-png", "-r", fmt.Sprint(pdfVisionDPI),
		"-f", "1", "-l", fmt.Sprint(pdfVisionMaxPages),
		path, prefix,
	}
}

// describePDFPages rasterises up to pdfVisionMaxPages pages with
// pdftoppm and has the vision model read each one. Pages are described
// in parallel and joined in order.
func (s *Service) describePDFPages(ctx context.Context, path string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "pdfpages")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm", pdftoppmArgs(path, prefix)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(pages) == 0 {
		return "", fmt.Errorf("no pages rendered")
	}
	sort.Strings(pages)

	descriptions := make([]string, len(pages))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, page := range pages {
		g.Go(func() error {
			imgBytes, err := os.ReadFile(page)
			if err != nil {
				return err
			}
			desc, err := s.llm.DescribePage(gctx, imgBytes)
			if err != nil {
				return err
			}
			mu.Lock()
			descriptions[i] = desc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var b strings.Builder
	for i, desc := range descriptions {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Page %d]\n%s", i+1, desc)
	}
	return b.String(), nil
}
