package files

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/khalid729/Personal-Life-RAG/pkg/ingest"
)

func (s *Service) processText(ctx context.Context, fileBytes []byte, filename, fileHash, userContext string, tags []string, topic string, steps []string) (*Result, error) {
	text, encoding := decodeText(fileBytes)
	steps = append(steps, "decoded:"+encoding)

	if strings.TrimSpace(text) == "" {
		return &Result{
			Status:          "error",
			Filename:        filename,
			FileType:        "note",
			FileHash:        fileHash,
			Analysis:        map[string]any{"error": "empty_file"},
			ProcessingSteps: steps,
		}, nil
	}

	ingestText := text
	if userContext != "" {
		ingestText = "[User context: " + userContext + "]\n" + text
	}

	ingestResult, err := s.pipeline.IngestText(ctx, ingestText, ingest.Options{
		SourceType: "file_text",
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
	if err := s.graph.UpsertFileNode(ctx, fileHash, filename, "note", description); err != nil {
		return nil, err
	}
	steps = append(steps, "graph_node_created")

	return &Result{
		Status:   "ok",
		Filename: filename,
		FileType: "note",
		FileHash: fileHash,
		Analysis: map[string]any{
			"encoding":    encoding,
			"text_length": len([]rune(text)),
		},
		ChunksStored:    ingestResult.ChunksStored,
		FactsExtracted:  ingestResult.FactsExtracted,
		Entities:        ingestResult.Entities,
		ProcessingSteps: steps,
	}, nil
}

// decodeText tries UTF-8 first, then Windows-1256 (the common legacy
// Arabic encoding), then Latin-1 which never fails.
func decodeText(raw []byte) (string, string) {
	if utf8.Valid(raw) {
		return string(raw), "utf-8"
	}
	if decoded, err := charmap.Windows1256.NewDecoder().Bytes(raw); err == nil {
		return string(decoded), "windows-1256"
	}
	decoded, _ := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	return string(decoded), "latin-1"
}
