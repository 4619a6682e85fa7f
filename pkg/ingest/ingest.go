// Package ingest is the contextual-retrieval ingestion pipeline:
// translate, chunk, enrich, then fan out embedding and fact extraction
// before upserting into the vector and graph stores.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/khalid729/Personal-Life-RAG/pkg/graph"
	"github.com/khalid729/Personal-Life-RAG/pkg/llms"
	"github.com/khalid729/Personal-Life-RAG/pkg/ner"
	"github.com/khalid729/Personal-Life-RAG/pkg/vector"
)

// Token budgets for the extraction path. Extraction tolerates much
// larger chunks than retrieval because nothing is embedded.
const (
	extractMaxTokens     = 3000
	extractOverlapTokens = 200
)

type Config struct {
	ChunkMaxTokens     int
	ChunkOverlapTokens int
}

// Pipeline wires the LLM gateway, stores and the NER sidecar into the
// ingestion flow.
type Pipeline struct {
	llm      *llms.Client
	embedder *llms.Embedder
	graph    *graph.Service
	vectors  *vector.Store
	ner      *ner.Client
	config   Config
}

func NewPipeline(llm *llms.Client, embedder *llms.Embedder, g *graph.Service, v *vector.Store, n *ner.Client, cfg Config) *Pipeline {
	if cfg.ChunkMaxTokens == 0 {
		cfg.ChunkMaxTokens = 1500
	}
	if cfg.ChunkOverlapTokens == 0 {
		cfg.ChunkOverlapTokens = 150
	}
	return &Pipeline{llm: llm, embedder: embedder, graph: g, vectors: v, ner: n, config: cfg}
}

// Options carries per-ingestion metadata.
type Options struct {
	SourceType string
	Tags       []string
	Topic      string
	FileHash   string
}

// Result reports what one ingestion produced.
type Result struct {
	ChunksStored   int      `json:"chunks_stored"`
	FactsExtracted int      `json:"facts_extracted"`
	Entities       []string `json:"entities"`
}

// IngestText runs the full pipeline: translate Arabic to English, chunk,
// enrich each chunk with document context, then in parallel embed the
// chunks and extract facts into the graph.
func (p *Pipeline) IngestText(ctx context.Context, text string, opts Options) (*Result, error) {
	if opts.SourceType == "" {
		opts.SourceType = "note"
	}

	textEN := text
	if !IsMostlyEnglish(text) {
		translated, err := p.llm.TranslateToEnglish(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to translate for ingestion: %w", err)
		}
		textEN = translated
	}

	chunks := ChunkText(textEN, p.config.ChunkMaxTokens, p.config.ChunkOverlapTokens)
	if len(chunks) == 0 {
		return &Result{}, nil
	}

	var (
		chunksStored int
		extracted    []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := p.enrichAndStoreChunks(gctx, chunks, textEN, text, opts)
		if err != nil {
			return err
		}
		chunksStored = n
		return nil
	})
	g.Go(func() error {
		entities, err := p.extractAndStoreFacts(gctx, textEN, text, opts.FileHash)
		if err != nil {
			return err
		}
		extracted = entities
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("ingested text",
		"chunks", chunksStored, "facts", len(extracted), "source_type", opts.SourceType)
	return &Result{
		ChunksStored:   chunksStored,
		FactsExtracted: len(extracted),
		Entities:       extracted,
	}, nil
}

// enrichAndStoreChunks prepends document context to each chunk, embeds
// the batch and upserts the points. Enrichment failures degrade to the
// raw chunk.
func (p *Pipeline) enrichAndStoreChunks(ctx context.Context, chunks []string, fullDoc, originalAR string, opts Options) (int, error) {
	enriched := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			out, err := p.llm.EnrichChunk(gctx, fullDoc, chunk)
			if err != nil {
				slog.Warn("chunk enrichment failed, using raw chunk", "error", err)
				out = chunk
			}
			enriched[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	vectors, err := p.embedder.EmbedBatch(ctx, enriched)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}

	arSnippet := []rune(originalAR)
	if len(arSnippet) > 500 {
		arSnippet = arSnippet[:500]
	}

	stored := 0
	for i, text := range enriched {
		payload := map[string]any{
			"text":             text,
			"source_type":      opts.SourceType,
			"tags":             strings.Join(opts.Tags, ","),
			"topic":            opts.Topic,
			"original_text_ar": string(arSnippet),
		}
		if opts.FileHash != "" {
			payload["file_hash"] = opts.FileHash
		}
		if err := p.vectors.Upsert(ctx, uuid.NewString(), vectors[i], payload); err != nil {
			return stored, fmt.Errorf("failed to store chunk %d: %w", i, err)
		}
		stored++
	}
	return stored, nil
}

// extractAndStoreFacts extracts entities and relationships and upserts
// them. Large documents are extracted per-chunk and the entities merged.
func (p *Pipeline) extractAndStoreFacts(ctx context.Context, textEN, originalAR, fileHash string) ([]string, error) {
	hints := p.nerHints(ctx, originalAR)

	tokens := CountTokens(textEN)
	if tokens <= extractMaxTokens {
		raw, err := p.llm.ExtractFacts(ctx, textEN, hints)
		if err != nil {
			return nil, fmt.Errorf("fact extraction failed: %w", err)
		}
		facts, err := graph.ParseFacts(raw)
		if err != nil {
			return nil, err
		}
		result, err := p.graph.UpsertFromFacts(ctx, facts, fileHash)
		if err != nil {
			return nil, err
		}
		return result.Entities, nil
	}

	chunks := ChunkText(textEN, extractMaxTokens, extractOverlapTokens)
	slog.Info("large text split for extraction", "tokens", tokens, "chunks", len(chunks))

	parsed := make([]*graph.Facts, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			raw, err := p.llm.ExtractFacts(gctx, chunk, hints)
			if err != nil {
				return fmt.Errorf("fact extraction failed on chunk %d: %w", i, err)
			}
			facts, err := graph.ParseFacts(raw)
			if err != nil {
				return err
			}
			parsed[i] = facts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := mergeFacts(parsed)
	result, err := p.graph.UpsertFromFacts(ctx, merged, fileHash)
	if err != nil {
		return nil, err
	}
	return result.Entities, nil
}

// mergeFacts deduplicates entities across per-chunk extractions by type
// and name. Cross-chunk relationships are unreliable and dropped.
func mergeFacts(batches []*graph.Facts) *graph.Facts {
	merged := &graph.Facts{}
	seen := map[string]bool{}
	for _, facts := range batches {
		if facts == nil {
			continue
		}
		for _, e := range facts.Entities {
			key := e.Type + "\x00" + strings.ToLower(strings.TrimSpace(e.Name))
			if seen[key] {
				continue
			}
			seen[key] = true
			merged.Entities = append(merged.Entities, e)
		}
	}
	return merged
}

// nerHints runs Arabic NER over the original text and formats the
// result for prompt injection. Best effort.
func (p *Pipeline) nerHints(ctx context.Context, originalAR string) string {
	if p.ner == nil || !p.ner.Enabled() || IsMostlyEnglish(originalAR) {
		return ""
	}
	hints := ner.FormatHints(p.ner.Extract(ctx, originalAR))
	if hints != "" {
		slog.Debug("ner hints", "hints", hints)
	}
	return hints
}
