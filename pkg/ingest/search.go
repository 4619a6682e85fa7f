package ingest

import (
	"context"
	"fmt"
	"log/slog"
)

// SearchHit is one direct-search result from either store.
type SearchHit struct {
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Source   string         `json:"source"`
	Metadata map[string]any `json:"metadata"`
}

// SearchResponse is the /search payload.
type SearchResponse struct {
	Results    []SearchHit `json:"results"`
	SourceUsed string      `json:"source_used"`
}

// SearchDirect queries the stores without generating a reply. source is
// vector, graph or auto; auto falls through to the graph when the
// vector store returns thin results.
func (p *Pipeline) SearchDirect(ctx context.Context, query, source string, limit int) (*SearchResponse, error) {
	if limit <= 0 {
		limit = 5
	}
	if source == "" {
		source = "auto"
	}

	queryEN := query
	if !IsMostlyEnglish(query) {
		translated, err := p.llm.TranslateToEnglish(ctx, query)
		if err != nil {
			slog.Warn("search translation failed, using original query", "error", err)
		} else {
			queryEN = translated
		}
	}

	resp := &SearchResponse{Results: []SearchHit{}, SourceUsed: source}

	if source == "vector" || source == "auto" {
		vec, err := p.embedder.Embed(ctx, queryEN)
		if err != nil {
			return nil, fmt.Errorf("failed to embed search query: %w", err)
		}
		hits, err := p.vectors.Search(ctx, vec, limit, nil)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			text, _ := h.Payload["text"].(string)
			meta := make(map[string]any, len(h.Payload))
			for k, v := range h.Payload {
				if k != "text" {
					meta[k] = v
				}
			}
			resp.Results = append(resp.Results, SearchHit{
				Text:     text,
				Score:    float64(h.Score),
				Source:   "vector",
				Metadata: meta,
			})
		}
		resp.SourceUsed = "vector"
	}

	if source == "graph" || (source == "auto" && len(resp.Results) < 2) {
		graphText, err := p.graph.SearchNodes(ctx, queryEN, limit)
		if err != nil {
			return nil, err
		}
		if graphText != "" {
			resp.Results = append(resp.Results, SearchHit{
				Text:     graphText,
				Score:    1.0,
				Source:   "graph",
				Metadata: map[string]any{},
			})
			if source == "graph" {
				resp.SourceUsed = "graph"
			} else {
				resp.SourceUsed = "hybrid"
			}
		}
	}

	return resp, nil
}
