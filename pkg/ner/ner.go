// Package ner talks to the Arabic named-entity sidecar. Hints from it
// are prepended to extraction prompts so the LLM keeps Arabic proper
// nouns intact.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/khalid729/Personal-Life-RAG/pkg/httpclient"
)

// groupMap translates the model's BIO entity groups to graph labels.
var groupMap = map[string]string{
	"PER":  "Person",
	"LOC":  "Location",
	"ORG":  "Organization",
	"MISC": "Misc",
}

// Entity is one detected span.
type Entity struct {
	Group string  `json:"entity_group"`
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

type Config struct {
	BaseURL       string
	MinConfidence float64
}

// Client is the NER sidecar client. The sidecar loads its model on the
// first request, so warm-up happens lazily and failures degrade to
// empty hints rather than blocking ingestion.
type Client struct {
	config Config
	http   *httpclient.Client

	warmOnce sync.Once
	warm     bool
}

func NewClient(cfg Config) *Client {
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = 0.7
	}
	return &Client{
		config: cfg,
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
		),
	}
}

// Enabled reports whether a sidecar is configured at all.
func (c *Client) Enabled() bool {
	return c.config.BaseURL != ""
}

// Extract returns entities at or above the confidence floor,
// deduplicated by group and surface form. Never fails the caller: any
// sidecar trouble logs and returns nil.
func (c *Client) Extract(ctx context.Context, text string) []Entity {
	if !c.Enabled() || strings.TrimSpace(text) == "" {
		return nil
	}
	c.warmup(ctx)

	raw, err := c.post(ctx, "/ner", map[string]any{"text": text})
	if err != nil {
		slog.Warn("ner extraction failed", "error", err)
		return nil
	}

	var resp struct {
		Entities []Entity `json:"entities"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		slog.Warn("ner response unparseable", "error", err)
		return nil
	}

	return c.filterEntities(resp.Entities)
}

func (c *Client) filterEntities(raw []Entity) []Entity {
	var out []Entity
	seen := map[string]bool{}
	for _, e := range raw {
		if e.Score < c.config.MinConfidence {
			continue
		}
		word := strings.TrimSpace(strings.ReplaceAll(e.Word, "##", ""))
		if len([]rune(word)) < 2 {
			continue
		}
		group := e.Group
		if mapped, ok := groupMap[group]; ok {
			group = mapped
		}
		key := group + "\x00" + word
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Entity{Group: group, Word: word, Score: e.Score})
	}
	return out
}

// FormatHints renders entities as a bracketed prompt prefix, grouped by
// type. Empty input renders empty.
func FormatHints(entities []Entity) string {
	if len(entities) == 0 {
		return ""
	}

	groups := make(map[string][]string)
	var order []string
	for _, e := range entities {
		if _, ok := groups[e.Group]; !ok {
			order = append(order, e.Group)
		}
		groups[e.Group] = append(groups[e.Group], e.Word)
	}

	parts := make([]string, 0, len(order))
	for _, g := range order {
		parts = append(parts, g+": "+strings.Join(groups[g], ", "))
	}
	return "[NER hints: " + strings.Join(parts, "; ") + "]"
}

// warmup pings the sidecar once so the model load happens before the
// first real extraction. Best effort.
func (c *Client) warmup(ctx context.Context) {
	c.warmOnce.Do(func() {
		start := time.Now()
		if _, err := c.post(ctx, "/ner", map[string]any{"text": "تجربة"}); err != nil {
			slog.Warn("ner warm-up failed", "error", err)
			return
		}
		c.warm = true
		slog.Info("ner sidecar warmed up", "took", time.Since(start))
	})
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ner request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.config.BaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build ner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ner sidecar returned HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
