package files

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/khalid729/Personal-Life-RAG/pkg/ingest"
)

func (s *Service) processImage(ctx context.Context, fileBytes []byte, filename, fileHash, userContext string, tags []string, topic string, steps []string) (*Result, error) {
	imageClasses := fileClasses[:9]

	fileType, err := s.llm.ClassifyImage(ctx, fileBytes, imageClasses)
	if err != nil {
		slog.Warn("image classification failed, defaulting", "error", err)
		fileType = "info_image"
	}
	steps = append(steps, "classified:"+fileType)

	raw, err := s.llm.AnalyzeImage(ctx, visionPrompt(fileType, userContext), fileBytes)
	if err != nil {
		return nil, fmt.Errorf("image analysis failed: %w", err)
	}
	analysis := parseAnalysis(raw)
	steps = append(steps, "analyzed")

	analysisText := analysisToText(analysis, fileType, filename)

	ingestResult, err := s.pipeline.IngestText(ctx, analysisText, ingest.Options{
		SourceType: "file_" + fileType,
		Tags:       tags,
		Topic:      topic,
		FileHash:   fileHash,
	})
	if err != nil {
		return nil, err
	}
	steps = append(steps, fmt.Sprintf("ingested:%dchunks", ingestResult.ChunksStored))

	description := firstString(analysis, "brief_description", "description", "summary")
	if description == "" {
		description = analysisText
	}
	if err := s.graph.UpsertFileNode(ctx, fileHash, filename, fileType, description); err != nil {
		return nil, err
	}
	steps = append(steps, "graph_node_created")

	result := &Result{
		Status:         "ok",
		Filename:       filename,
		FileType:       fileType,
		FileHash:       fileHash,
		Analysis:       analysis,
		ChunksStored:   ingestResult.ChunksStored,
		FactsExtracted: ingestResult.FactsExtracted,
		Entities:       ingestResult.Entities,
	}

	switch fileType {
	case "invoice":
		s.autoExpense(ctx, analysis, fileHash, result, &steps)
	case "inventory_item":
		s.autoItem(ctx, fileBytes, analysis, fileHash, userContext, result, &steps)
	}

	result.ProcessingSteps = steps
	return result, nil
}

// autoExpense creates an Expense from an invoice with a positive total.
func (s *Service) autoExpense(ctx context.Context, analysis map[string]any, fileHash string, result *Result, steps *[]string) {
	total := toFloat(analysis["total_amount"])
	if total <= 0 {
		return
	}
	expense, err := s.graph.CreateExpenseFromInvoice(ctx, analysis, fileHash)
	if err != nil {
		slog.Warn("auto-expense creation failed", "error", err)
		*steps = append(*steps, "auto_expense_error")
		return
	}
	result.AutoExpense = expense
	*steps = append(*steps, fmt.Sprintf("auto_expense:%vSAR", expense["amount"]))
}

// autoItem creates an inventory Item from the photo, attaching any
// scanned barcode, then warns about similar existing items.
func (s *Service) autoItem(ctx context.Context, fileBytes []byte, analysis map[string]any, fileHash, userContext string, result *Result, steps *[]string) {
	barcodes := scanBarcodes(fileBytes)
	if len(barcodes) > 0 {
		v := barcodes[0].Data
		if len(v) > 30 {
			v = v[:30]
		}
		*steps = append(*steps, fmt.Sprintf("barcode:%s:%s", barcodes[0].Format, v))
	}

	itemName := firstString(analysis, "item_name")
	if itemName != "" {
		props := map[string]any{
			"brand":       analysis["brand"],
			"description": analysis["description"],
			"category":    analysis["category"],
			"condition":   analysis["condition"],
			"quantity":    analysis["quantity_visible"],
			"file_hash":   fileHash,
		}
		if loc := strings.TrimSpace(userContext); loc != "" {
			// The caption on an inventory photo is its storage location.
			props["location"] = loc
		}
		if len(barcodes) > 0 {
			props["barcode"] = barcodes[0].Data
			props["barcode_type"] = barcodes[0].Format
		}

		name, err := s.graph.UpsertItem(ctx, itemName, props)
		if err != nil {
			slog.Warn("auto-item creation failed", "item", itemName, "error", err)
		} else {
			result.AutoItem = name
			*steps = append(*steps, "auto_item:"+name)
		}
	}

	s.findSimilarInventory(ctx, analysis, result)
}

// findSimilarInventory searches prior inventory photos for look-alikes
// worth warning about. Best effort.
func (s *Service) findSimilarInventory(ctx context.Context, analysis map[string]any, result *Result) {
	itemDesc := strings.TrimSpace(firstString(analysis, "item_name") + " " + firstString(analysis, "description"))
	if itemDesc == "" {
		return
	}

	vec, err := s.embedder.Embed(ctx, itemDesc)
	if err != nil {
		slog.Debug("similar item embedding failed", "error", err)
		return
	}
	hits, err := s.vectors.Search(ctx, vec, 5, map[string]any{"source_type": "file_inventory_item"})
	if err != nil {
		slog.Debug("similar item search failed", "error", err)
		return
	}

	currentName := strings.ToLower(firstString(analysis, "item_name"))
	var similar []map[string]any
	for _, h := range hits {
		if h.Score < 0.5 {
			continue
		}
		text, _ := h.Payload["text"].(string)
		head := strings.ToLower(text)
		if len(head) > 100 {
			head = head[:100]
		}
		if currentName != "" && strings.Contains(head, currentName) {
			continue
		}
		if len([]rune(text)) > 200 {
			text = string([]rune(text)[:200])
		}
		similar = append(similar, map[string]any{
			"text":  text,
			"score": float64(int(h.Score*100)) / 100,
		})
		if len(similar) == 3 {
			break
		}
	}
	result.SimilarItems = similar
}

// parseAnalysis decodes vision JSON, tolerating markdown fences. An
// unparseable reply degrades to {error, raw}.
func parseAnalysis(raw string) map[string]any {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var out map[string]any
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		slog.Warn("vision analysis unparseable", "error", err)
		snippet := []rune(raw)
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		return map[string]any{"error": "failed to parse analysis", "raw": string(snippet)}
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%f", &f); err == nil {
			return f
		}
	}
	return 0
}
