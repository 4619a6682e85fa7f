package graph

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// QueryInventory lists active items, optionally filtered by free text
// over name and description or by category.
func (s *Service) QueryInventory(ctx context.Context, search, category string) (string, error) {
	conditions := []string{"(i.status = 'active' OR i.status IS NULL)"}
	params := map[string]any{}
	if search != "" {
		conditions = append(conditions,
			"(toLower(i.name) CONTAINS $search OR toLower(i.description) CONTAINS $search)")
		params["search"] = strings.ToLower(search)
	}
	if category != "" {
		conditions = append(conditions, "toLower(i.category) = $category")
		params["category"] = strings.ToLower(category)
	}

	q := fmt.Sprintf(`
	MATCH (i:Item)
	WHERE %s
	OPTIONAL MATCH (i)-[:STORED_IN]->(l:Location)
	RETURN i.name AS name, i.quantity AS quantity, i.category AS category,
	       i.condition AS condition, i.brand AS brand, i.description AS description,
	       l.path AS location
	ORDER BY i.name
	LIMIT 50`, strings.Join(conditions, " AND "))

	rows, err := s.read(ctx, q, params)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		label := ""
		if search != "" {
			label = fmt.Sprintf(" matching '%s'", search)
		}
		return fmt.Sprintf("No inventory items found%s.", label), nil
	}

	parts := []string{"Inventory items:"}
	for _, r := range rows {
		name, _ := r["name"].(string)
		line := "  - " + name
		if qty := asInt(r["quantity"]); qty > 1 {
			line += fmt.Sprintf(" (x%d)", qty)
		}
		if brand, _ := r["brand"].(string); brand != "" {
			line += fmt.Sprintf(" [%s]", brand)
		}
		if cat, _ := r["category"].(string); cat != "" {
			line += fmt.Sprintf(" (%s)", cat)
		}
		if cond, _ := r["condition"].(string); cond != "" && cond != "unknown" {
			line += " - " + cond
		}
		if loc, _ := r["location"].(string); loc != "" {
			line += " @ " + loc
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "\n"), nil
}

// QueryInventorySummary totals active items by category and location.
func (s *Service) QueryInventorySummary(ctx context.Context) (map[string]any, error) {
	qTotal := `
	MATCH (i:Item)
	WHERE i.status = 'active' OR i.status IS NULL
	RETURN count(i) AS total_items, sum(i.quantity) AS total_quantity`
	totalRows, err := s.read(ctx, qTotal, nil)
	if err != nil {
		return nil, err
	}
	totalItems, totalQuantity := 0, 0
	if len(totalRows) > 0 {
		totalItems = asInt(totalRows[0]["total_items"])
		totalQuantity = asInt(totalRows[0]["total_quantity"])
	}

	qCat := `
	MATCH (i:Item)
	WHERE i.status = 'active' OR i.status IS NULL
	RETURN coalesce(i.category, 'uncategorized') AS cat, count(i) AS cnt, sum(i.quantity) AS qty
	ORDER BY qty DESC`
	catRows, err := s.read(ctx, qCat, nil)
	if err != nil {
		return nil, err
	}
	byCategory := make([]map[string]any, 0, len(catRows))
	for _, r := range catRows {
		byCategory = append(byCategory, map[string]any{
			"category": r["cat"], "count": asInt(r["cnt"]), "quantity": asInt(r["qty"]),
		})
	}

	qLoc := `
	MATCH (i:Item)-[:STORED_IN]->(l:Location)
	WHERE i.status = 'active' OR i.status IS NULL
	RETURN l.path AS path, count(i) AS cnt
	ORDER BY cnt DESC`
	locRows, err := s.read(ctx, qLoc, nil)
	if err != nil {
		return nil, err
	}
	byLocation := make([]map[string]any, 0, len(locRows))
	for _, r := range locRows {
		byLocation = append(byLocation, map[string]any{
			"location": r["path"], "count": asInt(r["cnt"]),
		})
	}

	return map[string]any{
		"total_items":    totalItems,
		"total_quantity": totalQuantity,
		"by_category":    byCategory,
		"by_location":    byLocation,
	}, nil
}

// QueryInventoryReport is the full report: totals, category, location
// and condition breakdowns, unplaced and unused counts, top quantities.
func (s *Service) QueryInventoryReport(ctx context.Context) (map[string]any, error) {
	r1, err := s.read(ctx,
		"MATCH (i:Item) WHERE i.status = 'active' RETURN count(i) AS cnt, sum(i.quantity) AS qty", nil)
	if err != nil {
		return nil, err
	}
	totalItems, totalQty := 0, 0
	if len(r1) > 0 {
		totalItems = asInt(r1[0]["cnt"])
		totalQty = asInt(r1[0]["qty"])
	}

	r2, err := s.read(ctx, `
	MATCH (i:Item) WHERE i.status = 'active' AND i.category IS NOT NULL
	RETURN i.category AS category, count(i) AS cnt, sum(i.quantity) AS qty
	ORDER BY count(i) DESC`, nil)
	if err != nil {
		return nil, err
	}
	byCategory := make([]map[string]any, 0, len(r2))
	for _, r := range r2 {
		byCategory = append(byCategory, map[string]any{
			"category": r["category"], "items": asInt(r["cnt"]), "quantity": asInt(r["qty"]),
		})
	}

	r3, err := s.read(ctx, `
	MATCH (i:Item)-[:STORED_IN]->(l:Location)
	WHERE i.status = 'active'
	RETURN l.path AS path, count(i) AS cnt, sum(i.quantity) AS qty
	ORDER BY count(i) DESC`, nil)
	if err != nil {
		return nil, err
	}
	byLocation := make([]map[string]any, 0, len(r3))
	for _, r := range r3 {
		byLocation = append(byLocation, map[string]any{
			"location": r["path"], "items": asInt(r["cnt"]), "quantity": asInt(r["qty"]),
		})
	}

	r4, err := s.read(ctx, `
	MATCH (i:Item) WHERE i.status = 'active' AND i.condition IS NOT NULL
	RETURN i.condition AS condition, count(i) AS cnt
	ORDER BY count(i) DESC`, nil)
	if err != nil {
		return nil, err
	}
	byCondition := make([]map[string]any, 0, len(r4))
	for _, r := range r4 {
		byCondition = append(byCondition, map[string]any{
			"condition": r["condition"], "count": asInt(r["cnt"]),
		})
	}

	r5, err := s.read(ctx, `
	MATCH (i:Item)
	WHERE i.status = 'active' AND NOT (i)-[:STORED_IN]->()
	RETURN count(i) AS cnt`, nil)
	if err != nil {
		return nil, err
	}
	noLocation := 0
	if len(r5) > 0 {
		noLocation = asInt(r5[0]["cnt"])
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -s.config.InventoryUnusedDays).Format(time.RFC3339)
	r6, err := s.read(ctx, `
	MATCH (i:Item)
	WHERE i.status = 'active'
	  AND (i.last_used_at IS NULL OR i.last_used_at < $cutoff)
	RETURN count(i) AS cnt`, map[string]any{"cutoff": cutoff})
	if err != nil {
		return nil, err
	}
	unusedCount := 0
	if len(r6) > 0 {
		unusedCount = asInt(r6[0]["cnt"])
	}

	r7, err := s.read(ctx, `
	MATCH (i:Item) WHERE i.status = 'active'
	RETURN i.name AS name, i.quantity AS quantity, i.category AS category
	ORDER BY i.quantity DESC
	LIMIT $top`, map[string]any{"top": s.config.InventoryReportTopN})
	if err != nil {
		return nil, err
	}
	topByQuantity := make([]map[string]any, 0, len(r7))
	for _, r := range r7 {
		topByQuantity = append(topByQuantity, map[string]any{
			"name": r["name"], "quantity": asInt(r["quantity"]), "category": r["category"],
		})
	}

	return map[string]any{
		"total_items":      totalItems,
		"total_quantity":   totalQty,
		"by_category":      byCategory,
		"by_location":      byLocation,
		"by_condition":     byCondition,
		"without_location": noLocation,
		"unused_count":     unusedCount,
		"top_by_quantity":  topByQuantity,
	}, nil
}

// UpdateItem updates item fields by exact name, re-linking the
// STORED_IN edge when the location changes.
func (s *Service) UpdateItem(ctx context.Context, name string, props map[string]any) (map[string]any, error) {
	props = cleanProps(props)
	location := ""
	if loc, ok := props["location"].(string); ok {
		location = NormalizeLocation(loc)
		delete(props, "location")
	}
	if cat, ok := props["category"].(string); ok && cat != "" {
		props["category"] = NormalizeCategory(cat)
	}

	params := map[string]any{"name": name, "now": now()}
	for k, v := range props {
		params[k] = v
	}

	q := fmt.Sprintf(`
	MATCH (i:Item {name: $name})
	SET i.updated_at = $now%s
	RETURN i.name AS name, i.quantity AS quantity, i.status AS status`, setClause("i", props))

	rows, err := s.write(ctx, q, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("Item '%s' not found", name)}, nil
	}

	result := map[string]any{
		"name": rows[0]["name"], "quantity": rows[0]["quantity"], "status": rows[0]["status"],
	}

	if location != "" {
		qDel := `
		MATCH (i:Item {name: $name})-[r:STORED_IN]->()
		DELETE r`
		if _, err := s.write(ctx, qDel, map[string]any{"name": name}); err != nil {
			return nil, err
		}
		if err := s.linkStoredIn(ctx, name, location); err != nil {
			return nil, err
		}
		result["location"] = location
	}
	return result, nil
}

// FindItemByFileHash finds the item auto-created from a photo.
func (s *Service) FindItemByFileHash(ctx context.Context, fileHash string) (map[string]any, error) {
	q := `
	MATCH (i:Item)-[:FROM_PHOTO]->(f:File {sha256: $fh})
	OPTIONAL MATCH (i)-[:STORED_IN]->(l:Location)
	RETURN i.name AS name, i.quantity AS quantity, i.status AS status, l.path AS location
	LIMIT 1`

	rows, err := s.read(ctx, q, map[string]any{"fh": fileHash})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// FindItemByBarcode looks up an active item by its scanned barcode.
func (s *Service) FindItemByBarcode(ctx context.Context, barcode string) (map[string]any, error) {
	q := `
	MATCH (i:Item)
	WHERE i.barcode = $barcode AND i.status = 'active'
	OPTIONAL MATCH (i)-[:STORED_IN]->(l:Location)
	RETURN i.name AS name, i.quantity AS quantity, i.category AS category,
	       i.barcode_type AS barcode_type, l.path AS location
	LIMIT 1`

	rows, err := s.read(ctx, q, map[string]any{"barcode": barcode})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// AdjustItemQuantity shifts the quantity by delta, clamped at zero.
func (s *Service) AdjustItemQuantity(ctx context.Context, name string, delta int) (map[string]any, error) {
	q := `
	MATCH (i:Item)
	WHERE toLower(i.name) CONTAINS toLower($name)
	SET i.quantity = CASE
		WHEN i.quantity + $delta < 0 THEN 0
		ELSE i.quantity + $delta
	END,
	i.updated_at = $now
	RETURN i.name AS name, i.quantity AS quantity, i.status AS status`

	rows, err := s.write(ctx, q, map[string]any{"name": name, "delta": delta, "now": now()})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("Item '%s' not found", name)}, nil
	}
	s.touchItemLastUsed(ctx, name)
	return map[string]any{
		"name": rows[0]["name"], "quantity": asInt(rows[0]["quantity"]), "status": rows[0]["status"],
	}, nil
}

// MoveItem re-links an item to a new location.
func (s *Service) MoveItem(ctx context.Context, name, toLocation string) (map[string]any, error) {
	normalized := NormalizeLocation(toLocation)
	if normalized != "" {
		toLocation = normalized
	}

	qFind := `
	MATCH (i:Item)
	WHERE toLower(i.name) CONTAINS toLower($name)
	OPTIONAL MATCH (i)-[:STORED_IN]->(l:Location)
	RETURN i.name AS name, l.path AS location
	LIMIT 1`
	rows, err := s.read(ctx, qFind, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]any{"error": fmt.Sprintf("Item '%s' not found", name)}, nil
	}

	itemName, _ := rows[0]["name"].(string)
	oldLocation, _ := rows[0]["location"].(string)

	qDel := `MATCH (i:Item {name: $name})-[r:STORED_IN]->() DELETE r`
	if _, err := s.write(ctx, qDel, map[string]any{"name": itemName}); err != nil {
		return nil, err
	}
	if err := s.linkStoredIn(ctx, itemName, toLocation); err != nil {
		return nil, err
	}
	if _, err := s.write(ctx,
		"MATCH (i:Item {name: $name}) SET i.updated_at = $now",
		map[string]any{"name": itemName, "now": now()}); err != nil {
		return nil, err
	}
	s.touchItemLastUsed(ctx, itemName)

	return map[string]any{
		"name": itemName, "from_location": oldLocation, "to_location": toLocation,
	}, nil
}

// FindSimilarItems fuzzy-matches active item names. Used to warn about
// near-duplicates before auto-creating an item from a photo.
func (s *Service) FindSimilarItems(ctx context.Context, name string) ([]map[string]any, error) {
	q := `
	MATCH (i:Item)
	WHERE (i.status = 'active' OR i.status IS NULL)
	  AND toLower(i.name) CONTAINS toLower($name)
	OPTIONAL MATCH (i)-[:STORED_IN]->(l:Location)
	RETURN i.name AS name, i.quantity AS quantity, l.path AS location
	LIMIT 5`

	rows, err := s.read(ctx, q, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"name": r["name"], "quantity": asInt(r["quantity"]), "location": r["location"],
		})
	}
	return out, nil
}

// touchItemLastUsed stamps last_used_at. Best effort.
func (s *Service) touchItemLastUsed(ctx context.Context, name string) {
	q := `
	MATCH (i:Item)
	WHERE toLower(i.name) CONTAINS toLower($name)
	SET i.last_used_at = $now`
	if _, err := s.write(ctx, q, map[string]any{"name": name, "now": now()}); err != nil {
		slog.Debug("failed to touch item last_used_at", "item", name, "error", err)
	}
}

// QueryUnusedItems finds active items untouched for the given number
// of days (default from config).
func (s *Service) QueryUnusedItems(ctx context.Context, days int) ([]map[string]any, error) {
	if days <= 0 {
		days = s.config.InventoryUnusedDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	q := `
	MATCH (i:Item)
	WHERE i.status = 'active'
	  AND (i.last_used_at IS NULL OR i.last_used_at < $cutoff)
	OPTIONAL MATCH (i)-[:STORED_IN]->(l:Location)
	RETURN i.name AS name, i.quantity AS quantity, i.category AS category,
	       i.last_used_at AS last_used_at, l.path AS location
	ORDER BY i.last_used_at ASC
	LIMIT 20`

	rows, err := s.read(ctx, q, map[string]any{"cutoff": cutoff})
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"name": r["name"], "quantity": r["quantity"], "category": r["category"],
			"last_used_at": r["last_used_at"], "location": r["location"],
		})
	}
	return out, nil
}

// DetectDuplicateItems pairs active items whose names contain each
// other.
func (s *Service) DetectDuplicateItems(ctx context.Context) ([]map[string]any, error) {
	q := `
	MATCH (a:Item), (b:Item)
	WHERE a.status = 'active' AND b.status = 'active'
	  AND elementId(a) < elementId(b)
	  AND (toLower(a.name) CONTAINS toLower(b.name)
	       OR toLower(b.name) CONTAINS toLower(a.name))
	OPTIONAL MATCH (a)-[:STORED_IN]->(la:Location)
	OPTIONAL MATCH (b)-[:STORED_IN]->(lb:Location)
	RETURN a.name AS a_name, a.quantity AS a_quantity, la.path AS a_location,
	       b.name AS b_name, b.quantity AS b_quantity, lb.path AS b_location
	LIMIT 20`

	rows, err := s.read(ctx, q, nil)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{
			"item_a": map[string]any{
				"name": r["a_name"], "quantity": r["a_quantity"], "location": r["a_location"],
			},
			"item_b": map[string]any{
				"name": r["b_name"], "quantity": r["b_quantity"], "location": r["b_location"],
			},
		})
	}
	return out, nil
}

// DetectDuplicateItemsVector pairs active items by embedding
// similarity. Catches the transliteration variants a substring match
// cannot.
func (s *Service) DetectDuplicateItemsVector(ctx context.Context) ([]map[string]any, error) {
	if s.embedder == nil || s.vectors == nil {
		return nil, nil
	}

	rows, err := s.read(ctx, "MATCH (i:Item) WHERE i.status = 'active' RETURN i.name AS name", nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if n, _ := r["name"].(string); n != "" {
			names = append(names, n)
		}
	}
	if len(names) < 2 {
		return nil, nil
	}

	var duplicates []map[string]any
	checked := make(map[string]bool)
	for _, name := range names {
		if checked[name] {
			continue
		}
		vec, err := s.embedder.Embed(ctx, name)
		if err != nil {
			continue
		}
		results, err := s.vectors.Search(ctx, vec, 3, map[string]any{
			"source_type": "entity",
			"entity_type": "Item",
		})
		if err != nil {
			continue
		}
		for _, r := range results {
			other, _ := r.Payload["entity_name"].(string)
			if other == "" || other == name || float64(r.Score) < 0.8 || checked[other] {
				continue
			}
			duplicates = append(duplicates, map[string]any{
				"item_a":     name,
				"item_b":     other,
				"similarity": math.Round(float64(r.Score)*100) / 100,
			})
			checked[name] = true
			checked[other] = true
		}
		if len(duplicates) >= 20 {
			break
		}
	}
	return duplicates, nil
}
