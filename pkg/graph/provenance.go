package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// EnsureFileStub creates a minimal File node so EXTRACTED_FROM edges
// can MATCH it during ingestion.
func (s *Service) EnsureFileStub(ctx context.Context, fileHash, filename string) error {
	q := `
	MERGE (f:File {sha256: $hash})
	ON CREATE SET f.filename = $fn, f.created_at = $now`
	if _, err := s.write(ctx, q, map[string]any{"hash": fileHash, "fn": filename, "now": now()}); err != nil {
		return fmt.Errorf("failed to ensure file stub %s: %w", fileHash, err)
	}
	return nil
}

// UpsertFileNode fills in the File node after processing.
func (s *Service) UpsertFileNode(ctx context.Context, fileHash, filename, fileType, description string) error {
	if len([]rune(description)) > 500 {
		description = string([]rune(description)[:500])
	}
	q := `
	MERGE (f:File {sha256: $hash})
	ON CREATE SET f.filename = $filename, f.file_type = $file_type,
	              f.description = $description, f.created_at = $now
	ON MATCH SET f.filename = $filename, f.file_type = $file_type,
	             f.description = $description, f.updated_at = $now`
	if _, err := s.write(ctx, q, map[string]any{
		"hash": fileHash, "filename": filename, "file_type": fileType,
		"description": description, "now": now(),
	}); err != nil {
		return fmt.Errorf("failed to upsert file node %s: %w", fileHash, err)
	}
	return nil
}

// FindFileByHash returns the File node's properties, or nil.
func (s *Service) FindFileByHash(ctx context.Context, fileHash string) (map[string]any, error) {
	rows, err := s.read(ctx, "MATCH (f:File {sha256: $hash}) RETURN f", map[string]any{"hash": fileHash})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return nodeProps(rows[0]["f"]), nil
}

// FindFileByFilename returns the most recent File node carrying this
// filename, or nil.
func (s *Service) FindFileByFilename(ctx context.Context, filename string) (map[string]any, error) {
	q := `
	MATCH (f:File)
	WHERE f.filename = $filename
	RETURN f
	ORDER BY f.updated_at DESC, f.created_at DESC
	LIMIT 1`
	rows, err := s.read(ctx, q, map[string]any{"filename": filename})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return nodeProps(rows[0]["f"]), nil
}

// SupersedeFile marks the old file replaced by the new one.
func (s *Service) SupersedeFile(ctx context.Context, newHash, oldHash string) error {
	q := `
	MATCH (old:File {sha256: $old_hash})
	MATCH (new:File {sha256: $new_hash})
	SET old.superseded_by = $new_hash, old.updated_at = $now
	MERGE (new)-[:SUPERSEDES]->(old)`
	if _, err := s.write(ctx, q, map[string]any{
		"old_hash": oldHash, "new_hash": newHash, "now": now(),
	}); err != nil {
		return fmt.Errorf("failed to supersede file %s: %w", oldHash, err)
	}
	return nil
}

// CleanupFileEntities deletes entities whose only EXTRACTED_FROM edge
// points at the old file. Entities shared with other files survive.
func (s *Service) CleanupFileEntities(ctx context.Context, oldFileHash string) (int, error) {
	q := `
	MATCH (e)-[:EXTRACTED_FROM]->(old:File {sha256: $old_hash})
	WHERE NOT EXISTS {
		MATCH (e)-[:EXTRACTED_FROM]->(other:File)
		WHERE other.sha256 <> $old_hash
	}
	WITH collect(e) AS orphans
	FOREACH (x IN orphans | DETACH DELETE x)
	RETURN size(orphans) AS deleted`

	rows, err := s.write(ctx, q, map[string]any{"old_hash": oldFileHash})
	if err != nil {
		return 0, err
	}
	deleted := 0
	if len(rows) > 0 {
		deleted = asInt(rows[0]["deleted"])
	}
	if deleted > 0 {
		slog.Info("cleaned up orphaned entities", "file", shortHash(oldFileHash), "deleted", deleted)
	}
	return deleted, nil
}

// UnlinkFileEntities removes every EXTRACTED_FROM edge into a file.
func (s *Service) UnlinkFileEntities(ctx context.Context, fileHash string) error {
	q := `
	MATCH (e)-[r:EXTRACTED_FROM]->(f:File {sha256: $hash})
	DELETE r`
	if _, err := s.write(ctx, q, map[string]any{"hash": fileHash}); err != nil {
		return fmt.Errorf("failed to unlink file entities for %s: %w", fileHash, err)
	}
	return nil
}

// GetFileSectionMap snapshots entity-to-section assignments for every
// entity extracted from a file, keyed by normalised entity name. Taken
// before a re-upload tears the old entities down.
func (s *Service) GetFileSectionMap(ctx context.Context, fileHash string) (map[string]string, error) {
	q := `
	MATCH (e)-[:EXTRACTED_FROM]->(f:File {sha256: $hash})
	MATCH (e)-[:IN_SECTION]->(s:Section)
	RETURN coalesce(e.name, e.title) AS name, s.name AS section`

	rows, err := s.read(ctx, q, map[string]any{"hash": fileHash})
	if err != nil {
		return nil, err
	}

	sectionMap := make(map[string]string, len(rows))
	for _, r := range rows {
		name, _ := r["name"].(string)
		section, _ := r["section"].(string)
		if name != "" && section != "" {
			sectionMap[normalizeName(name)] = section
		}
	}
	return sectionMap, nil
}

// RestoreSectionLinks re-creates IN_SECTION edges for entities of a
// freshly ingested file that match the snapshot by normalised name.
// Returns how many links were restored.
func (s *Service) RestoreSectionLinks(ctx context.Context, fileHash string, sectionMap map[string]string) (int, error) {
	if len(sectionMap) == 0 {
		return 0, nil
	}

	q := `
	MATCH (e)-[:EXTRACTED_FROM]->(f:File {sha256: $hash})
	RETURN labels(e)[0] AS label, coalesce(e.name, e.title) AS name`
	rows, err := s.read(ctx, q, map[string]any{"hash": fileHash})
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, r := range rows {
		name, _ := r["name"].(string)
		label, _ := r["label"].(string)
		if name == "" || label == "" {
			continue
		}
		section, ok := sectionMap[normalizeName(name)]
		if !ok {
			continue
		}

		link := fmt.Sprintf(`
		MATCH (e:%s {%s: $name})
		MATCH (s:Section {name: $section})
		MERGE (e)-[:IN_SECTION]->(s)
		RETURN s.name AS section`, label, keyFieldFor(label))
		linkRows, err := s.write(ctx, link, map[string]any{"name": name, "section": section})
		if err != nil {
			slog.Warn("failed to restore section link", "entity", name, "section", section, "error", err)
			continue
		}
		if len(linkRows) > 0 {
			restored++
		}
	}

	if restored > 0 {
		slog.Info("restored section links after re-upload", "file", shortHash(fileHash), "restored", restored)
	}
	return restored, nil
}

// CreateExpenseFromInvoice auto-creates an Expense from an analysed
// invoice, linked to the File and the vendor Company.
func (s *Service) CreateExpenseFromInvoice(ctx context.Context, analysis map[string]any, fileHash string) (map[string]any, error) {
	vendor := getString(analysis, "vendor")
	if vendor == "" {
		vendor = "Unknown"
	}
	total := getFloat(analysis, "total_amount")
	currency := getString(analysis, "currency")
	if currency == "" {
		currency = "SAR"
	}
	dateStr := getString(analysis, "date")
	if dateStr == "" {
		dateStr = now()[:10]
	}

	var itemNames []string
	items, _ := analysis["items"].([]any)
	for _, raw := range items {
		if item, ok := raw.(map[string]any); ok {
			if n := getString(item, "name"); n != "" {
				itemNames = append(itemNames, n)
			}
		}
	}
	category := GuessExpenseCategory(vendor, strings.Join(itemNames, " "))

	desc := "Invoice from " + vendor
	if len(items) > 0 {
		desc += fmt.Sprintf(" (%d items)", len(items))
	}

	q := `
	CREATE (e:Expense {
		description: $desc, amount: $amount, currency: $currency,
		category: $category, date: $date, vendor: $vendor,
		source: 'invoice', file_hash: $file_hash, created_at: $now
	})
	WITH e
	MATCH (f:File {sha256: $file_hash})
	MERGE (e)-[:FROM_INVOICE]->(f)`
	if _, err := s.write(ctx, q, map[string]any{
		"desc": desc, "amount": total, "currency": currency,
		"category": category, "date": dateStr, "vendor": vendor,
		"file_hash": fileHash, "now": now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to create expense from invoice: %w", err)
	}

	if vendor != "Unknown" {
		if _, err := s.UpsertCompany(ctx, vendor); err != nil {
			slog.Debug("vendor company upsert skipped", "vendor", vendor, "error", err)
		}
	}

	return map[string]any{
		"description": desc, "amount": total, "currency": currency,
		"category": category, "date": dateStr, "vendor": vendor,
	}, nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
