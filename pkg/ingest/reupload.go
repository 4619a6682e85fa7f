package ingest

import (
	"context"
	"fmt"
	"log/slog"
)

// PrepareReupload tears down the previous version of a file before the
// replacement is ingested: snapshots section assignments, drops the old
// vector points and deletes entities whose only provenance was the old
// file. Returns the section snapshot for FinishReupload.
func (p *Pipeline) PrepareReupload(ctx context.Context, oldHash string) (map[string]string, error) {
	sectionMap, err := p.graph.GetFileSectionMap(ctx, oldHash)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot section links: %w", err)
	}

	if err := p.vectors.DeleteByField(ctx, "file_hash", oldHash); err != nil {
		return nil, fmt.Errorf("failed to delete old vector points: %w", err)
	}

	deleted, err := p.graph.CleanupFileEntities(ctx, oldHash)
	if err != nil {
		return nil, fmt.Errorf("failed to clean up old file entities: %w", err)
	}

	slog.Info("prepared file re-upload",
		"sections_snapshotted", len(sectionMap), "entities_deleted", deleted)
	return sectionMap, nil
}

// FinishReupload links the new file over the old one and restores the
// snapshotted section assignments onto the freshly extracted entities.
func (p *Pipeline) FinishReupload(ctx context.Context, newHash, oldHash string, sectionMap map[string]string) error {
	if err := p.graph.SupersedeFile(ctx, newHash, oldHash); err != nil {
		return err
	}

	restored, err := p.graph.RestoreSectionLinks(ctx, newHash, sectionMap)
	if err != nil {
		return err
	}
	if len(sectionMap) > 0 {
		slog.Info("re-upload complete", "restored_section_links", restored)
	}
	return nil
}
