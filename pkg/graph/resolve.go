package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Types that never go through resolution: transactional records are
// unique per occurrence, tags have their own dedup.
var resolutionSkipTypes = map[string]bool{
	"Expense":  true,
	"Debt":     true,
	"Reminder": true,
	"Item":     true,
	"Idea":     true,
	"Tag":      true,
}

// Tool-only types are suppressed at the extraction boundary.
var toolOnlyTypes = map[string]bool{
	"Section":   true,
	"ListEntry": true,
}

func (s *Service) threshold(label string) float64 {
	if label == "Person" {
		return s.config.PersonThreshold
	}
	return s.config.DefaultThreshold
}

func (s *Service) nameLock(normalized string) *sync.Mutex {
	s.resolveMu.Lock()
	defer s.resolveMu.Unlock()
	lock, ok := s.nameLocks[normalized]
	if !ok {
		lock = &sync.Mutex{}
		s.nameLocks[normalized] = lock
	}
	return lock
}

// ResolveEntityName collapses name variants into one canonical node
// name for the label. The incoming surface form is preserved in
// name_aliases of the canonical node.
func (s *Service) ResolveEntityName(ctx context.Context, name, label string) (string, error) {
	if name == "" || resolutionSkipTypes[label] {
		return name, nil
	}

	normalized := normalizeName(name)
	cacheKey := label + ":" + normalized

	s.cacheMu.Lock()
	if canonical, ok := s.cache[cacheKey]; ok {
		s.cacheMu.Unlock()
		return canonical, nil
	}
	s.cacheMu.Unlock()

	// Concurrent resolution of the same name must serialise: the
	// read-then-write on name_aliases is not atomic.
	lock := s.nameLock(cacheKey)
	lock.Lock()
	defer lock.Unlock()

	s.cacheMu.Lock()
	if canonical, ok := s.cache[cacheKey]; ok {
		s.cacheMu.Unlock()
		return canonical, nil
	}
	s.cacheMu.Unlock()

	canonical, err := s.resolveUncached(ctx, name, label, normalized)
	if err != nil {
		return "", err
	}

	s.cacheMu.Lock()
	s.cache[cacheKey] = canonical
	s.cacheMu.Unlock()

	return canonical, nil
}

func (s *Service) resolveUncached(ctx context.Context, name, label, normalized string) (string, error) {
	// 1. Vector similarity over the entity-name namespace.
	if s.embedder != nil && s.vectors != nil {
		vec, err := s.embedder.Embed(ctx, name)
		if err != nil {
			slog.Warn("entity resolution embedding failed, falling back to graph match",
				"name", name, "error", err)
		} else {
			results, err := s.vectors.Search(ctx, vec, 3, map[string]any{
				"source_type": "entity",
				"entity_type": label,
			})
			if err != nil {
				slog.Warn("entity resolution search failed", "name", name, "error", err)
			} else {
				threshold := s.threshold(label)
				for _, r := range results {
					other, _ := r.Payload["entity_name"].(string)
					if other == "" || float64(r.Score) < threshold {
						continue
					}
					if normalizeName(other) != normalized {
						slog.Info("entity resolved",
							"label", label, "name", name, "canonical", other, "score", r.Score)
						if err := s.AddAlias(ctx, label, other, name); err != nil {
							return "", err
						}
					}
					return other, nil
				}
			}

			// 3/5. No vector match: graph fallback, then index the
			// embedding for future lookups.
			canonical, found, err := s.graphFallback(ctx, name, label)
			if err != nil {
				return "", err
			}
			if found {
				if normalizeName(canonical) != normalized {
					if err := s.AddAlias(ctx, label, canonical, name); err != nil {
						return "", err
					}
				}
				return canonical, nil
			}

			if err := s.indexEntityName(ctx, name, label, vec); err != nil {
				slog.Warn("failed to index entity name", "name", name, "error", err)
			}
			return name, nil
		}
	}

	// No vector backend: graph fallback only.
	canonical, found, err := s.graphFallback(ctx, name, label)
	if err != nil {
		return "", err
	}
	if found {
		if normalizeName(canonical) != normalized {
			if err := s.AddAlias(ctx, label, canonical, name); err != nil {
				return "", err
			}
		}
		return canonical, nil
	}
	return name, nil
}

// graphFallback is a case-insensitive CONTAINS match over name and
// name_aliases of existing nodes.
func (s *Service) graphFallback(ctx context.Context, name, label string) (string, bool, error) {
	q := fmt.Sprintf(`
	MATCH (n:%s)
	WHERE toLower(n.name) CONTAINS toLower($name)
	   OR toLower($name) CONTAINS toLower(n.name)
	   OR any(a IN coalesce(n.name_aliases, []) WHERE toLower(a) = toLower($name))
	RETURN n.name AS name
	LIMIT 1`, label)

	rows, err := s.read(ctx, q, map[string]any{"name": name})
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	canonical, _ := rows[0]["name"].(string)
	return canonical, canonical != "", nil
}

// AddAlias records a surface form on the canonical node.
func (s *Service) AddAlias(ctx context.Context, label, canonical, alias string) error {
	if canonical == alias {
		return nil
	}
	q := fmt.Sprintf(`
	MATCH (n:%s {name: $canonical})
	SET n.name_aliases = CASE
		WHEN n.name_aliases IS NULL THEN [$alias]
		WHEN NOT $alias IN n.name_aliases THEN n.name_aliases + $alias
		ELSE n.name_aliases
	END`, label)

	if _, err := s.write(ctx, q, map[string]any{"canonical": canonical, "alias": alias}); err != nil {
		return fmt.Errorf("failed to add alias %q to %s %q: %w", alias, label, canonical, err)
	}
	return nil
}

func (s *Service) indexEntityName(ctx context.Context, name, label string, vec []float32) error {
	return s.vectors.Upsert(ctx, uuid.NewString(), vec, map[string]any{
		"source_type": "entity",
		"entity_type": label,
		"entity_name": name,
		"content":     name,
	})
}

// ClearResolutionCache drops the per-batch resolution cache. Called at
// the start of every upsert_from_facts batch.
func (s *Service) ClearResolutionCache() {
	s.cacheMu.Lock()
	s.cache = make(map[string]string)
	s.cacheMu.Unlock()
}
