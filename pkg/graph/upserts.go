package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hablullah/go-hijri"
)

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// setClause renders "v.k = $k" assignments for the given props.
// Property assignment syntax is only valid in update clauses.
func setClause(variable string, props map[string]any) string {
	if len(props) == 0 {
		return ""
	}
	parts := make([]string, 0, len(props))
	for k := range props {
		parts = append(parts, fmt.Sprintf("%s.%s = $%s", variable, k, k))
	}
	return ", " + strings.Join(parts, ", ")
}

func cleanProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if v == nil || v == "" {
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

// UpsertPerson creates or updates a Person after entity resolution.
// A date_of_birth with year < 1900 is treated as Hijri: the Gregorian
// conversion becomes date_of_birth and the original string is kept as
// date_of_birth_hijri. Returns the canonical name.
func (s *Service) UpsertPerson(ctx context.Context, name string, props map[string]any) (string, error) {
	canonical, err := s.ResolveEntityName(ctx, name, "Person")
	if err != nil {
		return "", err
	}

	props = cleanProps(props)
	if dob, ok := props["date_of_birth"].(string); ok {
		gregorian, hijriForm := convertHijriBirthDate(dob)
		props["date_of_birth"] = gregorian
		if hijriForm != "" {
			props["date_of_birth_hijri"] = hijriForm
		}
	}

	q := fmt.Sprintf(`
	MERGE (p:Person {name: $name})
	ON CREATE SET p.created_at = $now%s
	ON MATCH SET p.updated_at = $now%s
	RETURN p.name AS name`, setClause("p", props), setClause("p", props))

	params := map[string]any{"name": canonical, "now": now()}
	for k, v := range props {
		params[k] = v
	}

	if _, err := s.write(ctx, q, params); err != nil {
		return "", fmt.Errorf("failed to upsert person %q: %w", canonical, err)
	}

	if company, ok := props["company"].(string); ok && company != "" {
		if err := s.linkWorksAt(ctx, canonical, company); err != nil {
			return "", err
		}
	}

	return canonical, nil
}

// convertHijriBirthDate returns (gregorianDate, hijriSurfaceForm).
// Dates with year >= 1900 pass through unchanged.
func convertHijriBirthDate(dob string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(dob), "-", 3)
	if len(parts) != 3 {
		return dob, ""
	}
	var y, m, d int
	if _, err := fmt.Sscanf(dob, "%d-%d-%d", &y, &m, &d); err != nil || y >= 1900 {
		return dob, ""
	}

	h := hijri.UmmAlQuraDate{Year: int64(y), Month: int64(m), Day: int64(d)}
	g := h.ToGregorian()
	return g.Format("2006-01-02"), dob
}

func (s *Service) linkWorksAt(ctx context.Context, person, company string) error {
	canonical, err := s.UpsertCompany(ctx, company)
	if err != nil {
		return err
	}
	q := `
	MATCH (p:Person {name: $person})
	MATCH (c:Company {name: $company})
	MERGE (p)-[:WORKS_AT]->(c)`
	if _, err := s.write(ctx, q, map[string]any{"person": person, "company": canonical}); err != nil {
		return fmt.Errorf("failed to link %q WORKS_AT %q: %w", person, canonical, err)
	}
	return nil
}

// UpsertCompany creates or updates a Company. Returns the canonical name.
func (s *Service) UpsertCompany(ctx context.Context, name string) (string, error) {
	canonical, err := s.ResolveEntityName(ctx, name, "Company")
	if err != nil {
		return "", err
	}
	q := `
	MERGE (c:Company {name: $name})
	ON CREATE SET c.created_at = $now
	ON MATCH SET c.updated_at = $now`
	if _, err := s.write(ctx, q, map[string]any{"name": canonical, "now": now()}); err != nil {
		return "", fmt.Errorf("failed to upsert company %q: %w", canonical, err)
	}
	return canonical, nil
}

// UpsertProject creates or updates a Project. Returns the canonical name.
func (s *Service) UpsertProject(ctx context.Context, name string, props map[string]any) (string, error) {
	canonical, err := s.ResolveEntityName(ctx, name, "Project")
	if err != nil {
		return "", err
	}
	props = cleanProps(props)

	q := fmt.Sprintf(`
	MERGE (p:Project {name: $name})
	ON CREATE SET p.status = 'active', p.created_at = $now%s
	ON MATCH SET p.updated_at = $now%s`, setClause("p", props), setClause("p", props))

	params := map[string]any{"name": canonical, "now": now()}
	for k, v := range props {
		params[k] = v
	}
	if _, err := s.write(ctx, q, params); err != nil {
		return "", fmt.Errorf("failed to upsert project %q: %w", canonical, err)
	}
	return canonical, nil
}

// UpsertTopic creates or updates a Topic. Returns the canonical name.
func (s *Service) UpsertTopic(ctx context.Context, name string) (string, error) {
	canonical, err := s.ResolveEntityName(ctx, name, "Topic")
	if err != nil {
		return "", err
	}
	q := `
	MERGE (t:Topic {name: $name})
	ON CREATE SET t.created_at = $now`
	if _, err := s.write(ctx, q, map[string]any{"name": canonical, "now": now()}); err != nil {
		return "", fmt.Errorf("failed to upsert topic %q: %w", canonical, err)
	}
	return canonical, nil
}

// UpsertTag normalises, vector-dedups at 0.85 and creates the tag.
// Returns the canonical tag name.
func (s *Service) UpsertTag(ctx context.Context, name string) (string, error) {
	name = NormalizeTag(name)
	if name == "" {
		return "", nil
	}

	if s.embedder != nil && s.vectors != nil {
		vec, err := s.embedder.Embed(ctx, name)
		if err == nil {
			results, err := s.vectors.Search(ctx, vec, 3, map[string]any{
				"source_type": "entity",
				"entity_type": "Tag",
			})
			if err == nil {
				matched := false
				for _, r := range results {
					other, _ := r.Payload["entity_name"].(string)
					if other != "" && !strings.EqualFold(other, name) && r.Score >= 0.85 {
						slog.Info("tag resolved", "tag", name, "canonical", other, "score", r.Score)
						name = other
						matched = true
						break
					}
				}
				if !matched {
					if err := s.indexEntityName(ctx, name, "Tag", vec); err != nil {
						slog.Warn("failed to index tag", "tag", name, "error", err)
					}
				}
			}
		}
	}

	q := `
	MERGE (t:Tag {name: $name})
	ON CREATE SET t.created_at = $now`
	if _, err := s.write(ctx, q, map[string]any{"name": name, "now": now()}); err != nil {
		return "", fmt.Errorf("failed to upsert tag %q: %w", name, err)
	}
	return name, nil
}

// TagEntity creates a TAGGED_WITH edge from the keyed entity to the
// canonical tag.
func (s *Service) TagEntity(ctx context.Context, label, keyField, keyValue, tag string) error {
	canonical, err := s.UpsertTag(ctx, tag)
	if err != nil {
		return err
	}
	if canonical == "" {
		return nil
	}

	q := fmt.Sprintf(`
	MATCH (n:%s {%s: $key})
	MATCH (t:Tag {name: $tag})
	MERGE (n)-[:TAGGED_WITH]->(t)`, label, keyField)
	if _, err := s.write(ctx, q, map[string]any{"key": keyValue, "tag": canonical}); err != nil {
		return fmt.Errorf("failed to tag %s %q with %q: %w", label, keyValue, canonical, err)
	}
	return nil
}

// UpsertKnowledge stores a knowledge item, auto-categorised when the
// category is missing, and auto-tagged with its category.
func (s *Service) UpsertKnowledge(ctx context.Context, title string, props map[string]any) (string, error) {
	props = cleanProps(props)

	content, _ := props["content"].(string)
	category, _ := props["category"].(string)
	if category == "" {
		category = GuessKnowledgeCategory(title, content)
		props["category"] = category
	}

	q := fmt.Sprintf(`
	MERGE (k:Knowledge {title: $title})
	ON CREATE SET k.created_at = $now%s
	ON MATCH SET k.updated_at = $now%s`, setClause("k", props), setClause("k", props))

	params := map[string]any{"title": title, "now": now()}
	for k, v := range props {
		params[k] = v
	}
	if _, err := s.write(ctx, q, params); err != nil {
		return "", fmt.Errorf("failed to upsert knowledge %q: %w", title, err)
	}

	if topic, ok := props["topic"].(string); ok && topic != "" {
		canonical, err := s.UpsertTopic(ctx, topic)
		if err != nil {
			return "", err
		}
		link := `
		MATCH (k:Knowledge {title: $title})
		MATCH (t:Topic {name: $topic})
		MERGE (k)-[:RELATED_TO]->(t)`
		if _, err := s.write(ctx, link, map[string]any{"title": title, "topic": canonical}); err != nil {
			return "", fmt.Errorf("failed to link knowledge to topic: %w", err)
		}
	}

	if err := s.TagEntity(ctx, "Knowledge", "title", title, category); err != nil {
		slog.Warn("failed to auto-tag knowledge", "title", title, "error", err)
	}

	return title, nil
}

// UpsertExpense records an expense. Expenses are transactional, one
// node per occurrence.
func (s *Service) UpsertExpense(ctx context.Context, amount float64, props map[string]any) (string, error) {
	props = cleanProps(props)

	if _, ok := props["currency"]; !ok {
		props["currency"] = "SAR"
	}
	if _, ok := props["date"]; !ok {
		props["date"] = time.Now().UTC().Format("2006-01-02")
	}
	if cat, ok := props["category"].(string); !ok || cat == "" {
		vendor, _ := props["vendor"].(string)
		desc, _ := props["description"].(string)
		props["category"] = GuessExpenseCategory(vendor, desc)
	}

	id := uuid.NewString()
	q := fmt.Sprintf(`
	CREATE (e:Expense {id: $id, amount: $amount, created_at: $now})
	SET e.id = $id%s`, setClause("e", props))

	params := map[string]any{"id": id, "amount": amount, "now": now()}
	for k, v := range props {
		params[k] = v
	}
	if _, err := s.write(ctx, q, params); err != nil {
		return "", fmt.Errorf("failed to record expense: %w", err)
	}
	return id, nil
}

// UpsertDebt records a debt involving a person. Direction is clamped
// to the two canonical values.
func (s *Service) UpsertDebt(ctx context.Context, person string, amount float64, direction string, props map[string]any) (string, error) {
	canonical, err := s.ResolveEntityName(ctx, person, "Person")
	if err != nil {
		return "", err
	}
	props = cleanProps(props)
	if _, ok := props["currency"]; !ok {
		props["currency"] = "SAR"
	}

	id := uuid.NewString()
	q := fmt.Sprintf(`
	MERGE (p:Person {name: $person})
	ON CREATE SET p.created_at = $now
	CREATE (d:Debt {id: $id, amount: $amount, direction: $direction, status: 'open', created_at: $now})
	SET d.id = $id%s
	MERGE (d)-[:INVOLVES]->(p)`, setClause("d", props))

	params := map[string]any{
		"person":    canonical,
		"id":        id,
		"amount":    amount,
		"direction": NormalizeDirection(direction),
		"now":       now(),
	}
	for k, v := range props {
		params[k] = v
	}
	if _, err := s.write(ctx, q, params); err != nil {
		return "", fmt.Errorf("failed to record debt for %q: %w", canonical, err)
	}
	return id, nil
}

// UpsertTask creates or updates a Task by title.
func (s *Service) UpsertTask(ctx context.Context, title string, props map[string]any) (string, error) {
	props = cleanProps(props)
	if lvl, ok := props["energy_level"].(string); ok {
		props["energy_level"] = NormalizeEnergy(lvl)
	}

	q := fmt.Sprintf(`
	MERGE (t:Task {title: $title})
	ON CREATE SET t.status = 'todo', t.created_at = $now%s
	ON MATCH SET t.updated_at = $now%s`, setClause("t", props), setClause("t", props))

	params := map[string]any{"title": title, "now": now()}
	for k, v := range props {
		params[k] = v
	}
	if _, err := s.write(ctx, q, params); err != nil {
		return "", fmt.Errorf("failed to upsert task %q: %w", title, err)
	}

	if project, ok := props["project"].(string); ok && project != "" {
		canonical, err := s.UpsertProject(ctx, project, nil)
		if err != nil {
			return "", err
		}
		if err := s.CreateRelationship(ctx, "Task", "title", title, "BELONGS_TO", "Project", "name", canonical); err != nil {
			return "", err
		}
	}

	return title, nil
}

// UpsertItem creates or updates an inventory Item, normalising its
// category and location and linking STORED_IN.
func (s *Service) UpsertItem(ctx context.Context, name string, props map[string]any) (string, error) {
	props = cleanProps(props)
	if cat, ok := props["category"].(string); ok {
		props["category"] = NormalizeCategory(cat)
	}

	location := ""
	if loc, ok := props["location"].(string); ok {
		location = NormalizeLocation(loc)
		if location == "" {
			delete(props, "location")
		} else {
			props["location"] = location
		}
	}
	if _, ok := props["quantity"]; !ok {
		props["quantity"] = 1
	}
	fileHash, _ := props["file_hash"].(string)
	delete(props, "file_hash")

	q := fmt.Sprintf(`
	MERGE (i:Item {name: $name})
	ON CREATE SET i.created_at = $now, i.status = 'active'%s
	ON MATCH SET i.updated_at = $now%s`, setClause("i", props), setClause("i", props))

	params := map[string]any{"name": name, "now": now()}
	for k, v := range props {
		params[k] = v
	}
	if _, err := s.write(ctx, q, params); err != nil {
		return "", fmt.Errorf("failed to upsert item %q: %w", name, err)
	}

	if location != "" {
		if err := s.linkStoredIn(ctx, name, location); err != nil {
			return "", err
		}
	}

	if fileHash != "" {
		link := `
		MATCH (i:Item {name: $name})
		MATCH (f:File {sha256: $fh})
		MERGE (i)-[:FROM_PHOTO]->(f)`
		if _, err := s.write(ctx, link, map[string]any{"name": name, "fh": fileHash}); err != nil {
			slog.Debug("item-file link skipped", "item", name, "error", err)
		}
	}

	return name, nil
}

func (s *Service) linkStoredIn(ctx context.Context, item, location string) error {
	q := `
	MERGE (l:Location {path: $path})
	ON CREATE SET l.created_at = $now
	WITH l
	MATCH (i:Item {name: $item})
	MERGE (i)-[:STORED_IN]->(l)`
	if _, err := s.write(ctx, q, map[string]any{"path": location, "item": item, "now": now()}); err != nil {
		return fmt.Errorf("failed to link item %q to location %q: %w", item, location, err)
	}
	return nil
}

// UpsertIdea stores an idea and links SIMILAR_TO semantically near
// ideas found by vector search.
func (s *Service) UpsertIdea(ctx context.Context, name, content string) (string, error) {
	q := `
	MERGE (i:Idea {name: $name})
	ON CREATE SET i.content = $content, i.created_at = $now
	ON MATCH SET i.content = $content, i.updated_at = $now`
	if _, err := s.write(ctx, q, map[string]any{"name": name, "content": content, "now": now()}); err != nil {
		return "", fmt.Errorf("failed to upsert idea %q: %w", name, err)
	}

	if s.embedder != nil && s.vectors != nil {
		vec, err := s.embedder.Embed(ctx, name+" "+content)
		if err == nil {
			results, err := s.vectors.Search(ctx, vec, 3, map[string]any{
				"source_type": "entity",
				"entity_type": "Idea",
			})
			if err == nil {
				for _, r := range results {
					other, _ := r.Payload["entity_name"].(string)
					if other == "" || strings.EqualFold(other, name) || r.Score < 0.75 {
						continue
					}
					link := `
					MATCH (a:Idea {name: $a})
					MATCH (b:Idea {name: $b})
					MERGE (a)-[:SIMILAR_TO]->(b)`
					if _, err := s.write(ctx, link, map[string]any{"a": name, "b": other}); err != nil {
						slog.Warn("failed to link similar ideas", "a", name, "b", other, "error", err)
					}
				}
			}
			if err := s.indexEntityName(ctx, name, "Idea", vec); err != nil {
				slog.Warn("failed to index idea", "name", name, "error", err)
			}
		}
	}

	return name, nil
}

// CreateRelationship merges a typed edge between two keyed nodes.
func (s *Service) CreateRelationship(ctx context.Context, fromLabel, fromKey, fromVal, relType, toLabel, toKey, toVal string) error {
	q := fmt.Sprintf(`
	MATCH (a:%s {%s: $from})
	MATCH (b:%s {%s: $to})
	MERGE (a)-[:%s]->(b)`, fromLabel, fromKey, toLabel, toKey, relType)

	if _, err := s.write(ctx, q, map[string]any{"from": fromVal, "to": toVal}); err != nil {
		return fmt.Errorf("failed to create %s from %s %q to %s %q: %w",
			relType, fromLabel, fromVal, toLabel, toVal, err)
	}
	return nil
}

// keyFieldFor returns the property that identifies nodes of a label.
func keyFieldFor(label string) string {
	switch label {
	case "Task", "Knowledge", "Reminder":
		return "title"
	case "Location":
		return "path"
	case "File":
		return "sha256"
	default:
		return "name"
	}
}
