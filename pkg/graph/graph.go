// Package graph is the knowledge-graph service: typed upserts with
// entity resolution, domain queries, lifecycle operations, provenance
// handling and multi-hop context retrieval, backed by a Cypher store.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/khalid729/Personal-Life-RAG/pkg/llms"
	"github.com/khalid729/Personal-Life-RAG/pkg/vector"
)

// internalProps are stripped from any LLM-facing context formatter.
var internalProps = map[string]bool{
	"name_aliases": true,
	"created_at":   true,
	"updated_at":   true,
	"file_hash":    true,
	"source":       true,
}

// Config configures the graph service.
type Config struct {
	URI      string
	User     string
	Password string
	Database string

	PersonThreshold  float64
	DefaultThreshold float64
	MaxHops          int

	SprintDefaultWeeks   int
	EnergyPeakHours      string
	EnergyLowHours       string
	WorkDayStart         int
	WorkDayEnd           int
	DefaultEnergyProfile string
	TimeBlockSlotMinutes int

	InventoryUnusedDays  int
	InventoryReportTopN  int
}

// Service is the knowledge-graph service.
type Service struct {
	driver neo4j.DriverWithContext
	config Config

	embedder *llms.Embedder
	vectors  *vector.Store

	// resolveMu serialises resolution of the same normalised name.
	resolveMu sync.Mutex
	nameLocks map[string]*sync.Mutex

	// resolution cache, cleared per upsert_from_facts batch
	cacheMu sync.Mutex
	cache   map[string]string
}

func NewService(cfg Config) (*Service, error) {
	auth := neo4j.NoAuth()
	if cfg.User != "" {
		auth = neo4j.BasicAuth(cfg.User, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph driver for %s: %w", cfg.URI, err)
	}

	if cfg.PersonThreshold == 0 {
		cfg.PersonThreshold = 0.85
	}
	if cfg.DefaultThreshold == 0 {
		cfg.DefaultThreshold = 0.80
	}
	if cfg.MaxHops == 0 {
		cfg.MaxHops = 3
	}
	if cfg.SprintDefaultWeeks == 0 {
		cfg.SprintDefaultWeeks = 2
	}
	if cfg.EnergyPeakHours == "" {
		cfg.EnergyPeakHours = "7-12"
	}
	if cfg.EnergyLowHours == "" {
		cfg.EnergyLowHours = "14-16"
	}
	if cfg.WorkDayStart == 0 {
		cfg.WorkDayStart = 7
	}
	if cfg.WorkDayEnd == 0 {
		cfg.WorkDayEnd = 22
	}
	if cfg.DefaultEnergyProfile == "" {
		cfg.DefaultEnergyProfile = "normal"
	}
	if cfg.TimeBlockSlotMinutes == 0 {
		cfg.TimeBlockSlotMinutes = 30
	}
	if cfg.InventoryUnusedDays == 0 {
		cfg.InventoryUnusedDays = 90
	}
	if cfg.InventoryReportTopN == 0 {
		cfg.InventoryReportTopN = 10
	}

	return &Service{
		driver:    driver,
		config:    cfg,
		nameLocks: make(map[string]*sync.Mutex),
		cache:     make(map[string]string),
	}, nil
}

// SetVectorBackend wires the embedder and vector store used by entity
// resolution and tag dedup. Called once at startup, after both exist.
func (s *Service) SetVectorBackend(embedder *llms.Embedder, store *vector.Store) {
	s.embedder = embedder
	s.vectors = store
}

// Ping verifies connectivity at startup.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to reach graph store: %w", err)
	}
	return nil
}

func (s *Service) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// EnsureConstraints declares unique constraints out-of-band. Safe to
// call repeatedly.
func (s *Service) EnsureConstraints(ctx context.Context) error {
	constraints := []string{
		"CREATE CONSTRAINT person_name IF NOT EXISTS FOR (n:Person) REQUIRE n.name IS UNIQUE",
		"CREATE CONSTRAINT company_name IF NOT EXISTS FOR (n:Company) REQUIRE n.name IS UNIQUE",
		"CREATE CONSTRAINT project_name IF NOT EXISTS FOR (n:Project) REQUIRE n.name IS UNIQUE",
		"CREATE CONSTRAINT topic_name IF NOT EXISTS FOR (n:Topic) REQUIRE n.name IS UNIQUE",
		"CREATE CONSTRAINT tag_name IF NOT EXISTS FOR (n:Tag) REQUIRE n.name IS UNIQUE",
		"CREATE CONSTRAINT file_hash IF NOT EXISTS FOR (n:File) REQUIRE n.sha256 IS UNIQUE",
		"CREATE CONSTRAINT location_path IF NOT EXISTS FOR (n:Location) REQUIRE n.path IS UNIQUE",
	}

	for _, c := range constraints {
		if _, err := s.write(ctx, c, nil); err != nil {
			return fmt.Errorf("failed to ensure constraint: %w", err)
		}
	}
	return nil
}

// read runs a read query and returns one map per record.
func (s *Service) read(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.config.Database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("graph read failed: %w", err)
	}
	return recordsToMaps(result.Records), nil
}

// write runs a write query and returns one map per record.
func (s *Service) write(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.config.Database))
	if err != nil {
		return nil, fmt.Errorf("graph write failed: %w", err)
	}
	return recordsToMaps(result.Records), nil
}

func recordsToMaps(records []*neo4j.Record) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		m := make(map[string]any, len(rec.Keys))
		for i, key := range rec.Keys {
			m[key] = rec.Values[i]
		}
		out = append(out, m)
	}
	return out
}

// nodeProps returns the property map of a returned node value.
func nodeProps(v any) map[string]any {
	switch n := v.(type) {
	case dbtype.Node:
		return n.Props
	case map[string]any:
		return n
	default:
		return nil
	}
}

// normalizeName lowercases and collapses whitespace for matching.
func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// sanitizeProps enforces the primitive-only property rule: scalars and
// scalar arrays pass through, nested maps serialise to JSON strings,
// arrays of objects become arrays of JSON strings.
func sanitizeProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int, int64, float64, float32:
		return val
	case map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			switch item.(type) {
			case map[string]any, []any:
				b, err := json.Marshal(item)
				if err != nil {
					out[i] = fmt.Sprintf("%v", item)
				} else {
					out[i] = string(b)
				}
			default:
				out[i] = item
			}
		}
		return out
	case []string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// visibleProps strips internal bookkeeping before text rendering.
func visibleProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if internalProps[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// displayName renders "name_ar (name)" when an Arabic surface form is
// present, else the canonical name.
func displayName(props map[string]any) string {
	name, _ := props["name"].(string)
	if name == "" {
		if title, ok := props["title"].(string); ok {
			name = title
		}
	}
	if nameAr, ok := props["name_ar"].(string); ok && nameAr != "" {
		return fmt.Sprintf("%s (%s)", nameAr, name)
	}
	return name
}

// formatContextLine renders one entity for the LLM context. Keys are
// sorted so identical entities always render identically.
func formatContextLine(label string, props map[string]any) string {
	var b strings.Builder
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(displayName(props))

	visible := visibleProps(props)
	keys := make([]string, 0, len(visible))
	for k := range visible {
		if k == "name" || k == "name_ar" || k == "title" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := visible[k]
		if v == nil || v == "" {
			continue
		}
		fmt.Fprintf(&b, ", %s=%v", k, v)
	}
	return b.String()
}
