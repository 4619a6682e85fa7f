// Package backup snapshots the three stores (graph, vectors, memory)
// into timestamped directories and restores from them.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/khalid729/Personal-Life-RAG/pkg/graph"
	"github.com/khalid729/Personal-Life-RAG/pkg/memory"
	"github.com/khalid729/Personal-Life-RAG/pkg/vector"
)

const (
	timestampLayout = "20060102_150405"
	scrollBatch     = 256
)

type Config struct {
	Dir           string
	RetentionDays int
}

type Service struct {
	graph   *graph.Service
	vectors *vector.Store
	memory  *memory.Service
	cfg     Config
}

func NewService(g *graph.Service, vectors *vector.Store, mem *memory.Service, cfg Config) *Service {
	if cfg.Dir == "" {
		cfg.Dir = filepath.Join("data", "backups")
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	return &Service{graph: g, vectors: vectors, memory: mem, cfg: cfg}
}

// Info describes one stored backup.
type Info struct {
	Timestamp string `json:"timestamp"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	Vectors   int    `json:"vectors"`
	SizeBytes int64  `json:"size_bytes"`
}

type manifest struct {
	CreatedAt string `json:"created_at"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	Vectors   int    `json:"vectors"`
	MemKeys   int    `json:"memory_keys"`
}

// Create writes a full snapshot and returns its timestamp id.
func (s *Service) Create(ctx context.Context) (*Info, error) {
	stamp := time.Now().UTC().Format(timestampLayout)
	dir := filepath.Join(s.cfg.Dir, stamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup dir: %w", err)
	}

	dump, err := s.graph.DumpGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph dump failed: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "graph.json"), dump); err != nil {
		return nil, err
	}

	var points []vector.Point
	err = s.vectors.ScrollAll(ctx, scrollBatch, func(batch []vector.Point) error {
		points = append(points, batch...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vector scroll failed: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "vector.json"), points); err != nil {
		return nil, err
	}

	entries, err := s.memory.Dump(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory dump failed: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "memory.json"), entries); err != nil {
		return nil, err
	}

	m := manifest{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Nodes:     len(dump.Nodes),
		Edges:     len(dump.Edges),
		Vectors:   len(points),
		MemKeys:   len(entries),
	}
	if err := writeJSON(filepath.Join(dir, "manifest.json"), m); err != nil {
		return nil, err
	}

	slog.Info("backup created", "timestamp", stamp,
		"nodes", m.Nodes, "edges", m.Edges, "vectors", m.Vectors)
	return &Info{
		Timestamp: stamp,
		Nodes:     m.Nodes,
		Edges:     m.Edges,
		Vectors:   m.Vectors,
		SizeBytes: dirSize(dir),
	}, nil
}

// List returns stored backups, newest first.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if os.IsNotExist(err) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup dir: %w", err)
	}

	var infos []Info
	for _, e := range entries {
		if !e.IsDir() || !validTimestamp(e.Name()) {
			continue
		}
		dir := filepath.Join(s.cfg.Dir, e.Name())
		info := Info{Timestamp: e.Name(), SizeBytes: dirSize(dir)}

		var m manifest
		if raw, err := os.ReadFile(filepath.Join(dir, "manifest.json")); err == nil {
			if json.Unmarshal(raw, &m) == nil {
				info.Nodes = m.Nodes
				info.Edges = m.Edges
				info.Vectors = m.Vectors
			}
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Timestamp > infos[j].Timestamp })
	return infos, nil
}

// Restore loads the snapshot back into all three stores. The graph and
// memory are replaced; vectors are upserted over the live collection.
func (s *Service) Restore(ctx context.Context, timestamp string) (map[string]any, error) {
	if !validTimestamp(timestamp) {
		return nil, fmt.Errorf("invalid backup timestamp: %s", timestamp)
	}
	dir := filepath.Join(s.cfg.Dir, timestamp)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("backup not found: %s", timestamp)
	}

	var dump graph.GraphDump
	if err := readJSON(filepath.Join(dir, "graph.json"), &dump); err != nil {
		return nil, err
	}
	nodes, edges := s.graph.RestoreGraph(ctx, &dump)

	var points []vector.Point
	if err := readJSON(filepath.Join(dir, "vector.json"), &points); err != nil {
		return nil, err
	}
	restored := 0
	for _, p := range points {
		if err := s.vectors.Upsert(ctx, p.ID, p.Vector, p.Payload); err != nil {
			slog.Warn("vector restore failed for point", "id", p.ID, "error", err)
			continue
		}
		restored++
	}

	var entries []memory.DumpEntry
	if err := readJSON(filepath.Join(dir, "memory.json"), &entries); err != nil {
		return nil, err
	}
	if err := s.memory.Restore(ctx, entries); err != nil {
		return nil, fmt.Errorf("memory restore failed: %w", err)
	}

	slog.Info("backup restored", "timestamp", timestamp,
		"nodes", nodes, "edges", edges, "vectors", restored)
	return map[string]any{
		"timestamp":        timestamp,
		"nodes_restored":   nodes,
		"edges_restored":   edges,
		"vectors_restored": restored,
		"memory_keys":      len(entries),
	}, nil
}

// Prune removes backups older than the retention window. Directory
// names sort lexically by age, so the cutoff is a string compare.
func (s *Service) Prune(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().
		AddDate(0, 0, -s.cfg.RetentionDays).
		Format(timestampLayout)

	entries, err := os.ReadDir(s.cfg.Dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read backup dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !validTimestamp(e.Name()) {
			continue
		}
		if e.Name() >= cutoff {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.cfg.Dir, e.Name())); err != nil {
			slog.Warn("failed to prune backup", "timestamp", e.Name(), "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("pruned old backups", "removed", removed, "retention_days", s.cfg.RetentionDays)
	}
	return removed, nil
}

func validTimestamp(name string) bool {
	if len(name) != len(timestampLayout) {
		return false
	}
	_, err := time.Parse(timestampLayout, name)
	return err == nil
}

func writeJSON(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func dirSize(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
