package graph

import (
	"context"
	"fmt"
)

// GraphNode is one node in a JSON graph export.
type GraphNode struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// GraphEdge is one relationship in a JSON graph export.
type GraphEdge struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// GraphExport is the nodes-and-edges shape consumed by visualisation
// frontends and the PNG renderer.
type GraphExport struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// ExportGraph exports a subgraph. A center name wins over an entity
// type; with neither the whole graph is exported up to limit.
func (s *Service) ExportGraph(ctx context.Context, entityType, center string, hops, limit int) (*GraphExport, error) {
	if hops < 1 {
		hops = 2
	}
	if hops > 5 {
		hops = 5
	}
	if limit < 1 || limit > 5000 {
		limit = 500
	}

	switch {
	case center != "":
		return s.exportEgoGraph(ctx, center, hops, limit)
	case entityType != "":
		return s.exportByType(ctx, entityType, limit)
	default:
		return s.exportFullGraph(ctx, limit)
	}
}

func (s *Service) exportFullGraph(ctx context.Context, limit int) (*GraphExport, error) {
	out := &GraphExport{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	seen := map[string]bool{}

	rows, err := s.read(ctx, `
	MATCH (n)
	RETURN elementId(n) AS nid, labels(n) AS lbls, properties(n) AS props
	LIMIT $limit`, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		n := exportNode(r)
		seen[n.ID] = true
		out.Nodes = append(out.Nodes, n)
	}

	rows, err = s.read(ctx, `
	MATCH (a)-[r]->(b)
	RETURN elementId(a) AS src, type(r) AS rel, properties(r) AS props, elementId(b) AS tgt
	LIMIT $limit`, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		e := exportEdge(r)
		if seen[e.Source] && seen[e.Target] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out, nil
}

func (s *Service) exportByType(ctx context.Context, entityType string, limit int) (*GraphExport, error) {
	if !validLabel(entityType) {
		return nil, fmt.Errorf("invalid entity type %q", entityType)
	}

	out := &GraphExport{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	seen := map[string]bool{}

	q := fmt.Sprintf(`
	MATCH (n:%s)
	RETURN elementId(n) AS nid, labels(n) AS lbls, properties(n) AS props
	LIMIT $limit`, entityType)
	rows, err := s.read(ctx, q, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		n := exportNode(r)
		seen[n.ID] = true
		out.Nodes = append(out.Nodes, n)
	}

	q = fmt.Sprintf(`
	MATCH (a:%s)-[r]-(b)
	RETURN elementId(a) AS src, type(r) AS rel, properties(r) AS props,
	       elementId(b) AS tgt, labels(b) AS tgt_lbls, properties(b) AS tgt_props
	LIMIT $limit`, entityType)
	rows, err = s.read(ctx, q, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		e := exportEdge(r)
		if !seen[e.Target] {
			seen[e.Target] = true
			props, _ := r["tgt_props"].(map[string]any)
			out.Nodes = append(out.Nodes, GraphNode{
				ID:         e.Target,
				Label:      nodeDisplayLabel(props, e.Target),
				Type:       firstLabel(r["tgt_lbls"]),
				Properties: props,
			})
		}
		out.Edges = append(out.Edges, e)
	}
	return out, nil
}

func (s *Service) exportEgoGraph(ctx context.Context, center string, hops, limit int) (*GraphExport, error) {
	out := &GraphExport{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	seen := map[string]bool{}

	q := fmt.Sprintf(`
	MATCH (c) WHERE c.name = $name
	OPTIONAL MATCH (c)-[*1..%d]-(n)
	WITH c, n
	UNWIND [c, n] AS node
	WITH DISTINCT node WHERE node IS NOT NULL
	RETURN elementId(node) AS nid, labels(node) AS lbls, properties(node) AS props
	LIMIT $limit`, hops)
	rows, err := s.read(ctx, q, map[string]any{"name": center, "limit": limit})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		n := exportNode(r)
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		ids = append(ids, n.ID)
		out.Nodes = append(out.Nodes, n)
	}

	if len(ids) > 0 {
		rows, err = s.read(ctx, `
		MATCH (a)-[r]->(b)
		WHERE elementId(a) IN $ids AND elementId(b) IN $ids
		RETURN elementId(a) AS src, type(r) AS rel, properties(r) AS props, elementId(b) AS tgt
		LIMIT $limit`, map[string]any{"ids": ids, "limit": limit})
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out.Edges = append(out.Edges, exportEdge(r))
		}
	}
	return out, nil
}

// SchemaSummary returns node labels and relationship types with counts.
func (s *Service) SchemaSummary(ctx context.Context) (map[string]any, error) {
	labelCounts, totalNodes, err := s.labelCounts(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.read(ctx, "MATCH ()-[r]->() RETURN type(r) AS t, count(r) AS cnt", nil)
	if err != nil {
		return nil, err
	}
	relCounts := map[string]int{}
	totalEdges := 0
	for _, r := range rows {
		t, _ := r["t"].(string)
		n := asInt(r["cnt"])
		relCounts[t] = n
		totalEdges += n
	}

	return map[string]any{
		"node_labels":        labelCounts,
		"relationship_types": relCounts,
		"total_nodes":        totalNodes,
		"total_edges":        totalEdges,
	}, nil
}

// Stats returns total node and edge counts plus a per-type breakdown.
func (s *Service) Stats(ctx context.Context) (map[string]any, error) {
	byType, totalNodes, err := s.labelCounts(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.read(ctx, "MATCH ()-[r]->() RETURN count(r) AS cnt", nil)
	if err != nil {
		return nil, err
	}
	totalEdges := 0
	if len(rows) > 0 {
		totalEdges = asInt(rows[0]["cnt"])
	}

	return map[string]any{
		"total_nodes": totalNodes,
		"total_edges": totalEdges,
		"by_type":     byType,
	}, nil
}

func (s *Service) labelCounts(ctx context.Context) (map[string]int, int, error) {
	rows, err := s.read(ctx, "MATCH (n) RETURN labels(n) AS lbls, count(n) AS cnt", nil)
	if err != nil {
		return nil, 0, err
	}
	counts := map[string]int{}
	total := 0
	for _, r := range rows {
		label := firstLabel(r["lbls"])
		n := asInt(r["cnt"])
		counts[label] += n
		total += n
	}
	return counts, total, nil
}

func exportNode(row map[string]any) GraphNode {
	id, _ := row["nid"].(string)
	props, _ := row["props"].(map[string]any)
	return GraphNode{
		ID:         id,
		Label:      nodeDisplayLabel(props, id),
		Type:       firstLabel(row["lbls"]),
		Properties: props,
	}
}

func exportEdge(row map[string]any) GraphEdge {
	src, _ := row["src"].(string)
	tgt, _ := row["tgt"].(string)
	rel, _ := row["rel"].(string)
	props, _ := row["props"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	return GraphEdge{Source: src, Target: tgt, Type: rel, Properties: props}
}

func nodeDisplayLabel(props map[string]any, fallback string) string {
	for _, key := range []string{"name", "description", "title"} {
		if v, ok := props[key].(string); ok && v != "" {
			return v
		}
	}
	return fallback
}

func firstLabel(v any) string {
	switch lbls := v.(type) {
	case []any:
		if len(lbls) > 0 {
			if s, ok := lbls[0].(string); ok {
				return s
			}
		}
	case []string:
		if len(lbls) > 0 {
			return lbls[0]
		}
	}
	return ""
}

// validLabel guards label interpolation into Cypher.
func validLabel(label string) bool {
	if label == "" {
		return false
	}
	for _, r := range label {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}
