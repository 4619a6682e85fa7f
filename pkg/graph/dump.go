package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// DumpedNode and DumpedEdge form the portable graph dump used by the
// backup service. Edges reference nodes by key value, not internal id,
// so a dump restores cleanly into a fresh store.
type DumpedNode struct {
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

type DumpedEdge struct {
	SourceName   string         `json:"source_name"`
	SourceLabels []string       `json:"source_labels"`
	RelType      string         `json:"rel_type"`
	RelProps     map[string]any `json:"rel_properties"`
	TargetName   string         `json:"target_name"`
	TargetLabels []string       `json:"target_labels"`
}

type GraphDump struct {
	Nodes []DumpedNode `json:"nodes"`
	Edges []DumpedEdge `json:"edges"`
}

// DumpGraph exports every node and relationship for backup.
func (s *Service) DumpGraph(ctx context.Context) (*GraphDump, error) {
	dump := &GraphDump{Nodes: []DumpedNode{}, Edges: []DumpedEdge{}}

	rows, err := s.read(ctx, "MATCH (n) RETURN labels(n) AS lbls, properties(n) AS props", nil)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		props, _ := r["props"].(map[string]any)
		dump.Nodes = append(dump.Nodes, DumpedNode{
			Labels:     stringSlice(r["lbls"]),
			Properties: props,
		})
	}

	rows, err = s.read(ctx, `
	MATCH (a)-[r]->(b)
	RETURN coalesce(a.name, a.title, a.sha256, a.path) AS src,
	       labels(a) AS src_lbls,
	       type(r) AS rel, properties(r) AS rel_props,
	       coalesce(b.name, b.title, b.sha256, b.path) AS tgt,
	       labels(b) AS tgt_lbls`, nil)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		src, _ := r["src"].(string)
		tgt, _ := r["tgt"].(string)
		if src == "" || tgt == "" {
			continue
		}
		rel, _ := r["rel"].(string)
		relProps, _ := r["rel_props"].(map[string]any)
		if relProps == nil {
			relProps = map[string]any{}
		}
		dump.Edges = append(dump.Edges, DumpedEdge{
			SourceName:   src,
			SourceLabels: stringSlice(r["src_lbls"]),
			RelType:      rel,
			RelProps:     relProps,
			TargetName:   tgt,
			TargetLabels: stringSlice(r["tgt_lbls"]),
		})
	}
	return dump, nil
}

// RestoreGraph merges a dump back into the store. MERGE keeps the
// restore idempotent over existing data. Individual failures are
// logged, not fatal.
func (s *Service) RestoreGraph(ctx context.Context, dump *GraphDump) (nodes, edges int) {
	for _, n := range dump.Nodes {
		if len(n.Labels) == 0 || len(n.Properties) == 0 {
			continue
		}
		label := n.Labels[0]
		if !validLabel(label) {
			continue
		}
		keyField, keyVal := restoreKey(label, n.Properties)
		if keyVal == "" {
			continue
		}

		params := map[string]any{"key_val": keyVal}
		var setParts []string
		for k, v := range n.Properties {
			if k == keyField {
				continue
			}
			safe := safeParamName(k)
			params["p_"+safe] = v
			setParts = append(setParts, fmt.Sprintf("n.%s = $p_%s", k, safe))
		}
		q := fmt.Sprintf("MERGE (n:%s {%s: $key_val})", label, keyField)
		if len(setParts) > 0 {
			q += " SET " + strings.Join(setParts, ", ")
		}
		if _, err := s.write(ctx, q, params); err != nil {
			slog.Debug("node restore skipped", "label", label, "key", keyVal, "error", err)
			continue
		}
		nodes++
	}

	for _, e := range dump.Edges {
		srcLabel, tgtLabel := "Entity", "Entity"
		if len(e.SourceLabels) > 0 {
			srcLabel = e.SourceLabels[0]
		}
		if len(e.TargetLabels) > 0 {
			tgtLabel = e.TargetLabels[0]
		}
		relType := e.RelType
		if relType == "" {
			relType = "RELATED_TO"
		}
		if e.SourceName == "" || e.TargetName == "" ||
			!validLabel(srcLabel) || !validLabel(tgtLabel) || !validLabel(relType) {
			continue
		}

		params := map[string]any{"src": e.SourceName, "tgt": e.TargetName}
		var setParts []string
		for k, v := range e.RelProps {
			safe := safeParamName(k)
			params["r_"+safe] = v
			setParts = append(setParts, fmt.Sprintf("r.%s = $r_%s", k, safe))
		}
		q := fmt.Sprintf(`
		MATCH (a:%s {%s: $src})
		MATCH (b:%s {%s: $tgt})
		MERGE (a)-[r:%s]->(b)`, srcLabel, keyFieldFor(srcLabel), tgtLabel, keyFieldFor(tgtLabel), relType)
		if len(setParts) > 0 {
			q += " SET " + strings.Join(setParts, ", ")
		}
		if _, err := s.write(ctx, q, params); err != nil {
			slog.Debug("edge restore skipped", "rel", relType, "src", e.SourceName, "error", err)
			continue
		}
		edges++
	}

	slog.Info("graph restored", "nodes", nodes, "edges", edges)
	return nodes, edges
}

// restoreKey picks the MERGE key for a dumped node, preferring the
// label's canonical key field and falling back to whatever identifying
// property the node carries.
func restoreKey(label string, props map[string]any) (field, value string) {
	candidates := []string{keyFieldFor(label), "name", "title", "description"}
	for _, f := range candidates {
		if v, ok := props[f].(string); ok && v != "" {
			return f, v
		}
	}
	return "", ""
}

func safeParamName(k string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(k)
}

func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
