package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DeusData/codegraph-ingest/internal/graph"
)

// SQLite allows 999 bound variables per statement.
const maxVars = 999

const (
	nodeCols = 9
	edgeCols = 6
)

// WriteGraph replaces everything stored for project with g, in one
// transaction.
func (s *Store) WriteGraph(ctx context.Context, project string, g *graph.Graph) error {
	nodes := g.Nodes()
	rels := g.Relationships()
	err := s.WithTransaction(ctx, func(tx *Store) error {
		if _, err := tx.q.ExecContext(ctx, "DELETE FROM projects WHERE name=?", project); err != nil {
			return fmt.Errorf("clear project: %w", err)
		}
		if _, err := tx.q.ExecContext(ctx,
			"INSERT INTO projects (name, indexed_at, node_count, edge_count) VALUES (?, ?, ?, ?)",
			project, Now(), len(nodes), len(rels)); err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		if err := tx.insertNodes(ctx, project, nodes); err != nil {
			return err
		}
		return tx.insertEdges(ctx, project, rels)
	})
	if err != nil {
		return err
	}
	slog.Info("store.write", "project", project, "nodes", len(nodes), "edges", len(rels))
	return nil
}

func placeholders(rows, cols int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?,", cols), ",") + ")"
	return strings.TrimSuffix(strings.Repeat(row+",", rows), ",")
}

func (s *Store) insertNodes(ctx context.Context, project string, nodes []*graph.Node) error {
	batch := maxVars / nodeCols
	for i := 0; i < len(nodes); i += batch {
		chunk := nodes[i:min(i+batch, len(nodes))]
		args := make([]any, 0, len(chunk)*nodeCols)
		for _, n := range chunk {
			qn, _ := n.Properties["qualified_name"].(string)
			start, _ := n.Properties["start_line"].(int)
			end, _ := n.Properties["end_line"].(int)
			args = append(args, project, n.ID, n.Label.String(), n.Name(), qn, n.FilePath(), start, end, marshalProps(n.Properties))
		}
		query := "INSERT INTO nodes (project, id, label, name, qualified_name, file_path, start_line, end_line, properties) VALUES " +
			placeholders(len(chunk), nodeCols)
		if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert nodes: %w", err)
		}
	}
	return nil
}

func (s *Store) insertEdges(ctx context.Context, project string, rels []*graph.Relationship) error {
	batch := maxVars / edgeCols
	for i := 0; i < len(rels); i += batch {
		chunk := rels[i:min(i+batch, len(rels))]
		args := make([]any, 0, len(chunk)*edgeCols)
		for _, r := range chunk {
			args = append(args, project, r.ID, r.Source, r.Target, r.Type.String(), marshalProps(r.Properties))
		}
		query := "INSERT INTO edges (project, id, source_id, target_id, type, properties) VALUES " +
			placeholders(len(chunk), edgeCols)
		if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert edges: %w", err)
		}
	}
	return nil
}
