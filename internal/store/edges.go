package store

import (
	"database/sql"
	"fmt"
)

const edgeColumns = "id, project, source_id, target_id, type, properties"

// FindEdgesBySource finds edges leaving a node, optionally of one type.
func (s *Store) FindEdgesBySource(project, sourceID, edgeType string) ([]*Edge, error) {
	query := "SELECT " + edgeColumns + " FROM edges WHERE project=? AND source_id=?"
	args := []any{project, sourceID}
	if edgeType != "" {
		query += " AND type=?"
		args = append(args, edgeType)
	}
	rows, err := s.q.Query(query+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("find edges by source: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// FindEdgesByTarget finds edges entering a node, optionally of one type.
func (s *Store) FindEdgesByTarget(project, targetID, edgeType string) ([]*Edge, error) {
	query := "SELECT " + edgeColumns + " FROM edges WHERE project=? AND target_id=?"
	args := []any{project, targetID}
	if edgeType != "" {
		query += " AND type=?"
		args = append(args, edgeType)
	}
	rows, err := s.q.Query(query+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("find edges by target: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// CountEdges returns the number of edges in a project.
func (s *Store) CountEdges(project string) (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM edges WHERE project=?", project).Scan(&count)
	return count, err
}

func scanEdges(rows *sql.Rows) ([]*Edge, error) {
	var out []*Edge
	for rows.Next() {
		var e Edge
		var props string
		if err := rows.Scan(&e.ID, &e.Project, &e.SourceID, &e.TargetID, &e.Type, &props); err != nil {
			return nil, err
		}
		e.Properties = unmarshalProps(props)
		out = append(out, &e)
	}
	return out, rows.Err()
}
