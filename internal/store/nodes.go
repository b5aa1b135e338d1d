package store

import (
	"database/sql"
	"errors"
	"fmt"
)

const nodeColumns = "id, project, label, name, qualified_name, file_path, start_line, end_line, properties"

// FindNodeByID finds a node by its graph id.
func (s *Store) FindNodeByID(project, id string) (*Node, error) {
	row := s.q.QueryRow("SELECT "+nodeColumns+" FROM nodes WHERE project=? AND id=?", project, id)
	return scanNode(row)
}

// FindNodesByName finds nodes by project and name.
func (s *Store) FindNodesByName(project, name string) ([]*Node, error) {
	rows, err := s.q.Query("SELECT "+nodeColumns+" FROM nodes WHERE project=? AND name=? ORDER BY id", project, name)
	if err != nil {
		return nil, fmt.Errorf("find by name: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// CountNodes returns the number of nodes in a project.
func (s *Store) CountNodes(project string) (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM nodes WHERE project=?", project).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNodeFrom(sc scanner) (*Node, error) {
	var n Node
	var props string
	if err := sc.Scan(&n.ID, &n.Project, &n.Label, &n.Name, &n.QualifiedName, &n.FilePath, &n.StartLine, &n.EndLine, &props); err != nil {
		return nil, err
	}
	n.Properties = unmarshalProps(props)
	return &n, nil
}

// scanNode returns nil, nil when the row does not exist.
func scanNode(row *sql.Row) (*Node, error) {
	n, err := scanNodeFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

func scanNodes(rows *sql.Rows) ([]*Node, error) {
	var out []*Node
	for rows.Next() {
		n, err := scanNodeFrom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
