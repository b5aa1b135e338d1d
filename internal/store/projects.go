package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned for unknown projects.
var ErrNotFound = errors.New("not found")

// Project is one stored ingestion.
type Project struct {
	Name      string `json:"name"`
	IndexedAt string `json:"indexed_at"`
	RootPath  string `json:"root_path,omitempty"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
	// Options are the ingest settings a reindex replays.
	Options IngestOptions `json:"ingest_options"`
}

// IngestOptions are the per-run ingest settings recorded with a project.
type IngestOptions struct {
	ConfigPath      string   `json:"config_path,omitempty"`
	IgnoreFile      string   `json:"ignore_file,omitempty"`
	DirectoryFilter string   `json:"directory_filter,omitempty"`
	FileExtensions  []string `json:"file_extensions,omitempty"`
}

// SetProjectRoot records the directory a project was loaded from and the
// options it was ingested with.
func (s *Store) SetProjectRoot(name, rootPath string, opts IngestOptions) error {
	b, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("encode ingest options: %w", err)
	}
	res, err := s.q.Exec("UPDATE projects SET root_path=?, ingest_options=? WHERE name=?", rootPath, string(b), name)
	if err != nil {
		return fmt.Errorf("set project root: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	return nil
}

// GetProject returns a project by name.
func (s *Store) GetProject(name string) (*Project, error) {
	p, err := scanProject(s.q.QueryRow("SELECT "+projectColumns+" FROM projects WHERE name=?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	return p, err
}

// ListProjects returns all stored projects by name.
func (s *Store) ListProjects() ([]*Project, error) {
	rows, err := s.q.Query("SELECT " + projectColumns + " FROM projects ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

const projectColumns = "name, indexed_at, root_path, ingest_options, node_count, edge_count"

func scanProject(row scanner) (*Project, error) {
	var p Project
	var opts string
	if err := row.Scan(&p.Name, &p.IndexedAt, &p.RootPath, &opts, &p.NodeCount, &p.EdgeCount); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(opts), &p.Options); err != nil {
		return nil, fmt.Errorf("project %q ingest options: %w", p.Name, err)
	}
	return &p, nil
}

// DeleteProject deletes a project and all of its nodes and edges.
func (s *Store) DeleteProject(name string) error {
	_, err := s.q.Exec("DELETE FROM projects WHERE name=?", name)
	return err
}
