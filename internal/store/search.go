package store

import (
	"fmt"
	"regexp"
	"strings"
)

// SearchParams defines structured search parameters.
type SearchParams struct {
	Project     string
	Label       string
	NamePattern string // regular expression over name and qualified name
	FilePattern string // glob over file_path
	Limit       int
	Offset      int
}

// SearchResult is a node with edge degree info.
type SearchResult struct {
	Node      *Node
	InDegree  int
	OutDegree int
}

// SearchOutput wraps search results with total count for pagination.
type SearchOutput struct {
	Results []*SearchResult
	Total   int
}

// DefaultSearchLimit caps results when SearchParams.Limit is unset.
const DefaultSearchLimit = 100

// SearchNodes filters a project's nodes by label, file glob and name
// pattern and pages the matches by id.
func (s *Store) SearchNodes(params SearchParams) (*SearchOutput, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultSearchLimit
	}
	var re *regexp.Regexp
	if params.NamePattern != "" {
		var err error
		if re, err = regexp.Compile(params.NamePattern); err != nil {
			return nil, fmt.Errorf("invalid name pattern: %w", err)
		}
	}

	conditions := []string{"project = ?"}
	args := []any{params.Project}
	if params.Label != "" {
		conditions = append(conditions, "label = ?")
		args = append(args, params.Label)
	}
	if params.FilePattern != "" {
		conditions = append(conditions, "file_path LIKE ?")
		args = append(args, globToLike(params.FilePattern))
	}
	query := fmt.Sprintf("SELECT %s FROM nodes WHERE %s ORDER BY id", nodeColumns, strings.Join(conditions, " AND "))

	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	nodes, err := scanNodes(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	var matched []*Node
	for _, n := range nodes {
		if re == nil || re.MatchString(n.Name) || re.MatchString(n.QualifiedName) {
			matched = append(matched, n)
		}
	}

	total := len(matched)
	start := min(params.Offset, total)
	end := min(start+params.Limit, total)
	out := &SearchOutput{Total: total}
	for _, n := range matched[start:end] {
		sr := &SearchResult{Node: n}
		if err := s.q.QueryRow("SELECT COUNT(*) FROM edges WHERE project=? AND target_id=?", n.Project, n.ID).Scan(&sr.InDegree); err != nil {
			return nil, fmt.Errorf("in degree: %w", err)
		}
		if err := s.q.QueryRow("SELECT COUNT(*) FROM edges WHERE project=? AND source_id=?", n.Project, n.ID).Scan(&sr.OutDegree); err != nil {
			return nil, fmt.Errorf("out degree: %w", err)
		}
		out.Results = append(out.Results, sr)
	}
	return out, nil
}

// globToLike converts a glob pattern to SQL LIKE pattern.
func globToLike(pattern string) string {
	result := strings.ReplaceAll(pattern, "**", "%")
	result = strings.ReplaceAll(result, "*", "%")
	result = strings.ReplaceAll(result, "?", "_")
	return result
}
