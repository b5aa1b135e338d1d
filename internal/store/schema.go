package store

import "fmt"

// SchemaInfo summarises the shape of one stored graph.
type SchemaInfo struct {
	NodeLabels           []LabelCount `json:"node_labels"`
	RelationshipTypes    []TypeCount  `json:"relationship_types"`
	RelationshipPatterns []string     `json:"relationship_patterns"`
	Languages            []KeyCount   `json:"languages,omitempty"`
	CallStrategies       []KeyCount   `json:"call_strategies,omitempty"`
	SampleFunctionNames  []string     `json:"sample_function_names"`
	SampleClassNames     []string     `json:"sample_class_names"`
	SampleQualifiedNames []string     `json:"sample_qualified_names"`
}

// LabelCount is a label with its count.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TypeCount is a relationship type with its count.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// KeyCount is a property value with its count.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

const maxPatterns = 25

// GetSchema returns graph schema statistics for a project.
func (s *Store) GetSchema(project string) (*SchemaInfo, error) {
	info := &SchemaInfo{}
	var err error
	if info.NodeLabels, err = s.LabelCounts(project); err != nil {
		return nil, err
	}
	if info.RelationshipTypes, err = s.TypeCounts(project); err != nil {
		return nil, err
	}
	if info.RelationshipPatterns, err = s.relPatterns(project); err != nil {
		return nil, err
	}
	if info.Languages, err = s.countKeys("languages",
		`SELECT json_extract(properties, '$.language') AS k, COUNT(*) AS cnt FROM nodes
		 WHERE project=? AND label='File' AND k IS NOT NULL AND k != ''
		 GROUP BY k ORDER BY cnt DESC, k`, project); err != nil {
		return nil, err
	}
	if info.CallStrategies, err = s.countKeys("call strategies",
		`SELECT json_extract(properties, '$.strategy') AS k, COUNT(*) AS cnt FROM edges
		 WHERE project=? AND type='CALLS' AND k IS NOT NULL
		 GROUP BY k ORDER BY cnt DESC, k`, project); err != nil {
		return nil, err
	}
	if info.SampleFunctionNames, err = s.column("sample functions",
		"SELECT DISTINCT name FROM nodes WHERE project=? AND label='Function' AND json_extract(properties, '$.type') IS NULL ORDER BY name LIMIT 30", project); err != nil {
		return nil, err
	}
	if info.SampleClassNames, err = s.column("sample classes",
		"SELECT DISTINCT name FROM nodes WHERE project=? AND label='Class' AND json_extract(properties, '$.type') IS NULL ORDER BY name LIMIT 20", project); err != nil {
		return nil, err
	}
	if info.SampleQualifiedNames, err = s.column("sample qns",
		"SELECT json_extract(properties, '$.fqn') AS fqn FROM nodes WHERE project=? AND fqn IS NOT NULL ORDER BY id LIMIT 5", project); err != nil {
		return nil, err
	}
	return info, nil
}

// LabelCounts returns the node count per label, largest first.
func (s *Store) LabelCounts(project string) ([]LabelCount, error) {
	kc, err := s.countKeys("labels", "SELECT label, COUNT(*) AS cnt FROM nodes WHERE project=? GROUP BY label ORDER BY cnt DESC, label", project)
	if err != nil {
		return nil, err
	}
	out := make([]LabelCount, len(kc))
	for i, c := range kc {
		out[i] = LabelCount{Label: c.Key, Count: c.Count}
	}
	return out, nil
}

// TypeCounts returns the edge count per relationship type, largest first.
func (s *Store) TypeCounts(project string) ([]TypeCount, error) {
	kc, err := s.countKeys("edge types", "SELECT type, COUNT(*) AS cnt FROM edges WHERE project=? GROUP BY type ORDER BY cnt DESC, type", project)
	if err != nil {
		return nil, err
	}
	out := make([]TypeCount, len(kc))
	for i, c := range kc {
		out[i] = TypeCount{Type: c.Key, Count: c.Count}
	}
	return out, nil
}

// relPatterns returns the most frequent (source label, type, target label)
// triples.
func (s *Store) relPatterns(project string) ([]string, error) {
	rows, err := s.q.Query(`SELECT src.label, e.type, tgt.label, COUNT(*) AS cnt FROM edges e
		JOIN nodes src ON src.project = e.project AND src.id = e.source_id
		JOIN nodes tgt ON tgt.project = e.project AND tgt.id = e.target_id
		WHERE e.project=?
		GROUP BY src.label, e.type, tgt.label
		ORDER BY cnt DESC, src.label, e.type, tgt.label
		LIMIT ?`, project, maxPatterns)
	if err != nil {
		return nil, fmt.Errorf("schema patterns: %w", err)
	}
	defer rows.Close()
	var patterns []string
	for rows.Next() {
		var src, rel, tgt string
		var cnt int
		if err := rows.Scan(&src, &rel, &tgt, &cnt); err != nil {
			return nil, err
		}
		patterns = append(patterns, fmt.Sprintf("(:%s)-[:%s]->(:%s)  [%dx]", src, rel, tgt, cnt))
	}
	return patterns, rows.Err()
}

// countKeys runs a two-column (key, count) query.
func (s *Store) countKeys(what, query string, args ...any) ([]KeyCount, error) {
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", what, err)
	}
	defer rows.Close()
	var out []KeyCount
	for rows.Next() {
		var kc KeyCount
		if err := rows.Scan(&kc.Key, &kc.Count); err != nil {
			return nil, err
		}
		out = append(out, kc)
	}
	return out, rows.Err()
}

// column runs a single-column text query.
func (s *Store) column(what, query string, args ...any) ([]string, error) {
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", what, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
