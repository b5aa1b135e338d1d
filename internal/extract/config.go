package extract

import (
	"bytes"
	"fmt"
	"sort"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/DeusData/codegraph-ingest/internal/lang"
)

// ConfigKeys summarises a config file as its sorted top-level keys. A
// document whose root is not a mapping has no keys.
func ConfigKeys(l lang.Language, content []byte) ([]string, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil
	}
	var keys []string
	switch l {
	case lang.TOML:
		var doc map[string]any
		if err := toml.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("toml: %w", err)
		}
		for k := range doc {
			keys = append(keys, k)
		}
	case lang.YAML, lang.JSON:
		// YAML is a superset of JSON, so one decoder serves both.
		var doc yaml.Node
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", l, err)
		}
		root := &doc
		if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
			root = root.Content[0]
		}
		if root.Kind != yaml.MappingNode {
			return nil, nil
		}
		for i := 0; i+1 < len(root.Content); i += 2 {
			keys = append(keys, root.Content[i].Value)
		}
	default:
		return nil, fmt.Errorf("%w: %s is not a config language", ErrUnsupported, l)
	}
	sort.Strings(keys)
	return keys, nil
}
