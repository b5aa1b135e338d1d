package pipeline

import (
	"log/slog"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/DeusData/codegraph-ingest/internal/lang"
)

// Filter narrows the input before any pass runs.
type Filter struct {
	// DirectoryFilter keeps only paths under this directory prefix.
	DirectoryFilter string
	// FileExtensions keeps only these extensions (".py" or "py").
	FileExtensions []string
}

// Apply returns the paths that pass the filter, preserving order.
func (f *Filter) Apply(paths []string) []string {
	if f == nil || (f.DirectoryFilter == "" && len(f.FileExtensions) == 0) {
		return paths
	}
	dir := NormalizePath(f.DirectoryFilter)
	exts := make(map[string]bool, len(f.FileExtensions))
	for _, e := range f.FileExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		np := NormalizePath(p)
		if dir != "" && np != dir && !strings.HasPrefix(np, dir+"/") {
			continue
		}
		if len(exts) > 0 && !exts[strings.ToLower(path.Ext(np))] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ignoreMatcher matches paths against configured ignore patterns. Every
// pattern is a substring match; patterns with glob metacharacters also
// match as doublestar globs.
type ignoreMatcher struct {
	substrings []string
	globs      []string
}

func newIgnoreMatcher(patterns []string) *ignoreMatcher {
	m := &ignoreMatcher{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		m.substrings = append(m.substrings, p)
		if strings.ContainsAny(p, "*?[{") {
			if !doublestar.ValidatePattern(p) {
				slog.Warn("filter.pattern.invalid", "pattern", p)
				continue
			}
			m.globs = append(m.globs, p)
		}
	}
	return m
}

// Match reports whether p is ignored.
func (m *ignoreMatcher) Match(p string) bool {
	for _, s := range m.substrings {
		if strings.Contains(p, s) {
			return true
		}
	}
	for _, g := range m.globs {
		if ok, _ := doublestar.Match(g, p); ok {
			return true
		}
	}
	return false
}

// processable reports whether the parse pass should submit p: a known
// source or config extension, not ignored, with non-blank content.
func processable(p string, contents map[string]string, ignore *ignoreMatcher) (string, bool) {
	if !lang.IsProcessable(p) || ignore.Match(p) {
		return "", false
	}
	c, ok := contents[p]
	if !ok || strings.TrimSpace(c) == "" {
		return "", false
	}
	return c, true
}
