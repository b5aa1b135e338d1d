package parser

import (
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codegraph-ingest/internal/lang"
)

// DefaultQueryCacheSize bounds the compiled batteries one session keeps.
const DefaultQueryCacheSize = 16

// CompiledQuery is one named query of a battery.
type CompiledQuery struct {
	Name  string
	Query *tree_sitter.Query
}

// Battery is the compiled query set for one language. Queries that failed
// to compile are listed in Failures and left out of Queries.
type Battery struct {
	Language lang.Language
	Queries  []CompiledQuery
	Failures []error
}

func (b *Battery) close() {
	for _, q := range b.Queries {
		q.Query.Close()
	}
	b.Queries = nil
}

// Session owns the grammars, parsers and compiled queries of a single
// execution unit. Everything is created lazily on first use of a language
// and lives until Close. A Session must not be shared between goroutines.
type Session struct {
	languages map[lang.Language]*tree_sitter.Language
	parsers   map[lang.Language]*tree_sitter.Parser
	batteries *lru.Cache[lang.Language, *Battery]
	loads     int
}

// NewSession creates an empty session whose battery cache holds at most
// cacheSize languages. Evicted batteries are closed.
func NewSession(cacheSize int) (*Session, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultQueryCacheSize
	}
	cache, err := lru.NewWithEvict(cacheSize, func(_ lang.Language, b *Battery) {
		b.close()
	})
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	return &Session{
		languages: make(map[lang.Language]*tree_sitter.Language),
		parsers:   make(map[lang.Language]*tree_sitter.Parser),
		batteries: cache,
	}, nil
}

// Language returns the session's grammar for l, loading it on first use.
func (s *Session) Language(l lang.Language) (*tree_sitter.Language, error) {
	if tsLang, ok := s.languages[l]; ok {
		return tsLang, nil
	}
	ctor, ok := grammars[l]
	if !ok {
		return nil, unsupported(l)
	}
	tsLang := tree_sitter.NewLanguage(ctor())
	if tsLang == nil {
		return nil, fmt.Errorf("load grammar %s", l)
	}
	s.languages[l] = tsLang
	s.loads++
	return tsLang, nil
}

// GrammarLoads reports how many grammars this session has loaded.
func (s *Session) GrammarLoads() int { return s.loads }

// Parse parses source with the session's parser for l.
// The caller owns the returned tree and must Close it.
func (s *Session) Parse(l lang.Language, source []byte) (*tree_sitter.Tree, error) {
	p, err := s.parser(l)
	if err != nil {
		return nil, err
	}
	tree := p.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parse failed for language %s", l)
	}
	return tree, nil
}

func (s *Session) parser(l lang.Language) (*tree_sitter.Parser, error) {
	if p, ok := s.parsers[l]; ok {
		return p, nil
	}
	tsLang, err := s.Language(l)
	if err != nil {
		return nil, err
	}
	p := tree_sitter.NewParser()
	if err := p.SetLanguage(tsLang); err != nil {
		p.Close()
		return nil, fmt.Errorf("set language %s: %w", l, err)
	}
	s.parsers[l] = p
	return p, nil
}

// Battery returns the compiled query battery for l. Individual query
// compile failures are recorded on the battery and logged once.
func (s *Session) Battery(l lang.Language) (*Battery, error) {
	if b, ok := s.batteries.Get(l); ok {
		return b, nil
	}
	spec := lang.ForLanguage(l)
	if spec == nil {
		return nil, unsupported(l)
	}
	tsLang, err := s.Language(l)
	if err != nil {
		return nil, err
	}
	b := &Battery{Language: l}
	for _, q := range spec.Queries {
		compiled, qerr := tree_sitter.NewQuery(tsLang, q.Pattern)
		if qerr != nil || compiled == nil {
			e := fmt.Errorf("compile %s/%s query", l, q.Name)
			if qerr != nil {
				e = fmt.Errorf("compile %s/%s query: %s", l, q.Name, qerr.Error())
			}
			slog.Warn("parser.query.compile", "lang", l, "query", q.Name, "err", e)
			b.Failures = append(b.Failures, e)
			continue
		}
		b.Queries = append(b.Queries, CompiledQuery{Name: q.Name, Query: compiled})
	}
	s.batteries.Add(l, b)
	return b, nil
}

// Close releases every parser and compiled query held by the session.
func (s *Session) Close() {
	s.batteries.Purge()
	for l, p := range s.parsers {
		p.Close()
		delete(s.parsers, l)
	}
	clear(s.languages)
}

// Capture is one named node captured by a query match.
type Capture struct {
	Name string
	Node tree_sitter.Node
}

// Matches runs q over root and returns the captures of each match.
// A panic raised while iterating is converted into an error so one broken
// query cannot abort the file.
func Matches(q *tree_sitter.Query, root *tree_sitter.Node, source []byte) (out [][]Capture, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("query execution panic: %v", r)
		}
	}()
	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()
	names := q.CaptureNames()
	matches := qc.Matches(q, root, source)
	for m := matches.Next(); m != nil; m = matches.Next() {
		caps := make([]Capture, 0, len(m.Captures))
		for _, c := range m.Captures {
			caps = append(caps, Capture{Name: names[c.Index], Node: c.Node})
		}
		out = append(out, caps)
	}
	return out, nil
}
