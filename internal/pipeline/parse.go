package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/DeusData/codegraph-ingest/internal/extract"
	"github.com/DeusData/codegraph-ingest/internal/fqn"
	"github.com/DeusData/codegraph-ingest/internal/graph"
	"github.com/DeusData/codegraph-ingest/internal/lang"
	"github.com/DeusData/codegraph-ingest/internal/parser"
	"github.com/DeusData/codegraph-ingest/internal/workerpool"
)

var errParseDegraded = errors.New("parse pass degraded")

// passParse fans every processable file out to the worker pool, then merges
// the settled results into the graph in path order.
func (p *Pipeline) passParse(ctx context.Context, st *runState) error {
	ignore := newIgnoreMatcher(p.cfg.AllIgnorePatterns())
	var tasks []extract.Task
	for _, f := range st.files {
		content, ok := processable(f, st.contents, ignore)
		if !ok {
			st.describeUnparsed(f)
			continue
		}
		tasks = append(tasks, extract.Task{FilePath: f, Content: []byte(content)})
	}
	if len(tasks) == 0 {
		return nil
	}

	workers, queue, timeout, abandon := p.cfg.PoolSizing()
	pool := workerpool.New(p.newUnit, workerpool.Config{
		MaxWorkers:   workers,
		QueueSize:    queue,
		TaskTimeout:  timeout,
		AbandonAfter: abandon,
	})
	futures := make([]*workerpool.Future[extract.Result], len(tasks))
	unread := make([]bool, len(tasks))
	defer func() {
		sctx := context.WithoutCancel(ctx)
		if err := pool.Shutdown(sctx, p.cfg.EffectiveShutdownGrace()); err != nil {
			slog.Warn("parse.pool.shutdown", "err", err)
		}
		releaseUnread(futures, unread)
	}()

	results := make([]extract.Result, len(tasks))
	counter := &stepCounter{total: len(tasks)}
	var g errgroup.Group
	g.SetLimit(pool.Config().MaxWorkers * 2)
	for i, t := range tasks {
		fut := pool.Submit(ctx, t)
		futures[i] = fut
		g.Go(func() error {
			r, err := fut.Await(ctx)
			if err != nil {
				select {
				case <-fut.Done():
					r, _ = fut.Await(context.Background())
					r.Close()
				default:
					unread[i] = true
				}
				r = extract.Result{FilePath: t.FilePath, Source: t.Content, Size: len(t.Content), Err: err}
			}
			results[i] = r
			if pct, ok := counter.advance(); ok {
				// Parsing spans the second quarter of the run.
				st.progress.emit(PhaseParsing, 25+pct/4, fmt.Sprintf("parsed %d%% of %d files", pct, len(tasks)))
			}
			return nil
		})
	}
	_ = g.Wait()
	slog.Info("parse.pool.stats", "stats", fmt.Sprintf("%+v", pool.Stats()))

	if err := ctx.Err(); err != nil {
		for i := range results {
			results[i].Close()
		}
		return err
	}
	for i := range results {
		st.mergeResult(&results[i])
	}
	if st.filesParsed == 0 && st.filesFailed > 0 {
		return fmt.Errorf("%w: all %d files failed", errParseDegraded, st.filesFailed)
	}
	return nil
}

// releaseUnread closes the trees of results that settled after their
// Await gave up on a cancelled context. The pool has shut down, so every
// future has settled.
func releaseUnread(futures []*workerpool.Future[extract.Result], unread []bool) {
	for i, fut := range futures {
		if !unread[i] || fut == nil {
			continue
		}
		select {
		case <-fut.Done():
			r, _ := fut.Await(context.Background())
			r.Close()
		default:
		}
	}
}

// describeUnparsed records the generic metadata of a file that is not
// submitted for parsing.
func (st *runState) describeUnparsed(path string) {
	content, ok := st.contents[path]
	if !ok {
		return
	}
	st.g.MergeProperties(graph.FileID(path), map[string]any{
		"size":  len(content),
		"lines": countLines(content),
	})
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// mergeResult folds one settled result into the graph, the AST cache and
// the registry. Ownership of the tree moves into the cache.
func (st *runState) mergeResult(r *extract.Result) {
	fileID := graph.FileID(r.FilePath)
	props := map[string]any{"size": r.Size, "lines": r.Lines}
	if r.Language != "" {
		props["language"] = string(r.Language)
	}
	if len(r.ConfigKeys) > 0 {
		props["config_keys"] = r.ConfigKeys
	}
	if r.QueryFailures > 0 {
		props["query_failures"] = r.QueryFailures
	}

	spec := lang.ForPath(r.FilePath)
	if !r.Success {
		msg := "unknown error"
		if r.Err != nil {
			msg = r.Err.Error()
		}
		props["parse_error"] = msg
		st.g.MergeProperties(fileID, props)
		st.filesFailed++
		if spec != nil && parser.HasGrammar(spec.Language) {
			st.failed[r.FilePath] = true
		}
		slog.Warn("parse.file.err", "path", r.FilePath, "err", msg)
		r.Close()
		return
	}
	st.g.MergeProperties(fileID, props)
	st.filesParsed++

	if r.Tree != nil {
		st.asts[r.FilePath] = &parsedFile{Path: r.FilePath, Spec: spec, Tree: r.Tree, Source: r.Source}
		r.Tree = nil
	}

	fileIsTest := isTestPath(r.FilePath)
	var methods []*Symbol
	for _, def := range r.Definitions {
		label, ok := labelForKind(def.Kind)
		if !ok {
			continue
		}
		qn := def.QualifiedName()
		id := graph.DefinitionID(label, r.FilePath, qn)
		if !st.g.AddNode(&graph.Node{ID: id, Label: label, Properties: definitionProps(st.project, r, def, qn, fileIsTest)}) {
			continue
		}
		rel := graph.Defines
		if label == graph.Import || label == graph.Decorator {
			rel = graph.Contains
		}
		st.g.AddRelationship(&graph.Relationship{Type: rel, Source: fileID, Target: id})

		sym := &Symbol{ID: id, Label: label, Name: def.Name, QualifiedName: qn, FilePath: r.FilePath, Class: def.Parent, Def: def}
		st.registry.Register(sym)
		if label == graph.Method {
			methods = append(methods, sym)
		}
	}
	for _, m := range methods {
		if cls := st.registry.Class(r.FilePath, m.Class); cls != nil {
			st.g.AddRelationship(&graph.Relationship{Type: graph.BelongsTo, Source: m.ID, Target: cls.ID})
		}
	}
}

func definitionProps(project string, r *extract.Result, def extract.Definition, qn string, fileIsTest bool) map[string]any {
	props := map[string]any{
		"name":           def.Name,
		"qualified_name": qn,
		"fqn":            fqn.Compute(project, r.FilePath, qn),
		"file_path":      r.FilePath,
		"start_line":     def.StartLine,
		"end_line":       def.EndLine,
		"kind":           def.Kind,
	}
	if def.Parent != "" {
		props["parent_class"] = def.Parent
	}
	if len(def.Parameters) > 0 {
		props["parameters"] = def.Parameters
	}
	if len(def.BaseClasses) > 0 {
		props["base_classes"] = def.BaseClasses
	}
	if len(def.Implements) > 0 {
		props["implements"] = def.Implements
	}
	if len(def.Decorators) > 0 {
		props["decorators"] = def.Decorators
	}
	if def.Docstring != "" {
		props["docstring"] = def.Docstring
	}
	switch def.Kind {
	case lang.KindFunction, lang.KindMethod:
		props["is_exported"] = def.Exported
		props["is_test"] = fileIsTest && isTestFunction(def.Name, r.Language)
	case lang.KindClass, lang.KindInterface, lang.KindType, lang.KindVariable, lang.KindModule:
		props["is_exported"] = def.Exported
	}
	return props
}
