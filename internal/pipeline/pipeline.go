// Package pipeline turns a set of (path, content) pairs into a property
// graph by running four passes with hard barriers between them:
// structure, parse, imports and calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codegraph-ingest/internal/config"
	"github.com/DeusData/codegraph-ingest/internal/extract"
	"github.com/DeusData/codegraph-ingest/internal/graph"
	"github.com/DeusData/codegraph-ingest/internal/lang"
	"github.com/DeusData/codegraph-ingest/internal/workerpool"
)

// ErrInvalidInput is returned before any pass runs when the input cannot be
// ingested at all.
var ErrInvalidInput = errors.New("invalid input")

// Input is one ingestion request. Paths without an entry in FileContents
// still get File nodes but are never parsed.
type Input struct {
	ProjectName  string
	FilePaths    []string
	FileContents map[string]string
	Filter       *Filter
}

// Result is the outcome of a run. The graph is complete and no longer
// touched by the pipeline.
type Result struct {
	Graph         *graph.Graph
	Summary       graph.Summary
	Types         *TypeTable
	CallsDetected int
	CallsResolved int
	FilesParsed   int
	FilesFailed   int
	Duration      time.Duration
}

// Sink receives finished graphs, e.g. a persistence backend.
type Sink interface {
	WriteGraph(ctx context.Context, project string, g *graph.Graph) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithClock overrides the timestamp source for progress events.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithUnitFactory replaces the parse unit constructor.
func WithUnitFactory(f workerpool.UnitFactory[extract.Task, extract.Result]) Option {
	return func(p *Pipeline) { p.newUnit = f }
}

// Pipeline holds run-independent settings. Every Run gets its own state, so
// one Pipeline may serve concurrent runs.
type Pipeline struct {
	cfg      *config.Config
	weights  config.ScoringWeights
	progress ProgressFunc
	now      func() time.Time
	newUnit  workerpool.UnitFactory[extract.Task, extract.Result]
}

// New creates a Pipeline. A nil cfg means defaults.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	p := &Pipeline{
		cfg:     cfg,
		weights: cfg.EffectiveScoring(),
		now:     time.Now,
		newUnit: newExtractUnit,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func newExtractUnit(id int) (workerpool.Unit[extract.Task, extract.Result], error) {
	u, err := extract.NewUnit(id)
	if err != nil {
		return nil, err
	}
	return u, nil
}

var _ workerpool.Discarder[extract.Result] = (*extract.Unit)(nil)

// parsedFile is one cached syntax tree.
type parsedFile struct {
	Path   string
	Spec   *lang.LanguageSpec
	Tree   *tree_sitter.Tree
	Source []byte
}

// runState is everything one run owns. It is created fresh per Run and
// dropped when the run returns.
type runState struct {
	project  string
	g        *graph.Graph
	files    []string
	contents map[string]string
	asts     map[string]*parsedFile
	// failed lists grammar-backed files that produced no tree.
	failed   map[string]bool
	registry *Registry
	imports  map[string][]ImportRecord
	types    *TypeTable
	returns  map[string]VarType
	progress *progressReporter

	callsDetected int
	callsResolved int
	filesParsed   int
	filesFailed   int
}

func (st *runState) close() {
	for _, pf := range st.asts {
		if pf.Tree != nil {
			pf.Tree.Close()
		}
	}
	st.asts = nil
}

func validate(in Input) error {
	if strings.TrimSpace(in.ProjectName) == "" {
		return fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}
	if in.FileContents == nil {
		return fmt.Errorf("%w: file contents map is required", ErrInvalidInput)
	}
	return nil
}

// Run ingests in. The only errors returned are ErrInvalidInput and the
// context's error; every other failure degrades the graph and is logged.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	start := time.Now()
	st := &runState{
		project:  in.ProjectName,
		g:        graph.New(),
		contents: make(map[string]string, len(in.FileContents)),
		asts:     make(map[string]*parsedFile),
		failed:   make(map[string]bool),
		registry: NewRegistry(),
		imports:  make(map[string][]ImportRecord),
		types:    newTypeTable(),
		returns:  make(map[string]VarType),
		progress: &progressReporter{fn: p.progress, now: p.now},
	}
	defer st.close()
	for k, v := range in.FileContents {
		if np := NormalizePath(k); np != "" {
			st.contents[np] = v
		}
	}
	slog.Info("pipeline.start", "project", st.project, "paths", len(in.FilePaths))

	passes := []struct {
		name  string
		phase Phase
		fn    func(context.Context, *runState) error
	}{
		{"structure", PhaseStructure, func(_ context.Context, st *runState) error {
			st.files = BuildStructure(st.g, st.project, in.Filter.Apply(in.FilePaths))
			return nil
		}},
		{"parse", PhaseParsing, p.passParse},
		{"imports", PhaseImports, p.passImports},
		{"calls", PhaseCalls, p.passCalls},
	}
	for i, pass := range passes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st.progress.emit(pass.phase, i*100/len(passes), "starting "+pass.name)
		t := time.Now()
		if err := pass.fn(ctx, st); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.Error("pass.failed", "pass", pass.name, "err", err)
		}
		slog.Info("pass.timing", "pass", pass.name, "elapsed", time.Since(t))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Graph:         st.g,
		Summary:       st.g.Summarize(),
		Types:         st.types,
		CallsDetected: st.callsDetected,
		CallsResolved: st.callsResolved,
		FilesParsed:   st.filesParsed,
		FilesFailed:   st.filesFailed,
		Duration:      time.Since(start),
	}
	st.progress.emit(PhaseComplete, 100, fmt.Sprintf("%d nodes, %d relationships",
		res.Summary.TotalNodes, res.Summary.TotalRels))
	slog.Info("pipeline.done", "nodes", res.Summary.TotalNodes, "relationships", res.Summary.TotalRels,
		"calls_resolved", res.CallsResolved, "elapsed", res.Duration)
	return res, nil
}

// RunInto runs the pipeline and hands the finished graph to sink.
func (p *Pipeline) RunInto(ctx context.Context, in Input, sink Sink) (*Result, error) {
	res, err := p.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := sink.WriteGraph(ctx, in.ProjectName, res.Graph); err != nil {
		return res, fmt.Errorf("write graph: %w", err)
	}
	return res, nil
}

// ProjectNameFromPath derives a project name from a directory path: the
// cleaned slash form with separators replaced by dashes.
func ProjectNameFromPath(absPath string) string {
	cleaned := filepath.ToSlash(filepath.Clean(absPath))
	name := strings.TrimLeft(strings.ReplaceAll(cleaned, "/", "-"), "-")
	if name == "" || name == "." {
		return "root"
	}
	return name
}
