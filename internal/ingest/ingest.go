// Package ingest runs the pipeline over a directory on disk.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/DeusData/codegraph-ingest/internal/config"
	"github.com/DeusData/codegraph-ingest/internal/discover"
	"github.com/DeusData/codegraph-ingest/internal/pipeline"
	"github.com/DeusData/codegraph-ingest/internal/store"
)

// Options configures one directory ingestion.
type Options struct {
	// Project defaults to the base name of the root.
	Project string
	// ConfigPath defaults to <root>/.codegraph.yaml.
	ConfigPath string
	// IgnoreFile overrides <root>/.cgrignore.
	IgnoreFile string
	Filter     *pipeline.Filter
	Progress   pipeline.ProgressFunc
	// Sink, when set, receives the finished graph.
	Sink pipeline.Sink
}

// Recorded returns the settings of o a reindex must replay. Paths are made
// absolute so the replay does not depend on the working directory.
func (o Options) Recorded() store.IngestOptions {
	rec := store.IngestOptions{
		ConfigPath: absOrEmpty(o.ConfigPath),
		IgnoreFile: absOrEmpty(o.IgnoreFile),
	}
	if o.Filter != nil {
		rec.DirectoryFilter = o.Filter.DirectoryFilter
		rec.FileExtensions = o.Filter.FileExtensions
	}
	return rec
}

// Replay rebuilds the options a project was last ingested with.
func Replay(p *store.Project, sink pipeline.Sink) Options {
	opts := Options{
		Project:    p.Name,
		ConfigPath: p.Options.ConfigPath,
		IgnoreFile: p.Options.IgnoreFile,
		Sink:       sink,
	}
	if p.Options.DirectoryFilter != "" || len(p.Options.FileExtensions) > 0 {
		opts.Filter = &pipeline.Filter{
			DirectoryFilter: p.Options.DirectoryFilter,
			FileExtensions:  p.Options.FileExtensions,
		}
	}
	return opts
}

func absOrEmpty(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Outcome is a finished directory ingestion.
type Outcome struct {
	Project string
	Root    string
	// Skipped counts source files left unread for size.
	Skipped int
	*pipeline.Result
}

// ProjectName derives the default project name for a root directory.
func ProjectName(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	name := filepath.Base(abs)
	if name == "." || name == string(filepath.Separator) {
		return pipeline.ProjectNameFromPath(abs)
	}
	return name
}

// Dir loads root, builds its graph and hands it to opts.Sink when set.
func Dir(ctx context.Context, root string, opts Options) (*Outcome, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", abs)
	}

	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = filepath.Join(abs, config.FileName)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	repo, err := discover.Load(ctx, abs, &discover.Options{
		IgnoreFile:  opts.IgnoreFile,
		MaxFileSize: cfg.EffectiveMaxFileSize(),
	})
	if err != nil {
		return nil, err
	}
	project := opts.Project
	if project == "" {
		project = ProjectName(abs)
	}
	slog.Info("ingest.loaded", "project", project, "root", abs, "files", len(repo.Paths),
		"read", len(repo.Contents), "skipped", repo.Skipped)

	var popts []pipeline.Option
	if opts.Progress != nil {
		popts = append(popts, pipeline.WithProgress(opts.Progress))
	}
	p := pipeline.New(cfg, popts...)
	in := pipeline.Input{
		ProjectName:  project,
		FilePaths:    repo.Paths,
		FileContents: repo.Contents,
		Filter:       opts.Filter,
	}

	var res *pipeline.Result
	if opts.Sink != nil {
		res, err = p.RunInto(ctx, in, opts.Sink)
	} else {
		res, err = p.Run(ctx, in)
	}
	if err != nil {
		return nil, err
	}
	return &Outcome{Project: project, Root: abs, Skipped: repo.Skipped, Result: res}, nil
}
