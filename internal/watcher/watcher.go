// Package watcher re-ingests stored projects whose source tree changed on
// disk.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/DeusData/codegraph-ingest/internal/discover"
	"github.com/DeusData/codegraph-ingest/internal/store"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
)

type fileStamp struct {
	modTime time.Time
	size    int64
}

type projectState struct {
	stamps   map[string]fileStamp
	interval time.Duration
	nextPoll time.Time
}

// Projects lists stored projects with their root paths.
type Projects interface {
	ListProjects() ([]*store.Project, error)
}

// ReingestFunc rebuilds and stores the graph of one project.
type ReingestFunc func(ctx context.Context, project, root string) error

// Watcher polls project roots and triggers re-ingestion on change.
type Watcher struct {
	projects Projects
	reingest ReingestFunc
	states   map[string]*projectState
	now      func() time.Time
}

// New creates a Watcher.
func New(p Projects, fn ReingestFunc) *Watcher {
	return &Watcher{
		projects: p,
		reingest: fn,
		states:   make(map[string]*projectState),
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled, ticking at baseInterval and polling
// each project once its own interval has elapsed.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(baseInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll checks every due project once.
func (w *Watcher) Poll(ctx context.Context) {
	projects, err := w.projects.ListProjects()
	if err != nil {
		slog.Warn("watcher.list.err", "err", err)
		return
	}
	now := w.now()
	for _, p := range projects {
		if ctx.Err() != nil {
			return
		}
		if p.RootPath == "" {
			continue
		}
		state, ok := w.states[p.Name]
		if !ok {
			state = &projectState{}
			w.states[p.Name] = state
		}
		if ok && now.Before(state.nextPoll) {
			continue
		}
		w.pollProject(ctx, p, state)
	}
}

// pollProject records a baseline on first sight and re-ingests on any
// later difference. A failed re-ingest keeps the old stamps so the next
// poll retries.
func (w *Watcher) pollProject(ctx context.Context, p *store.Project, state *projectState) {
	if _, err := os.Stat(p.RootPath); err != nil {
		slog.Warn("watcher.root.gone", "project", p.Name, "path", p.RootPath)
		state.nextPoll = w.now().Add(maxInterval)
		return
	}
	stamps, err := captureStamps(ctx, p.RootPath)
	if err != nil {
		slog.Warn("watcher.scan.err", "project", p.Name, "err", err)
		state.nextPoll = w.now().Add(max(state.interval, baseInterval))
		return
	}
	interval := pollInterval(len(stamps))
	state.interval = interval
	state.nextPoll = w.now().Add(interval)

	if state.stamps == nil {
		slog.Debug("watcher.baseline", "project", p.Name, "files", len(stamps))
		state.stamps = stamps
		return
	}
	changed := diffStamps(state.stamps, stamps)
	if len(changed) == 0 {
		return
	}

	slog.Info("watcher.changed", "project", p.Name, "changed", len(changed), "first", changed[0])
	if err := w.reingest(ctx, p.Name, p.RootPath); err != nil {
		slog.Warn("watcher.reingest.err", "project", p.Name, "err", err)
		return
	}
	state.stamps = stamps
}

func captureStamps(ctx context.Context, root string) (map[string]fileStamp, error) {
	files, err := discover.Discover(ctx, root, nil)
	if err != nil {
		return nil, err
	}
	stamps := make(map[string]fileStamp, len(files))
	for _, f := range files {
		info, err := os.Stat(f.Path)
		if err != nil {
			continue
		}
		stamps[f.RelPath] = fileStamp{modTime: info.ModTime(), size: info.Size()}
	}
	return stamps, nil
}

// diffStamps returns the sorted paths added, removed or modified between
// two captures.
func diffStamps(before, after map[string]fileStamp) []string {
	var changed []string
	for path, a := range after {
		b, ok := before[path]
		if !ok || !a.modTime.Equal(b.modTime) || a.size != b.size {
			changed = append(changed, path)
		}
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}

// pollInterval grows by a second per 500 files, capped at maxInterval.
func pollInterval(fileCount int) time.Duration {
	return min(baseInterval+time.Duration(fileCount/500)*time.Second, maxInterval)
}
