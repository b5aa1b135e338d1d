// Package discover loads a local checkout into the path list and content
// map the ingestion pipeline consumes.
package discover

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/DeusData/codegraph-ingest/internal/lang"
)

// IgnoreDirs are directory names never descended into.
var IgnoreDirs = map[string]bool{
	".cache": true, ".claude": true, ".eclipse": true, ".eggs": true,
	".env": true, ".git": true, ".gradle": true, ".hg": true,
	".idea": true, ".maven": true, ".mypy_cache": true, ".nox": true,
	".npm": true, ".nyc_output": true, ".pnpm-store": true,
	".pytest_cache": true, ".ruff_cache": true, ".svn": true,
	".tmp": true, ".tox": true, ".venv": true, ".vs": true,
	".vscode": true, ".yarn": true, "__pycache__": true,
	"bower_components": true, "build": true, "coverage": true,
	"dist": true, "env": true, "htmlcov": true, "node_modules": true,
	"obj": true, "out": true, "Pods": true, "site-packages": true,
	"target": true, "temp": true, "tmp": true, "vendor": true, "venv": true,
}

// IgnoreSuffixes are file suffixes never listed.
var IgnoreSuffixes = []string{
	".tmp", "~", ".pyc", ".pyo", ".o", ".a", ".so", ".dll", ".class",
	".exe", ".jar", ".png", ".jpg", ".jpeg", ".gif", ".ico", ".pdf", ".zip",
}

// ignoredJSONFiles are tool configs and lock files that carry no project
// structure worth summarising.
var ignoredJSONFiles = map[string]bool{
	"package-lock.json": true,
	"tsconfig.json":     true,
	"jsconfig.json":     true,
	"composer.lock":     true,
	"yarn.lock":         true,
	"openapi.json":      true,
	"swagger.json":      true,
	".eslintrc.json":    true,
	".prettierrc.json":  true,
	".babelrc.json":     true,
	"tslint.json":       true,
	"pnpm-lock.json":    true,
	"launch.json":       true,
	"settings.json":     true,
	"extensions.json":   true,
	"tasks.json":        true,
}

// IgnoreFileName is the per-repository list of extra ignore globs.
const IgnoreFileName = ".cgrignore"

// Options configures a load.
type Options struct {
	// IgnoreFile overrides <root>/.cgrignore.
	IgnoreFile string
	// MaxFileSize is the largest file, in bytes, whose content is read.
	// Larger files keep their path. Zero means no limit.
	MaxFileSize int64
	// Readers bounds concurrent file reads; zero means GOMAXPROCS.
	Readers int
}

// FileInfo is one discovered file.
type FileInfo struct {
	Path    string // absolute path
	RelPath string // slash-separated, relative to the root
	Size    int64
	// Language is empty for files no language spec claims.
	Language lang.Language
}

// Repo is a loaded checkout.
type Repo struct {
	Root     string
	Paths    []string
	Contents map[string]string
	// Skipped counts processable files left unread for size.
	Skipped int
}

// matcher combines .gitignore rules with .cgrignore globs.
type matcher struct {
	git   *ignore.GitIgnore
	globs []string
}

func loadMatcher(root string, opts *Options) *matcher {
	m := &matcher{}
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		m.git = gi
	}
	path := filepath.Join(root, IgnoreFileName)
	if opts != nil && opts.IgnoreFile != "" {
		path = opts.IgnoreFile
	}
	lines, err := readPatterns(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("discover.ignorefile.err", "path", path, "err", err)
	}
	for _, p := range lines {
		if !doublestar.ValidatePattern(p) {
			slog.Warn("filter.pattern.invalid", "pattern", p)
			continue
		}
		m.globs = append(m.globs, strings.TrimSuffix(p, "/"))
	}
	return m
}

// skip reports whether rel (slash form) with base name name is ignored.
func (m *matcher) skip(rel, name string, dir bool) bool {
	if m.git != nil {
		p := rel
		if dir {
			p += "/"
		}
		if m.git.MatchesPath(p) {
			return true
		}
	}
	for _, g := range m.globs {
		if ok, _ := doublestar.Match(g, name); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

func readPatterns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}

func ignoredSuffix(name string) bool {
	for _, s := range IgnoreSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Discover walks root and returns every file that is not ignored, sorted
// by relative path.
func Discover(ctx context.Context, root string, opts *Options) ([]FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := loadMatcher(root, opts)

	var files []FileInfo
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if IgnoreDirs[name] || m.skip(rel, name, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || ignoredSuffix(name) || ignoredJSONFiles[name] || m.skip(rel, name, false) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		fi := FileInfo{Path: path, RelPath: rel, Size: info.Size()}
		if spec := lang.ForPath(rel); spec != nil {
			fi.Language = spec.Language
		}
		files = append(files, fi)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// Load discovers root and reads the content of every processable file.
func Load(ctx context.Context, root string, opts *Options) (*Repo, error) {
	files, err := Discover(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	abs, _ := filepath.Abs(root)
	repo := &Repo{
		Root:     abs,
		Paths:    make([]string, 0, len(files)),
		Contents: make(map[string]string),
	}

	var maxSize int64
	readers := runtime.GOMAXPROCS(0)
	if opts != nil {
		maxSize = opts.MaxFileSize
		if opts.Readers > 0 {
			readers = opts.Readers
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readers)
	for _, f := range files {
		repo.Paths = append(repo.Paths, f.RelPath)
		if f.Language == "" {
			continue
		}
		if maxSize > 0 && f.Size > maxSize {
			repo.Skipped++
			slog.Info("discover.file.too_large", "path", f.RelPath, "size", f.Size)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(f.Path)
			if err != nil {
				slog.Warn("discover.read.err", "path", f.RelPath, "err", err)
				return nil
			}
			mu.Lock()
			repo.Contents[f.RelPath] = string(data)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load %s: %w", root, err)
	}
	return repo, nil
}
