package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codegraph-ingest/internal/ingest"
	"github.com/DeusData/codegraph-ingest/internal/pipeline"
	"github.com/DeusData/codegraph-ingest/internal/store"
)

func (s *Server) handleIndexRepository(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	repoPath := getStringArg(args, "repo_path")
	if repoPath == "" {
		return errResult("repo_path is required"), nil
	}
	opts := ingest.Options{
		Project: getStringArg(args, "project"),
		Sink:    s.store,
	}
	if dir, exts := getStringArg(args, "directory_filter"), getStringSliceArg(args, "file_extensions"); dir != "" || len(exts) > 0 {
		opts.Filter = &pipeline.Filter{DirectoryFilter: dir, FileExtensions: exts}
	}

	// One ingestion at a time; each replaces a whole project.
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	out, err := ingest.Dir(ctx, repoPath, opts)
	if err != nil {
		slog.Warn("tools.index.err", "repo", repoPath, "err", err)
		return errResult(fmt.Sprintf("indexing failed: %v", err)), nil
	}
	if err := s.store.SetProjectRoot(out.Project, out.Root, opts.Recorded()); err != nil {
		return errResult(fmt.Sprintf("record root: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"project":        out.Project,
		"root_path":      out.Root,
		"nodes":          out.Summary.TotalNodes,
		"edges":          out.Summary.TotalRels,
		"files_parsed":   out.FilesParsed,
		"files_failed":   out.FilesFailed,
		"files_skipped":  out.Skipped,
		"calls_detected": out.CallsDetected,
		"calls_resolved": out.CallsResolved,
		"duration_ms":    out.Duration.Milliseconds(),
	}), nil
}

// Reindex rebuilds a stored project from root with the options it was last
// ingested with. It serialises with the index_repository tool.
func (s *Server) Reindex(ctx context.Context, project, root string) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	opts := ingest.Options{Project: project, Sink: s.store}
	p, err := s.store.GetProject(project)
	switch {
	case err == nil:
		opts = ingest.Replay(p, s.store)
	case !errors.Is(err, store.ErrNotFound):
		return err
	}
	out, err := ingest.Dir(ctx, root, opts)
	if err != nil {
		return err
	}
	return s.store.SetProjectRoot(out.Project, out.Root, opts.Recorded())
}
