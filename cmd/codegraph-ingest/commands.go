package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v2"

	"github.com/DeusData/codegraph-ingest/internal/graph"
	"github.com/DeusData/codegraph-ingest/internal/ingest"
	"github.com/DeusData/codegraph-ingest/internal/pipeline"
	"github.com/DeusData/codegraph-ingest/internal/store"
	"github.com/DeusData/codegraph-ingest/internal/tools"
	"github.com/DeusData/codegraph-ingest/internal/watcher"
)

var dbFlag = &cli.StringFlag{
	Name:    "db",
	Usage:   "SQLite graph database (default: user cache dir)",
	EnvVars: []string{"CODEGRAPH_DB"},
}

func openStore(c *cli.Context) (*store.Store, error) {
	path := c.String("db")
	if path == "" {
		var err error
		if path, err = store.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Ingest a directory and store its graph",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			dbFlag,
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Project name (default: directory name)"},
			&cli.StringFlag{Name: "ignore-file", Usage: "Extra ignore globs (default: <dir>/.cgrignore)"},
			&cli.StringFlag{Name: "dir", Usage: "Only ingest files under this relative directory"},
			&cli.StringSliceFlag{Name: "ext", Usage: "Only ingest files with this extension (repeatable)"},
			&cli.StringFlag{Name: "json", Usage: "Write the graph as JSON to this file ('-' for stdout)"},
			&cli.BoolFlag{Name: "no-store", Usage: "Do not persist the graph"},
			&cli.BoolFlag{Name: "progress", Usage: "Print progress to stderr"},
		},
		Action: runIngest,
	}
}

func runIngest(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("ingest takes exactly one directory")
	}
	opts := ingest.Options{
		Project:    c.String("project"),
		ConfigPath: c.String("config"),
		IgnoreFile: c.String("ignore-file"),
	}
	if dir, exts := c.String("dir"), c.StringSlice("ext"); dir != "" || len(exts) > 0 {
		opts.Filter = &pipeline.Filter{DirectoryFilter: dir, FileExtensions: exts}
	}
	if c.Bool("progress") {
		errw := c.App.ErrWriter
		opts.Progress = func(p pipeline.Progress) {
			fmt.Fprintf(errw, "[%3d%%] %-9s %s\n", p.Percent, p.Phase, p.Message)
		}
	}

	var st *store.Store
	if !c.Bool("no-store") {
		var err error
		if st, err = openStore(c); err != nil {
			return err
		}
		defer st.Close()
		opts.Sink = st
	}

	out, err := ingest.Dir(c.Context, c.Args().First(), opts)
	if err != nil {
		return err
	}
	if st != nil {
		if err := st.SetProjectRoot(out.Project, out.Root, opts.Recorded()); err != nil {
			return err
		}
	}

	if path := c.String("json"); path != "" {
		if err := writeSnapshot(c.App.Writer, path, out.Graph); err != nil {
			return err
		}
	}
	if c.String("json") != "-" {
		printSummary(c.App.Writer, out)
	}
	return nil
}

func writeSnapshot(stdout io.Writer, path string, g *graph.Graph) error {
	w := stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g.Snapshot()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printSummary(w io.Writer, out *ingest.Outcome) {
	fmt.Fprintf(w, "project %s (%s)\n", out.Project, out.Root)
	fmt.Fprintf(w, "files parsed %d, failed %d, skipped %d\n", out.FilesParsed, out.FilesFailed, out.Skipped)
	fmt.Fprintf(w, "calls resolved %d of %d\n", out.CallsResolved, out.CallsDetected)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	writeCounts(tw, "nodes", out.Summary.NodeLabels, out.Summary.TotalNodes)
	writeCounts(tw, "relationships", out.Summary.Relationships, out.Summary.TotalRels)
	if len(out.Summary.Strategies) > 0 {
		writeCounts(tw, "call strategies", out.Summary.Strategies, -1)
	}
	tw.Flush()
	fmt.Fprintf(w, "done in %s\n", out.Duration.Round(time.Millisecond))
}

// writeCounts prints one section sorted by key; total < 0 omits the total.
func writeCounts(w io.Writer, title string, counts map[string]int, total int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if total >= 0 {
		fmt.Fprintf(w, "%s\t%d\n", title, total)
	} else {
		fmt.Fprintf(w, "%s\t\n", title)
	}
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\t%d\n", k, counts[k])
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show stored projects, or label and relationship counts of one project",
		Flags: []cli.Flag{
			dbFlag,
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}},
		},
		Action: func(c *cli.Context) error {
			st, err := openStore(c)
			if err != nil {
				return err
			}
			defer st.Close()

			w := c.App.Writer
			name := c.String("project")
			if name == "" {
				projects, err := st.ListProjects()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PROJECT\tNODES\tEDGES\tINDEXED\tROOT")
				for _, p := range projects {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", p.Name, p.NodeCount, p.EdgeCount, p.IndexedAt, p.RootPath)
				}
				return tw.Flush()
			}

			schema, err := st.GetSchema(name)
			if err != nil {
				return err
			}
			if len(schema.NodeLabels) == 0 {
				return fmt.Errorf("project %q: %w", name, store.ErrNotFound)
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			for _, lc := range schema.NodeLabels {
				fmt.Fprintf(tw, "%s\t%d\n", lc.Label, lc.Count)
			}
			for _, tc := range schema.RelationshipTypes {
				fmt.Fprintf(tw, "%s\t%d\n", tc.Type, tc.Count)
			}
			for _, p := range schema.RelationshipPatterns {
				fmt.Fprintf(tw, "%s\t\n", p)
			}
			return tw.Flush()
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the stored graphs over MCP on stdio",
		Flags: []cli.Flag{
			dbFlag,
			&cli.BoolFlag{Name: "watch", Usage: "Re-ingest stored projects when their files change"},
		},
		Action: func(c *cli.Context) error {
			st, err := openStore(c)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := tools.NewServer(st)
			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()
			if c.Bool("watch") {
				w := watcher.New(st, srv.Reindex)
				go w.Run(ctx)
			}
			return srv.MCPServer().Run(ctx, &mcp.StdioTransport{})
		},
	}
}
