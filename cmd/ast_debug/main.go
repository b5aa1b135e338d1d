// Command ast_debug prints the syntax tree and extracted definitions of
// source files.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"github.com/urfave/cli/v2"

	"github.com/DeusData/codegraph-ingest/internal/extract"
	"github.com/DeusData/codegraph-ingest/internal/parser"
)

func printAST(node *tree_sitter.Node, field string, source []byte, indent, maxDepth int) {
	if node == nil || (maxDepth > 0 && indent >= maxDepth) {
		return
	}
	if field != "" {
		field += ": "
	}
	text := parser.NodeText(node, source)
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	fmt.Printf("%s%s%s [%d] %q\n", strings.Repeat("  ", indent), field, node.Kind(), parser.Line(node), text)
	for i := uint(0); i < node.ChildCount(); i++ {
		printAST(node.Child(i), node.FieldNameForChild(uint32(i)), source, indent+1, maxDepth)
	}
}

func dumpFile(ctx context.Context, session *parser.Session, path string, tree bool, depth int) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	res, err := extract.Extract(ctx, session, extract.Task{FilePath: path, Content: src})
	if err != nil {
		return err
	}
	defer res.Close()

	fmt.Printf("=== %s (%s, %d lines) ===\n", path, res.Language, res.Lines)
	if !res.Success {
		fmt.Printf("parse failed: %v\n", res.Err)
		return nil
	}
	if tree && res.Tree != nil {
		printAST(res.Tree.RootNode(), "", res.Source, 0, depth)
	}
	for _, d := range res.Definitions {
		fmt.Printf("%-10s %-40s L%d-%d", d.Kind, d.QualifiedName(), d.StartLine, d.EndLine)
		if len(d.BaseClasses) > 0 {
			fmt.Printf(" bases=%s", strings.Join(d.BaseClasses, ","))
		}
		fmt.Println()
	}
	if len(res.ConfigKeys) > 0 {
		fmt.Printf("config keys: %s\n", strings.Join(res.ConfigKeys, ", "))
	}
	if res.QueryFailures > 0 {
		fmt.Printf("query failures: %d\n", res.QueryFailures)
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:      "ast_debug",
		Usage:     "Print syntax trees and extracted definitions",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "tree", Value: true, Usage: "Print the syntax tree"},
			&cli.IntFlag{Name: "depth", Usage: "Max tree depth (0 = unlimited)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("no files given")
			}
			session, err := parser.NewSession(0)
			if err != nil {
				return err
			}
			defer session.Close()
			for _, path := range c.Args().Slice() {
				if err := dumpFile(c.Context, session, path, c.Bool("tree"), c.Int("depth")); err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				}
			}
			return nil
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
