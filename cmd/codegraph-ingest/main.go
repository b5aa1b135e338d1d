package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/DeusData/codegraph-ingest/internal/tools"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	tools.Version = version
	return &cli.App{
		Name:      "codegraph-ingest",
		Usage:     "Build a code property graph from a source tree",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (default: <dir>/.codegraph.yaml)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "warn",
				EnvVars: []string{"CODEGRAPH_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Write logs as JSON",
			},
		},
		Before: func(c *cli.Context) error {
			return setupLogging(c.App.ErrWriter, c.String("log-level"), c.Bool("log-json"))
		},
		Commands: []*cli.Command{
			ingestCommand(),
			statsCommand(),
			serveCommand(),
		},
	}
}

func setupLogging(w io.Writer, level string, asJSON bool) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if asJSON {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}
