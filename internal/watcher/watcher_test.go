package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DeusData/codegraph-ingest/internal/store"
)

func TestDiffStamps(t *testing.T) {
	now := time.Now()
	base := map[string]fileStamp{
		"main.go": {modTime: now, size: 100},
		"util.go": {modTime: now, size: 200},
	}
	tests := []struct {
		name  string
		after map[string]fileStamp
		want  []string
	}{
		{"same", map[string]fileStamp{"main.go": {now, 100}, "util.go": {now, 200}}, nil},
		{"size", map[string]fileStamp{"main.go": {now, 101}, "util.go": {now, 200}}, []string{"main.go"}},
		{"mtime", map[string]fileStamp{"main.go": {now, 100}, "util.go": {now.Add(time.Second), 200}}, []string{"util.go"}},
		{"removed", map[string]fileStamp{"main.go": {now, 100}}, []string{"util.go"}},
		{"added", map[string]fileStamp{"main.go": {now, 100}, "util.go": {now, 200}, "a.go": {now, 1}}, []string{"a.go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diffStamps(base, tt.after)
			if len(got) != len(tt.want) {
				t.Fatalf("diff = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("diff = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestPollInterval(t *testing.T) {
	tests := []struct {
		files    int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{499, 1 * time.Second},
		{500, 2 * time.Second},
		{5000, 11 * time.Second},
		{50000, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := pollInterval(tt.files); got != tt.expected {
			t.Errorf("pollInterval(%d) = %v, want %v", tt.files, got, tt.expected)
		}
	}
}

type fakeProjects []*store.Project

func (f fakeProjects) ListProjects() ([]*store.Project, error) { return f, nil }

func TestPollReingestsOnChange(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main.go")
	if err := os.WriteFile(main, []byte("package main\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var calls []string
	fail := false
	w := New(fakeProjects{{Name: "demo", RootPath: root}, {Name: "rootless"}}, func(_ context.Context, project, r string) error {
		calls = append(calls, project)
		if r != root {
			t.Errorf("root = %q", r)
		}
		if fail {
			return errors.New("boom")
		}
		return nil
	})
	clock := time.Now()
	w.now = func() time.Time { return clock }
	ctx := context.Background()

	w.Poll(ctx)
	if len(calls) != 0 {
		t.Fatalf("baseline poll re-ingested: %v", calls)
	}

	clock = clock.Add(time.Minute)
	w.Poll(ctx)
	if len(calls) != 0 {
		t.Fatalf("unchanged tree re-ingested: %v", calls)
	}

	if err := os.WriteFile(main, []byte("package main\n\nfunc main() {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	fail = true
	clock = clock.Add(time.Minute)
	w.Poll(ctx)
	if len(calls) != 1 {
		t.Fatalf("calls after change = %v", calls)
	}

	fail = false
	clock = clock.Add(time.Minute)
	w.Poll(ctx)
	if len(calls) != 2 {
		t.Fatalf("failed re-ingest not retried: %v", calls)
	}

	clock = clock.Add(time.Minute)
	w.Poll(ctx)
	if len(calls) != 2 {
		t.Fatalf("stamps not updated after success: %v", calls)
	}
}

func TestPollSkipsUntilDue(t *testing.T) {
	root := t.TempDir()
	n := 0
	w := New(fakeProjects{{Name: "demo", RootPath: root}}, func(context.Context, string, string) error {
		n++
		return nil
	})
	clock := time.Now()
	w.now = func() time.Time { return clock }

	w.Poll(context.Background())
	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	w.Poll(context.Background())
	if n != 0 {
		t.Fatal("polled before interval elapsed")
	}
	clock = clock.Add(baseInterval)
	w.Poll(context.Background())
	if n != 1 {
		t.Fatalf("re-ingests = %d, want 1", n)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(fakeProjects{}, nil).Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
