package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadDir(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, DefaultScoringWeights(), cfg.EffectiveScoring())
	require.Equal(t, DefaultSharedDirectories, cfg.EffectiveSharedDirectories())
	require.Equal(t, DefaultIgnorePatterns, cfg.AllIgnorePatterns())
	require.Equal(t, DefaultMaxFileSize, cfg.EffectiveMaxFileSize())
	require.Equal(t, DefaultShutdownGrace, cfg.EffectiveShutdownGrace())

	workers, queue, timeout, abandon := cfg.PoolSizing()
	require.Zero(t, workers)
	require.Zero(t, queue)
	require.Zero(t, timeout)
	require.Zero(t, abandon)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `
ignore_patterns:
  - generated/
shared_directories: [pkg]
framework_conventions:
  - from: api
    to: domain
max_file_size: 2048
pool:
  max_workers: 2
  queue_size: 64
  task_timeout: 10s
  shutdown_grace: 500ms
scoring:
  same_directory_bonus: 50
  depth_free: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600))

	cfg, err := LoadDir(dir)
	require.NoError(t, err)

	w := cfg.EffectiveScoring()
	require.Equal(t, 50.0, w.SameDirectoryBonus)
	require.Equal(t, 1, w.DepthFree)
	require.Equal(t, DefaultScoringWeights().LegacyPenalty, w.LegacyPenalty)

	require.Equal(t, []string{"pkg"}, cfg.EffectiveSharedDirectories())
	require.Contains(t, cfg.AllIgnorePatterns(), "generated/")
	require.Equal(t, Convention{From: "api", To: "domain"}, cfg.EffectiveConventions()[0])
	require.Equal(t, int64(2048), cfg.EffectiveMaxFileSize())
	require.Equal(t, 500*time.Millisecond, cfg.EffectiveShutdownGrace())

	workers, queue, timeout, _ := cfg.PoolSizing()
	require.Equal(t, 2, workers)
	require.Equal(t, 64, queue)
	require.Equal(t, 10*time.Second, timeout)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("pool: [valid: yaml"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}
