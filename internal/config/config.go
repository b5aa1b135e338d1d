// Package config loads user-overridable ingestion settings from
// .codegraph.yaml. Every field is optional; the Effective accessors fill in
// defaults for anything left unset.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the per-repository config file.
const FileName = ".codegraph.yaml"

// DefaultIgnorePatterns are matched as substrings against file paths.
var DefaultIgnorePatterns = []string{
	"node_modules/", ".git/", "__pycache__/", ".venv/", "venv/", "dist/",
	"build/", ".next/", "coverage/", "vendor/", ".min.js", "package-lock.json",
}

// DefaultSharedDirectories are top-level directories any caller may resolve
// into during global fallback.
var DefaultSharedDirectories = []string{"utils", "helpers", "common", "shared", "lib", "core"}

// Convention prefers candidates under To when the caller sits under From.
type Convention struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// DefaultConventions pair caller directories with the directories their
// callees usually live in.
var DefaultConventions = []Convention{
	{From: "views", To: "models"},
	{From: "controllers", To: "services"},
	{From: "controllers", To: "models"},
	{From: "handlers", To: "services"},
	{From: "routes", To: "controllers"},
	{From: "components", To: "hooks"},
	{From: "pages", To: "components"},
}

// Config is the root of .codegraph.yaml.
type Config struct {
	IgnorePatterns       []string      `yaml:"ignore_patterns"`
	SharedDirectories    []string      `yaml:"shared_directories"`
	FrameworkConventions []Convention  `yaml:"framework_conventions"`
	MaxFileSize          *int64        `yaml:"max_file_size"`
	Pool                 PoolConfig    `yaml:"pool"`
	Scoring              ScoringConfig `yaml:"scoring"`
}

// PoolConfig sizes the parse worker pool.
type PoolConfig struct {
	// MaxWorkers defaults to the number of CPUs.
	MaxWorkers *int `yaml:"max_workers"`
	// QueueSize bounds pending parse tasks. Default: unbounded.
	QueueSize     *int           `yaml:"queue_size"`
	TaskTimeout   *time.Duration `yaml:"task_timeout"`
	AbandonAfter  *time.Duration `yaml:"abandon_after"`
	ShutdownGrace *time.Duration `yaml:"shutdown_grace"`
}

// ScoringConfig overrides individual proximity weights.
type ScoringConfig struct {
	SameDirectoryBonus    *float64 `yaml:"same_directory_bonus"`
	SiblingDirectoryBonus *float64 `yaml:"sibling_directory_bonus"`
	SharedPrefixWeight    *float64 `yaml:"shared_prefix_weight"`
	NameSimilarityWeight  *float64 `yaml:"name_similarity_weight"`
	CanonicalUtilityBonus *float64 `yaml:"canonical_utility_bonus"`
	ShortPathWeight       *float64 `yaml:"short_path_weight"`
	DepthPenalty          *float64 `yaml:"depth_penalty"`
	DepthFree             *int     `yaml:"depth_free"`
	TestFilePenalty       *float64 `yaml:"test_file_penalty"`
	LegacyPenalty         *float64 `yaml:"legacy_penalty"`
}

// ScoringWeights are the resolved proximity weights.
type ScoringWeights struct {
	SameDirectoryBonus    float64
	SiblingDirectoryBonus float64
	SharedPrefixWeight    float64
	NameSimilarityWeight  float64
	CanonicalUtilityBonus float64
	ShortPathWeight       float64
	DepthPenalty          float64
	DepthFree             int
	TestFilePenalty       float64
	LegacyPenalty         float64
}

// DefaultScoringWeights returns the built-in proximity weights.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		SameDirectoryBonus:    10,
		SiblingDirectoryBonus: 4,
		SharedPrefixWeight:    2,
		NameSimilarityWeight:  3,
		CanonicalUtilityBonus: 2,
		ShortPathWeight:       20,
		DepthPenalty:          0.5,
		DepthFree:             3,
		TestFilePenalty:       6,
		LegacyPenalty:         5,
	}
}

const (
	DefaultMaxFileSize   int64 = 1 << 20
	DefaultShutdownGrace       = 2 * time.Second
)

// Default returns an empty config; all accessors report defaults.
func Default() *Config {
	return &Config{}
}

// Load reads the config at path. A missing file yields defaults; an
// unreadable or invalid file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDir reads FileName from dir.
func LoadDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// AllIgnorePatterns returns the defaults followed by user patterns.
func (c *Config) AllIgnorePatterns() []string {
	out := make([]string, 0, len(DefaultIgnorePatterns)+len(c.IgnorePatterns))
	out = append(out, DefaultIgnorePatterns...)
	return append(out, c.IgnorePatterns...)
}

// EffectiveSharedDirectories returns the configured shared directories, or
// the defaults when none are set.
func (c *Config) EffectiveSharedDirectories() []string {
	if len(c.SharedDirectories) > 0 {
		return c.SharedDirectories
	}
	return DefaultSharedDirectories
}

// EffectiveConventions returns user conventions ahead of the defaults.
func (c *Config) EffectiveConventions() []Convention {
	out := make([]Convention, 0, len(c.FrameworkConventions)+len(DefaultConventions))
	out = append(out, c.FrameworkConventions...)
	return append(out, DefaultConventions...)
}

// EffectiveMaxFileSize returns the discovery size limit in bytes.
func (c *Config) EffectiveMaxFileSize() int64 {
	if c.MaxFileSize != nil && *c.MaxFileSize > 0 {
		return *c.MaxFileSize
	}
	return DefaultMaxFileSize
}

// EffectiveShutdownGrace returns how long in-flight parses may finish once
// the pool shuts down.
func (c *Config) EffectiveShutdownGrace() time.Duration {
	if c.Pool.ShutdownGrace != nil {
		return *c.Pool.ShutdownGrace
	}
	return DefaultShutdownGrace
}

// PoolSizing returns the configured pool settings; zero means "use the
// pool's default".
func (c *Config) PoolSizing() (maxWorkers, queueSize int, taskTimeout, abandonAfter time.Duration) {
	if c.Pool.MaxWorkers != nil {
		maxWorkers = *c.Pool.MaxWorkers
	}
	if c.Pool.QueueSize != nil {
		queueSize = *c.Pool.QueueSize
	}
	if c.Pool.TaskTimeout != nil {
		taskTimeout = *c.Pool.TaskTimeout
	}
	if c.Pool.AbandonAfter != nil {
		abandonAfter = *c.Pool.AbandonAfter
	}
	return maxWorkers, queueSize, taskTimeout, abandonAfter
}

// EffectiveScoring overlays configured weights on the defaults.
func (c *Config) EffectiveScoring() ScoringWeights {
	w := DefaultScoringWeights()
	s := c.Scoring
	setFloat(&w.SameDirectoryBonus, s.SameDirectoryBonus)
	setFloat(&w.SiblingDirectoryBonus, s.SiblingDirectoryBonus)
	setFloat(&w.SharedPrefixWeight, s.SharedPrefixWeight)
	setFloat(&w.NameSimilarityWeight, s.NameSimilarityWeight)
	setFloat(&w.CanonicalUtilityBonus, s.CanonicalUtilityBonus)
	setFloat(&w.ShortPathWeight, s.ShortPathWeight)
	setFloat(&w.DepthPenalty, s.DepthPenalty)
	setFloat(&w.TestFilePenalty, s.TestFilePenalty)
	setFloat(&w.LegacyPenalty, s.LegacyPenalty)
	if s.DepthFree != nil {
		w.DepthFree = *s.DepthFree
	}
	return w
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
