package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/succinct/internal/model"
)

// writeFile creates a file in dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoad_Defaults verifies that a directory without a config file
// yields the built-in defaults.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)

	assert.Empty(t, cfg.Path)
	assert.Equal(t, uint64(1024), cfg.Tree.BlockSize)
	assert.Equal(t, "local", cfg.CI.Executor)
	assert.Equal(t, 1, cfg.CI.Parallel)
	assert.Len(t, cfg.CI.Channels, 3)
	assert.True(t, cfg.CI.Channels[2].AllowFailure, "the next channel may fail")
	assert.NotContains(t, cfg.CI.LocalPrefix, "~", "local prefix should be expanded")
	assert.Equal(t, "https://coveralls.io", cfg.CI.Coverage.Endpoint)
}

// TestLoad_YAML verifies discovery of .succinct.yaml and that unset keys
// keep their defaults.
func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".succinct.yaml", `
tree:
  block_size: 64
ci:
  executor: docker
  parallel: 2
  channels:
    - name: stable
      image: golang:1.25
    - name: tip
      toolchain: go1.26rc1
      allow_failure: true
`)

	cfg, err := Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, uint64(64), cfg.Tree.BlockSize)
	assert.Equal(t, "docker", cfg.CI.Executor)
	assert.Equal(t, 2, cfg.CI.Parallel)
	assert.Equal(t, []Channel{
		{Name: "stable", Image: "golang:1.25"},
		{Name: "tip", Toolchain: "go1.26rc1", AllowFailure: true},
	}, cfg.CI.Channels)
	assert.Equal(t, "build", cfg.CI.BuildDir)
}

// TestLoad_TOML verifies the TOML encoding of the same settings.
func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ci.toml", `
[tree]
block_size = 256

[ci]
local_prefix = "/opt/tools"
build_dir = "out"

[[ci.channels]]
name = "stable"
toolchain = "go1.25.0"

[ci.coverage]
endpoint = "https://coverage.example.com"
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, uint64(256), cfg.Tree.BlockSize)
	assert.Equal(t, "/opt/tools", cfg.CI.LocalPrefix)
	assert.Equal(t, "out", cfg.CI.BuildDir)
	require.Len(t, cfg.CI.Channels, 1)
	assert.Equal(t, "go1.25.0", cfg.CI.Channels[0].Toolchain)
	assert.Equal(t, "https://coverage.example.com", cfg.CI.Coverage.Endpoint)
	assert.Equal(t, "COVERALLS_TOKEN", cfg.CI.Coverage.TokenEnv)
}

// TestLoad_Errors verifies that configuration problems surface as
// CLIError with ExitConfigError.
func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"missing explicit file", filepath.Join(dir, "nope.yaml")},
		{"unsupported extension", writeFile(t, dir, "c.json", "{}")},
		{"malformed yaml", writeFile(t, dir, "bad.yaml", "tree: [")},
		{"negative parallel", writeFile(t, dir, "par.yaml", "ci:\n  parallel: -1\n")},
		{"duplicate channel", writeFile(t, dir, "dup.yaml", `
ci:
  channels:
    - {name: a, image: x}
    - {name: a, image: y}
`)},
		{"bad toml", writeFile(t, dir, "bad.toml", "[ci\n")},
		{"bad executor", writeFile(t, dir, "exec.yaml", "ci:\n  executor: k8s\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path, "")
			require.Error(t, err)

			var cliErr *model.CLIError
			require.True(t, errors.As(err, &cliErr), "expected CLIError, got %T", err)
			assert.Equal(t, model.ExitConfigError, cliErr.Code)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"zero block size", func(c *Config) { c.Tree.BlockSize = 0 }, "block_size"},
		{"empty matrix", func(c *Config) { c.CI.Channels = nil }, "at least one channel"},
		{"bare channel", func(c *Config) { c.CI.Channels = []Channel{{Name: "bare"}} }, "needs an image or a toolchain"},
		{"unnamed channel", func(c *Config) { c.CI.Channels = []Channel{{Image: "golang"}} }, "has no name"},
		{"build dir is workdir", func(c *Config) { c.CI.BuildDir = "./" }, "subdirectory"},
		{"empty build dir", func(c *Config) { c.CI.BuildDir = "" }, "subdirectory"},
		{"build dir is parent", func(c *Config) { c.CI.BuildDir = ".." }, "subdirectory"},
		{"build dir is root", func(c *Config) { c.CI.BuildDir = "/" }, "relative"},
		{"absolute build dir", func(c *Config) { c.CI.BuildDir = "/tmp/build" }, "relative"},
		{"build dir is sibling", func(c *Config) { c.CI.BuildDir = "../sibling" }, "subdirectory"},
		{"build dir escapes", func(c *Config) { c.CI.BuildDir = "build/../../x" }, "subdirectory"},
		{"nested build dir", func(c *Config) { c.CI.BuildDir = "out/../build/cov" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestSelectChannels(t *testing.T) {
	cfg := Default()

	all, err := cfg.SelectChannels(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Matrix order is kept regardless of the order asked for.
	some, err := cfg.SelectChannels([]string{"oldstable", "stable"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "stable", some[0].Name)
	assert.Equal(t, "oldstable", some[1].Name)

	_, err = cfg.SelectChannels([]string{"stable", "beta"})
	assert.ErrorContains(t, err, "beta")
}
