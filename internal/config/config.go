// Package config loads the optional .succinct.yaml / .succinct.toml file.
//
// Every setting has a default, so running without a file is normal. A file
// only needs the keys it changes:
//
//	tree:
//	  block_size: 512
//	ci:
//	  executor: docker
//	  parallel: 2
//	  channels:
//	    - name: stable
//	      image: golang:1.25
//	      toolchain: go1.25.0
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/succinct/internal/model"
)

// FileNames are the config files looked up in the working directory, in
// order, when no explicit path is given.
var FileNames = []string{".succinct.yaml", ".succinct.yml", ".succinct.toml"}

// Config is the root of the configuration file.
type Config struct {
	Tree TreeConfig `yaml:"tree" toml:"tree"`
	CI   CIConfig   `yaml:"ci" toml:"ci"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-" toml:"-"`
}

// TreeConfig tunes how saved trees are indexed after loading.
type TreeConfig struct {
	// BlockSize is the range min-max block size for BP trees.
	BlockSize uint64 `yaml:"block_size" toml:"block_size"`
}

// CIConfig describes the pipeline runner.
type CIConfig struct {
	// Executor is "local" or "docker".
	Executor string `yaml:"executor" toml:"executor"`

	// WorkDir is the module checked by the pipelines.
	WorkDir string `yaml:"workdir" toml:"workdir"`

	// LocalPrefix is prepended to PATH as <prefix>/bin for every step, and
	// is where missing tools are installed. A leading ~ is expanded.
	LocalPrefix string `yaml:"local_prefix" toml:"local_prefix"`

	// Parallel bounds how many channels run at once. 1 runs the matrix
	// sequentially.
	Parallel int `yaml:"parallel" toml:"parallel"`

	// BuildDir is removed and recreated by the coverage pipeline and
	// receives the coverage profile. It must be a subdirectory of WorkDir.
	BuildDir string `yaml:"build_dir" toml:"build_dir"`

	// Channels is the toolchain matrix.
	Channels []Channel `yaml:"channels" toml:"channels"`

	Coverage CoverageConfig `yaml:"coverage" toml:"coverage"`
}

// Channel is one entry of the toolchain matrix.
type Channel struct {
	// Name identifies the channel in reports and --channel filters.
	Name string `yaml:"name" toml:"name"`

	// Image is the container image used by the docker executor.
	Image string `yaml:"image" toml:"image"`

	// Toolchain is the GOTOOLCHAIN value used by the local executor.
	Toolchain string `yaml:"toolchain" toml:"toolchain"`

	// AllowFailure marks channels whose failures are reported but do not
	// fail the run.
	AllowFailure bool `yaml:"allow_failure" toml:"allow_failure"`
}

// CoverageConfig configures the coverage upload.
type CoverageConfig struct {
	// Tool is the go install argument for the upload tool.
	Tool string `yaml:"tool" toml:"tool"`

	// Endpoint is the coverage service URL.
	Endpoint string `yaml:"endpoint" toml:"endpoint"`

	// Service names the CI service to the endpoint.
	Service string `yaml:"service" toml:"service"`

	// TokenEnv is the environment variable holding the repository token.
	TokenEnv string `yaml:"token_env" toml:"token_env"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// defaultChannels is the matrix used when the file lists none.
func defaultChannels() []Channel {
	return []Channel{
		{Name: "stable", Image: "golang:1.25", Toolchain: "go1.25.0"},
		{Name: "oldstable", Image: "golang:1.24", Toolchain: "go1.24.0"},
		{Name: "next", Image: "golang:1.26rc1", Toolchain: "go1.26rc1", AllowFailure: true},
	}
}

// applyDefaults fills every unset (zero) setting.
func (c *Config) applyDefaults() {
	setDefault(&c.Tree.BlockSize, 1024)
	setDefault(&c.CI.Executor, string(model.ExecutorLocal))
	setDefault(&c.CI.WorkDir, ".")
	setDefault(&c.CI.LocalPrefix, "~/.local")
	setDefault(&c.CI.Parallel, 1)
	setDefault(&c.CI.BuildDir, "build")
	setDefault(&c.CI.Coverage.Tool, "github.com/mattn/goveralls@latest")
	setDefault(&c.CI.Coverage.Endpoint, "https://coveralls.io")
	setDefault(&c.CI.Coverage.Service, "github")
	setDefault(&c.CI.Coverage.TokenEnv, "COVERALLS_TOKEN")
	if len(c.CI.Channels) == 0 {
		c.CI.Channels = defaultChannels()
	}
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// Load reads the config file at path and fills whatever it leaves unset
// with defaults. With an empty path the FileNames are looked up in dir;
// finding none is not an error. The result is validated.
func Load(path, dir string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
		cfg.Path = path
	}
	cfg.applyDefaults()

	if err := cfg.expand(); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid configuration", err)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.WrapCLIError(model.ExitConfigError, fmt.Sprintf("config file not found: %s", path), err)
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return model.NewCLIError(model.ExitConfigError,
			fmt.Sprintf("unsupported config file %s (use .yaml, .yml or .toml)", path))
	}
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError, fmt.Sprintf("failed to parse config %s", path), err)
	}
	return nil
}

// expand resolves a leading ~ in LocalPrefix.
func (c *Config) expand() error {
	p := c.CI.LocalPrefix
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot expand local_prefix %q: %w", p, err)
	}
	c.CI.LocalPrefix = filepath.Join(home, strings.TrimPrefix(p, "~"))
	return nil
}

// Validate checks the settings that would otherwise fail deep inside a
// run.
func (c *Config) Validate() error {
	if c.Tree.BlockSize == 0 {
		return fmt.Errorf("tree.block_size must be positive")
	}
	if _, err := model.ParseExecutorKind(c.CI.Executor); err != nil {
		return fmt.Errorf("ci.executor: %w", err)
	}
	if c.CI.Parallel < 1 {
		return fmt.Errorf("ci.parallel must be at least 1, got %d", c.CI.Parallel)
	}
	if err := validateBuildDir(c.CI.BuildDir); err != nil {
		return err
	}
	if len(c.CI.Channels) == 0 {
		return fmt.Errorf("ci.channels must list at least one channel")
	}

	seen := make(map[string]bool, len(c.CI.Channels))
	for i, ch := range c.CI.Channels {
		if ch.Name == "" {
			return fmt.Errorf("ci.channels[%d] has no name", i)
		}
		if seen[ch.Name] {
			return fmt.Errorf("duplicate channel %q", ch.Name)
		}
		seen[ch.Name] = true
		if ch.Image == "" && ch.Toolchain == "" {
			return fmt.Errorf("channel %q needs an image or a toolchain", ch.Name)
		}
	}
	return nil
}

// validateBuildDir accepts only relative paths that stay strictly inside
// the work dir: the coverage pipeline deletes the directory.
func validateBuildDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("ci.build_dir must name a subdirectory")
	}
	if filepath.IsAbs(dir) || strings.HasPrefix(dir, "/") {
		return fmt.Errorf("ci.build_dir %q must be relative to the work dir", dir)
	}
	clean := filepath.ToSlash(filepath.Clean(dir))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("ci.build_dir %q must name a subdirectory of the work dir", dir)
	}
	return nil
}

// SelectChannels returns the channels named in names, in matrix order.
// An empty names list selects every channel.
func (c *Config) SelectChannels(names []string) ([]Channel, error) {
	if len(names) == 0 {
		return c.CI.Channels, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Channel
	for _, ch := range c.CI.Channels {
		if want[ch.Name] {
			out = append(out, ch)
			delete(want, ch.Name)
		}
	}
	if len(want) > 0 {
		var missing []string
		for _, n := range names {
			if want[n] {
				missing = append(missing, n)
			}
		}
		return nil, model.NewCLIError(model.ExitInvalidInput,
			fmt.Sprintf("unknown channel(s): %s", strings.Join(missing, ", ")))
	}
	return out, nil
}
