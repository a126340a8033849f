package ci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/succinct/internal/config"
)

func stepNames(p Pipeline) []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}

func TestCheckPipeline(t *testing.T) {
	p := CheckPipeline()

	assert.Equal(t, []string{"toolchain", "format", "build", "test"}, stepNames(p))
	assert.Equal(t, "gofmt -l .", p.Steps[1].String())
	assert.True(t, p.Steps[1].FailOnOutput)
	assert.False(t, p.Steps[2].FailOnOutput)
}

func TestCoveragePipeline(t *testing.T) {
	cfg := config.Default().CI

	p := CoveragePipeline(cfg, "secret")

	require.Equal(t, []string{"toolchain", "install-tool", "clean", "build", "coverage", "upload"}, stepNames(p))
	assert.Equal(t,
		`command -v goveralls >/dev/null 2>&1 || { [ -z "$LOCAL_PREFIX" ] || export GOBIN="$LOCAL_PREFIX/bin"; go install github.com/mattn/goveralls@latest; }`,
		p.Steps[1].Cmd[2])
	assert.Equal(t, "rm -rf build && mkdir -p build", p.Steps[2].Cmd[2])
	assert.Equal(t, "go test -covermode=atomic -coverprofile=build/coverage.out ./...", p.Steps[4].String())
	assert.Equal(t,
		"goveralls -coverprofile=build/coverage.out -service=github -endpoint=https://coveralls.io",
		p.Steps[5].String())
	assert.Equal(t, []string{"COVERALLS_TOKEN=secret"}, p.Steps[5].Env)

	// Without a token the upload step leaves the environment alone.
	assert.Empty(t, CoveragePipeline(cfg, "").Steps[5].Env)
}

func TestCoveragePipeline_QuotesBuildDir(t *testing.T) {
	cfg := config.Default().CI
	cfg.BuildDir = "out dir/"

	p := CoveragePipeline(cfg, "")

	assert.Equal(t, "rm -rf 'out dir' && mkdir -p 'out dir'", p.Steps[2].Cmd[2])
}

func TestToolBinary(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"github.com/mattn/goveralls@latest", "goveralls"},
		{"github.com/mattn/goveralls", "goveralls"},
		{"example.com/tools/cmd/cov/v2@v2.1.0", "cov"},
		{"example.com/v2tool@v1", "v2tool"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, toolBinary(tt.input))
		})
	}
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "build", shellQuote("build"))
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Equal(t, "'$HOME'", shellQuote("$HOME"))
}
