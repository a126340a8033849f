// Package cli: cli_test.go drives the commands end to end through the
// root command, the way the binary is used, against files in a temporary
// directory.
package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/succinct/internal/ci"
	"github.com/shinji-kodama/succinct/internal/config"
	"github.com/shinji-kodama/succinct/internal/docker"
	"github.com/shinji-kodama/succinct/internal/model"
	"github.com/shinji-kodama/succinct/internal/treefile"
)

// sampleDoc is the tree
//
//	root
//	├── a
//	│   └── c
//	└── b
//
// BP:    ( ( ( ) ) ( ) )  = 11100100, nodes root=0 a=1 c=2 b=5
// LOUDS: 1 110 10 0 0     = 11101000, nodes root=1 a=4 b=6 c=7
const sampleDoc = `label: root
children:
  - label: a
    children:
      - label: c
  - label: b
`

// run executes the root command with args and returns what it printed
// on stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

// inTempDir switches to a fresh directory holding sample.yaml.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("sample.yaml", []byte(sampleDoc), 0o644))
	return dir
}

// TestExitCodeFor verifies the error to exit code mapping used by Execute.
func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.ExitCode
	}{
		{"nil", nil, model.ExitSuccess},
		{"cli error", model.NewCLIError(model.ExitConfigError, "bad config"), model.ExitConfigError},
		{"wrapped cli error", fmt.Errorf("outer: %w", model.NewCLIError(model.ExitDockerNotRunning, "no docker")), model.ExitDockerNotRunning},
		{"node error", fmt.Errorf("parent 0: %w", model.ErrHasNoParent), model.ExitNodeError},
		{"input error", fmt.Errorf("load: %w", model.ErrDecode), model.ExitInvalidInput},
		{"pipeline", fmt.Errorf("check: %w on stable", model.ErrPipelineFailed), model.ExitPipelineFailed},
		{"other", errors.New("boom"), model.ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

// TestPrintError verifies both error formats.
func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, "cannot load x.sct", model.ErrDecode)
	assert.Equal(t, "Error: cannot load x.sct: "+model.ErrDecode.Error()+"\n", buf.String())

	jsonOutput = true
	t.Cleanup(func() { jsonOutput = false })
	buf.Reset()
	printError(&buf, "cannot load x.sct", model.ErrDecode)

	var got map[string]map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "cannot load x.sct", got["error"]["message"])
	assert.Equal(t, model.ErrDecode.Error(), got["error"]["detail"])
}

// TestBuildAndQueryBP builds a BP tree from a YAML document and runs
// every operation against it.
func TestBuildAndQueryBP(t *testing.T) {
	inTempDir(t)
	_, err := run(t, "build", "--kind", "bp", "--in", "sample.yaml", "--out", "bp.sct", "--block-size", "8")
	require.NoError(t, err)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"is-leaf", "2"}, "true"},
		{[]string{"parent", "2"}, "1"},
		{[]string{"first-child", "0"}, "1"},
		{[]string{"next-sibling", "1"}, "5"},
		{[]string{"degree", "0"}, "2"},
		{[]string{"child", "0", "2"}, "5"},
		{[]string{"child-rank", "5"}, "1"},
		{[]string{"child-label", "5"}, "b"},
		{[]string{"labeled-child", "0", "b"}, "5"},
		{[]string{"last-child", "0"}, "5"},
		{[]string{"close", "1"}, "4"},
		{[]string{"depth", "2"}, "3"},
		{[]string{"subtree-size", "1"}, "2"},
		{[]string{"ancestor", "0", "2"}, "true"},
		{[]string{"ancestor", "5", "2"}, "false"},
		{[]string{"pre-rank", "5"}, "4"},
		{[]string{"pre-select", "3"}, "2"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := run(t, append([]string{"query", "bp.sct"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

// TestBuildAndQueryLOUDS runs the shared operations on the LOUDS form of
// the same tree.
func TestBuildAndQueryLOUDS(t *testing.T) {
	inTempDir(t)
	_, err := run(t, "build", "--kind", "louds", "--in", "sample.yaml", "--out", "louds.sct")
	require.NoError(t, err)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"first-child", "1"}, "4"},
		{[]string{"next-sibling", "4"}, "6"},
		{[]string{"child", "1", "2"}, "6"},
		{[]string{"parent", "7"}, "4"},
		{[]string{"degree", "1"}, "2"},
		{[]string{"child-label", "6"}, "b"},
		{[]string{"labeled-child", "4", "c"}, "7"},
		{[]string{"is-leaf", "6"}, "true"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := run(t, append([]string{"query", "louds.sct"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}

	// Pre-order operations need a BP tree.
	_, err = run(t, "query", "louds.sct", "depth", "4")
	require.Error(t, err)
	assert.Equal(t, model.ExitInvalidInput, ExitCodeFor(err))
}

// TestQueryErrors verifies the exit codes of failed queries.
func TestQueryErrors(t *testing.T) {
	inTempDir(t)
	_, err := run(t, "build", "--in", "sample.yaml", "--out", "bp.sct")
	require.NoError(t, err)
	_, err = run(t, "build", "--bits", "(()(()))", "--out", "bare.sct")
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
		want model.ExitCode
	}{
		{"root has no parent", []string{"bp.sct", "parent", "0"}, model.ExitNodeError},
		{"not a node", []string{"bp.sct", "degree", "3"}, model.ExitNodeError},
		{"no such child", []string{"bp.sct", "child", "0", "3"}, model.ExitNodeError},
		{"unlabelled", []string{"bare.sct", "child-label", "1"}, model.ExitNodeError},
		{"unknown op", []string{"bp.sct", "grandparent", "2"}, model.ExitInvalidInput},
		{"missing argument", []string{"bp.sct", "child", "0"}, model.ExitInvalidInput},
		{"bad index", []string{"bp.sct", "parent", "-1"}, model.ExitInvalidInput},
		{"missing file", []string{"nope.sct", "parent", "1"}, model.ExitInvalidInput},
		{"not a tree", []string{"sample.yaml", "parent", "1"}, model.ExitInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"query"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.want, ExitCodeFor(err))
		})
	}
}

// TestBuildErrors covers rejected inputs of the build command.
func TestBuildErrors(t *testing.T) {
	inTempDir(t)
	require.NoError(t, os.WriteFile("empty.yaml", nil, 0o644))

	tests := []struct {
		name string
		args []string
	}{
		{"unbalanced bits", []string{"--bits", "(()", "--out", "x.sct"}},
		{"bad characters", []string{"--bits", "10x0", "--out", "x.sct"}},
		{"unknown kind", []string{"--kind", "dfuds", "--in", "sample.yaml", "--out", "x.sct"}},
		{"empty document", []string{"--in", "empty.yaml", "--out", "x.sct"}},
		{"unknown extension", []string{"--in", "sample.txt", "--out", "x.sct"}},
		{"unknown flag", []string{"--bogus", "--in", "sample.yaml", "--out", "x.sct"}},
		{"malformed flag value", []string{"--in", "sample.yaml", "--out", "x.sct", "--block-size", "big"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"build"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, model.ExitInvalidInput, ExitCodeFor(err))
			assert.NoFileExists(t, "x.sct")
		})
	}

	// Either --in or --bits is required, but not both.
	_, err := run(t, "build", "--out", "x.sct")
	assert.Error(t, err)
	_, err = run(t, "build", "--in", "sample.yaml", "--bits", "10", "--out", "x.sct")
	assert.Error(t, err)
}

// TestInspectJSON verifies the machine-readable description.
func TestInspectJSON(t *testing.T) {
	inTempDir(t)
	_, err := run(t, "build", "--in", "sample.yaml", "--out", "bp.sct")
	require.NoError(t, err)

	out, err := run(t, "inspect", "bp.sct", "--json")
	require.NoError(t, err)

	var got treeJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, treeJSON{
		File:     "bp.sct",
		Kind:     "bp",
		Bits:     "11100100",
		Parens:   "((())())",
		Length:   8,
		Nodes:    4,
		Root:     0,
		Labelled: true,
	}, got)
}

// TestInspectText verifies the human-readable description of a LOUDS
// tree, which has no parenthesis line.
func TestInspectText(t *testing.T) {
	inTempDir(t)
	_, err := run(t, "build", "--kind", "louds", "--bits", "11101000", "--out", "louds.sct")
	require.NoError(t, err)

	out, err := run(t, "inspect", "louds.sct")
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"kind:     louds",
		"nodes:    4",
		"length:   8",
		"root:     1",
		"labelled: no",
		"bits:     11101000",
	}, "\n")+"\n", out)
}

// TestExportRoundTrip verifies that exporting a built tree reproduces the
// source document for both representations.
func TestExportRoundTrip(t *testing.T) {
	inTempDir(t)
	want, err := treefile.Parse([]byte(sampleDoc), treefile.FormatYAML)
	require.NoError(t, err)

	for _, kind := range []string{"bp", "louds"} {
		t.Run(kind, func(t *testing.T) {
			_, err := run(t, "build", "--kind", kind, "--in", "sample.yaml", "--out", kind+".sct")
			require.NoError(t, err)

			// stdout, YAML by default
			out, err := run(t, "export", kind+".sct")
			require.NoError(t, err)
			got, err := treefile.Parse([]byte(out), treefile.FormatYAML)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("yaml export mismatch (-want +got):\n%s", diff)
			}

			// file, format from the extension
			_, err = run(t, "export", kind+".sct", "--out", kind+".json")
			require.NoError(t, err)
			data, err := os.ReadFile(kind + ".json")
			require.NoError(t, err)
			got, err = treefile.Parse(data, treefile.FormatJSON)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("json export mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestGen verifies that generated trees have the requested size and that
// a fixed seed is reproducible.
func TestGen(t *testing.T) {
	dir := inTempDir(t)

	_, err := run(t, "gen", "--nodes", "50", "--seed", "3", "--out", "a.sct")
	require.NoError(t, err)
	_, err = run(t, "gen", "--nodes", "50", "--seed", "3", "--out", "b.sct")
	require.NoError(t, err)

	out, err := run(t, "inspect", "a.sct", "--json")
	require.NoError(t, err)
	var got treeJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, uint64(50), got.Nodes)
	assert.Equal(t, uint64(100), got.Length)

	a, err := os.ReadFile(filepath.Join(dir, "a.sct"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "b.sct"))
	require.NoError(t, err)
	assert.Equal(t, a, b, "the same seed must produce the same file")

	_, err = run(t, "gen", "--kind", "louds", "--bits", "64", "--seed", "9", "--out", "c.sct")
	require.NoError(t, err)
	out, err = run(t, "query", "c.sct", "child-rank", "1")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}

// TestCIMatrix verifies that the matrix comes from the config file.
func TestCIMatrix(t *testing.T) {
	inTempDir(t)
	require.NoError(t, os.WriteFile(".succinct.yaml", []byte(`ci:
  channels:
    - name: stable
      image: golang:1.25
      toolchain: go1.25.0
    - name: next
      toolchain: go1.26rc1
      allow_failure: true
`), 0o644))

	out, err := run(t, "ci", "matrix", "--json")
	require.NoError(t, err)

	var got map[string][]matrixEntryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []matrixEntryJSON{
		{Name: "stable", Image: "golang:1.25", Toolchain: "go1.25.0"},
		{Name: "next", Toolchain: "go1.26rc1", AllowFailure: true},
	}, got["channels"])

	out, err = run(t, "ci", "matrix")
	require.NoError(t, err)
	assert.Contains(t, out, "next         -                  go1.26rc1    yes")
}

// TestCIConfigErrors verifies flag and config validation before anything
// is executed.
func TestCIConfigErrors(t *testing.T) {
	inTempDir(t)

	_, err := run(t, "ci", "run", "--executor", "kubernetes")
	require.Error(t, err)
	assert.Equal(t, model.ExitInvalidInput, ExitCodeFor(err))

	_, err = run(t, "ci", "run", "--channel", "nightly")
	require.Error(t, err)
	assert.Equal(t, model.ExitInvalidInput, ExitCodeFor(err))

	_, err = run(t, "ci", "coverage", "--channel", "nightly")
	require.Error(t, err)
	assert.Equal(t, model.ExitInvalidInput, ExitCodeFor(err))

	_, err = run(t, "--config", "missing.toml", "ci", "matrix")
	require.Error(t, err)
	assert.Equal(t, model.ExitConfigError, ExitCodeFor(err))
}

// TestCoverageChannel verifies that coverage runs on exactly one channel
// and that a failure there is never tolerated.
func TestCoverageChannel(t *testing.T) {
	cfg := config.Default()
	cfg.CI.Channels = []config.Channel{
		{Name: "stable", Toolchain: "go1.25.0"},
		{Name: "next", Toolchain: "go1.26rc1", AllowFailure: true},
	}

	ch, err := coverageChannel(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "stable", ch.Name)

	ch, err = coverageChannel(cfg, "next")
	require.NoError(t, err)
	assert.Equal(t, "next", ch.Name)
	assert.False(t, ch.AllowFailure)
	assert.True(t, cfg.CI.Channels[1].AllowFailure, "matrix must not be modified")

	report := &ci.Report{
		Pipeline: "coverage",
		Channels: []ci.ChannelResult{{Channel: ch, Err: errors.New("test failed")}},
	}
	require.Error(t, report.Err())
	assert.Equal(t, model.ExitPipelineFailed, ExitCodeFor(report.Err()))

	_, err = coverageChannel(cfg, "nightly")
	require.Error(t, err)
}

// TestPruneOutput verifies the report of removed containers, including
// ones whose labels could not be decoded.
func TestPruneOutput(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := created.Add(90*time.Minute + 500*time.Millisecond)
	removed := []docker.PrunedContainer{
		{
			Name: "succinct-stable-1b4e28ba",
			ContainerLabels: docker.ContainerLabels{
				RunID:     "1b4e28ba-2fa1",
				Channel:   "stable",
				Image:     "golang:1.25",
				CreatedAt: created,
			},
		},
		{Name: "bbbbbbbbbbbb"},
	}

	var buf bytes.Buffer
	printPruneText(&buf, removed, now)
	assert.Equal(t,
		"Removed succinct-stable-1b4e28ba (channel stable, run 1b4e28ba-2fa1, age 1h30m0s)\n"+
			"Removed bbbbbbbbbbbb\n",
		buf.String())

	assert.Equal(t, map[string][]prunedJSON{"removed": {
		{
			Name:       "succinct-stable-1b4e28ba",
			RunID:      "1b4e28ba-2fa1",
			Channel:    "stable",
			Image:      "golang:1.25",
			CreatedAt:  "2026-03-01T12:00:00Z",
			AgeSeconds: 5400,
		},
		{Name: "bbbbbbbbbbbb"},
	}}, toPruneJSON(removed, now))
}
