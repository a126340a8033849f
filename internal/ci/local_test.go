package ci

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/succinct/internal/config"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("local executor tests need a POSIX shell")
	}
}

func TestChannelEnv(t *testing.T) {
	base := []string{"HOME=/home/u", "PATH=/usr/bin:/bin", "GOTOOLCHAIN=auto", "LOCAL_PREFIX=/stale"}

	env := channelEnv(base, "/opt/p", "go1.25.0")

	assert.Contains(t, env, "HOME=/home/u")
	assert.Equal(t, "/opt/p/bin:/usr/bin:/bin", envValue(env, "PATH"))
	assert.Equal(t, "go1.25.0", envValue(env, "GOTOOLCHAIN"))
	assert.Equal(t, "/opt/p", envValue(env, "LOCAL_PREFIX"))
	assert.NotContains(t, env, "GOTOOLCHAIN=auto")
	assert.NotContains(t, env, "LOCAL_PREFIX=/stale")

	// Without a toolchain the inherited GOTOOLCHAIN is kept.
	env = channelEnv(base, "", "")
	assert.Equal(t, "auto", envValue(env, "GOTOOLCHAIN"))
	assert.Equal(t, "/usr/bin:/bin", envValue(env, "PATH"))
}

// TestLocalSession_Run runs real commands through the shell.
func TestLocalSession_Run(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	var live bytes.Buffer
	exec := &LocalExecutor{WorkDir: dir, LocalPrefix: filepath.Join(dir, "prefix"), Output: &live}
	sess, err := exec.Open(context.Background(), Channel{Name: "stable", Toolchain: "local"})
	require.NoError(t, err)
	defer func() { _ = sess.Close(context.Background()) }()

	tests := []struct {
		name     string
		cmd      string
		exitCode int
		output   string
	}{
		{"success", "echo hello", 0, "hello"},
		{"failure", "echo broken >&2; exit 3", 3, "broken"},
		{"runs in workdir", "pwd", 0, filepath.Base(dir)},
		{"sees prefix", `echo "$PATH"`, 0, filepath.Join(dir, "prefix", "bin") + ":"},
		{"sees toolchain", `echo "$GOTOOLCHAIN"`, 0, "local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := sess.Run(context.Background(), Step{Name: tt.name, Cmd: []string{"sh", "-c", tt.cmd}})
			require.NoError(t, err)
			assert.Equal(t, tt.exitCode, res.ExitCode)
			assert.Contains(t, res.Output, tt.output)
		})
	}
	assert.Contains(t, live.String(), "hello", "output is streamed as well as captured")
}

// TestLocalSession_PrefixLookup verifies that commands installed under the
// local prefix are found even though they are not on this process's PATH.
func TestLocalSession_PrefixLookup(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	prefix := filepath.Join(dir, "prefix")
	require.NoError(t, os.MkdirAll(filepath.Join(prefix, "bin"), 0o755))
	tool := filepath.Join(prefix, "bin", "succinct-fake-tool")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\necho from prefix \"$@\"\n"), 0o755))

	sess, err := (&LocalExecutor{WorkDir: dir, LocalPrefix: prefix}).Open(context.Background(), Channel{Name: "c"})
	require.NoError(t, err)

	res, err := sess.Run(context.Background(), Step{Name: "tool", Cmd: []string{"succinct-fake-tool", "-x"}})
	require.NoError(t, err)
	assert.Equal(t, "from prefix -x", strings.TrimSpace(res.Output))
}

func TestLocalSession_Errors(t *testing.T) {
	skipWithoutShell(t)

	_, err := (&LocalExecutor{WorkDir: filepath.Join(t.TempDir(), "missing")}).Open(context.Background(), Channel{})
	assert.Error(t, err)

	sess, err := (&LocalExecutor{WorkDir: t.TempDir()}).Open(context.Background(), Channel{})
	require.NoError(t, err)

	_, err = sess.Run(context.Background(), Step{Name: "empty"})
	assert.Error(t, err)

	res, err := sess.Run(context.Background(), Step{Name: "missing", Cmd: []string{"succinct-no-such-binary"}})
	assert.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
}

// TestLocalExecutor_Pipeline runs a whole pipeline of shell steps end to
// end through the Runner.
func TestLocalExecutor_Pipeline(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	r := &Runner{
		Executor: &LocalExecutor{WorkDir: dir},
		Channels: []Channel{{Name: "host"}},
	}
	p := Pipeline{Name: "shell", Steps: []Step{
		{Name: "write", Cmd: []string{"sh", "-c", "echo ok > marker"}},
		{Name: "check", Cmd: []string{"sh", "-c", "test -f marker"}},
		{Name: "fail", Cmd: []string{"sh", "-c", "exit 1"}},
		{Name: "never", Cmd: []string{"sh", "-c", "touch never"}},
	}}

	report := r.Run(context.Background(), p)

	require.Error(t, report.Err())
	assert.Len(t, report.Channels[0].Steps, 3)
	_, err := os.Stat(filepath.Join(dir, "never"))
	assert.True(t, os.IsNotExist(err), "steps after a failure must not run")
}

// TestLocalExecutor_InstallTool runs the coverage tool install step with a
// stand-in go command and checks where it would install.
func TestLocalExecutor_InstallTool(t *testing.T) {
	skipWithoutShell(t)

	fakeBin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(fakeBin, "go"),
		[]byte("#!/bin/sh\necho \"GOBIN=[$GOBIN] $*\"\n"), 0o755))
	t.Setenv("PATH", fakeBin+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("GOBIN", "")

	cfg := config.Default().CI
	cfg.Coverage.Tool = "example.com/succinct-missing-tool@v1"
	install := CoveragePipeline(cfg, "").Steps[1]
	dir := t.TempDir()
	prefix := filepath.Join(dir, "prefix")

	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{"with prefix", prefix, "GOBIN=[" + filepath.Join(prefix, "bin") + "] install example.com/succinct-missing-tool@v1"},
		{"without prefix", "", "GOBIN=[] install example.com/succinct-missing-tool@v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := (&LocalExecutor{WorkDir: dir, LocalPrefix: tt.prefix}).Open(context.Background(), Channel{Name: "c"})
			require.NoError(t, err)

			res, err := sess.Run(context.Background(), install)
			require.NoError(t, err)
			assert.Equal(t, 0, res.ExitCode)
			assert.Equal(t, tt.want, strings.TrimSpace(res.Output))
		})
	}
}
