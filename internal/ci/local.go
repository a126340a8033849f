package ci

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// LocalExecutor runs steps on the host in WorkDir.
type LocalExecutor struct {
	// WorkDir is the directory every step runs in.
	WorkDir string

	// LocalPrefix is prepended to PATH as <prefix>/bin.
	LocalPrefix string

	// Output, when set, receives step output as it is produced in
	// addition to it being captured in the StepResult.
	Output io.Writer
}

// Open builds the channel's environment. The toolchain itself is fetched
// by the first go command run under it.
func (e *LocalExecutor) Open(_ context.Context, ch Channel) (Session, error) {
	info, err := os.Stat(e.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("work dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("work dir %s is not a directory", e.WorkDir)
	}
	return &localSession{
		dir:    e.WorkDir,
		env:    channelEnv(os.Environ(), e.LocalPrefix, ch.Toolchain),
		output: e.Output,
	}, nil
}

// channelEnv returns base with PATH, GOTOOLCHAIN and LOCAL_PREFIX set for
// a channel. An empty toolchain keeps whatever GOTOOLCHAIN base has.
func channelEnv(base []string, prefix, toolchain string) []string {
	var (
		env  = make([]string, 0, len(base)+3)
		path string
	)
	for _, kv := range base {
		key, value, _ := strings.Cut(kv, "=")
		switch {
		case key == "PATH":
			path = value
			continue
		case key == PrefixEnv:
			continue
		case key == "GOTOOLCHAIN" && toolchain != "":
			continue
		}
		env = append(env, kv)
	}

	if prefix != "" {
		bin := filepath.Join(prefix, "bin")
		if path == "" {
			path = bin
		} else {
			path = bin + string(os.PathListSeparator) + path
		}
		env = append(env, PrefixEnv+"="+prefix)
	}
	env = append(env, "PATH="+path)
	if toolchain != "" {
		env = append(env, "GOTOOLCHAIN="+toolchain)
	}
	return env
}

type localSession struct {
	dir    string
	env    []string
	output io.Writer
}

func (s *localSession) Run(ctx context.Context, step Step) (StepResult, error) {
	res := StepResult{Name: step.Name}
	if len(step.Cmd) == 0 {
		return res, fmt.Errorf("step %s has no command", step.Name)
	}

	env := append(append([]string(nil), s.env...), step.Env...)

	// exec.Command resolves names against this process's PATH, not the
	// one in cmd.Env, so tools installed under the prefix are looked up
	// here.
	name := lookPath(step.Cmd[0], envValue(env, "PATH"))

	// #nosec G204 -- steps come from the built-in pipelines
	cmd := exec.CommandContext(ctx, name, step.Cmd[1:]...)
	cmd.Dir = s.dir
	cmd.Env = env

	var buf bytes.Buffer
	var w io.Writer = &buf
	if s.output != nil {
		w = io.MultiWriter(&buf, s.output)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Output = buf.String()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		return res, fmt.Errorf("failed to run %s: %w", step, err)
	}
	return res, nil
}

func (s *localSession) Close(context.Context) error {
	return nil
}

// envValue returns the last value of key in env.
func envValue(env []string, key string) string {
	var value string
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			value = v
		}
	}
	return value
}

// lookPath resolves name against path. Names containing a separator, and
// names not found, are returned unchanged for exec to report.
func lookPath(name, path string) string {
	if strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return candidate
		}
	}
	return name
}
