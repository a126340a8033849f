package ci

import (
	"fmt"
	"path"
	"strings"

	"github.com/shinji-kodama/succinct/internal/config"
)

// Channel is one entry of the toolchain matrix.
type Channel = config.Channel

// PrefixEnv names the variable through which steps see the local install
// prefix.
const PrefixEnv = "LOCAL_PREFIX"

// CoverageProfile is the file name of the coverage profile inside the
// build directory.
const CoverageProfile = "coverage.out"

// Step is a single external command.
type Step struct {
	// Name identifies the step in reports.
	Name string

	// Cmd is the argv of the command. It is not run through a shell;
	// steps that need one use sh -c explicitly.
	Cmd []string

	// Env holds extra KEY=VALUE pairs for this step only.
	Env []string

	// FailOnOutput makes the step fail when it prints anything, even if
	// it exits 0. gofmt -l reports unformatted files this way.
	FailOnOutput bool
}

func (s Step) String() string {
	return strings.Join(s.Cmd, " ")
}

// Pipeline is an ordered list of steps run once per channel.
type Pipeline struct {
	Name  string
	Steps []Step
}

// toolchainStep prints the toolchain version. Under GOTOOLCHAIN this is
// what makes the go command fetch the channel's release.
func toolchainStep() Step {
	return Step{Name: "toolchain", Cmd: []string{"go", "version"}}
}

// CheckPipeline returns the format/build/test pipeline.
func CheckPipeline() Pipeline {
	return Pipeline{
		Name: "check",
		Steps: []Step{
			toolchainStep(),
			{Name: "format", Cmd: []string{"gofmt", "-l", "."}, FailOnOutput: true},
			{Name: "build", Cmd: []string{"go", "build", "./..."}},
			{Name: "test", Cmd: []string{"go", "test", "./..."}},
		},
	}
}

// CoveragePipeline returns the coverage pipeline. token is the upload
// token; when empty the upload tool falls back to its own environment
// lookup (CI services usually provide one).
func CoveragePipeline(cfg config.CIConfig, token string) Pipeline {
	buildDir := path.Clean(cfg.BuildDir)
	profile := path.Join(buildDir, CoverageProfile)
	tool := toolBinary(cfg.Coverage.Tool)

	// Without a prefix go install falls back to its own GOBIN.
	install := fmt.Sprintf(`command -v %s >/dev/null 2>&1 || { [ -z "$%s" ] || export GOBIN="$%s/bin"; go install %s; }`,
		shellQuote(tool), PrefixEnv, PrefixEnv, shellQuote(cfg.Coverage.Tool))
	clean := fmt.Sprintf("rm -rf %s && mkdir -p %s", shellQuote(buildDir), shellQuote(buildDir))

	upload := Step{
		Name: "upload",
		Cmd: []string{
			tool,
			"-coverprofile=" + profile,
			"-service=" + cfg.Coverage.Service,
			"-endpoint=" + cfg.Coverage.Endpoint,
		},
	}
	if token != "" {
		upload.Env = []string{"COVERALLS_TOKEN=" + token}
	}

	return Pipeline{
		Name: "coverage",
		Steps: []Step{
			toolchainStep(),
			{Name: "install-tool", Cmd: []string{"sh", "-c", install}},
			{Name: "clean", Cmd: []string{"sh", "-c", clean}},
			{Name: "build", Cmd: []string{"go", "build", "./..."}},
			{Name: "coverage", Cmd: []string{"go", "test", "-covermode=atomic", "-coverprofile=" + profile, "./..."}},
			upload,
		},
	}
}

// toolBinary returns the command name that go install produces for an
// install argument: github.com/mattn/goveralls@latest -> goveralls.
func toolBinary(installArg string) string {
	pkg, _, _ := strings.Cut(installArg, "@")
	name := path.Base(pkg)
	// Major version suffixes (…/cmd/foo/v2) are not part of the name.
	if len(name) > 1 && name[0] == 'v' && strings.Trim(name[1:], "0123456789") == "" {
		name = path.Base(path.Dir(pkg))
	}
	return name
}

// shellQuote quotes s for a POSIX shell.
func shellQuote(s string) string {
	if s != "" && strings.Trim(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./@:=") == "" {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
