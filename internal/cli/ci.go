// Package cli: ci.go implements the "succinct ci" command group.
//
// The group runs the project's pipelines over the toolchain matrix from
// the config file:
//   - ci run: toolchain update, format check, build and tests per channel
//   - ci coverage: the same build under coverage, uploaded to the
//     coverage service, on a single channel
//   - ci matrix: print the configured channels
//   - ci prune: remove containers left behind by interrupted docker runs
//
// A channel stops at its first failing step. The command fails (exit
// code 5) when any channel that is not allowed to fail did fail.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/succinct/internal/ci"
	"github.com/shinji-kodama/succinct/internal/config"
	"github.com/shinji-kodama/succinct/internal/docker"
	"github.com/shinji-kodama/succinct/internal/model"
)

// ciFlags holds the flags shared by ci run and ci coverage. Zero values
// keep the config file's settings.
type ciFlags struct {
	executor string
	workDir  string
	channels []string
	parallel int

	// skipUpload drops the upload step of the coverage pipeline.
	skipUpload bool
}

// NewCICommand creates the "ci" cobra command group.
func NewCICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ci",
		Short: "Run the CI pipelines over the toolchain matrix",
		Long: `Run the check and coverage pipelines over the toolchain matrix.

Every step runs with LOCAL_PREFIX set and <prefix>/bin first on PATH.
The local executor selects a channel's toolchain through GOTOOLCHAIN;
the docker executor pulls the channel's golang image and runs the steps
in a container with the work dir mounted at /src.`,
	}

	cmd.AddCommand(newCIRunCommand())
	cmd.AddCommand(newCICoverageCommand())
	cmd.AddCommand(newCIMatrixCommand())
	cmd.AddCommand(newCIPruneCommand())
	return cmd
}

func addExecutorFlags(cmd *cobra.Command, flags *ciFlags) {
	cmd.Flags().StringVar(&flags.executor, "executor", "", "Executor: local or docker (default: from config)")
	cmd.Flags().StringVar(&flags.workDir, "workdir", "", "Module to check (default: from config)")
}

func newCIRunCommand() *cobra.Command {
	flags := &ciFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check formatting, build and test on every channel",
		Long: `Run the check pipeline on every channel of the matrix.

Examples:
  succinct ci run
  succinct ci run --channel stable --channel oldstable
  succinct ci run --executor docker --parallel 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ciConfig(flags)
			if err != nil {
				return err
			}
			channels, err := cfg.SelectChannels(flags.channels)
			if err != nil {
				return err
			}
			report, err := runPipeline(cmd.Context(), cfg, channels, ci.CheckPipeline())
			if err != nil {
				return err
			}
			if err := printReport(cmd.OutOrStdout(), report, nil); err != nil {
				return err
			}
			return report.Err()
		},
	}
	addExecutorFlags(cmd, flags)
	cmd.Flags().StringSliceVar(&flags.channels, "channel", nil, "Channels to run (default: all)")
	cmd.Flags().IntVar(&flags.parallel, "parallel", 0, "Channels run at once (default: from config)")
	return cmd
}

func newCICoverageCommand() *cobra.Command {
	flags := &ciFlags{}
	var channel string
	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Run the tests under coverage and upload the profile",
		Long: `Run the coverage pipeline on one channel.

The pipeline installs the upload tool under the local prefix when it is
missing, recreates the build directory, builds, runs the tests with
-coverprofile and uploads the profile. The upload token is read from the
variable named by ci.coverage.token_env. A per-file summary of the
profile is printed afterwards.

Examples:
  succinct ci coverage
  succinct ci coverage --channel oldstable --skip-upload`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ciConfig(flags)
			if err != nil {
				return err
			}
			ch, err := coverageChannel(cfg, channel)
			if err != nil {
				return err
			}

			p := ci.CoveragePipeline(cfg.CI, os.Getenv(cfg.CI.Coverage.TokenEnv))
			if flags.skipUpload {
				p.Steps = p.Steps[:len(p.Steps)-1]
			}
			report, err := runPipeline(cmd.Context(), cfg, []ci.Channel{ch}, p)
			if err != nil {
				return err
			}

			var summary *ci.CoverageSummary
			if stepPassed(report, "coverage") {
				summary, err = ci.Summarize(profilePath(cfg.CI))
				if err != nil {
					return err
				}
			}
			if err := printReport(cmd.OutOrStdout(), report, summary); err != nil {
				return err
			}
			return report.Err()
		},
	}
	addExecutorFlags(cmd, flags)
	cmd.Flags().StringVar(&channel, "channel", "", "Channel to run (default: the first of the matrix)")
	cmd.Flags().BoolVar(&flags.skipUpload, "skip-upload", false, "Do not upload the coverage profile")
	return cmd
}

func newCIMatrixCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "matrix",
		Short: "Print the configured toolchain matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if IsJSONOutput() {
				return printJSON(out, matrixJSON(cfg.CI.Channels))
			}
			printMatrixText(out, cfg.CI.Channels)
			return nil
		},
	}
}

func newCIPruneCommand() *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove leftover CI containers",
		Long: `Remove containers labelled succinct.managed-by=succinct, including
stopped ones. Containers are normally removed at the end of each channel;
prune is for runs that were killed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := docker.NewClient()
			if err != nil {
				return err
			}
			defer func() { _ = cli.Close() }()
			if err := cli.Ping(cmd.Context()); err != nil {
				return err
			}

			removed, err := docker.Prune(cmd.Context(), cli, runID)
			out := cmd.OutOrStdout()
			now := time.Now()
			if IsJSONOutput() {
				if jsonErr := printJSON(out, toPruneJSON(removed, now)); jsonErr != nil {
					return jsonErr
				}
			} else {
				printPruneText(out, removed, now)
				if len(removed) == 0 && err == nil {
					fmt.Fprintln(out, "No leftover containers found.")
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "Only remove the containers of this run")
	return cmd
}

// prunedJSON is the JSON output structure of one pruned container.
type prunedJSON struct {
	Name       string `json:"name"`
	RunID      string `json:"runId,omitempty"`
	Channel    string `json:"channel,omitempty"`
	Image      string `json:"image,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	AgeSeconds int64  `json:"ageSeconds,omitempty"`
}

func toPruneJSON(removed []docker.PrunedContainer, now time.Time) map[string][]prunedJSON {
	entries := make([]prunedJSON, 0, len(removed))
	for _, c := range removed {
		e := prunedJSON{Name: c.Name, RunID: c.RunID, Channel: c.Channel, Image: c.Image}
		if !c.CreatedAt.IsZero() {
			e.CreatedAt = c.CreatedAt.UTC().Format(time.RFC3339)
			e.AgeSeconds = int64(now.Sub(c.CreatedAt).Seconds())
		}
		entries = append(entries, e)
	}
	return map[string][]prunedJSON{"removed": entries}
}

// printPruneText prints one line per removed container. Containers whose
// labels could not be decoded are listed by name only.
func printPruneText(w io.Writer, removed []docker.PrunedContainer, now time.Time) {
	for _, c := range removed {
		if c.CreatedAt.IsZero() {
			fmt.Fprintf(w, "Removed %s\n", c.Name)
			continue
		}
		age := now.Sub(c.CreatedAt).Truncate(time.Second)
		fmt.Fprintf(w, "Removed %s (channel %s, run %s, age %s)\n", c.Name, orDash(c.Channel), orDash(c.RunID), age)
	}
}

// ciConfig loads the config and applies the executor flags.
func ciConfig(flags *ciFlags) (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if flags.executor != "" {
		cfg.CI.Executor = flags.executor
	}
	if flags.workDir != "" {
		cfg.CI.WorkDir = flags.workDir
	}
	if flags.parallel != 0 {
		cfg.CI.Parallel = flags.parallel
	}
	if err := cfg.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidInput, "invalid flags", err)
	}
	return cfg, nil
}

// runPipeline opens the configured executor and runs p on channels.
func runPipeline(ctx context.Context, cfg *config.Config, channels []ci.Channel, p ci.Pipeline) (*ci.Report, error) {
	executor, cleanup, err := newExecutor(ctx, cfg.CI)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	runner := &ci.Runner{
		Executor: executor,
		Channels: channels,
		Parallel: cfg.CI.Parallel,
		Logger:   logger,
	}
	if err := runner.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "cannot run pipeline", err)
	}
	VerboseLog("Running %s pipeline on %d channel(s) with the %s executor", p.Name, len(channels), cfg.CI.Executor)
	return runner.Run(ctx, p), nil
}

// newExecutor builds the executor selected in cfg. cleanup releases it.
func newExecutor(ctx context.Context, cfg config.CIConfig) (ci.Executor, func(), error) {
	kind, err := model.ParseExecutorKind(cfg.Executor)
	if err != nil {
		return nil, nil, model.WrapCLIError(model.ExitConfigError, "invalid executor", err)
	}

	// Step output is streamed only in verbose mode; the summary shows
	// the output of failed steps either way.
	var stream io.Writer
	if verbose {
		stream = os.Stderr
	}

	switch kind {
	case model.ExecutorDocker:
		cli, err := docker.NewClient()
		if err != nil {
			return nil, nil, err
		}
		if err := cli.Ping(ctx); err != nil {
			_ = cli.Close()
			return nil, nil, err
		}
		e := docker.NewExecutor(cli, cfg.WorkDir)
		e.Output = stream
		e.Logger = logger
		VerboseLog("Docker run id %s", e.RunID)
		return e, func() { _ = cli.Close() }, nil
	default:
		e := &ci.LocalExecutor{
			WorkDir:     cfg.WorkDir,
			LocalPrefix: cfg.LocalPrefix,
			Output:      stream,
		}
		return e, func() {}, nil
	}
}

// stepPassed reports whether every channel ran the named step
// successfully.
func stepPassed(r *ci.Report, name string) bool {
	if len(r.Channels) == 0 {
		return false
	}
	for _, c := range r.Channels {
		ok := false
		for _, s := range c.Steps {
			if s.Name == name && !s.Failed() {
				ok = true
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// coverageChannel picks the single channel the coverage pipeline runs
// on: name, or the first of the matrix. The build directory is shared, so
// coverage never runs on more than one. Allowed failures only apply to
// the check matrix, so the returned channel always has to pass.
func coverageChannel(cfg *config.Config, name string) (ci.Channel, error) {
	ch := cfg.CI.Channels[0]
	if name != "" {
		selected, err := cfg.SelectChannels([]string{name})
		if err != nil {
			return ci.Channel{}, err
		}
		ch = selected[0]
	}
	ch.AllowFailure = false
	return ch, nil
}

// profilePath returns the coverage profile location on the host.
func profilePath(cfg config.CIConfig) string {
	return filepath.Join(cfg.WorkDir, cfg.BuildDir, ci.CoverageProfile)
}

// reportJSON is the JSON output structure of a pipeline run.
type reportJSON struct {
	Pipeline   string        `json:"pipeline"`
	Passed     bool          `json:"passed"`
	DurationMS int64         `json:"durationMs"`
	Channels   []channelJSON `json:"channels"`
	Coverage   *coverageJSON `json:"coverage,omitempty"`
}

type channelJSON struct {
	Name         string     `json:"name"`
	Image        string     `json:"image,omitempty"`
	Toolchain    string     `json:"toolchain,omitempty"`
	AllowFailure bool       `json:"allowFailure"`
	Passed       bool       `json:"passed"`
	Error        string     `json:"error,omitempty"`
	DurationMS   int64      `json:"durationMs"`
	Steps        []stepJSON `json:"steps"`
}

type stepJSON struct {
	Name       string `json:"name"`
	ExitCode   int    `json:"exitCode"`
	DurationMS int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
	Output     string `json:"output,omitempty"`
}

type coverageJSON struct {
	Mode    string             `json:"mode"`
	Percent float64            `json:"percent"`
	Files   map[string]float64 `json:"files"`
}

// toReportJSON converts a report. Step output is only included for
// failed steps.
func toReportJSON(r *ci.Report, s *ci.CoverageSummary) reportJSON {
	out := reportJSON{
		Pipeline:   r.Pipeline,
		Passed:     r.Err() == nil,
		DurationMS: r.Duration.Milliseconds(),
		Channels:   make([]channelJSON, 0, len(r.Channels)),
	}
	for _, c := range r.Channels {
		cj := channelJSON{
			Name:         c.Channel.Name,
			Image:        c.Channel.Image,
			Toolchain:    c.Channel.Toolchain,
			AllowFailure: c.Channel.AllowFailure,
			Passed:       c.Passed(),
			DurationMS:   c.Duration.Milliseconds(),
			Steps:        make([]stepJSON, 0, len(c.Steps)),
		}
		if c.Err != nil {
			cj.Error = c.Err.Error()
		}
		for _, st := range c.Steps {
			sj := stepJSON{Name: st.Name, ExitCode: st.ExitCode, DurationMS: st.Duration.Milliseconds()}
			if st.Failed() {
				sj.Output = st.Output
				if st.Err != nil {
					sj.Error = st.Err.Error()
				}
			}
			cj.Steps = append(cj.Steps, sj)
		}
		out.Channels = append(out.Channels, cj)
	}
	if s != nil {
		cov := &coverageJSON{Mode: s.Mode, Percent: s.Total.Percent(), Files: make(map[string]float64, len(s.Files))}
		for _, f := range s.Files {
			cov.Files[f.File] = f.Percent()
		}
		out.Coverage = cov
	}
	return out
}

// printReport writes the report (and the coverage summary, if any) in
// the selected format.
func printReport(w io.Writer, r *ci.Report, s *ci.CoverageSummary) error {
	if IsJSONOutput() {
		return printJSON(w, toReportJSON(r, s))
	}
	ci.WriteSummary(w, r)
	if s != nil {
		fmt.Fprintln(w)
		ci.WriteCoverage(w, s)
	}
	fmt.Fprintf(w, "\nfinished in %s\n", r.Duration.Round(time.Millisecond))
	return nil
}

type matrixEntryJSON struct {
	Name         string `json:"name"`
	Image        string `json:"image,omitempty"`
	Toolchain    string `json:"toolchain,omitempty"`
	AllowFailure bool   `json:"allowFailure"`
}

func matrixJSON(channels []ci.Channel) map[string][]matrixEntryJSON {
	entries := make([]matrixEntryJSON, 0, len(channels))
	for _, c := range channels {
		entries = append(entries, matrixEntryJSON(c))
	}
	return map[string][]matrixEntryJSON{"channels": entries}
}

// printMatrixText prints the matrix as a table:
//
//	NAME        IMAGE             TOOLCHAIN   ALLOW FAILURE
//	stable      golang:1.25       go1.25.0    no
//	next        golang:1.26rc1    go1.26rc1   yes
func printMatrixText(w io.Writer, channels []ci.Channel) {
	fmt.Fprintf(w, "%-12s %-18s %-12s %s\n", "NAME", "IMAGE", "TOOLCHAIN", "ALLOW FAILURE")
	for _, c := range channels {
		allow := "no"
		if c.AllowFailure {
			allow = "yes"
		}
		fmt.Fprintf(w, "%-12s %-18s %-12s %s\n", c.Name, orDash(c.Image), orDash(c.Toolchain), allow)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
