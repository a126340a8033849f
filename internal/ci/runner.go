package ci

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shinji-kodama/succinct/internal/model"
)

// Executor prepares the environment of one channel. Opening a session is
// where a container executor pulls its image.
type Executor interface {
	Open(ctx context.Context, ch Channel) (Session, error)
}

// Session runs the steps of one channel.
type Session interface {
	// Run executes step and reports how it ended. A non-nil error means
	// the command could not be run at all; a command that ran and failed
	// is reported through StepResult.ExitCode.
	Run(ctx context.Context, step Step) (StepResult, error)

	// Close releases the session's resources.
	Close(ctx context.Context) error
}

// StepResult records how one step ended.
type StepResult struct {
	Name     string
	ExitCode int
	Output   string
	Duration time.Duration

	// Err is set when the command could not be run, or when a
	// FailOnOutput step printed something.
	Err error
}

// Failed reports whether the step ended the channel.
func (r StepResult) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

// ChannelResult is the outcome of one channel of the matrix.
type ChannelResult struct {
	Channel  Channel
	Steps    []StepResult
	Duration time.Duration

	// Err is nil when every step passed.
	Err error
}

// Passed reports whether every step of the channel passed.
func (r ChannelResult) Passed() bool {
	return r.Err == nil
}

// Report is the outcome of a pipeline over the whole matrix, in matrix
// order.
type Report struct {
	Pipeline string
	Channels []ChannelResult
	Duration time.Duration
}

// Err is nil iff every channel that is not allowed to fail passed. The
// error wraps model.ErrPipelineFailed and names the failed channels.
func (r *Report) Err() error {
	var failed []string
	for _, c := range r.Channels {
		if !c.Passed() && !c.Channel.AllowFailure {
			failed = append(failed, c.Channel.Name)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w on %s", r.Pipeline, model.ErrPipelineFailed, strings.Join(failed, ", "))
}

// Runner walks a pipeline over a channel matrix.
type Runner struct {
	Executor Executor
	Channels []Channel

	// Parallel bounds concurrent channels. Values below 1 mean 1.
	Parallel int

	// Logger receives progress. Nil disables logging.
	Logger *zap.Logger
}

// Run executes p on every channel and returns the report. It only
// returns early when ctx is cancelled, in which case the remaining steps
// fail with the context's error.
func (r *Runner) Run(ctx context.Context, p Pipeline) *Report {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()
	report := &Report{
		Pipeline: p.Name,
		Channels: make([]ChannelResult, len(r.Channels)),
	}

	// Channels do not cancel each other, so the group's error is unused.
	var g errgroup.Group
	g.SetLimit(max(r.Parallel, 1))
	for i, ch := range r.Channels {
		g.Go(func() error {
			report.Channels[i] = r.runChannel(ctx, logger.With(zap.String("channel", ch.Name)), ch, p)
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	return report
}

func (r *Runner) runChannel(ctx context.Context, logger *zap.Logger, ch Channel, p Pipeline) (result ChannelResult) {
	start := time.Now()
	result.Channel = ch
	defer func() { result.Duration = time.Since(start) }()

	logger.Info("opening channel", zap.String("image", ch.Image), zap.String("toolchain", ch.Toolchain))
	sess, err := r.Executor.Open(ctx, ch)
	if err != nil {
		result.Err = fmt.Errorf("failed to prepare channel %s: %w", ch.Name, err)
		logger.Warn("channel setup failed", zap.Error(err))
		return result
	}
	defer func() {
		// Cleanup must run even when the run was cancelled.
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to close channel session", zap.Error(err))
		}
	}()

	for _, step := range p.Steps {
		logger.Debug("running step", zap.String("step", step.Name), zap.Stringer("cmd", step))

		res, err := sess.Run(ctx, step)
		res.Name = step.Name
		if err != nil && res.Err == nil {
			res.Err = err
		}
		if res.Err == nil && res.ExitCode == 0 && step.FailOnOutput && strings.TrimSpace(res.Output) != "" {
			res.Err = fmt.Errorf("%s printed output:\n%s", step.Name, strings.TrimSpace(res.Output))
		}
		result.Steps = append(result.Steps, res)

		if res.Failed() {
			result.Err = stepError(step, res)
			logger.Warn("step failed",
				zap.String("step", step.Name),
				zap.Int("exit_code", res.ExitCode),
				zap.Bool("allow_failure", ch.AllowFailure),
			)
			return result
		}
		logger.Info("step passed", zap.String("step", step.Name), zap.Duration("duration", res.Duration))
	}
	return result
}

// stepError describes why a step ended its channel.
func stepError(step Step, res StepResult) error {
	if res.Err != nil {
		return fmt.Errorf("step %s: %w", step.Name, res.Err)
	}
	return fmt.Errorf("step %s: %s exited with status %d", step.Name, step, res.ExitCode)
}

// ErrNoChannels is returned by Validate for an empty matrix.
var ErrNoChannels = errors.New("no channels to run")

// Validate checks that the runner can start.
func (r *Runner) Validate() error {
	if r.Executor == nil {
		return errors.New("runner has no executor")
	}
	if len(r.Channels) == 0 {
		return ErrNoChannels
	}
	return nil
}
