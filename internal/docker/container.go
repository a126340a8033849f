// container.go implements the container executor of the CI runner. Each
// channel gets one keep-alive container created from the channel's image,
// with the work dir bind-mounted at /src. Steps are run through the exec
// API and the container is force-removed when the session closes.
//
// All containers are identified by the "succinct.managed-by" label, which
// enables filtering them from unrelated containers on the same host.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"go.uber.org/zap"

	"github.com/shinji-kodama/succinct/internal/ci"
	"github.com/shinji-kodama/succinct/internal/model"
)

const (
	// SourceDir is where the work dir is mounted inside the container.
	SourceDir = "/src"

	// ContainerPrefix is the LOCAL_PREFIX seen by steps in a container.
	// Host binaries under the host prefix are not usable in the image, so
	// the container gets its own.
	ContainerPrefix = "/opt/succinct"

	// imagePath is the PATH of the official golang images. Setting Env
	// on a container replaces the image's PATH, so it is restated here.
	imagePath = "/go/bin:/usr/local/go/bin:/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
)

// apiClient is the part of the Docker SDK the executor uses.
// *client.Client satisfies it.
type apiClient interface {
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config container.ExecAttachOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// Executor runs CI channels in containers. It implements ci.Executor.
type Executor struct {
	api apiClient

	// WorkDir is the host directory mounted at SourceDir.
	WorkDir string

	// RunID labels every container of this executor. NewExecutor sets a
	// fresh UUID.
	RunID string

	// Output, when set, receives step output as it is produced.
	Output io.Writer

	// Logger receives container lifecycle events. Nil disables logging.
	Logger *zap.Logger
}

// NewExecutor returns an executor talking to the daemon behind cli.
func NewExecutor(cli *Client, workDir string) *Executor {
	return &Executor{
		api:     cli.Inner(),
		WorkDir: workDir,
		RunID:   uuid.NewString(),
	}
}

var _ ci.Executor = (*Executor)(nil)

// Open pulls the channel's image, then creates and starts its container.
// Pulling is the toolchain update for this executor: a moving tag such as
// golang:1.25 picks up the latest patch release.
func (e *Executor) Open(ctx context.Context, ch ci.Channel) (ci.Session, error) {
	if ch.Image == "" {
		return nil, fmt.Errorf("channel %s has no image", ch.Name)
	}
	workDir, err := filepath.Abs(e.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("work dir: %w", err)
	}
	logger := e.logger().With(zap.String("channel", ch.Name), zap.String("image", ch.Image))

	logger.Debug("pulling image")
	rc, err := e.api.ImagePull(ctx, ch.Image, image.PullOptions{})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to pull image %q", ch.Image),
			err,
		)
	}
	// The pull only completes once its progress stream is consumed.
	_, err = io.Copy(io.Discard, rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to pull image %q: %w", ch.Image, err)
	}

	name := ContainerName(ch.Name, e.RunID)
	resp, err := e.api.ContainerCreate(ctx,
		containerConfig(ch, BuildLabels(e.RunID, ch, time.Now())),
		&container.HostConfig{Binds: []string{workDir + ":" + SourceDir}},
		nil, nil, name,
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create container %q", name),
			err,
		)
	}

	sess := &session{api: e.api, id: resp.ID, name: name, output: e.Output, logger: logger}
	if err := e.api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// The container exists at this point and would otherwise leak.
		_ = sess.Close(context.WithoutCancel(ctx))
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to start container %q", name),
			err,
		)
	}
	logger.Debug("container started", zap.String("container", name))
	return sess, nil
}

func (e *Executor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// containerConfig describes the keep-alive container of a channel.
// GOTOOLCHAIN=local pins the go command to the image's release.
func containerConfig(ch ci.Channel, labels map[string]string) *container.Config {
	return &container.Config{
		Image:      ch.Image,
		Cmd:        []string{"sleep", "infinity"},
		WorkingDir: SourceDir,
		Labels:     labels,
		Env: []string{
			ci.PrefixEnv + "=" + ContainerPrefix,
			"PATH=" + ContainerPrefix + "/bin:" + imagePath,
			"GOTOOLCHAIN=local",
		},
	}
}

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// ContainerName returns the container name for a channel of a run, e.g.
// "succinct-stable-1b4e28ba". Characters Docker rejects in names are
// replaced with '-'.
func ContainerName(channel, runID string) string {
	short, _, _ := strings.Cut(runID, "-")
	name := "succinct-" + invalidNameChars.ReplaceAllString(channel, "-")
	if short != "" {
		name += "-" + short
	}
	return name
}

// execOptions describes the exec of one step.
func execOptions(step ci.Step) container.ExecOptions {
	return container.ExecOptions{
		Cmd:          step.Cmd,
		Env:          step.Env,
		WorkingDir:   SourceDir,
		AttachStdout: true,
		AttachStderr: true,
	}
}

type session struct {
	api    apiClient
	id     string
	name   string
	output io.Writer
	logger *zap.Logger
}

func (s *session) Run(ctx context.Context, step ci.Step) (res ci.StepResult, err error) {
	res.Name = step.Name
	if len(step.Cmd) == 0 {
		return res, fmt.Errorf("step %s has no command", step.Name)
	}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if err != nil {
			res.ExitCode = -1
		}
	}()

	created, err := s.api.ContainerExecCreate(ctx, s.id, execOptions(step))
	if err != nil {
		return res, fmt.Errorf("failed to create exec for %s: %w", step, err)
	}

	// Attaching starts the exec.
	hijacked, err := s.api.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return res, fmt.Errorf("failed to attach to %s: %w", step, err)
	}
	defer hijacked.Close()

	// Reads from the hijacked connection ignore ctx; closing it unblocks
	// the copy below.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			hijacked.Close()
		case <-done:
		}
	}()

	var buf bytes.Buffer
	var w io.Writer = &buf
	if s.output != nil {
		w = io.MultiWriter(&buf, s.output)
	}
	_, copyErr := stdcopy.StdCopy(w, w, hijacked.Reader)
	res.Output = buf.String()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("failed to run %s: %w", step, ctxErr)
	}
	if copyErr != nil {
		return res, fmt.Errorf("failed to read output of %s: %w", step, copyErr)
	}

	inspect, err := s.api.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return res, fmt.Errorf("failed to inspect %s: %w", step, err)
	}
	res.ExitCode = inspect.ExitCode
	return res, nil
}

// Close force-removes the container. Docker kills it first.
func (s *session) Close(ctx context.Context) error {
	err := s.api.ContainerRemove(ctx, s.id, container.RemoveOptions{Force: true})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %q", s.name),
			err,
		)
	}
	s.logger.Debug("container removed", zap.String("container", s.name))
	return nil
}

// PrunedContainer describes one container removed by Prune. The label
// fields are zero when the container's labels could not be decoded.
type PrunedContainer struct {
	Name string
	ContainerLabels
}

// Prune removes succinct containers left behind by runs that did not
// close their sessions, e.g. after a crash. An empty runID prunes every
// run.
func Prune(ctx context.Context, cli *Client, runID string) ([]PrunedContainer, error) {
	return prune(ctx, cli.Inner(), runID)
}

func prune(ctx context.Context, api apiClient, runID string) ([]PrunedContainer, error) {
	// All includes exited containers.
	containers, err := api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: FilterLabels(runID),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	removed := make([]PrunedContainer, 0, len(containers))
	var errs []error
	for _, c := range containers {
		name := containerDisplayName(c)
		if err := api.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", name, err))
			continue
		}
		// A container carrying only the managed-by label, e.g. one
		// created by hand, is still removed.
		labels, _ := ParseLabels(c.Labels)
		removed = append(removed, PrunedContainer{Name: name, ContainerLabels: labels})
	}
	if len(errs) > 0 {
		return removed, model.WrapCLIError(model.ExitDockerNotRunning, "failed to prune containers", errors.Join(errs...))
	}
	return removed, nil
}

// containerDisplayName strips the leading "/" Docker puts on container
// names, falling back to the short ID.
func containerDisplayName(c container.Summary) string {
	if len(c.Names) > 0 {
		return strings.TrimPrefix(c.Names[0], "/")
	}
	if len(c.ID) > 12 {
		return c.ID[:12]
	}
	return c.ID
}
