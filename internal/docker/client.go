package docker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/docker/docker/client"

	"github.com/shinji-kodama/succinct/internal/model"
)

// pingTimeout bounds Ping. Docker Desktop answers slower than a native
// Linux daemon.
const pingTimeout = 5 * time.Second

// windowsPipe is the named pipe Docker Desktop listens on.
const windowsPipe = "npipe:////./pipe/docker_engine"

// Client is the daemon connection of the container executor.
//
//	c, err := docker.NewClient()
//	if err != nil { ... }
//	defer c.Close()
//	if err := c.Ping(ctx); err != nil { ... }
type Client struct {
	inner *client.Client
}

// NewClient connects to the daemon named by DOCKER_HOST, or else to the
// first default socket of the platform that exists:
//
//   - linux: /var/run/docker.sock
//   - darwin: /var/run/docker.sock, then ~/.docker/run/docker.sock
//   - windows: the Docker Desktop named pipe
//
// No request is sent; use Ping to check that a daemon answers. Errors are
// model.CLIError values with ExitDockerNotRunning.
func NewClient() (*Client, error) {
	host := os.Getenv("DOCKER_HOST")
	if host == "" {
		home, _ := os.UserHomeDir()
		var err error
		host, err = detectDockerHost(runtime.GOOS, home, socketExists)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
		}
	}

	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for host %q", host),
			err,
		)
	}
	return &Client{inner: c}, nil
}

// socketPaths lists the default Unix socket locations for goos, most
// preferred first. home may be empty.
func socketPaths(goos, home string) []string {
	paths := []string{"/var/run/docker.sock"}
	if goos == "darwin" && home != "" {
		paths = append(paths, filepath.Join(home, ".docker", "run", "docker.sock"))
	}
	return paths
}

// detectDockerHost returns the daemon address for goos. Unix sockets are
// accepted when exists reports them; the Windows pipe cannot be checked
// without connecting, so it is returned as is.
func detectDockerHost(goos, home string, exists func(string) bool) (string, error) {
	switch goos {
	case "windows":
		return windowsPipe, nil
	case "linux", "darwin":
	default:
		return "", fmt.Errorf("unsupported platform: %s", goos)
	}

	paths := socketPaths(goos, home)
	for _, p := range paths {
		if exists(p) {
			return "unix://" + p, nil
		}
	}
	return "", fmt.Errorf("no Docker socket at %s (is Docker running?)", strings.Join(paths, ", "))
}

// socketExists reports whether path exists. The daemon may still not be
// listening on it.
func socketExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Ping checks that the daemon answers within pingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(ctx); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"Docker daemon is not responding (is Docker running?)",
			err,
		)
	}
	return nil
}

// Close releases the connection. It is safe to call more than once.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// Inner returns the SDK client the executor and Prune talk through.
func (c *Client) Inner() *client.Client {
	return c.inner
}
