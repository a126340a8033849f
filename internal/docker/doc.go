// Package docker provides Docker Engine API wrappers and the container
// executor used by the succinct CI runner.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Container labels that tie every CI container to a run and a channel,
//     so that leftovers can be found and pruned without a state file
//   - The container Executor: one keep-alive golang:<tag> container per
//     channel, steps run through the exec API
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
