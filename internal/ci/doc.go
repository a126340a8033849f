// Package ci runs the project's checks against a matrix of Go toolchain
// channels.
//
// A Pipeline is a flat list of Steps, each an external command. Within a
// channel the steps run strictly in order and the first failing step ends
// that channel. Channels are independent of each other and may run
// concurrently. A channel marked AllowFailure is reported like any other,
// but its failure does not fail the run.
//
// Two pipelines are provided:
//
//   - CheckPipeline: toolchain update, format check, build, test.
//   - CoveragePipeline: toolchain update, install the upload tool if it
//     is missing, clean the build directory, build, test with coverage
//     instrumentation, upload the profile.
//
// How a command is run is up to the Executor. LocalExecutor runs commands
// on the host with GOTOOLCHAIN selecting the channel's release; the docker
// package provides an executor that runs each channel in a golang
// container. Both prepend <local prefix>/bin to PATH for every step and
// export the prefix as LOCAL_PREFIX.
package ci
