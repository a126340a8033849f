// Package cli implements the cobra-based CLI commands for succinct.
//
// Each subcommand (build, inspect, query, export, gen, ci) is defined in
// its own file within this package. This file defines the root command
// that serves as the parent for all subcommands and handles global flags.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinji-kodama/succinct/internal/config"
	"github.com/shinji-kodama/succinct/internal/logging"
	"github.com/shinji-kodama/succinct/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, all output uses structured JSON format for machine consumption.
	// When false (default), output uses human-readable text format.
	jsonOutput bool

	// verbose enables debug logging on stderr.
	verbose bool

	// configPath is an explicit config file. When empty the working
	// directory is searched for config.FileNames.
	configPath string

	// blockSize overrides tree.block_size from the config when non-zero.
	blockSize uint64

	// logger is built from the flags before any subcommand runs.
	logger = zap.NewNop()
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action. It only provides
// help text and global flags; subcommands do the work.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "succinct",
		Short: "Succinct tree toolkit and CI pipeline runner",
		Long: `succinct builds balanced parentheses (BP) and level-order unary degree
sequence (LOUDS) trees from tree documents or raw bit strings, saves them
in a compact binary form and answers navigation queries on them.

The ci command group runs the project's check and coverage pipelines over
a matrix of Go toolchains, locally or in golang containers.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(verbose, jsonOutput)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	// Subcommands inherit this, so a bad flag anywhere is invalid input
	// rather than a general error.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return model.WrapCLIError(model.ExitInvalidInput, "invalid flags for "+cmd.CommandPath(), err)
	})

	// PersistentFlags are inherited by all subcommands.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: .succinct.yaml, .succinct.yml or .succinct.toml in the working directory)")
	rootCmd.PersistentFlags().Uint64Var(&blockSize, "block-size", 0, "Range min-max block size for BP trees (default: from config)")

	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewInspectCommand())
	rootCmd.AddCommand(NewQueryCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewGenCommand())
	rootCmd.AddCommand(NewCICommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// An interrupt cancels the command's context, which stops running CI
// steps and removes their containers.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()

	if err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(os.Stderr, cliErr.Message, cliErr.Err)
		} else {
			printError(os.Stderr, err.Error(), nil)
		}
		os.Exit(int(ExitCodeFor(err)))
	}
}

// ExitCodeFor maps an error returned by a command to the process exit
// code. CLIError carries its own code; bare library errors are
// classified by their sentinel.
func ExitCodeFor(err error) model.ExitCode {
	var cliErr *model.CLIError
	switch {
	case err == nil:
		return model.ExitSuccess
	case errors.As(err, &cliErr):
		return cliErr.Code
	case model.IsNodeError(err):
		return model.ExitNodeError
	case model.IsInputError(err):
		return model.ExitInvalidInput
	case errors.Is(err, model.ErrPipelineFailed):
		return model.ExitPipelineFailed
	default:
		return model.ExitGeneralError
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]any{
			"error": map[string]any{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]any); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode, because stdout is
		// reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// VerboseLog writes a debug entry. It is only shown with --verbose.
func VerboseLog(format string, args ...any) {
	logger.Sugar().Debugf(format, args...)
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig reads the config file selected by --config and applies the
// global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, ".")
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		VerboseLog("Loaded config from %s", cfg.Path)
	}
	if blockSize > 0 {
		cfg.Tree.BlockSize = blockSize
	}
	return cfg, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
