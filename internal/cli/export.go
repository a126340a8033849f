// Package cli: export.go implements the "succinct export" command, the
// inverse of build: it turns a saved tree back into a nested document.
package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/succinct/internal/model"
	"github.com/shinji-kodama/succinct/internal/succinct"
	"github.com/shinji-kodama/succinct/internal/treefile"
)

type exportFlags struct {
	format string
	out    string
}

// NewExportCommand creates the "export" cobra command.
func NewExportCommand() *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write a saved tree as a YAML or JSON document",
		Long: `Rebuild the nested tree document of a saved tree.

Unlabelled trees are exported with empty labels. Without --out the
document is written to stdout; with --out the format defaults to the
file's extension.

Examples:
  succinct export tree.sct
  succinct export tree.sct --format json
  succinct export tree.sct --out tree.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.format, "format", "", "Document format: yaml or json (default: from --out, else yaml)")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Output file (default: stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, path string, flags *exportFlags) error {
	format, err := exportFormat(flags)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "invalid --format", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	t, err := openTree(path, cfg.Tree.BlockSize)
	if err != nil {
		return err
	}
	src, err := succinct.ToTree(t)
	if err != nil {
		return fmt.Errorf("failed to rebuild %s: %w", path, err)
	}

	if flags.out == "" {
		return treefile.Write(cmd.OutOrStdout(), src, format)
	}
	var buf bytes.Buffer
	if err := treefile.Write(&buf, src, format); err != nil {
		return err
	}
	// #nosec G306 -- documents are not secret
	if err := os.WriteFile(flags.out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", flags.out, err)
	}
	VerboseLog("Exported %d nodes to %s", src.Len(), flags.out)
	return nil
}

// exportFormat picks the format from --format, then from the extension
// of --out, then falls back to YAML.
func exportFormat(flags *exportFlags) (treefile.Format, error) {
	switch {
	case flags.format != "":
		return treefile.ParseFormat(flags.format)
	case flags.out != "":
		return treefile.FormatForPath(flags.out)
	default:
		return treefile.FormatYAML, nil
	}
}
