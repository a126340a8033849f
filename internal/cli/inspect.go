// Package cli: inspect.go implements the "succinct inspect" command.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/succinct/internal/model"
	"github.com/shinji-kodama/succinct/internal/succinct"
)

// treeJSON is the JSON output structure describing a saved tree.
type treeJSON struct {
	File     string `json:"file,omitempty"`
	Kind     string `json:"kind"`
	Bits     string `json:"bits"`
	Parens   string `json:"parens,omitempty"`
	Length   uint64 `json:"length"`
	Nodes    uint64 `json:"nodes"`
	Root     uint64 `json:"root"`
	Labelled bool   `json:"labelled"`
}

func describe(t succinct.Tree[string], file string) treeJSON {
	d := treeJSON{
		File:     file,
		Kind:     t.Kind().String(),
		Bits:     t.Bits().String(),
		Length:   t.Len(),
		Nodes:    t.Nodes(),
		Root:     t.Root(),
		Labelled: len(labelsOf(t)) > 0,
	}
	if t.Kind() == model.KindBP {
		d.Parens = t.Bits().Parens()
	}
	return d
}

// NewInspectCommand creates the "inspect" cobra command.
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show the representation of a saved tree",
		Long: `Show the kind, size and bit sequence of a saved tree.

Examples:
  succinct inspect tree.sct
  succinct inspect tree.sct --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			t, err := openTree(args[0], cfg.Tree.BlockSize)
			if err != nil {
				return err
			}
			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), describe(t, args[0]))
			}
			printInspectText(cmd.OutOrStdout(), describe(t, args[0]))
			return nil
		},
	}
}

// printInspectText prints the description as aligned fields:
//
//	kind:     bp
//	nodes:    4
//	length:   8
//	root:     0
//	labelled: yes
//	bits:     11010100
//	parens:   (()(()))
func printInspectText(w io.Writer, d treeJSON) {
	labelled := "no"
	if d.Labelled {
		labelled = "yes"
	}
	fmt.Fprintf(w, "%-9s %s\n", "kind:", d.Kind)
	fmt.Fprintf(w, "%-9s %d\n", "nodes:", d.Nodes)
	fmt.Fprintf(w, "%-9s %d\n", "length:", d.Length)
	fmt.Fprintf(w, "%-9s %d\n", "root:", d.Root)
	fmt.Fprintf(w, "%-9s %s\n", "labelled:", labelled)
	fmt.Fprintf(w, "%-9s %s\n", "bits:", d.Bits)
	if d.Parens != "" {
		fmt.Fprintf(w, "%-9s %s\n", "parens:", d.Parens)
	}
}
