// Package cli: query.go implements the "succinct query" command.
//
// A query names one navigation operation and its arguments. Operations
// shared by both representations work on any saved tree; the pre-order
// operations (depth, subtree-size, ...) need a BP tree.
package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/succinct/internal/bp"
	"github.com/shinji-kodama/succinct/internal/model"
	"github.com/shinji-kodama/succinct/internal/succinct"
)

// queryOp is one operation of the query command.
type queryOp struct {
	// args names the positional arguments after the operation name.
	args []string
	// bpOnly operations are rejected on LOUDS trees.
	bpOnly bool
	run    func(t succinct.Tree[string], args []string) (any, error)
}

// unary adapts a single-node operation of the common interface.
func unary[R any](fn func(t succinct.Tree[string], i uint64) (R, error)) queryOp {
	return queryOp{
		args: []string{"NODE"},
		run: func(t succinct.Tree[string], args []string) (any, error) {
			i, err := parseIndex("NODE", args[0])
			if err != nil {
				return nil, err
			}
			return fn(t, i)
		},
	}
}

// bpUnary adapts a single-index operation that only BP trees provide.
func bpUnary[R any](arg string, fn func(t *bp.Tree[string], i uint64) (R, error)) queryOp {
	return queryOp{
		args:   []string{arg},
		bpOnly: true,
		run: func(t succinct.Tree[string], args []string) (any, error) {
			i, err := parseIndex(arg, args[0])
			if err != nil {
				return nil, err
			}
			return fn(t.(*bp.Tree[string]), i)
		},
	}
}

// queryOps is the table of supported operations, keyed by name.
var queryOps = map[string]queryOp{
	"is-leaf": unary(func(t succinct.Tree[string], i uint64) (bool, error) { return t.IsLeaf(i) }),
	"parent":  unary(func(t succinct.Tree[string], i uint64) (uint64, error) { return t.Parent(i) }),
	"first-child": unary(func(t succinct.Tree[string], i uint64) (uint64, error) {
		return t.FirstChild(i)
	}),
	"next-sibling": unary(func(t succinct.Tree[string], i uint64) (uint64, error) {
		return t.NextSibling(i)
	}),
	"degree":      unary(func(t succinct.Tree[string], i uint64) (uint64, error) { return t.Degree(i) }),
	"child-rank":  unary(func(t succinct.Tree[string], i uint64) (uint64, error) { return t.ChildRank(i) }),
	"child-label": unary(func(t succinct.Tree[string], i uint64) (string, error) { return t.ChildLabel(i) }),
	"child": {
		args: []string{"NODE", "N"},
		run: func(t succinct.Tree[string], args []string) (any, error) {
			i, err := parseIndex("NODE", args[0])
			if err != nil {
				return nil, err
			}
			n, err := parseIndex("N", args[1])
			if err != nil {
				return nil, err
			}
			return t.Child(i, n)
		},
	},
	"labeled-child": {
		args: []string{"NODE", "LABEL"},
		run: func(t succinct.Tree[string], args []string) (any, error) {
			i, err := parseIndex("NODE", args[0])
			if err != nil {
				return nil, err
			}
			return t.LabeledChild(i, args[1])
		},
	},

	"last-child":   bpUnary("NODE", (*bp.Tree[string]).LastChild),
	"close":        bpUnary("NODE", (*bp.Tree[string]).Close),
	"depth":        bpUnary("NODE", (*bp.Tree[string]).Depth),
	"subtree-size": bpUnary("NODE", (*bp.Tree[string]).SubtreeSize),
	"pre-rank":     bpUnary("NODE", (*bp.Tree[string]).PreRank),
	"pre-select":   bpUnary("RANK", (*bp.Tree[string]).PreSelect),
	"ancestor": {
		args:   []string{"X", "Y"},
		bpOnly: true,
		run: func(t succinct.Tree[string], args []string) (any, error) {
			x, err := parseIndex("X", args[0])
			if err != nil {
				return nil, err
			}
			y, err := parseIndex("Y", args[1])
			if err != nil {
				return nil, err
			}
			return t.(*bp.Tree[string]).Ancestor(x, y)
		},
	},
}

// queryOpNames returns the operation names in sorted order.
func queryOpNames() []string {
	names := make([]string, 0, len(queryOps))
	for name := range queryOps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// queryUsage lists every operation with its arguments, for the help text.
func queryUsage() string {
	var sb strings.Builder
	for _, name := range queryOpNames() {
		op := queryOps[name]
		line := "  " + name + " " + strings.Join(op.args, " ")
		if op.bpOnly {
			line = fmt.Sprintf("%-32s (bp only)", line)
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func parseIndex(name, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("invalid %s %q", name, s), err)
	}
	return v, nil
}

// queryResultJSON is the JSON output structure of a query.
type queryResultJSON struct {
	Op     string   `json:"op"`
	Args   []string `json:"args"`
	Result any      `json:"result"`
}

// NewQueryCommand creates the "query" cobra command.
func NewQueryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "query FILE OP [ARGS...]",
		Short: "Run a navigation operation on a saved tree",
		Long: `Run a navigation operation on a saved tree and print the result.

Nodes are bit positions: the index of the opening parenthesis for BP
trees, the index of the first bit of the node's degree description for
LOUDS trees. The root is 0 for BP and 1 for LOUDS.

Operations:
` + queryUsage() + `
Examples:
  succinct query tree.sct first-child 0
  succinct query tree.sct child 1 2
  succinct query tree.sct labeled-child 0 src --json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, name, rest := args[0], args[1], args[2:]

			op, ok := queryOps[name]
			if !ok {
				return model.NewCLIError(model.ExitInvalidInput,
					fmt.Sprintf("unknown operation %q (valid: %s)", name, strings.Join(queryOpNames(), ", ")))
			}
			if len(rest) != len(op.args) {
				return model.NewCLIError(model.ExitInvalidInput,
					fmt.Sprintf("%s takes %d argument(s): %s", name, len(op.args), strings.Join(op.args, " ")))
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			t, err := openTree(path, cfg.Tree.BlockSize)
			if err != nil {
				return err
			}
			if op.bpOnly && t.Kind() != model.KindBP {
				return model.NewCLIError(model.ExitInvalidInput,
					fmt.Sprintf("%s is only supported by bp trees, %s is %s", name, path, t.Kind()))
			}

			result, err := op.run(t, rest)
			if err != nil {
				// Navigation errors keep their sentinel so Execute maps
				// them to ExitNodeError.
				return fmt.Errorf("%s %s: %w", name, strings.Join(rest, " "), err)
			}

			out := cmd.OutOrStdout()
			if IsJSONOutput() {
				return printJSON(out, queryResultJSON{Op: name, Args: rest, Result: result})
			}
			fmt.Fprintln(out, result)
			return nil
		},
	}
}
