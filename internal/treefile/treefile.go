package treefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/succinct/internal/model"
	"github.com/shinji-kodama/succinct/internal/tree"
)

// Format identifies a document encoding.
type Format string

const (
	// FormatJSON is JSON with comments and trailing commas allowed on input.
	FormatJSON Format = "json"

	// FormatYAML is YAML 1.2 as understood by gopkg.in/yaml.v3.
	FormatYAML Format = "yaml"
)

// ParseFormat converts a user-supplied format name. "jsonc" and "yml" are
// accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "jsonc":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown document format %q (valid: json, yaml)", s)
	}
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer document format of %s: no file extension", path)
	}
	return ParseFormat(ext)
}

// Document is one node of a tree document. The same struct serves both
// encodings; children are omitted for leaves on output.
type Document struct {
	// Label is the node's label. Labels need not be unique, but
	// labeled-child queries return the first matching child.
	Label string `json:"label" yaml:"label"`

	// Children lists the node's children in order.
	Children []*Document `json:"children,omitempty" yaml:"children,omitempty"`
}

// Load reads the document at path, choosing the format by extension.
//
// A missing file is reported as a CLIError with ExitInvalidInput so the
// CLI can surface it directly.
func Load(path string) (*tree.Tree[string], error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidInput, "unsupported tree document", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.WrapCLIError(
				model.ExitInvalidInput,
				fmt.Sprintf("tree document not found: %s", path),
				err,
			)
		}
		return nil, fmt.Errorf("failed to read tree document: %w", err)
	}

	doc, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tree document at %s: %w", path, err)
	}
	return doc.Tree(), nil
}

// Parse decodes a document in the given format. An empty document (no
// root object) is reported as model.ErrEmptyTree.
func Parse(data []byte, format Format) (*Document, error) {
	var doc *Document
	switch format {
	case FormatJSON:
		// Strip JSONC comments (// and /* */) and trailing commas so that
		// hand-written documents can be annotated.
		clean := jsonc.ToJSON(data)
		if err := json.Unmarshal(clean, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON document: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML document: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown document format %q", format)
	}

	if doc == nil {
		return nil, model.ErrEmptyTree
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// validate rejects null entries inside children lists, which both
// decoders accept silently.
func (d *Document) validate() error {
	stack := []*Document{d}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i, c := range n.Children {
			if c == nil {
				return fmt.Errorf("child %d of %q is null", i, n.Label)
			}
			stack = append(stack, c)
		}
	}
	return nil
}

// Tree converts the document into a pointer tree.
func (d *Document) Tree() *tree.Tree[string] {
	if d == nil {
		return tree.New[string](nil)
	}
	type pair struct {
		doc  *Document
		node *tree.Node[string]
	}
	root := tree.NewNode(d.Label)
	stack := []pair{{d, root}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range p.doc.Children {
			stack = append(stack, pair{c, p.node.Add(c.Label)})
		}
	}
	return tree.New(root)
}

// FromTree converts a pointer tree into a document. An empty tree yields
// nil.
func FromTree(t *tree.Tree[string]) *Document {
	if t.IsEmpty() {
		return nil
	}
	type pair struct {
		node *tree.Node[string]
		doc  *Document
	}
	root := &Document{Label: t.Root.Label}
	stack := []pair{{t.Root, root}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range p.node.Children {
			child := &Document{Label: c.Label}
			p.doc.Children = append(p.doc.Children, child)
			stack = append(stack, pair{c, child})
		}
	}
	return root
}

// Write encodes the tree as a document. Both encodings indent by two
// spaces.
func Write(w io.Writer, t *tree.Tree[string], format Format) error {
	doc := FromTree(t)
	if doc == nil {
		return model.ErrEmptyTree
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode JSON document: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode YAML document: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode YAML document: %w", err)
		}
	default:
		return fmt.Errorf("unknown document format %q", format)
	}
	return nil
}
