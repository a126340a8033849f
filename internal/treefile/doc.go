// Package treefile reads and writes tree documents, the human-editable
// form of a labelled tree.
//
// A document is a nested object with a label and an ordered list of
// children:
//
//	{
//	  // comments are allowed
//	  "label": "root",
//	  "children": [
//	    { "label": "a", "children": [ { "label": "leaf" } ] },
//	    { "label": "b" },
//	  ],
//	}
//
// JSON files are read as JSONC: github.com/tidwall/jsonc strips comments
// and trailing commas before encoding/json parses the result. YAML files
// use the same field names and are parsed with gopkg.in/yaml.v3. The
// format is chosen from the file extension.
//
// Key responsibilities:
//   - Load a document file into a tree.Tree[string]
//   - Convert between documents and pointer trees
//   - Write documents back as YAML or JSON for the export command
package treefile
