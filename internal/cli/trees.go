package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/shinji-kodama/succinct/internal/bitvec"
	"github.com/shinji-kodama/succinct/internal/bp"
	"github.com/shinji-kodama/succinct/internal/louds"
	"github.com/shinji-kodama/succinct/internal/model"
	"github.com/shinji-kodama/succinct/internal/succinct"
	"github.com/shinji-kodama/succinct/internal/tree"
)

// openTree loads a saved tree of either kind. The kind tag is read from
// the file, so callers do not need to know it.
func openTree(path string, block uint64) (succinct.Tree[string], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("tree file not found: %s", path), err)
		}
		return nil, fmt.Errorf("failed to read tree file: %w", err)
	}

	d, err := succinct.Decode[string](bytes.NewReader(data))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("cannot load %s", path), err)
	}
	VerboseLog("Loaded %s tree of %d bits from %s", d.Kind, d.Bits.Len(), path)

	var t succinct.Tree[string]
	switch d.Kind {
	case model.KindBP:
		t, err = bp.Load[string](bytes.NewReader(data), bp.WithBlockSize(block))
	case model.KindLOUDS:
		t, err = louds.Load[string](bytes.NewReader(data))
	default:
		err = fmt.Errorf("%w: unknown kind %q", model.ErrDecode, d.Kind)
	}
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("cannot load %s", path), err)
	}
	return t, nil
}

// fromTree builds a succinct tree of the given kind from a labelled
// pointer tree.
func fromTree(kind model.TreeKind, src *tree.Tree[string], block uint64) (succinct.Tree[string], error) {
	var (
		t   succinct.Tree[string]
		err error
	)
	switch kind {
	case model.KindBP:
		t, err = bp.FromTree(src, bp.WithBlockSize(block))
	case model.KindLOUDS:
		t, err = louds.FromTree(src)
	default:
		return nil, fmt.Errorf("unknown tree kind %q", kind)
	}
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidInput, "cannot build tree", err)
	}
	return t, nil
}

// fromBits builds an unlabelled succinct tree of the given kind.
func fromBits(kind model.TreeKind, bits *bitvec.BitVec, block uint64) (succinct.Tree[string], error) {
	var (
		t   succinct.Tree[string]
		err error
	)
	switch kind {
	case model.KindBP:
		t, err = bp.FromBits[string](bits, bp.WithBlockSize(block))
	case model.KindLOUDS:
		t, err = louds.FromBits[string](bits)
	default:
		return nil, fmt.Errorf("unknown tree kind %q", kind)
	}
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidInput, "cannot build tree", err)
	}
	return t, nil
}

// saveTree writes t to path.
func saveTree(path string, t succinct.Tree[string]) error {
	var buf bytes.Buffer
	if err := succinct.Encode(&buf, t.Kind(), t.Bits(), labelsOf(t)); err != nil {
		return err
	}
	// #nosec G306 -- saved trees are not secret
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	VerboseLog("Wrote %d bytes to %s", buf.Len(), path)
	return nil
}

// labelsOf returns the stored labels of t in its own order (pre-order for
// BP, level order for LOUDS).
func labelsOf(t succinct.Tree[string]) []string {
	switch t := t.(type) {
	case *bp.Tree[string]:
		return t.Labels()
	case *louds.Tree[string]:
		return t.Labels()
	default:
		return nil
	}
}

// parseKind converts the --kind flag.
func parseKind(s string) (model.TreeKind, error) {
	kind, err := model.ParseTreeKind(s)
	if err != nil {
		return "", model.WrapCLIError(model.ExitInvalidInput, "invalid --kind", err)
	}
	return kind, nil
}
