package succinct

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/shinji-kodama/succinct/internal/bitvec"
	"github.com/shinji-kodama/succinct/internal/model"
)

// Magic starts every saved tree. The byte after it is the kind tag.
const Magic = "SCT1"

type payload[L any] struct {
	Len    uint64
	Words  []uint64
	Labels []L
}

// Encode writes a saved tree: Magic, the kind tag, then a gob body with
// the bits and labels.
func Encode[L any](w io.Writer, kind model.TreeKind, bits *bitvec.BitVec, labels []L) error {
	tag := kind.Byte()
	if tag == 0 {
		return fmt.Errorf("unknown tree kind %q", kind)
	}
	if _, err := io.WriteString(w, Magic); err != nil {
		return fmt.Errorf("failed to write tree header: %w", err)
	}
	if _, err := w.Write([]byte{tag}); err != nil {
		return fmt.Errorf("failed to write tree header: %w", err)
	}
	p := payload[L]{Len: bits.Len(), Words: bits.Words(), Labels: labels}
	if err := gob.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("failed to encode tree: %w", err)
	}
	return nil
}

// Decoded is a saved tree before it is indexed.
type Decoded[L any] struct {
	Kind   model.TreeKind
	Bits   *bitvec.BitVec
	Labels []L
}

// Decode reads a saved tree of any kind. The sequence is checked with
// IsValid; all failures wrap model.ErrDecode.
func Decode[L any](r io.Reader) (*Decoded[L], error) {
	header := make([]byte, len(Magic)+1)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: could not read saved tree: %v", model.ErrDecode, err)
	}
	if !bytes.Equal(header[:len(Magic)], []byte(Magic)) {
		return nil, fmt.Errorf("%w: not a saved tree (bad magic %q)", model.ErrDecode, header[:len(Magic)])
	}
	kind, err := model.TreeKindFromByte(header[len(Magic)])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDecode, err)
	}

	var p payload[L]
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDecode, err)
	}
	bits, err := bitvec.FromWords(p.Words, p.Len)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDecode, err)
	}
	if !IsValid(bits) {
		return nil, fmt.Errorf("%w: %w", model.ErrDecode, model.ErrInvalidBits)
	}
	return &Decoded[L]{Kind: kind, Bits: bits, Labels: p.Labels}, nil
}

// DecodeKind is Decode restricted to one representation.
func DecodeKind[L any](r io.Reader, want model.TreeKind) (*Decoded[L], error) {
	d, err := Decode[L](r)
	if err != nil {
		return nil, err
	}
	if d.Kind != want {
		return nil, fmt.Errorf("%w: %w: want %s, found %s", model.ErrDecode, model.ErrWrongKind, want, d.Kind)
	}
	return d, nil
}
