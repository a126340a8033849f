package model

import "errors"

// Navigation errors. Tree operations return these (possibly wrapped with
// the offending index) so callers can branch with errors.Is.
var (
	ErrNotANode    = errors.New("the supplied index does not reference a node")
	ErrNotALeaf    = errors.New("the supplied index does not reference a leaf")
	ErrNotAParent  = errors.New("the supplied index does not reference a node with children")
	ErrHasNoParent = errors.New("the root node has no parent")
	ErrNoSibling   = errors.New("the node has no next sibling")
	ErrNoLabel     = errors.New("the node has no label")
	ErrNoSuchChild = errors.New("the node has no such child")
	ErrNoMatch     = errors.New("no position with the requested excess")
	ErrEmptyTree   = errors.New("the tree does not contain any nodes")
	ErrInvalidBits = errors.New("the bit sequence is not a valid succinct tree")
	ErrDecode      = errors.New("error while deserializing tree")
	ErrWrongKind   = errors.New("saved tree has a different representation")
)

// IsNodeError reports whether err is one of the navigation errors above.
// The CLI maps these to ExitNodeError.
func IsNodeError(err error) bool {
	for _, target := range []error{
		ErrNotANode, ErrNotALeaf, ErrNotAParent, ErrHasNoParent,
		ErrNoSibling, ErrNoLabel, ErrNoSuchChild, ErrNoMatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrPipelineFailed is returned by a CI run in which at least one channel
// that is not allowed to fail did fail.
var ErrPipelineFailed = errors.New("pipeline failed")

// IsInputError reports whether err describes unusable input data.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyTree) || errors.Is(err, ErrInvalidBits) ||
		errors.Is(err, ErrDecode) || errors.Is(err, ErrWrongKind)
}
