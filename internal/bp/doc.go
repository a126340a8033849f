// Package bp implements the balanced-parentheses succinct tree.
//
// A tree of n nodes is written as 2n parentheses by a depth-first walk
// that emits "(" on entering a node and ")" on leaving it. A node is
// identified by the position of its opening parenthesis, so the root is
// always 0. Navigation is answered by a range min-max tree over the
// sequence (see package minmax) plus rank/select for pre-order numbering.
//
// Labels are optional. Trees built with FromTree store one label per node
// in pre-order; trees built with FromBits have none and ChildLabel returns
// model.ErrNoLabel.
package bp
