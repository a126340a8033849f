// Package succinct holds what the balanced-parentheses and LOUDS trees
// have in common: the navigation contract both implement, the validity
// check for their bit sequences, conversion back to pointer trees and the
// on-disk format.
//
// Nodes are identified by bit positions, not by dense ids. Which position
// stands for a node depends on the representation (the opening parenthesis
// for BP, the first bit of the unary degree for LOUDS), so callers start
// from Root and navigate rather than computing indices themselves.
//
// Every navigation method returns one of the sentinel errors in the model
// package, wrapped with the offending index. Use errors.Is to branch.
package succinct
