// Package louds implements the level-order unary degree sequence tree
// (Jacobson 1989).
//
// The sequence starts with a single 1 (a virtual super-root pointing at
// the real root) and then describes every node in level order as one 1
// per child followed by a terminating 0. A node is identified by the
// position of the first bit of its description, so the root is always 1.
// All navigation reduces to rank and select on the sequence.
package louds
