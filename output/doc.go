// Package output implements the string output codec: it checks that the
// environment declares the built-in string vocabulary with the expected
// signatures, optionally recognizes a user-defined cons operator as a
// built-in, and evaluates deduplicated string expressions into bytes.
//
// The pieces, leaves first:
//   - Resolve builds an immutable Registry mapping term ids to built-in ops
//   - the cons verifier statically evaluates "scons" with a SegmentBuilder
//   - Writer streams bytes and carries at most one pending hex nibble
//   - Evaluator walks a heap and its roots, unfolding definitions
//   - Session and Program tie these to output commands and their replay
package output
