// Package env holds the logical environment seen by the output codec:
// sorts, abstract terms and definitions, the shared expression nodes that
// definition bodies and output statements are made of, and the tree values
// an elaborator produces before deduplication.
//
// An Env is mutable while a theory is being declared. Freeze takes a
// read-only Snapshot that can be shared freely between output runs.
package env
