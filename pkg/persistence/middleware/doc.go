// Package middleware decorates a ports.SnapshotStore: encryption at rest
// and redaction of block output.
package middleware
