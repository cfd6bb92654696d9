// Package file stores instance snapshots as JSON files on the local filesystem.
package file
