// Package storage stages uploaded files before they are handed to the
// media service. Files always land on local disk first; S3Storage can
// additionally stage them in a bucket and hand out a presigned URL.
package storage

import (
	"context"
	"io"
)

// Staged identifies a file prepared for upload.
type Staged struct {
	// Source is what the media service should read: a path or a URL.
	Source string
	// Key is the bucket object key when staged remotely.
	Key string
}

// Storage defines the interface for staging uploaded files.
type Storage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Stage prepares a saved file for upload.
	Stage(ctx context.Context, path string) (Staged, error)

	// Unstage releases anything Stage created remotely.
	Unstage(ctx context.Context, s Staged) error

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error
}
