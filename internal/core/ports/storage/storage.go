package storage

import (
	"context"
	"io"
	"time"
)

// BlobStore abstracts the object storage backend holding file contents.
// Keys are the storage keys from file metadata; the store itself knows nothing
// about ownership or permissions.
type BlobStore interface {
	// StoreObject uploads an object. size must match the reader's length.
	StoreObject(ctx context.Context, key string, contentType string, size int64, body io.Reader) error

	// StreamObject opens an object for reading. The caller closes the reader.
	StreamObject(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteObject removes an object. Deleting an absent key is not an error.
	DeleteObject(ctx context.Context, key string) error

	// ObjectExists reports whether the key is present.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// PresignDownload returns a short-lived URL from which the object can be
	// fetched directly, bypassing this server.
	PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error)
}
