package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads data to object storage. PutMultipart is for payloads
// large enough to benefit from chunked upload.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobInfo describes one stored object.
type BlobInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// BlobReader retrieves archived objects.
type BlobReader interface {
	// Get returns ErrNotFound when no object exists at path. The caller
	// closes the returned reader.
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// Archiver writes a resolved market's final snapshot and its journal trail
// to cold storage.
type Archiver interface {
	ArchiveResolved(ctx context.Context, market Market, entries []JournalEntry) error
}
