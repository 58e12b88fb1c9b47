package storage

import (
	"context"
	"io"
	"time"
)

type ObjectInfo struct {
	Key      string
	Size     int64
	Modified time.Time
	ETag     string
}

// PutOptions carries the HTTP headers stored with an object.
type PutOptions struct {
	ContentType     string
	ContentEncoding string
	CacheControl    string
	PublicRead      bool
}

// Storage is the object store a release is published to.
type Storage interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, opts PutOptions) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Exists(ctx context.Context, key string) (bool, error)
	// HasPrefix reports whether at least one object key starts with prefix.
	HasPrefix(ctx context.Context, prefix string) (bool, error)
	// Check reports whether the store is reachable with the configured
	// credentials. Rejected credentials and missing buckets return false.
	Check(ctx context.Context) (bool, error)
}

// Website controls the static website hosting configuration of the store.
type Website interface {
	SetIndexDocument(ctx context.Context, document string) error
}
