package storage

import (
	"context"
)

// Provider is the object store media is archived to.
type Provider interface {
	// Put uploads the file at localPath under key.
	Put(ctx context.Context, key, localPath, contentType string) error

	// CheckBucket makes sure the bucket exists.
	CheckBucket(ctx context.Context) error
}
