package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage. Used by the archive sink to
// persist tick batches.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
