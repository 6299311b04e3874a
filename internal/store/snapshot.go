package store

import (
	"context"
	"encoding/json"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets
	_ "gocloud.dev/blob/s3blob"   // s3:// buckets
	"gocloud.dev/gcerrors"

	apperrors "github.com/allisson/restgate/internal/errors"
)

// Snapshotter persists whole-store documents for the memory driver.
type Snapshotter interface {
	// Load returns the stored document, or nil when none was written yet.
	Load(ctx context.Context) (Document, error)
	// Save replaces the stored document.
	Save(ctx context.Context, doc Document) error
	Close() error
}

// BlobSnapshot stores a document as one object in a gocloud.dev/blob bucket.
type BlobSnapshot struct {
	bucket *blob.Bucket
	key    string
}

// OpenBlobSnapshot opens the bucket at url (file://, mem://, s3://).
func OpenBlobSnapshot(ctx context.Context, url, key string) (*BlobSnapshot, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open snapshot bucket")
	}
	return NewBlobSnapshot(bucket, key), nil
}

// NewBlobSnapshot wraps an already opened bucket.
func NewBlobSnapshot(bucket *blob.Bucket, key string) *BlobSnapshot {
	return &BlobSnapshot{bucket: bucket, key: key}
}

// Load reads and parses the snapshot object.
func (b *BlobSnapshot) Load(ctx context.Context) (Document, error) {
	data, err := b.bucket.ReadAll(ctx, b.key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, "failed to read snapshot")
	}
	return ParseDocument(data)
}

// Save writes the document as indented JSON.
func (b *BlobSnapshot) Save(ctx context.Context, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, "failed to encode snapshot")
	}

	opts := &blob.WriterOptions{ContentType: "application/json"}
	if err := b.bucket.WriteAll(ctx, b.key, data, opts); err != nil {
		return apperrors.Wrap(err, "failed to write snapshot")
	}
	return nil
}

// Close closes the underlying bucket.
func (b *BlobSnapshot) Close() error {
	return b.bucket.Close()
}
