// Package storage is the attachment object-storage contract every stage
// handler uses to fetch attachment bytes before running inference,
// grounded on original_source/common/storage/s3.py's AttachmentStorage.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Object is a fetched attachment: its bytes plus the MIME type recorded
// at upload time (falling back to whatever the backing store reports).
type Object struct {
	Data []byte
	MIME string
}

// Store is the minimal contract stage handlers and pkg/ingest depend on.
type Store interface {
	// Put uploads data and returns its storage key.
	Put(ctx context.Context, data []byte, mime, filename string) (key string, err error)
	// Get fetches an object by storage key.
	Get(ctx context.Context, key string) (Object, error)
	// Presign returns a time-bounded URL a help-desk agent can use to view
	// the attachment without going through this service.
	Presign(ctx context.Context, key string) (string, error)
}

// HashBytes returns the sha256 hex digest of data, matching
// s3.py's hash_bytes — used to build storage keys and the attachments
// table's content_hash column.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
