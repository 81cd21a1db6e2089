// Package blobstore stores signature images.  A reference returned by Put
// is opaque to callers and is the only handle needed to read the bytes
// back.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get for an unknown reference.
var ErrNotFound = errors.New("blob not found")

// Store is the blob storage collaborator.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// ContentTypePNG is the only content type stored today.
const ContentTypePNG = "image/png"

// Key builds the storage key of a signature image.  Keys are namespaced by
// owner and record, and carry the attempt time so a retried sign after a
// failed lock never overwrites a blob another attempt may reference.
func Key(ownerID uint64, interventionID string, at time.Time) string {
	return fmt.Sprintf("%d/%s-%d.png", ownerID, interventionID, at.UnixMilli())
}
