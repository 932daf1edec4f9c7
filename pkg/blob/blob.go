// Package blob removes inspection photos from object storage. Clients upload
// photos straight to the bucket; this service only deletes them when the
// inspection they belong to is torn down.
package blob

import "context"

// Driver identifies a concrete blob storage backend.
type Driver string

const (
	DriverS3     Driver = "s3"  // S3 / MinIO compatible
	DriverGCS    Driver = "gcs" // hosted bucket behind the marketplace's download URLs
	DriverMemory Driver = "memory"
)

type Store interface {
	// Delete removes the object and reports whether it existed. Deleting a
	// missing object is not an error.
	Delete(ctx context.Context, key string) (bool, error)
}
