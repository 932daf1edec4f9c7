// Package gcs implements blob.Store on a Google Cloud Storage bucket, the
// bucket that backs the marketplace's photo download URLs.
package gcs

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
)

type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

func New(ctx context.Context, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Store{client: client, bucket: client.Bucket(bucket)}, nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	err := s.bucket.Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return true, nil
}
