// Package firestore adapts the hosted document database to docstore.Store.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmehra2102/Property-Marketplace/pkg/docstore"
)

type Store struct {
	client *firestore.Client
}

func New(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

func NewFromClient(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return docstore.Document{}, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *Store) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Document, error) {
	q := s.client.Collection(collection).Query
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		value := f.Value
		if f.Op == docstore.OpIn {
			value, _ = docstore.InValues(f.Value)
		}
		q = q.Where(f.Field, string(f.Op), value)
	}

	it := q.Documents(ctx)
	defer it.Stop()
	var docs []docstore.Document
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, docstore.Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, fields, firestore.MergeAll)
	return err
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}
