package application

import (
	"context"
	"time"

	"github.com/dmehra2102/Property-Marketplace/internal/purchase/domain"
	"github.com/dmehra2102/Property-Marketplace/pkg/docstore"
)

type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (docstore.Document, error)
	Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Document, error)
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

type BlobStore interface {
	Delete(ctx context.Context, key string) (bool, error)
}

// Notifications is scoped to one user's notification collection per call.
type Notifications interface {
	Create(ctx context.Context, n domain.Notification) (string, error)
	// FindRelated returns ids of the user's notifications whose relatedId is
	// one of relatedIDs. Callers keep relatedIDs within docstore.MaxInValues.
	FindRelated(ctx context.Context, userID string, relatedIDs []string) ([]string, error)
	Delete(ctx context.Context, userID, id string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType, aggregateID string, payload any) error
}

type Metrics interface {
	ObserveCancellation(initiatedBy, result string, d time.Duration)
	CleanupWarning(step string)
}

type noopEvents struct{}

func (noopEvents) Publish(context.Context, string, string, any) error { return nil }

type noopMetrics struct{}

func (noopMetrics) ObserveCancellation(string, string, time.Duration) {}
func (noopMetrics) CleanupWarning(string)                             {}
