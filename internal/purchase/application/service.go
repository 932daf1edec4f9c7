package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Property-Marketplace/internal/purchase/domain"
	"github.com/dmehra2102/Property-Marketplace/pkg/docstore"
)

type Service struct {
	log     *slog.Logger
	docs    DocumentStore
	blobs   BlobStore
	notes   Notifications
	events  EventPublisher
	metrics Metrics
	now     func() time.Time
	tracer  trace.Tracer
}

type Option func(*Service)

func WithNotifications(n Notifications) Option { return func(s *Service) { s.notes = n } }
func WithEvents(p EventPublisher) Option       { return func(s *Service) { s.events = p } }
func WithMetrics(m Metrics) Option             { return func(s *Service) { s.metrics = m } }
func WithClock(now func() time.Time) Option    { return func(s *Service) { s.now = now } }

// NewService wires the purchase workflows. blobs may be nil, in which case
// inspection photos are left in storage.
func NewService(log *slog.Logger, docs DocumentStore, blobs BlobStore, opts ...Option) *Service {
	s := &Service{
		log:     log,
		docs:    docs,
		blobs:   blobs,
		events:  noopEvents{},
		metrics: noopMetrics{},
		now:     time.Now,
		tracer:  otel.Tracer("purchase-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notes == nil {
		s.notes = NewDocumentNotifications(docs)
	}
	return s
}

// CancelPropertyPurchase tears down a confirmed purchase: the property and the
// seller's listing copy become available again, the buyer's record and all
// inspection artifacts are removed, stale notifications are cleared and both
// parties are told about the cancellation.
//
// It returns an error only when nothing could be cancelled (unknown property,
// no confirmed buyer) or the property itself could not be reset. Everything
// after the reset is best effort and reported through Result.Warnings.
func (s *Service) CancelPropertyPurchase(ctx context.Context, propertyID string, initiatedBy domain.Role) (Result, error) {
	start := s.now()
	if !initiatedBy.Valid() {
		return Result{}, domain.ErrInvalidInitiator
	}
	ctx, span := s.tracer.Start(ctx, "CancelPropertyPurchase", trace.WithAttributes(
		attribute.String("property_id", propertyID),
		attribute.String("initiated_by", string(initiatedBy)),
	))
	defer span.End()

	fail := func(label string, err error) (Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.ObserveCancellation(string(initiatedBy), label, s.now().Sub(start))
		return Result{}, err
	}

	prop, err := s.loadProperty(ctx, propertyID)
	if err != nil {
		if errors.Is(err, domain.ErrPropertyNotFound) {
			return fail("not_found", err)
		}
		return fail("error", err)
	}
	parts := prop.Participants()
	if parts.BuyerID == "" {
		return fail("no_buyer", fmt.Errorf("%w: %s", domain.ErrNoConfirmedBuyer, propertyID))
	}

	w := &warnings{log: s.log, metrics: s.metrics, propertyID: propertyID}

	if err := s.resetPurchaseState(ctx, parts, w); err != nil {
		return fail("error", fmt.Errorf("reset purchase state: %w", err))
	}
	removedPhotos := s.cleanupInspection(ctx, propertyID, w)
	removedNotes := s.clearRelatedNotifications(ctx, parts, w)
	ids := s.dispatch(ctx, cancellationNotices(parts, initiatedBy), w)

	s.publish(ctx, domain.EventPurchaseCancelled, propertyID, domain.PurchaseCancelled{
		PropertyID:  propertyID,
		SellerID:    parts.SellerID,
		BuyerID:     parts.BuyerID,
		InitiatedBy: initiatedBy,
		Warnings:    len(w.all()),
		At:          s.now().UTC(),
	}, w)

	res := Result{
		PropertyID:           propertyID,
		SellerID:             parts.SellerID,
		BuyerID:              parts.BuyerID,
		InitiatedBy:          initiatedBy,
		NotificationIDs:      ids,
		RemovedNotifications: removedNotes,
		RemovedPhotos:        removedPhotos,
		Warnings:             w.all(),
	}
	label := "ok"
	if res.Partial() {
		label = "partial"
	}
	s.metrics.ObserveCancellation(string(initiatedBy), label, s.now().Sub(start))
	s.log.Info("purchase cancelled",
		"property_id", propertyID,
		"buyer_id", parts.BuyerID,
		"seller_id", parts.SellerID,
		"initiated_by", string(initiatedBy),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

// PurchaseStatus returns the current snapshot of a property's purchase flags.
func (s *Service) PurchaseStatus(ctx context.Context, propertyID string) (domain.Property, error) {
	return s.loadProperty(ctx, propertyID)
}

// loadProperty reads the property once. Callers act on this snapshot without
// re-reading; concurrent writers win or lose by write order.
func (s *Service) loadProperty(ctx context.Context, propertyID string) (domain.Property, error) {
	if strings.TrimSpace(propertyID) == "" {
		return domain.Property{}, domain.ErrPropertyNotFound
	}
	doc, err := s.docs.Get(ctx, domain.PropertiesCollection, propertyID)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.Property{}, fmt.Errorf("%w: %s", domain.ErrPropertyNotFound, propertyID)
	}
	if err != nil {
		return domain.Property{}, fmt.Errorf("load property %s: %w", propertyID, err)
	}
	return domain.PropertyFromDocument(doc), nil
}

func (s *Service) publish(ctx context.Context, eventType, aggregateID string, payload any, w *warnings) {
	if err := s.events.Publish(ctx, eventType, aggregateID, payload); err != nil {
		w.add(StepEventPublish, eventType, err)
	}
}
