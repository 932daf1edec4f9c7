package application

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/Property-Marketplace/internal/purchase/domain"
)

// ConfirmPurchase records that the seller accepted buyerID: the property and
// the seller's listing copy are flagged as under purchase, the buyer gets a
// denormalized record and a fresh inspection singleton is written. Confirming
// the buyer who is already confirmed rewrites the same state.
func (s *Service) ConfirmPurchase(ctx context.Context, propertyID, buyerID string) (Result, error) {
	buyerID = strings.TrimSpace(buyerID)
	if buyerID == "" {
		return Result{}, domain.ErrMissingBuyer
	}
	ctx, span := s.tracer.Start(ctx, "ConfirmPurchase", trace.WithAttributes(
		attribute.String("property_id", propertyID),
		attribute.String("buyer_id", buyerID),
	))
	defer span.End()

	prop, err := s.loadProperty(ctx, propertyID)
	if err != nil {
		return Result{}, err
	}
	if prop.ConfirmedBuyerID != "" && prop.ConfirmedBuyerID != buyerID {
		return Result{}, fmt.Errorf("%w: %s", domain.ErrAlreadyUnderPurchase, propertyID)
	}

	parts := prop.Participants()
	parts.BuyerID = buyerID
	now := s.now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.docs.Set(gctx, domain.PropertiesCollection, propertyID, domain.ConfirmedPurchaseFlags(buyerID))
	})
	if parts.SellerID != "" {
		g.Go(func() error {
			return s.docs.Set(gctx, domain.SellerListingsCollection(parts.SellerID), propertyID, domain.ConfirmedPurchaseFlags(buyerID))
		})
	}
	g.Go(func() error {
		return s.docs.Set(gctx, domain.BuyerPropertiesCollection, domain.BuyerRecordID(buyerID, propertyID), domain.BuyerRecord(prop, buyerID))
	})
	g.Go(func() error {
		return s.docs.Set(gctx, domain.InspectionCollection(propertyID), domain.InspectionStateID, domain.NewInspectionState(parts.SellerID, now))
	})
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("confirm purchase %s: %w", propertyID, err)
	}

	w := &warnings{log: s.log, metrics: s.metrics, propertyID: propertyID}
	notices := []domain.Notification{domain.ConfirmationNotice(parts, domain.RoleBuyer)}
	if parts.SellerID != "" {
		notices = append(notices, domain.ConfirmationNotice(parts, domain.RoleSeller))
	}
	ids := s.dispatch(ctx, notices, w)

	s.publish(ctx, domain.EventPurchaseConfirmed, propertyID, domain.PurchaseConfirmed{
		PropertyID: propertyID,
		SellerID:   parts.SellerID,
		BuyerID:    buyerID,
		At:         now,
	}, w)

	s.log.Info("purchase confirmed", "property_id", propertyID, "buyer_id", buyerID, "seller_id", parts.SellerID)
	return Result{
		PropertyID:      propertyID,
		SellerID:        parts.SellerID,
		BuyerID:         buyerID,
		NotificationIDs: ids,
		Warnings:        w.all(),
	}, nil
}
