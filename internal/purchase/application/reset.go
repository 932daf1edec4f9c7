package application

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/Property-Marketplace/internal/purchase/domain"
)

// resetPurchaseState clears the purchase flags on the property and the
// seller's listing copy and drops the buyer's record, all concurrently.
//
// Only the property write is fatal. It is the write that ends the purchase,
// so when it fails the property still names its buyer and a retried cancel
// redoes every step. Once it succeeds the rest of the workflow always runs,
// which keeps the buyer record and inspection documents from being orphaned.
func (s *Service) resetPurchaseState(ctx context.Context, parts domain.Participants, w *warnings) error {
	ctx, span := s.tracer.Start(ctx, "resetPurchaseState")
	defer span.End()

	var g errgroup.Group
	g.Go(func() error {
		if err := s.docs.Set(ctx, domain.PropertiesCollection, parts.PropertyID, domain.ClearedPurchaseFlags()); err != nil {
			return fmt.Errorf("property %s: %w", parts.PropertyID, err)
		}
		return nil
	})
	if parts.SellerID != "" {
		g.Go(func() error {
			if err := s.docs.Set(ctx, domain.SellerListingsCollection(parts.SellerID), parts.PropertyID, domain.ClearedPurchaseFlags()); err != nil {
				w.add(StepSellerListing, parts.SellerID, err)
			}
			return nil
		})
	}
	if parts.BuyerID != "" {
		g.Go(func() error {
			id := domain.BuyerRecordID(parts.BuyerID, parts.PropertyID)
			if err := s.docs.Delete(ctx, domain.BuyerPropertiesCollection, id); err != nil {
				w.add(StepBuyerRecord, id, err)
			}
			return nil
		})
	}
	return g.Wait()
}
