package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Property-Marketplace/internal/purchase/domain"
	"github.com/dmehra2102/Property-Marketplace/pkg/docstore"
)

func (f *fixture) seedListing() {
	f.set(domain.PropertiesCollection, propertyID, map[string]any{
		domain.FieldOwnerID: sellerID,
		domain.FieldTitle:   "Harbour Loft",
		domain.FieldAddress: "1 Quay St",
		domain.FieldPrice:   450000,
	})
	f.set(domain.SellerListingsCollection(sellerID), propertyID, map[string]any{
		domain.FieldTitle: "Harbour Loft",
	})
}

func TestConfirmPurchase(t *testing.T) {
	f := newFixture(t)
	f.seedListing()

	res, err := f.svc.ConfirmPurchase(f.ctx, propertyID, buyerID)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Len(t, res.NotificationIDs, 2)

	p := f.property()
	assert.True(t, p.IsUnderPurchase)
	assert.True(t, p.BuyerConfirmed)
	assert.False(t, p.SellerDocumentsConfirmed)
	assert.Equal(t, buyerID, p.ConfirmedBuyerID)
	assert.Equal(t, domain.StateUnderPurchase, p.State())

	listing, err := f.store.Get(f.ctx, domain.SellerListingsCollection(sellerID), propertyID)
	require.NoError(t, err)
	assert.Equal(t, buyerID, listing.String(domain.FieldConfirmedBuyerID))

	record, err := f.store.Get(f.ctx, domain.BuyerPropertiesCollection, domain.BuyerRecordID(buyerID, propertyID))
	require.NoError(t, err)
	assert.Equal(t, "1 Quay St", record.String(domain.FieldAddress))
	assert.Equal(t, sellerID, record.String("sellerId"))

	state, err := f.store.Get(f.ctx, domain.InspectionCollection(propertyID), domain.InspectionStateID)
	require.NoError(t, err)
	assert.Equal(t, sellerID, state.String("updatedBy"))

	buyerNotes := f.notificationsOf(buyerID)
	require.Len(t, buyerNotes, 1)
	assert.Equal(t, string(domain.NotificationPurchaseConfirmed), buyerNotes[0].String("type"))
	assert.Equal(t, domain.HrefMyProperties, buyerNotes[0].String("actionHref"))

	require.Len(t, f.events.events, 1)
	assert.Equal(t, domain.EventPurchaseConfirmed, f.events.events[0].Type)
}

func TestConfirmPurchase_SameBuyerAgain(t *testing.T) {
	f := newFixture(t)
	f.seedListing()

	_, err := f.svc.ConfirmPurchase(f.ctx, propertyID, buyerID)
	require.NoError(t, err)
	_, err = f.svc.ConfirmPurchase(f.ctx, propertyID, " "+buyerID+" ")
	require.NoError(t, err)
	assert.Equal(t, buyerID, f.property().ConfirmedBuyerID)
}

func TestConfirmPurchase_Rejections(t *testing.T) {
	f := newFixture(t)
	f.seedPurchase()

	_, err := f.svc.ConfirmPurchase(f.ctx, propertyID, "buyer-2")
	assert.ErrorIs(t, err, domain.ErrAlreadyUnderPurchase)

	_, err = f.svc.ConfirmPurchase(f.ctx, propertyID, "  ")
	assert.ErrorIs(t, err, domain.ErrMissingBuyer)

	_, err = f.svc.ConfirmPurchase(f.ctx, "missing", buyerID)
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)

	assert.Equal(t, buyerID, f.property().ConfirmedBuyerID)
}

func TestConfirmPurchase_WriteFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.seedListing()
	f.docs.failSet[docstore.Path(domain.BuyerPropertiesCollection, domain.BuyerRecordID(buyerID, propertyID))] = true

	_, err := f.svc.ConfirmPurchase(f.ctx, propertyID, buyerID)
	require.ErrorIs(t, err, errInjected)
	assert.Empty(t, f.notificationsOf(buyerID))
	assert.Empty(t, f.events.events)
}

func TestConfirmThenCancelRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.seedListing()

	_, err := f.svc.ConfirmPurchase(f.ctx, propertyID, buyerID)
	require.NoError(t, err)

	res, err := f.svc.CancelPropertyPurchase(f.ctx, propertyID, domain.RoleSeller)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 2, res.RemovedNotifications, "confirmation notices are cleared")
	assert.Equal(t, domain.StateAvailable, f.property().State())
	assert.Zero(t, f.store.Len(domain.InspectionCollection(propertyID)))

	_, err = f.svc.ConfirmPurchase(f.ctx, propertyID, "buyer-2")
	require.NoError(t, err, "property is available to a new buyer")
}
