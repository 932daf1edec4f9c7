package application

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Property-Marketplace/internal/purchase/domain"
	"github.com/dmehra2102/Property-Marketplace/pkg/docstore"
)

func TestChunkIDs(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		size int
		want [][]string
	}{
		{name: "empty", ids: nil, size: 10, want: nil},
		{name: "single", ids: []string{"a"}, size: 10, want: [][]string{{"a"}}},
		{name: "exact", ids: []string{"a", "b"}, size: 2, want: [][]string{{"a", "b"}}},
		{name: "remainder", ids: []string{"a", "b", "c"}, size: 2, want: [][]string{{"a", "b"}, {"c"}}},
		{name: "dedup and blanks", ids: []string{"a", "", "a", "b"}, size: 10, want: [][]string{{"a", "b"}}},
		{name: "default size", ids: []string{"a"}, size: 0, want: [][]string{{"a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunkIDs(tt.ids, tt.size))
		})
	}
}

func TestClearRelatedNotifications_QueriesInChunks(t *testing.T) {
	f := newFixture(t)

	var related []string
	for i := 0; i < 23; i++ {
		id := fmt.Sprintf("prop-%02d", i)
		related = append(related, id)
		f.set(domain.UserNotificationsCollection(buyerID), "n-"+id, map[string]any{domain.FieldRelatedID: id})
	}
	related = append(related, "prop-00", "prop-05")
	f.set(domain.UserNotificationsCollection(buyerID), "keep", map[string]any{domain.FieldRelatedID: "elsewhere"})

	removed, warns := f.svc.ClearRelatedNotifications(f.ctx, buyerID, related)
	require.Empty(t, warns)
	assert.Equal(t, 23, removed)

	var sizes []int
	for _, l := range f.notes.lookups {
		sizes = append(sizes, len(l))
		assert.LessOrEqual(t, len(l), docstore.MaxInValues)
	}
	assert.Equal(t, []int{10, 10, 3}, sizes)

	left := f.notificationsOf(buyerID)
	require.Len(t, left, 1)
	assert.Equal(t, "keep", left[0].ID)
}

func TestClearRelatedNotifications_LookupFailure(t *testing.T) {
	f := newFixture(t)
	f.docs.failQuery[domain.UserNotificationsCollection(sellerID)] = true

	removed, warns := f.svc.ClearRelatedNotifications(f.ctx, sellerID, []string{propertyID})
	assert.Zero(t, removed)
	require.Len(t, warns, 1)
	assert.Equal(t, StepNotificationCleanup, warns[0].Step)
	assert.Equal(t, sellerID, warns[0].Target)
}

func TestClearRelatedNotifications_DeleteFailureSkipsOne(t *testing.T) {
	f := newFixture(t)
	coll := domain.UserNotificationsCollection(sellerID)
	f.set(coll, "a", map[string]any{domain.FieldRelatedID: propertyID})
	f.set(coll, "b", map[string]any{domain.FieldRelatedID: propertyID})
	f.docs.failDelete[docstore.Path(coll, "a")] = true

	removed, warns := f.svc.ClearRelatedNotifications(f.ctx, sellerID, []string{propertyID})
	assert.Equal(t, 1, removed)
	require.Len(t, warns, 1)
	assert.Equal(t, sellerID+"/a", warns[0].Target)
}

func TestDocumentNotifications_CreateAssignsID(t *testing.T) {
	f := newFixture(t)
	notes := NewDocumentNotifications(f.store)
	notes.newID = func() string { return "fixed-id" }

	id, err := notes.Create(context.Background(), domain.Notification{
		UserID:    buyerID,
		Type:      domain.NotificationPurchaseCancelled,
		Message:   "hello",
		RelatedID: propertyID,
		CreatedAt: fixedNow,
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)

	doc, err := f.store.Get(f.ctx, domain.UserNotificationsCollection(buyerID), "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", doc.String("id"))
	assert.Equal(t, buyerID, doc.String("userId"))
	assert.Equal(t, propertyID, doc.String(domain.FieldRelatedID))
	assert.False(t, doc.Bool("read"))
}

func TestParticipantIDs(t *testing.T) {
	assert.Equal(t, []string{"b", "s"}, participantIDs(domain.Participants{BuyerID: "b", SellerID: "s"}))
	assert.Equal(t, []string{"b"}, participantIDs(domain.Participants{BuyerID: "b", SellerID: "b"}))
	assert.Nil(t, participantIDs(domain.Participants{}))
}
