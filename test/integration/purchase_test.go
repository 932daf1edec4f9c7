//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Property-Marketplace/internal/purchase/application"
	"github.com/dmehra2102/Property-Marketplace/internal/purchase/domain"
	purchasekafka "github.com/dmehra2102/Property-Marketplace/internal/purchase/infrastructure/kafka"
	purchasepg "github.com/dmehra2102/Property-Marketplace/internal/purchase/infrastructure/postgres"
	"github.com/dmehra2102/Property-Marketplace/pkg/blob/memory"
	"github.com/dmehra2102/Property-Marketplace/pkg/docstore"
	docpg "github.com/dmehra2102/Property-Marketplace/pkg/docstore/postgres"
	"github.com/dmehra2102/Property-Marketplace/pkg/logging"
	"github.com/dmehra2102/Property-Marketplace/pkg/outbox"
)

func TestCancelAgainstPostgresAndKafka(t *testing.T) {
	ctx := context.Background()
	env, err := Setup(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { env.Teardown(context.Background()) })

	pool, err := pgxpool.New(ctx, env.PGURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	log := logging.Discard()
	docs := docpg.NewStore(log, pool)
	require.NoError(t, docs.EnsureSchema(ctx))
	outboxStore := purchasepg.NewOutboxStore(log, pool)
	require.NoError(t, outboxStore.EnsureSchema(ctx))

	svc := application.NewService(log, docs, memory.New(),
		application.WithEvents(purchasepg.NewPublisher(log, pool, "purchase-service")))

	require.NoError(t, docs.Set(ctx, domain.PropertiesCollection, "prop-1", map[string]any{
		domain.FieldOwnerID: "seller-1",
		domain.FieldTitle:   "Harbour Loft",
	}))
	_, err = svc.ConfirmPurchase(ctx, "prop-1", "buyer-1")
	require.NoError(t, err)
	require.NoError(t, docs.Set(ctx, domain.IssuesCollection("prop-1"), "i1", map[string]any{"status": "open"}))

	res, err := svc.CancelPropertyPurchase(ctx, "prop-1", domain.RoleBuyer)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 2, res.RemovedNotifications)

	p, err := svc.PurchaseStatus(ctx, "prop-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateAvailable, p.State())
	assert.Equal(t, "Harbour Loft", p.Title, "merge keeps untouched fields")

	issues, err := docs.Query(ctx, domain.IssuesCollection("prop-1"))
	require.NoError(t, err)
	assert.Empty(t, issues)

	notes, err := docs.Query(ctx, domain.UserNotificationsCollection("buyer-1"),
		docstore.Where(domain.FieldRelatedID, docstore.OpIn, []string{"prop-1"}),
		docstore.Where("type", docstore.OpEqual, string(domain.NotificationPurchaseCancelled)))
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	_, err = svc.CancelPropertyPurchase(ctx, "prop-1", domain.RoleBuyer)
	assert.ErrorIs(t, err, domain.ErrNoConfirmedBuyer)

	// Ship both events through the relay and read them back.
	writer := purchasekafka.NewWriter(env.KAddr)
	t.Cleanup(func() { _ = writer.Close() })
	relay := outbox.NewRelay(log, outboxStore, outbox.NewDispatcher(log, writer, "purchase.events"), "it-relay")
	relay.Tick(ctx)

	reader := kafka.NewReader(kafka.ReaderConfig{Brokers: env.KAddr, Topic: "purchase.events", GroupID: "it"})
	t.Cleanup(func() { _ = reader.Close() })

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	var types []string
	for len(types) < 2 {
		msg, err := reader.ReadMessage(readCtx)
		require.NoError(t, err)
		assert.Equal(t, "prop-1", string(msg.Key))
		var body map[string]any
		require.NoError(t, json.Unmarshal(msg.Value, &body))
		for _, h := range msg.Headers {
			if h.Key == "event_type" {
				types = append(types, string(h.Value))
			}
		}
	}
	assert.Equal(t, []string{domain.EventPurchaseConfirmed, domain.EventPurchaseCancelled}, types)

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM outbox WHERE status <> 'sent'`).Scan(&pending))
	assert.Zero(t, pending)
}
