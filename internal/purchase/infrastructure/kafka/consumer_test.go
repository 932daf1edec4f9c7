package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Property-Marketplace/internal/purchase/application"
	"github.com/dmehra2102/Property-Marketplace/internal/purchase/domain"
	"github.com/dmehra2102/Property-Marketplace/pkg/logging"
)

type memDeduper struct {
	claimed   map[string]bool
	forgotten []string
	err       error
}

func (d *memDeduper) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("%s:%d:%d", topic, partition, offset)
}

func (d *memDeduper) Seen(_ context.Context, key string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.claimed[key] {
		return true, nil
	}
	d.claimed[key] = true
	return false, nil
}

func (d *memDeduper) Forget(_ context.Context, key string) error {
	delete(d.claimed, key)
	d.forgotten = append(d.forgotten, key)
	return nil
}

type cancelCall struct {
	propertyID string
	role       domain.Role
}

type fakeCanceller struct {
	calls   []cancelCall
	err     error
	failFor map[string]int // remaining failures per property
}

func (f *fakeCanceller) CancelPropertyPurchase(_ context.Context, propertyID string, role domain.Role) (application.Result, error) {
	f.calls = append(f.calls, cancelCall{propertyID: propertyID, role: role})
	if f.failFor[propertyID] > 0 {
		f.failFor[propertyID]--
		return application.Result{}, errors.New("deadline exceeded")
	}
	return application.Result{PropertyID: propertyID}, f.err
}

func (f *fakeCanceller) propertyIDs() []string {
	ids := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		ids = append(ids, c.propertyID)
	}
	return ids
}

func newConsumer(svc *fakeCanceller, idem *memDeduper) *Consumer {
	return NewConsumer(logging.Discard(), &sliceReader{}, svc, idem)
}

func message(offset int64, value string) kafka.Message {
	return kafka.Message{Topic: "purchase.commands", Partition: 0, Offset: offset, Value: []byte(value)}
}

func TestHandleCancelsAndDedups(t *testing.T) {
	svc := &fakeCanceller{}
	idem := &memDeduper{claimed: map[string]bool{}}
	c := newConsumer(svc, idem)

	msg := message(7, `{"propertyId":"prop-1","initiatedBy":"Seller"}`)
	assert.True(t, c.Handle(context.Background(), msg))
	assert.True(t, c.Handle(context.Background(), msg))

	require.Len(t, svc.calls, 1)
	assert.Equal(t, cancelCall{propertyID: "prop-1", role: domain.RoleSeller}, svc.calls[0])
}

func TestHandleFallsBackToMessageKey(t *testing.T) {
	svc := &fakeCanceller{}
	c := newConsumer(svc, &memDeduper{claimed: map[string]bool{}})

	msg := message(1, `{"initiatedBy":"buyer"}`)
	msg.Key = []byte("prop-9")
	assert.True(t, c.Handle(context.Background(), msg))
	require.Len(t, svc.calls, 1)
	assert.Equal(t, "prop-9", svc.calls[0].propertyID)
}

func TestHandleCommitsPoisonMessages(t *testing.T) {
	svc := &fakeCanceller{}
	c := newConsumer(svc, &memDeduper{claimed: map[string]bool{}})

	assert.True(t, c.Handle(context.Background(), message(1, `{not json`)))
	assert.True(t, c.Handle(context.Background(), message(2, `{"propertyId":"p","initiatedBy":"agent"}`)))
	assert.Empty(t, svc.calls)
}

func TestHandleDomainRejectionIsCommitted(t *testing.T) {
	svc := &fakeCanceller{err: fmt.Errorf("%w: p", domain.ErrNoConfirmedBuyer)}
	idem := &memDeduper{claimed: map[string]bool{}}
	c := newConsumer(svc, idem)

	assert.True(t, c.Handle(context.Background(), message(3, `{"propertyId":"p","initiatedBy":"buyer"}`)))
	assert.Empty(t, idem.forgotten)
}

func TestHandleStoreFailureReleasesClaim(t *testing.T) {
	svc := &fakeCanceller{err: errors.New("deadline exceeded")}
	idem := &memDeduper{claimed: map[string]bool{}}
	c := newConsumer(svc, idem)

	msg := message(4, `{"propertyId":"p","initiatedBy":"buyer"}`)
	assert.False(t, c.Handle(context.Background(), msg))
	assert.Equal(t, []string{"purchase.commands:0:4"}, idem.forgotten)

	svc.err = nil
	assert.True(t, c.Handle(context.Background(), msg), "redelivery is processed")
	assert.Len(t, svc.calls, 2)
}

func TestHandleIdempotencyOutage(t *testing.T) {
	svc := &fakeCanceller{}
	c := newConsumer(svc, &memDeduper{err: errors.New("redis down")})

	assert.False(t, c.Handle(context.Background(), message(5, `{"propertyId":"p","initiatedBy":"buyer"}`)))
	assert.Empty(t, svc.calls)
}

type sliceReader struct {
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *sliceReader) FetchMessage(_ context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *sliceReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *sliceReader) Close() error {
	r.closed = true
	return nil
}

func TestRunCommitsHandledMessages(t *testing.T) {
	reader := &sliceReader{msgs: []kafka.Message{
		message(10, `{"propertyId":"a","initiatedBy":"buyer"}`),
		message(11, `{"propertyId":"b","initiatedBy":"seller"}`),
	}}
	svc := &fakeCanceller{}
	c := NewConsumer(logging.Discard(), reader, svc, &memDeduper{claimed: map[string]bool{}})

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []int64{10, 11}, reader.committed)
	assert.True(t, reader.closed)
	assert.Len(t, svc.calls, 2)
}

func TestRunStopsCleanlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := &sliceReader{}
	c := NewConsumer(logging.Discard(), reader, &fakeCanceller{}, &memDeduper{claimed: map[string]bool{}})

	assert.NoError(t, c.Run(ctx))
}

func TestRunRetriesFailedCommandBeforeMovingOn(t *testing.T) {
	reader := &sliceReader{msgs: []kafka.Message{
		message(4, `{"propertyId":"p4","initiatedBy":"buyer"}`),
		message(5, `{"propertyId":"p5","initiatedBy":"buyer"}`),
	}}
	svc := &fakeCanceller{failFor: map[string]int{"p4": 1}}
	c := NewConsumer(logging.Discard(), reader, svc, &memDeduper{claimed: map[string]bool{}}).
		WithRetry(3, time.Millisecond)

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"p4", "p4", "p5"}, svc.propertyIDs())
	assert.Equal(t, []int64{4, 5}, reader.committed)
}

func TestRunNeverCommitsPastFailingCommand(t *testing.T) {
	reader := &sliceReader{msgs: []kafka.Message{
		message(4, `{"propertyId":"p4","initiatedBy":"buyer"}`),
		message(5, `{"propertyId":"p5","initiatedBy":"buyer"}`),
	}}
	svc := &fakeCanceller{failFor: map[string]int{"p4": 100}}
	c := NewConsumer(logging.Discard(), reader, svc, &memDeduper{claimed: map[string]bool{}}).
		WithRetry(2, time.Millisecond)

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"p4", "p4"}, svc.propertyIDs())
	assert.Empty(t, reader.committed)
	assert.Len(t, reader.msgs, 1, "offset 5 was never fetched")
	assert.True(t, reader.closed)
}
