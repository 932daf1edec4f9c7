package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Property-Marketplace/internal/purchase/application"
	"github.com/dmehra2102/Property-Marketplace/internal/purchase/domain"
	"github.com/dmehra2102/Property-Marketplace/pkg/tracing"
)

// CancelCommand is the message body on the command topic.
type CancelCommand struct {
	PropertyID  string `json:"propertyId"`
	InitiatedBy string `json:"initiatedBy"`
}

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Deduper interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type Canceller interface {
	CancelPropertyPurchase(ctx context.Context, propertyID string, initiatedBy domain.Role) (application.Result, error)
}

type Consumer struct {
	log      *slog.Logger
	reader   Reader
	svc      Canceller
	idem     Deduper
	tracer   trace.Tracer
	attempts int
	backoff  time.Duration
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader Reader, svc Canceller, idem Deduper) *Consumer {
	return &Consumer{
		log:      log,
		reader:   reader,
		svc:      svc,
		idem:     idem,
		tracer:   otel.Tracer("purchase-consumer"),
		attempts: 5,
		backoff:  200 * time.Millisecond,
	}
}

// WithRetry sets how many times a failing command is handled before Run
// gives up, and the first pause between attempts. Pauses double each time.
func (c *Consumer) WithRetry(attempts int, backoff time.Duration) *Consumer {
	if attempts < 1 {
		attempts = 1
	}
	c.attempts = attempts
	c.backoff = backoff
	return c
}

// Run consumes until ctx is cancelled. It returns nil on a clean stop.
//
// Group commits record a position, so a command is never skipped: a failing
// command is retried in place, and when retries run out Run returns without
// committing it. The group then resumes from that command on restart.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.handleWithRetry(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, msg kafka.Message) error {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		if c.Handle(ctx, msg) {
			return nil
		}
		if attempt >= c.attempts {
			return fmt.Errorf("command at %s/%d offset %d failed after %d attempts", msg.Topic, msg.Partition, msg.Offset, attempt)
		}
		c.log.Warn("retrying command", "offset", msg.Offset, "attempt", attempt, "wait", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}

// Handle processes one command and reports whether its offset may be
// committed. Commands that can never succeed (bad payload, unknown property,
// nothing to cancel) are committed; a store failure releases the
// idempotency claim so the next attempt runs the cancel again.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) bool {
	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		c.log.Error("idempotency check failed", "err", err)
		return false
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
		return true
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeCancelPurchase")
	defer span.End()

	var cmd CancelCommand
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		c.log.Error("unmarshal failed", "offset", msg.Offset, "err", err)
		return true
	}
	if cmd.PropertyID == "" {
		cmd.PropertyID = string(msg.Key)
	}
	span.SetAttributes(attribute.String("property_id", cmd.PropertyID))

	role, err := domain.ParseRole(cmd.InitiatedBy)
	if err != nil {
		c.log.Error("invalid cancel command", "property_id", cmd.PropertyID, "initiated_by", cmd.InitiatedBy)
		return true
	}

	res, err := c.svc.CancelPropertyPurchase(msgCtx, cmd.PropertyID, role)
	switch {
	case err == nil:
		c.log.Info("purchase cancel processed", "property_id", cmd.PropertyID, "warnings", len(res.Warnings))
		return true
	case errors.Is(err, domain.ErrPropertyNotFound), errors.Is(err, domain.ErrNoConfirmedBuyer):
		c.log.Warn("cancel command rejected", "property_id", cmd.PropertyID, "err", err)
		return true
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Error("purchase cancel failed", "property_id", cmd.PropertyID, "err", err)
		if fErr := c.idem.Forget(ctx, key); fErr != nil {
			c.log.Error("idempotency release failed", "key", key, "err", fErr)
		}
		return false
	}
}
