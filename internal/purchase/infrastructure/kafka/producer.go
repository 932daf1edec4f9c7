package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type Writer struct {
	*kafka.Writer
}

// NewWriter returns a producer for the outbox relay. Messages carry their
// own topic, so the writer is not bound to one.
func NewWriter(brokers []string) *Writer {
	return &Writer{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
	}
}

func (w *Writer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return w.Writer.WriteMessages(ctx, msgs...)
}
