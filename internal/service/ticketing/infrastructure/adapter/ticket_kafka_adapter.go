package adapter

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"ticketing/internal/pkg/mq"
	"ticketing/internal/service/ticketing/domain"
)

// TicketKafkaAdapter publishes TicketsIssued keyed by event id, so one event's
// purchases stay ordered within a partition.
type TicketKafkaAdapter struct {
	writer mq.MessageWriter
}

func NewTicketKafkaAdapter(writer mq.MessageWriter) *TicketKafkaAdapter {
	return &TicketKafkaAdapter{writer: writer}
}

func (a *TicketKafkaAdapter) PublishTicketsIssued(ctx context.Context, event domain.TicketsIssued) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal TicketsIssued")
	}
	return mq.ProduceMessage(ctx, a.writer, []byte(event.EventID), payload)
}

func (a *TicketKafkaAdapter) Close() error {
	if c, ok := a.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
