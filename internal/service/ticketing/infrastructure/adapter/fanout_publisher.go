package adapter

import (
	"context"
	"errors"
	"fmt"

	"ticketing/internal/pkg/metrics"
	"ticketing/internal/service/ticketing/domain"
	"ticketing/internal/service/ticketing/domain/port"
)

// Sink is a named TicketsIssued destination.
type Sink struct {
	Name      string
	Publisher port.TicketPublisher
}

// FanoutPublisher delivers every event to all sinks. A failing sink does not stop the others.
type FanoutPublisher struct {
	sinks []Sink
}

func NewFanoutPublisher(sinks ...Sink) *FanoutPublisher {
	return &FanoutPublisher{sinks: sinks}
}

func (f *FanoutPublisher) PublishTicketsIssued(ctx context.Context, event domain.TicketsIssued) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publisher.PublishTicketsIssued(ctx, event); err != nil {
			metrics.PublishFailuresTotal.WithLabelValues(sink.Name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name, err))
		}
	}
	return errors.Join(errs...)
}
