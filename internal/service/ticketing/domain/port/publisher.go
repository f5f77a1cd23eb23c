package port

import (
	"context"

	"ticketing/internal/service/ticketing/domain"
)

// TicketPublisher announces committed purchases.
type TicketPublisher interface {
	PublishTicketsIssued(ctx context.Context, event domain.TicketsIssued) error
}
