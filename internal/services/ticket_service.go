// TicketService governs the support ticket flows used by the storefront
// (open a ticket) and the admin console (triage, resolve or deny, mark read).
package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/avlonitis/go-shop-backend/internal/domain"
)

// TicketAPI is the slice of the remote client the service needs.
type TicketAPI interface {
	ListTickets(ctx context.Context) ([]domain.Ticket, error)
	CreateTicket(ctx context.Context, userID, subject, body string) (string, error)
	ResolveTicket(ctx context.Context, ticketID string, approve bool) error
	MarkTicketRead(ctx context.Context, ticketID string) error
}

// TicketService implements the ticket use-cases.
type TicketService struct {
	API TicketAPI
}

// List returns all tickets, unread first within the remote ordering.
func (s *TicketService) List(ctx context.Context) ([]domain.Ticket, error) {
	return s.API.ListTickets(ctx)
}

// Open creates a ticket on behalf of userID. Subject and body must be
// non-blank.
func (s *TicketService) Open(ctx context.Context, userID, subject, body string) (string, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Open",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" {
		return "", ErrEmptySubject
	}
	if body == "" {
		return "", ErrEmptyBody
	}
	return s.API.CreateTicket(ctx, userID, subject, body)
}

// Close settles a ticket: approve=true resolves it, false denies it.
func (s *TicketService) Close(ctx context.Context, ticketID string, approve bool) error {
	return s.API.ResolveTicket(ctx, ticketID, approve)
}

// MarkRead flags a ticket as read by staff.
func (s *TicketService) MarkRead(ctx context.Context, ticketID string) error {
	return s.API.MarkTicketRead(ctx, ticketID)
}
