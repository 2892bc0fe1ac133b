package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/itsupport-service/internal/domain"
	"github.com/spec-kit/itsupport-service/internal/events"
	"github.com/spec-kit/itsupport-service/internal/repository"
	apperrors "github.com/spec-kit/itsupport-service/pkg/util/errorutil"
)

// TicketService coordinates ticket reads and writes and publishes lifecycle
// events for every change.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Description  string
	ContactName  string
	ContactEmail string
	// Status is whatever the client sent; the pre-create hook decides the
	// stored value.
	Status domain.TicketStatus
}

// TicketListFilter describes listing filters shared by employees and support.
type TicketListFilter struct {
	Status           *domain.TicketStatus
	Urgencies        []domain.Urgency
	RequestType      *string
	SearchTerm       *string
	UnclassifiedOnly bool
	CreatedBefore    *time.Time
	Limit            int
	Offset           int
}

// TicketStats summarizes the support dashboard counters.
type TicketStats struct {
	Open         int
	InProgress   int
	HighPriority int
	Resolved     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// CreateTicket validates input, runs pre-create hooks, persists the ticket and
// publishes ticket_created.
func (s *TicketService) CreateTicket(ctx context.Context, actor events.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.NewValidationError("description is required", map[string]any{"field": "description"})
	}
	name, email := strings.TrimSpace(input.ContactName), strings.TrimSpace(input.ContactEmail)
	if name != "" && email != "" {
		description += fmt.Sprintf("\n\n[Contact: %s - %s]", name, email)
	}

	ticket := &domain.Ticket{
		Description: description,
		Status:      input.Status,
		RaisedByID:  actor.UserID,
	}

	if s.dispatcher != nil {
		err := s.dispatcher.Publish(ctx, s.newEvent(events.EventTicketCreating, actor, ticket, nil))
		if err != nil {
			return nil, fmt.Errorf("pre-create hooks: %w", err)
		}
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	s.publish(ctx, s.newEvent(events.EventTicketCreated, actor, ticket.Clone(), nil))
	return ticket, nil
}

// ListTickets returns a page of tickets. Employees only see their own.
func (s *TicketService) ListTickets(ctx context.Context, actor events.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Status:        filter.Status,
		Urgencies:     filter.Urgencies,
		RequestType:   filter.RequestType,
		SearchTerm:    filter.SearchTerm,
		Unclassified:  filter.UnclassifiedOnly,
		CreatedBefore: filter.CreatedBefore,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	}
	if !privileged(actor) {
		owner := actor.UserID
		repoFilter.RaisedByID = &owner
	}
	return s.tickets.List(ctx, repoFilter)
}

// GetTicket fetches a ticket the actor is allowed to see.
func (s *TicketService) GetTicket(ctx context.Context, actor events.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !privileged(actor) && ticket.RaisedByID != actor.UserID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// UpdateStatus sets a ticket's status. Support only.
func (s *TicketService) UpdateStatus(ctx context.Context, actor events.Actor, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	if err := requireSupport(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	return s.update(ctx, actor, events.FieldStatus, func() (*domain.Ticket, error) {
		return s.tickets.UpdateStatus(ctx, ticketID, status)
	})
}

// AdvanceStatus moves a ticket one step along Open, In Progress, Resolved,
// Closed. Any other status goes back to Open.
func (s *TicketService) AdvanceStatus(ctx context.Context, actor events.Actor, ticketID string) (*domain.Ticket, error) {
	if err := requireSupport(actor); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.UpdateStatus(ctx, actor, ticketID, ticket.Status.Next())
}

// AssignToSelf assigns the ticket to the calling support agent.
func (s *TicketService) AssignToSelf(ctx context.Context, actor events.Actor, ticketID string) (*domain.Ticket, error) {
	if err := requireSupport(actor); err != nil {
		return nil, err
	}
	return s.update(ctx, actor, events.FieldAssignedTo, func() (*domain.Ticket, error) {
		return s.tickets.Assign(ctx, ticketID, actor.UserID)
	})
}

// Stats returns dashboard counters.
func (s *TicketService) Stats(ctx context.Context) (TicketStats, error) {
	open, inProgress, resolved := domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved

	var stats TicketStats
	counts := []struct {
		dst    *int
		filter repository.TicketFilter
	}{
		{&stats.Open, repository.TicketFilter{Status: &open}},
		{&stats.InProgress, repository.TicketFilter{Status: &inProgress}},
		{&stats.HighPriority, repository.TicketFilter{Urgencies: []domain.Urgency{domain.UrgencyHigh, domain.UrgencyCritical}}},
		{&stats.Resolved, repository.TicketFilter{Status: &resolved}},
	}
	for _, c := range counts {
		n, err := s.tickets.Count(ctx, c.filter)
		if err != nil {
			return TicketStats{}, fmt.Errorf("count tickets: %w", err)
		}
		*c.dst = n
	}
	return stats, nil
}

// ApplyClassification writes a classification result back to the ticket.
func (s *TicketService) ApplyClassification(ctx context.Context, actor events.Actor, ticketID string, c domain.Classification) (*domain.Ticket, error) {
	return s.update(ctx, actor, events.FieldClassification, func() (*domain.Ticket, error) {
		return s.tickets.ApplyClassification(ctx, ticketID, c)
	})
}

// MarkWorkflowStarted sets WorkflowStarted if it is still false and reports
// whether this call made the change. No event is published when the flag was
// already set.
func (s *TicketService) MarkWorkflowStarted(ctx context.Context, actor events.Actor, ticketID string) (bool, error) {
	ticket, changed, err := s.tickets.MarkWorkflowStarted(ctx, ticketID)
	if err != nil {
		return false, fmt.Errorf("mark workflow started: %w", err)
	}
	if changed {
		s.publish(ctx, s.newEvent(events.EventTicketUpdated, actor, ticket, []string{events.FieldWorkflowStarted}))
	}
	return changed, nil
}

func (s *TicketService) update(ctx context.Context, actor events.Actor, field string, write func() (*domain.Ticket, error)) (*domain.Ticket, error) {
	ticket, err := write()
	if err != nil {
		return nil, err
	}
	s.publish(ctx, s.newEvent(events.EventTicketUpdated, actor, ticket.Clone(), []string{field}))
	return ticket, nil
}

func (s *TicketService) newEvent(eventType events.EventType, actor events.Actor, ticket *domain.Ticket, changed []string) events.Event {
	return events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticket.ID,
		Actor:     actor,
		Timestamp: time.Now(),
		Ticket:    ticket,
		Changed:   changed,
	}
}

// publish runs post-write hooks. Their failures never undo the write.
func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("event handlers failed",
			zap.String("event", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func privileged(actor events.Actor) bool {
	return actor.Role == domain.UserRoleSupport || actor.UserID == events.SystemActorID
}

func requireSupport(actor events.Actor) error {
	if actor.Role != domain.UserRoleSupport {
		return apperrors.NewForbidden("support role required")
	}
	return nil
}
