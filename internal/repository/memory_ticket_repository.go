package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/itsupport-service/internal/domain"
)

type memoryTicketRepository struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	now     func() time.Time
}

// NewMemoryTicketRepository returns a process-local TicketRepository with the
// same semantics as the Postgres implementation.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{
		tickets: make(map[string]*domain.Ticket),
		now:     time.Now,
	}
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	stored := ticket.Clone()
	// Only the fields the SQL insert writes are persisted.
	stored.RequestType, stored.Urgency, stored.RouteTo, stored.ResponseMsg = nil, nil, nil, nil
	stored.AutoApproval, stored.WorkflowStarted, stored.AssignedToID = false, false, nil
	r.tickets[ticket.ID] = stored
	*ticket = *stored.Clone()
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ticket.Clone(), nil
}

func (r *memoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	matched := r.matching(filter)
	r.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *memoryTicketRepository) Count(_ context.Context, filter TicketFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matching(filter)), nil
}

func (r *memoryTicketRepository) UpdateStatus(_ context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	return r.update(id, func(t *domain.Ticket) bool {
		t.Status = status
		return true
	})
}

func (r *memoryTicketRepository) Assign(_ context.Context, id, assigneeID string) (*domain.Ticket, error) {
	return r.update(id, func(t *domain.Ticket) bool {
		t.AssignedToID = &assigneeID
		return true
	})
}

func (r *memoryTicketRepository) ApplyClassification(_ context.Context, id string, c domain.Classification) (*domain.Ticket, error) {
	return r.update(id, func(t *domain.Ticket) bool {
		requestType, urgency, routeTo, msg := c.RequestType, c.Urgency, c.RouteTo, c.ResponseMsg
		t.RequestType = &requestType
		t.Urgency = &urgency
		t.AutoApproval = c.AutoApproval
		t.RouteTo = &routeTo
		t.ResponseMsg = &msg
		return true
	})
}

func (r *memoryTicketRepository) MarkWorkflowStarted(_ context.Context, id string) (*domain.Ticket, bool, error) {
	transitioned := false
	ticket, err := r.update(id, func(t *domain.Ticket) bool {
		if t.WorkflowStarted {
			return false
		}
		t.WorkflowStarted = true
		transitioned = true
		return true
	})
	if err != nil {
		return nil, false, err
	}
	return ticket, transitioned, nil
}

// update applies mutate under the lock; mutate returns false to leave the
// record untouched.
func (r *memoryTicketRepository) update(id string, mutate func(*domain.Ticket) bool) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if mutate(ticket) {
		ticket.UpdatedAt = r.now()
	}
	return ticket.Clone(), nil
}

func (r *memoryTicketRepository) matching(filter TicketFilter) []domain.Ticket {
	search := ""
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}
	var out []domain.Ticket
	for _, t := range r.tickets {
		if filter.RaisedByID != nil && t.RaisedByID != *filter.RaisedByID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if len(filter.Urgencies) > 0 && !urgencyIn(t.Urgency, filter.Urgencies) {
			continue
		}
		if filter.RequestType != nil && (t.RequestType == nil || *t.RequestType != *filter.RequestType) {
			continue
		}
		if filter.Unclassified && t.RequestType != nil {
			continue
		}
		if filter.CreatedBefore != nil && !t.CreatedAt.Before(*filter.CreatedBefore) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, *t.Clone())
	}
	return out
}

func urgencyIn(u *domain.Urgency, set []domain.Urgency) bool {
	if u == nil {
		return false
	}
	for _, candidate := range set {
		if candidate == *u {
			return true
		}
	}
	return false
}
