package dto

import (
	"time"

	"github.com/spec-kit/itsupport-service/internal/domain"
)

// CreateTicketRequest payload. Status is accepted but always stored as Open.
type CreateTicketRequest struct {
	Description  string              `json:"description"`
	ContactName  string              `json:"contact_name"`
	ContactEmail string              `json:"contact_email"`
	Status       domain.TicketStatus `json:"status"`
}

// TicketResponse is the public view of a ticket. Classification fields are
// null until classification completes.
type TicketResponse struct {
	ID              string              `json:"id"`
	Description     string              `json:"description"`
	Status          domain.TicketStatus `json:"status"`
	RequestType     *string             `json:"request_type"`
	Urgency         *domain.Urgency     `json:"urgency"`
	AutoApproval    bool                `json:"auto_approval"`
	RouteTo         *string             `json:"route_to"`
	ResponseMsg     *string             `json:"response_msg"`
	WorkflowStarted bool                `json:"workflow_started"`
	RaisedByID      string              `json:"raised_by_id"`
	AssignedToID    *string             `json:"assigned_to_id"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// PageMeta describes the requested page.
type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              t.ID,
		Description:     t.Description,
		Status:          t.Status,
		RequestType:     t.RequestType,
		Urgency:         t.Urgency,
		AutoApproval:    t.AutoApproval,
		RouteTo:         t.RouteTo,
		ResponseMsg:     t.ResponseMsg,
		WorkflowStarted: t.WorkflowStarted,
		RaisedByID:      t.RaisedByID,
		AssignedToID:    t.AssignedToID,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}
