package events

import (
	"time"

	"github.com/spec-kit/itsupport-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	// EventTicketCreating fires before the ticket is persisted. Handlers may
	// mutate Event.Ticket; a handler error rejects the creation.
	EventTicketCreating EventType = "ticket_creating"
	EventTicketCreated  EventType = "ticket_created"
	EventTicketUpdated  EventType = "ticket_updated"
)

// SystemActorID identifies updates made by the service itself.
const SystemActorID = "system"

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string          `json:"user_id"`
	Role   domain.UserRole `json:"role,omitempty"`
}

// IsSystem reports whether the actor is the service itself.
func (a Actor) IsSystem() bool {
	return a.UserID == "" || a.UserID == SystemActorID
}

// UserActor builds an actor for an authenticated user.
func UserActor(userID string, role domain.UserRole) Actor {
	return Actor{UserID: userID, Role: role}
}

// SystemActor is used for sweeps and other service-initiated changes.
func SystemActor() Actor {
	return Actor{UserID: SystemActorID}
}

// Event represents a ticket lifecycle event emitted by services.
type Event struct {
	ID        string
	Type      EventType
	TicketID  string
	Actor     Actor
	Timestamp time.Time
	Ticket    *domain.Ticket
	// Changed lists the fields touched by an update.
	Changed []string
}

// Field names reported in Event.Changed.
const (
	FieldStatus          = "status"
	FieldClassification  = "classification"
	FieldWorkflowStarted = "workflow_started"
	FieldAssignedTo      = "assigned_to"
)
