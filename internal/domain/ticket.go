package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Next returns the status a support agent advances to from s.
func (s TicketStatus) Next() TicketStatus {
	switch s {
	case TicketStatusOpen:
		return TicketStatusInProgress
	case TicketStatusInProgress:
		return TicketStatusResolved
	case TicketStatusResolved:
		return TicketStatusClosed
	default:
		return TicketStatusOpen
	}
}

// Urgency is the classifier-assigned severity.
type Urgency string

const (
	UrgencyLow      Urgency = "Low"
	UrgencyMedium   Urgency = "Medium"
	UrgencyHigh     Urgency = "High"
	UrgencyCritical Urgency = "Critical"
)

// ParseUrgency maps a raw value to a known urgency.
func ParseUrgency(raw string) (Urgency, bool) {
	switch u := Urgency(raw); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return u, true
	}
	return "", false
}

// RequestTypeHardware is the classification that requires hardware approval.
const RequestTypeHardware = "Hardware Request"

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID              string
	Description     string
	Status          TicketStatus
	RequestType     *string
	Urgency         *Urgency
	AutoApproval    bool
	RouteTo         *string
	ResponseMsg     *string
	WorkflowStarted bool
	RaisedByID      string
	AssignedToID    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Classified reports whether a classification round-trip has been written.
func (t *Ticket) Classified() bool {
	return t.RequestType != nil
}

// NeedsHardwareWorkflow reports whether the hardware-approval workflow
// should be started for the ticket in its current state.
func (t *Ticket) NeedsHardwareWorkflow() bool {
	return t.RequestType != nil && *t.RequestType == RequestTypeHardware && !t.WorkflowStarted
}

// Clone returns a deep copy so snapshots can be handed to background work.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.RequestType = cloneString(t.RequestType)
	cp.RouteTo = cloneString(t.RouteTo)
	cp.ResponseMsg = cloneString(t.ResponseMsg)
	cp.AssignedToID = cloneString(t.AssignedToID)
	if t.Urgency != nil {
		u := *t.Urgency
		cp.Urgency = &u
	}
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
