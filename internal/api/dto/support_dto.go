package dto

import "github.com/spec-kit/itsupport-service/internal/domain"

// UpdateStatusRequest payload for support status changes.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketStatsResponse mirrors the support dashboard tiles.
type TicketStatsResponse struct {
	Open         int `json:"open"`
	InProgress   int `json:"in_progress"`
	HighPriority int `json:"high_priority"`
	Resolved     int `json:"resolved"`
}
