package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/itsupport-service/internal/api/dto"
	"github.com/spec-kit/itsupport-service/internal/service"
	apperrors "github.com/spec-kit/itsupport-service/pkg/util/errorutil"
)

// SupportTicketsHandler serves the support agent endpoints.
type SupportTicketsHandler struct {
	tickets      *service.TicketService
	orchestrator *service.Orchestrator
}

// NewSupportTicketsHandler constructs handler.
func NewSupportTicketsHandler(tickets *service.TicketService, orchestrator *service.Orchestrator) *SupportTicketsHandler {
	return &SupportTicketsHandler{tickets: tickets, orchestrator: orchestrator}
}

// ListTickets GET /support/tickets.
func (h *SupportTicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	filter, meta, err := parseTicketFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListTickets(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets), "meta": meta})
}

// Stats GET /support/tickets/stats.
func (h *SupportTicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.tickets.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketStatsResponse{
		Open:         stats.Open,
		InProgress:   stats.InProgress,
		HighPriority: stats.HighPriority,
		Resolved:     stats.Resolved,
	}})
}

// UpdateStatus PATCH /support/tickets/:id/status.
func (h *SupportTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.UpdateStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AdvanceStatus POST /support/tickets/:id/advance.
func (h *SupportTicketsHandler) AdvanceStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.AdvanceStatus(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Assign POST /support/tickets/:id/assign assigns the ticket to the caller.
func (h *SupportTicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.AssignToSelf(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Classify POST /support/tickets/:id/classify queues a fresh classification.
func (h *SupportTicketsHandler) Classify(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.orchestrator.Reclassify(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}
