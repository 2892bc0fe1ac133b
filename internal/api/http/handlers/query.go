package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/itsupport-service/internal/api/dto"
	"github.com/spec-kit/itsupport-service/internal/auth"
	"github.com/spec-kit/itsupport-service/internal/domain"
	"github.com/spec-kit/itsupport-service/internal/events"
	"github.com/spec-kit/itsupport-service/internal/service"
	apperrors "github.com/spec-kit/itsupport-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func actorFrom(c *fiber.Ctx) (events.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return events.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor(), nil
}

// parseTicketFilter reads status, urgency (comma separated, any of),
// request_type, q, unclassified, page and page_size.
func parseTicketFilter(c *fiber.Ctx) (service.TicketListFilter, dto.PageMeta, error) {
	var filter service.TicketListFilter

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := domain.TicketStatus(raw)
		if !status.Valid() {
			return filter, dto.PageMeta{}, apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
		}
		filter.Status = &status
	}
	if raw := c.Query("urgency"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			urgency, ok := domain.ParseUrgency(strings.TrimSpace(part))
			if !ok {
				return filter, dto.PageMeta{}, apperrors.NewValidationError("invalid urgency", map[string]any{"urgency": part})
			}
			filter.Urgencies = append(filter.Urgencies, urgency)
		}
	}
	if raw := strings.TrimSpace(c.Query("request_type")); raw != "" {
		filter.RequestType = &raw
	}
	if raw := strings.TrimSpace(c.Query("q")); raw != "" {
		filter.SearchTerm = &raw
	}
	filter.UnclassifiedOnly = c.QueryBool("unclassified", false)

	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, dto.PageMeta{Page: page, PageSize: pageSize}, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
