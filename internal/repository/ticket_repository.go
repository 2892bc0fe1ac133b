package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/itsupport-service/internal/domain"
)

const defaultListLimit = 20

// TicketFilter captures list parameters. Nil fields are not filtered on.
type TicketFilter struct {
	RaisedByID    *string
	Status        *domain.TicketStatus
	Urgencies     []domain.Urgency
	RequestType   *string
	SearchTerm    *string
	Unclassified  bool
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Count(ctx context.Context, filter TicketFilter) (int, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error)
	Assign(ctx context.Context, id, assigneeID string) (*domain.Ticket, error)
	ApplyClassification(ctx context.Context, id string, c domain.Classification) (*domain.Ticket, error)
	// MarkWorkflowStarted sets WorkflowStarted only if it is still false. The
	// boolean reports whether this call performed the transition.
	MarkWorkflowStarted(ctx context.Context, id string) (*domain.Ticket, bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, description, status, request_type, urgency, auto_approval, route_to,
               response_msg, workflow_started, raised_by_id, assigned_to_id, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (description, status, raised_by_id)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Description,
		ticket.Status,
		ticket.RaisedByID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := buildTicketWhere(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int, error) {
	where, args := buildTicketWhere(filter)
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&count)
	return count, err
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2 RETURNING ` + ticketColumns
	return scanTicket(r.pool.QueryRow(ctx, query, status, id))
}

func (r *ticketRepository) Assign(ctx context.Context, id, assigneeID string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `UPDATE tickets SET assigned_to_id=$1, updated_at=NOW() WHERE id=$2 RETURNING ` + ticketColumns
	return scanTicket(r.pool.QueryRow(ctx, query, assigneeID, id))
}

func (r *ticketRepository) ApplyClassification(ctx context.Context, id string, c domain.Classification) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `
        UPDATE tickets SET request_type=$1, urgency=$2, auto_approval=$3, route_to=$4, response_msg=$5,
            updated_at=NOW()
        WHERE id=$6
        RETURNING ` + ticketColumns
	return scanTicket(r.pool.QueryRow(ctx, query,
		c.RequestType,
		c.Urgency,
		c.AutoApproval,
		c.RouteTo,
		c.ResponseMsg,
		id,
	))
}

func (r *ticketRepository) MarkWorkflowStarted(ctx context.Context, id string) (*domain.Ticket, bool, error) {
	if !validID(id) {
		return nil, false, pgx.ErrNoRows
	}
	query := `
        UPDATE tickets SET workflow_started=TRUE, updated_at=NOW()
        WHERE id=$1 AND workflow_started=FALSE
        RETURNING ` + ticketColumns
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err == nil {
		return ticket, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}
	// Either the ticket is gone or another writer already set the flag.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func buildTicketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RaisedByID != nil {
		args = append(args, *filter.RaisedByID)
		clauses = append(clauses, fmt.Sprintf("raised_by_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(filter.Urgencies) > 0 {
		placeholders := make([]string, len(filter.Urgencies))
		for i, u := range filter.Urgencies {
			args = append(args, u)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("urgency IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequestType != nil {
		args = append(args, *filter.RequestType)
		clauses = append(clauses, fmt.Sprintf("request_type=$%d", len(args)))
	}
	if filter.Unclassified {
		clauses = append(clauses, "request_type IS NULL")
	}
	if filter.CreatedBefore != nil {
		args = append(args, *filter.CreatedBefore)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.SearchTerm))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(description) LIKE $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Description,
		&ticket.Status,
		&ticket.RequestType,
		&ticket.Urgency,
		&ticket.AutoApproval,
		&ticket.RouteTo,
		&ticket.ResponseMsg,
		&ticket.WorkflowStarted,
		&ticket.RaisedByID,
		&ticket.AssignedToID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// validID rejects identifiers that can never match a UUID primary key, so a
// malformed path parameter reads as not found instead of a driver error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
