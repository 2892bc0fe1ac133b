package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsupport-service/internal/domain"
)

func createTicket(t *testing.T, repo TicketRepository, desc, raisedBy string) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{Description: desc, Status: domain.TicketStatusOpen, RaisedByID: raisedBy}
	require.NoError(t, repo.Create(context.Background(), ticket))
	require.NotEmpty(t, ticket.ID)
	return ticket
}

func TestMemoryCreateIgnoresClassificationFields(t *testing.T) {
	repo := NewMemoryTicketRepository()
	rt := "Hardware Request"
	ticket := &domain.Ticket{
		Description:     "printer jam",
		Status:          domain.TicketStatusOpen,
		RequestType:     &rt,
		WorkflowStarted: true,
	}
	require.NoError(t, repo.Create(context.Background(), ticket))

	stored, err := repo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RequestType)
	assert.False(t, stored.WorkflowStarted)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestMemoryGetMissing(t *testing.T) {
	repo := NewMemoryTicketRepository()
	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = repo.UpdateStatus(context.Background(), "nope", domain.TicketStatusClosed)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestMemoryListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()

	a := createTicket(t, repo, "Printer jam on floor 2", "alice")
	b := createTicket(t, repo, "Need a new laptop", "alice")
	createTicket(t, repo, "VPN keeps dropping", "bob")

	_, err := repo.ApplyClassification(ctx, b.ID, domain.Classification{
		RequestType: domain.RequestTypeHardware, Urgency: domain.UrgencyHigh, RouteTo: "Hardware Team", ResponseMsg: "ok",
	})
	require.NoError(t, err)
	_, err = repo.UpdateStatus(ctx, a.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)

	alice := "alice"
	got, err := repo.List(ctx, TicketFilter{RaisedByID: &alice})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	search := "PRINTER"
	got, err = repo.List(ctx, TicketFilter{SearchTerm: &search})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	got, err = repo.List(ctx, TicketFilter{Urgencies: []domain.Urgency{domain.UrgencyHigh, domain.UrgencyCritical}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)

	inProgress := domain.TicketStatusInProgress
	n, err := repo.Count(ctx, TicketFilter{Status: &inProgress})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.Count(ctx, TicketFilter{Unclassified: true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	future := time.Now().Add(time.Hour)
	n, err = repo.Count(ctx, TicketFilter{Unclassified: true, CreatedBefore: &future})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	past := time.Now().Add(-time.Hour)
	n, err = repo.Count(ctx, TicketFilter{CreatedBefore: &past})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryListPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	for i := 0; i < 5; i++ {
		createTicket(t, repo, "ticket", "u")
	}

	page, err := repo.List(ctx, TicketFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = repo.List(ctx, TicketFilter{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemoryMarkWorkflowStartedIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	ticket := createTicket(t, repo, "laptop", "u")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok, err := repo.MarkWorkflowStarted(ctx, ticket.ID)
			if err == nil && ok {
				wins.Add(1)
			}
			if err == nil {
				assert.True(t, got.WorkflowStarted)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryReturnedTicketsAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	ticket := createTicket(t, repo, "mouse", "u")

	got, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	got.Status = domain.TicketStatusClosed

	again, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, again.Status)
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	user := &domain.User{Name: "Ann", Email: "ann@example.com", Role: domain.UserRoleEmployee}
	require.NoError(t, repo.Create(ctx, user))

	dup := &domain.User{Name: "Ann2", Email: "ANN@example.com"}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateEmail)

	got, err := repo.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestBuildTicketWhere(t *testing.T) {
	status := domain.TicketStatusOpen
	search := "  Printer "
	where, args := buildTicketWhere(TicketFilter{
		Status:       &status,
		Urgencies:    []domain.Urgency{domain.UrgencyHigh, domain.UrgencyCritical},
		SearchTerm:   &search,
		Unclassified: true,
	})
	assert.Equal(t, "1=1 AND status=$1 AND urgency IN ($2,$3) AND request_type IS NULL AND LOWER(description) LIKE $4", where)
	assert.Equal(t, []any{status, domain.UrgencyHigh, domain.UrgencyCritical, "%printer%"}, args)
}
