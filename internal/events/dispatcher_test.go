package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/itsupport-service/internal/domain"
)

func TestPublishRunsHandlersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return nil
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketUpdated, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestPublishJoinsErrorsAndKeepsGoing(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	ran := false
	d.Subscribe(EventTicketCreating, func(context.Context, Event) error { return boom })
	d.Subscribe(EventTicketCreating, func(context.Context, Event) error {
		ran = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreating})
	require.ErrorIs(t, err, boom)
	assert.True(t, ran)
}

func TestHandlersCanMutatePendingTicket(t *testing.T) {
	d := NewInMemoryDispatcher()
	d.Subscribe(EventTicketCreating, func(_ context.Context, e Event) error {
		e.Ticket.Status = domain.TicketStatusOpen
		return nil
	})

	ticket := &domain.Ticket{Status: domain.TicketStatusClosed}
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreating, Ticket: ticket}))
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
}

func TestActorIsSystem(t *testing.T) {
	assert.True(t, SystemActor().IsSystem())
	assert.True(t, Actor{}.IsSystem())
	assert.False(t, UserActor("u1", domain.UserRoleEmployee).IsSystem())
}

func TestPublishRecoversHandlerPanics(t *testing.T) {
	d := NewInMemoryDispatcher()
	ran := false
	d.Subscribe(EventTicketUpdated, func(context.Context, Event) error {
		panic("boom")
	})
	d.Subscribe(EventTicketUpdated, func(context.Context, Event) error {
		ran = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketUpdated})
	assert.ErrorIs(t, err, ErrHandlerPanic)
	assert.True(t, ran)
}
