package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/itsupport-service/internal/domain"
	"github.com/spec-kit/itsupport-service/internal/events"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewProducerDisabled(t *testing.T) {
	assert.Nil(t, NewProducer(nil, "tickets", zap.NewNop()))
	assert.Nil(t, NewProducer([]string{"localhost:9092"}, "", zap.NewNop()))

	var p *Producer
	assert.NoError(t, p.Close())
	assert.NotPanics(t, func() { p.RegisterHooks(events.NewInMemoryDispatcher()) })
}

func TestProducerExportsLifecycleEvents(t *testing.T) {
	writer := &recordingWriter{}
	p := &Producer{writer: writer, logger: zap.NewNop()}
	dispatcher := events.NewInMemoryDispatcher()
	p.RegisterHooks(dispatcher)

	requestType := domain.RequestTypeHardware
	urgency := domain.UrgencyHigh
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := dispatcher.Publish(context.Background(), events.Event{
		ID:        "evt-1",
		Type:      events.EventTicketUpdated,
		TicketID:  "t-1",
		Actor:     events.SystemActor(),
		Timestamp: at,
		Changed:   []string{events.FieldClassification},
		Ticket: &domain.Ticket{
			ID: "t-1", Status: domain.TicketStatusOpen, RequestType: &requestType, Urgency: &urgency,
		},
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "t-1", string(msg.Key))
	var decoded TicketEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, events.EventTicketUpdated, decoded.Type)
	assert.Equal(t, "system", decoded.ActorID)
	assert.Equal(t, domain.RequestTypeHardware, *decoded.RequestType)
	assert.True(t, decoded.OccurredAt.Equal(at))

	// Creating events are not exported.
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreating}))
	assert.Len(t, writer.messages, 1)

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestProducerFailuresDoNotPropagate(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker down")}
	p := &Producer{writer: writer, logger: zap.NewNop()}
	dispatcher := events.NewInMemoryDispatcher()
	p.RegisterHooks(dispatcher)

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated, TicketID: "t"})
	assert.NoError(t, err)
}
