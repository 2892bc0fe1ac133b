// Package kafka exports ticket lifecycle events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/spec-kit/itsupport-service/internal/domain"
	"github.com/spec-kit/itsupport-service/internal/events"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes ticket events to a topic. Delivery is best effort.
type Producer struct {
	writer messageWriter
	logger *zap.Logger
}

// TicketEvent is the JSON document written for each lifecycle event.
type TicketEvent struct {
	ID          string              `json:"id"`
	Type        events.EventType    `json:"type"`
	TicketID    string              `json:"ticket_id"`
	ActorID     string              `json:"actor_id"`
	OccurredAt  time.Time           `json:"occurred_at"`
	Changed     []string            `json:"changed,omitempty"`
	Status      domain.TicketStatus `json:"status"`
	RequestType *string             `json:"request_type,omitempty"`
	Urgency     *domain.Urgency     `json:"urgency,omitempty"`
	RouteTo     *string             `json:"route_to,omitempty"`
	Workflow    bool                `json:"workflow_started"`
}

// NewProducer returns nil when brokers or topic are missing. Messages are
// keyed by ticket so one ticket's events keep their order.
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("kafka: write ticket events", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}
	logger.Info("exporting ticket events to kafka", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &Producer{writer: writer, logger: logger}
}

// RegisterHooks subscribes the producer to post-write ticket events.
func (p *Producer) RegisterHooks(dispatcher events.Dispatcher) {
	if p == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, p.handle)
	dispatcher.Subscribe(events.EventTicketUpdated, p.handle)
}

func (p *Producer) handle(ctx context.Context, event events.Event) error {
	if err := p.Produce(ctx, event); err != nil {
		p.logger.Error("kafka: export ticket event", zap.String("ticket_id", event.TicketID), zap.Error(err))
	}
	return nil
}

// Produce encodes and enqueues one event.
func (p *Producer) Produce(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(toTicketEvent(event))
	if err != nil {
		return fmt.Errorf("marshal ticket event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TicketID),
		Value: body,
		Time:  event.Timestamp,
	})
}

// Close flushes pending messages.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}

func toTicketEvent(event events.Event) TicketEvent {
	out := TicketEvent{
		ID:         event.ID,
		Type:       event.Type,
		TicketID:   event.TicketID,
		ActorID:    event.Actor.UserID,
		OccurredAt: event.Timestamp.UTC(),
		Changed:    event.Changed,
	}
	if t := event.Ticket; t != nil {
		out.Status = t.Status
		out.RequestType = t.RequestType
		out.Urgency = t.Urgency
		out.RouteTo = t.RouteTo
		out.Workflow = t.WorkflowStarted
	}
	return out
}
