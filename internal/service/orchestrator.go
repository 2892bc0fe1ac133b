package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/itsupport-service/internal/classifier"
	"github.com/spec-kit/itsupport-service/internal/domain"
	"github.com/spec-kit/itsupport-service/internal/events"
	"github.com/spec-kit/itsupport-service/internal/observability"
	"github.com/spec-kit/itsupport-service/internal/repository"
	"github.com/spec-kit/itsupport-service/internal/workflow"
	apperrors "github.com/spec-kit/itsupport-service/pkg/util/errorutil"
)

// Task names used for logging and metrics.
const (
	TaskClassify        = "classify_ticket"
	TaskTriggerWorkflow = "trigger_workflow"
)

const requestedDateLayout = "2006-01-02"

// TaskRunner schedules fire-and-forget work. Submit must not block.
type TaskRunner interface {
	Submit(name string, run func(ctx context.Context) error) bool
}

// OrchestratorDependencies bundles collaborators for the orchestrator.
type OrchestratorDependencies struct {
	Tickets    *TicketService
	TicketRepo repository.TicketRepository
	Classifier classifier.Classifier
	Workflow   workflow.Starter
	Runner     TaskRunner
	Claims     Claimer
	Logger     *zap.Logger
	Metrics    *observability.Metrics

	WorkflowDefinitionID string
	// ReclassifyMinAge and ReclassifyBatch bound the stale-ticket sweep.
	ReclassifyMinAge time.Duration
	ReclassifyBatch  int
}

// Orchestrator reacts to ticket lifecycle events: it forces new tickets to
// Open, classifies them in the background and starts the hardware workflow
// at most once per ticket.
type Orchestrator struct {
	tickets      *TicketService
	repo         repository.TicketRepository
	classifier   classifier.Classifier
	workflow     workflow.Starter
	runner       TaskRunner
	claims       Claimer
	logger       *zap.Logger
	metrics      *observability.Metrics
	definitionID string
	minAge       time.Duration
	batch        int
	now          func() time.Time
}

// NewOrchestrator constructs the orchestrator.
func NewOrchestrator(deps OrchestratorDependencies) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	claims := deps.Claims
	if claims == nil {
		claims = NewLocalClaimer(5 * time.Minute)
	}
	batch := deps.ReclassifyBatch
	if batch <= 0 {
		batch = 50
	}
	return &Orchestrator{
		tickets:      deps.Tickets,
		repo:         deps.TicketRepo,
		classifier:   deps.Classifier,
		workflow:     deps.Workflow,
		runner:       deps.Runner,
		claims:       claims,
		logger:       logger,
		metrics:      deps.Metrics,
		definitionID: deps.WorkflowDefinitionID,
		minAge:       deps.ReclassifyMinAge,
		batch:        batch,
		now:          time.Now,
	}
}

// RegisterHooks subscribes the orchestrator to ticket lifecycle events.
func (o *Orchestrator) RegisterHooks(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreating, o.beforeCreate)
	dispatcher.Subscribe(events.EventTicketCreated, o.afterCreate)
	dispatcher.Subscribe(events.EventTicketUpdated, o.afterUpdate)
}

func (o *Orchestrator) beforeCreate(_ context.Context, event events.Event) error {
	if event.Ticket != nil {
		event.Ticket.Status = domain.TicketStatusOpen
	}
	return nil
}

func (o *Orchestrator) afterCreate(_ context.Context, event events.Event) error {
	if event.Ticket == nil {
		return nil
	}
	o.ScheduleClassification(event.Ticket.ID, event.Ticket.Description, event.Actor)
	return nil
}

func (o *Orchestrator) afterUpdate(_ context.Context, event events.Event) error {
	if event.Ticket == nil || !event.Ticket.NeedsHardwareWorkflow() {
		return nil
	}
	ticketID, actor := event.Ticket.ID, event.Actor
	o.runner.Submit(TaskTriggerWorkflow, func(ctx context.Context) error {
		return o.triggerWorkflow(ctx, ticketID, actor)
	})
	return nil
}

// ScheduleClassification queues a classification round-trip for a ticket.
// It reports false when the task could not be queued.
func (o *Orchestrator) ScheduleClassification(ticketID, description string, actor events.Actor) bool {
	return o.runner.Submit(TaskClassify, func(ctx context.Context) error {
		return o.classify(ctx, ticketID, description, actor)
	})
}

// Reclassify queues classification for one ticket on behalf of a support
// agent.
func (o *Orchestrator) Reclassify(ctx context.Context, actor events.Actor, ticketID string) (*domain.Ticket, error) {
	if err := requireSupport(actor); err != nil {
		return nil, err
	}
	ticket, err := o.tickets.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !o.ScheduleClassification(ticket.ID, ticket.Description, actor) {
		return nil, apperrors.NewDomainError("QUEUE_FULL", "classification queue is full, retry later", http.StatusServiceUnavailable, nil)
	}
	return ticket, nil
}

// ReclassifyStale queues classification for tickets that are still
// unclassified after the configured minimum age. It returns how many tasks
// were queued.
func (o *Orchestrator) ReclassifyStale(ctx context.Context) (int, error) {
	cutoff := o.now().Add(-o.minAge)
	stale, err := o.repo.List(ctx, repository.TicketFilter{
		Unclassified:  true,
		CreatedBefore: &cutoff,
		Limit:         o.batch,
	})
	if err != nil {
		return 0, fmt.Errorf("list unclassified tickets: %w", err)
	}
	queued := 0
	for i := range stale {
		if !o.ScheduleClassification(stale[i].ID, stale[i].Description, events.SystemActor()) {
			break
		}
		queued++
	}
	return queued, nil
}

func (o *Orchestrator) classify(ctx context.Context, ticketID, description string, actor events.Actor) error {
	result, err := o.classifier.Classify(ctx, description)
	if err != nil {
		o.metrics.RecordClassification(observability.OutcomeFailed)
		return fmt.Errorf("classify ticket %s: %w", ticketID, err)
	}

	if _, err := o.tickets.ApplyClassification(ctx, actor, ticketID, result); err != nil {
		o.metrics.RecordClassification(observability.OutcomeFailed)
		return fmt.Errorf("store classification for ticket %s: %w", ticketID, err)
	}

	o.metrics.RecordClassification(observability.OutcomeSucceeded)
	o.logger.Info("ticket classified",
		zap.String("ticket_id", ticketID),
		zap.String("request_type", result.RequestType),
		zap.String("urgency", string(result.Urgency)),
		zap.String("route_to", result.RouteTo))
	return nil
}

func (o *Orchestrator) triggerWorkflow(ctx context.Context, ticketID string, actor events.Actor) error {
	claimed, err := o.claims.Claim(ctx, ticketID)
	if err != nil {
		o.metrics.RecordWorkflowTrigger(observability.OutcomeFailed)
		return fmt.Errorf("claim workflow trigger for ticket %s: %w", ticketID, err)
	}
	if !claimed {
		o.metrics.RecordWorkflowTrigger(observability.OutcomeSkipped)
		o.logger.Debug("workflow trigger already claimed", zap.String("ticket_id", ticketID))
		return nil
	}

	ticket, err := o.repo.GetByID(ctx, ticketID)
	if err != nil {
		o.release(ticketID)
		o.metrics.RecordWorkflowTrigger(observability.OutcomeFailed)
		return fmt.Errorf("reload ticket %s: %w", ticketID, err)
	}
	if !ticket.NeedsHardwareWorkflow() {
		o.release(ticketID)
		o.metrics.RecordWorkflowTrigger(observability.OutcomeSkipped)
		return nil
	}

	employee := actor.UserID
	if actor.IsSystem() {
		employee = ticket.RaisedByID
	}
	start := workflow.StartRequest{
		DefinitionID: o.definitionID,
		Context: workflow.Context{
			TicketID:      ticket.ID,
			RequestType:   *ticket.RequestType,
			EmployeeName:  employee,
			RequestedDate: o.now().UTC().Format(requestedDateLayout),
		},
	}
	o.logger.Info("starting hardware workflow", zap.String("ticket_id", ticketID))
	if err := o.workflow.Start(ctx, start); err != nil {
		o.release(ticketID)
		o.metrics.RecordWorkflowTrigger(observability.OutcomeFailed)
		return fmt.Errorf("start workflow for ticket %s: %w", ticketID, err)
	}

	// The claim stays until it expires so a lost flag write cannot cause a
	// second start right away.
	changed, err := o.tickets.MarkWorkflowStarted(ctx, actor, ticketID)
	if err != nil {
		o.metrics.RecordWorkflowTrigger(observability.OutcomeFailed)
		return fmt.Errorf("workflow started but flag not stored for ticket %s: %w", ticketID, err)
	}
	if !changed {
		o.logger.Warn("workflow flag was already set", zap.String("ticket_id", ticketID))
	}
	o.metrics.RecordWorkflowTrigger(observability.OutcomeSucceeded)
	o.logger.Info("hardware workflow started", zap.String("ticket_id", ticketID))
	return nil
}

func (o *Orchestrator) release(ticketID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.claims.Release(ctx, ticketID); err != nil {
		o.logger.Warn("release workflow claim", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}
