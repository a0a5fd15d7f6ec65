package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/observability"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util"
)

// Clock supplies the evaluation instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// SLAService loads ticket configuration and evaluates SLA targets.
type SLAService struct {
	tickets    repository.TicketRepository
	priorities repository.PriorityRepository
	stages     repository.StageRepository
	expedients repository.ExpedientRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	location   *time.Location
	tracker    *sla.Tracker
	clock      Clock
}

// SLADependencies bundles collaborators for the SLA service.
type SLADependencies struct {
	TicketRepo    repository.TicketRepository
	PriorityRepo  repository.PriorityRepository
	StageRepo     repository.StageRepository
	ExpedientRepo repository.ExpedientRepository
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Location      *time.Location
	Locale        sla.Locale
	Clock         Clock
}

// TicketSLA is the evaluated SLA state of a stored ticket.
type TicketSLA struct {
	Ticket  *domain.Ticket
	Results sla.Results
}

// PreviewWindow is an unsaved business-hours window.
type PreviewWindow struct {
	Days  string
	Start string
	End   string
}

// PreviewInput describes an ad-hoc evaluation that touches no storage.
type PreviewInput struct {
	CreatedAt          time.Time
	FirstRespondedAt   *time.Time
	PausedAt           *time.Time
	TotalPausedMinutes int
	ResponseMinutes    int
	ResolutionMinutes  int
	StageMinutes       int
	Windows            []PreviewWindow
	Now                *time.Time
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &SLAService{
		tickets:    deps.TicketRepo,
		priorities: deps.PriorityRepo,
		stages:     deps.StageRepo,
		expedients: deps.ExpedientRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		location:   location,
		tracker:    sla.NewTracker(sla.NewFormatter(deps.Locale)),
		clock:      clock,
	}
}

// EvaluateTicket computes the response, stage and resolution status of a ticket. Configuration is
// read fresh on every call.
func (s *SLAService) EvaluateTicket(ctx context.Context, tenantID, ticketID string) (*TicketSLA, error) {
	ticket, err := s.loadTicket(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, ticket)
}

// Evaluate computes the SLA status of an already loaded ticket.
func (s *SLAService) Evaluate(ctx context.Context, ticket *domain.Ticket) (*TicketSLA, error) {
	return s.evaluate(ctx, ticket)
}

func (s *SLAService) evaluate(ctx context.Context, ticket *domain.Ticket) (*TicketSLA, error) {
	priority, err := s.priorityBudget(ctx, ticket)
	if err != nil {
		return nil, err
	}
	stage, err := s.stageBudget(ctx, ticket)
	if err != nil {
		return nil, err
	}
	cal, err := s.calendar(ctx, ticket.TenantID, ticket.ServiceID)
	if err != nil {
		return nil, err
	}

	results := s.tracker.Calculate(ticket.Snapshot(), priority, stage, cal, s.clock.Now())
	results.Each(func(r *sla.Result) {
		s.metrics.RecordEvaluation(string(r.Target), r.Breached)
	})
	return &TicketSLA{Ticket: ticket, Results: results}, nil
}

// Preview evaluates unsaved budgets and windows against an ad-hoc ticket snapshot.
func (s *SLAService) Preview(input PreviewInput) (sla.Results, error) {
	if input.CreatedAt.IsZero() {
		return sla.Results{}, apperrors.NewValidationError("created_at is required", nil)
	}
	if input.ResponseMinutes < 0 || input.ResolutionMinutes < 0 || input.StageMinutes < 0 || input.TotalPausedMinutes < 0 {
		return sla.Results{}, apperrors.NewValidationError("minute values must not be negative", nil)
	}

	windows := make([]sla.Window, 0, len(input.Windows))
	for i, w := range input.Windows {
		window, err := sla.ParseWindow(w.Days, w.Start, w.End)
		if err != nil {
			return sla.Results{}, apperrors.NewCalendarInvalid(err, map[string]any{"window": i})
		}
		windows = append(windows, window)
	}
	cal, err := sla.NewWorkingCalendar(s.location, windows...)
	if err != nil {
		return sla.Results{}, apperrors.NewCalendarInvalid(err, nil)
	}

	now := s.clock.Now()
	if input.Now != nil {
		now = *input.Now
	}
	snapshot := sla.TicketSnapshot{
		CreatedAt:        input.CreatedAt,
		FirstRespondedAt: input.FirstRespondedAt,
		Pause: sla.PauseState{
			TotalPausedMinutes:   input.TotalPausedMinutes,
			ActivePauseStartedAt: input.PausedAt,
		},
	}
	priority := &sla.PriorityBudget{ResponseMinutes: input.ResponseMinutes, ResolutionMinutes: input.ResolutionMinutes}
	stage := &sla.StageBudget{Minutes: input.StageMinutes}
	return s.tracker.Calculate(snapshot, priority, stage, cal, now), nil
}

// PauseTicket starts an SLA pause.
func (s *SLAService) PauseTicket(ctx context.Context, tenantID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.ClosedAt != nil {
		return nil, apperrors.NewConflict("ticket closed", map[string]any{"ticket_id": ticketID})
	}
	if ticket.IsPaused() {
		return nil, apperrors.NewConflict("ticket already paused", map[string]any{"ticket_id": ticketID})
	}

	now := s.clock.Now()
	ticket.PausedAt = &now
	if err := s.tickets.UpdatePauseState(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketSLAPaused,
		TenantID:  ticket.TenantID,
		TicketID:  ticket.ID,
		Timestamp: now,
		Payload:   events.TicketSLAPausedPayload{PausedAt: now},
	})
	return ticket, nil
}

// ResumeTicket ends the running SLA pause and adds its whole minutes to the ticket total.
func (s *SLAService) ResumeTicket(ctx context.Context, tenantID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.IsPaused() {
		return nil, apperrors.NewConflict("ticket not paused", map[string]any{"ticket_id": ticketID})
	}

	now := s.clock.Now()
	state, added := ticket.PauseState().Resume(now)
	ticket.PausedAt = nil
	ticket.TotalPausedMinutes = state.TotalPausedMinutes
	if err := s.tickets.UpdatePauseState(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketSLAResumed,
		TenantID:  ticket.TenantID,
		TicketID:  ticket.ID,
		Timestamp: now,
		Payload: events.TicketSLAResumedPayload{
			PausedMinutes:      added,
			TotalPausedMinutes: ticket.TotalPausedMinutes,
		},
	})
	return ticket, nil
}

// PublishBreach emits an sla_breached event for one target.
func (s *SLAService) PublishBreach(ctx context.Context, ticket *domain.Ticket, result *sla.Result) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventSLABreached,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Payload: events.SLABreachedPayload{
			Target:           string(result.Target),
			RemainingMinutes: result.RemainingMinutes,
			Deadline:         result.Deadline,
			Formatted:        result.Formatted,
		},
	})
}

func (s *SLAService) loadTicket(ctx context.Context, tenantID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, tenantID, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

func (s *SLAService) priorityBudget(ctx context.Context, ticket *domain.Ticket) (*sla.PriorityBudget, error) {
	if ticket.PriorityName == "" {
		return nil, nil
	}
	priority, err := s.priorities.GetByName(ctx, ticket.TenantID, ticket.ServiceID, ticket.PriorityName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("priority not configured",
				zap.String("ticket_id", ticket.ID),
				zap.String("priority", ticket.PriorityName))
			return nil, nil
		}
		return nil, err
	}
	return priority.Budget(), nil
}

func (s *SLAService) stageBudget(ctx context.Context, ticket *domain.Ticket) (*sla.StageBudget, error) {
	ref, ok := ticket.StageRef()
	if !ok {
		return nil, nil
	}

	var (
		stage *domain.ServiceStage
		err   error
	)
	if id, byID := ref.ID(); byID {
		stage, err = s.stages.GetByID(ctx, ticket.TenantID, ticket.ServiceID, id)
	} else {
		name, _ := ref.Name()
		stage, err = s.stages.GetByName(ctx, ticket.TenantID, ticket.ServiceID, name)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("stage not configured",
				zap.String("ticket_id", ticket.ID),
				zap.Stringer("stage", ref))
			return nil, nil
		}
		return nil, err
	}
	return stage.Budget(), nil
}

func (s *SLAService) calendar(ctx context.Context, tenantID, serviceID string) (*sla.WorkingCalendar, error) {
	expedients, err := s.expedients.ListByService(ctx, tenantID, serviceID)
	if err != nil {
		return nil, err
	}
	cal, err := domain.BuildCalendar(s.location, expedients)
	if err != nil {
		return nil, apperrors.NewCalendarInvalid(err, map[string]any{
			"tenant_id":  tenantID,
			"service_id": serviceID,
		})
	}
	return cal, nil
}

func (s *SLAService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
