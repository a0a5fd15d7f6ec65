package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/observability"
	"github.com/spec-kit/helpdesk-sla/internal/repository/catalog"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util"
)

const testCatalog = `
priorities:
  - {id: 1, tenant: acme, service: support, name: HIGH, response_minutes: 60, resolution_minutes: 600}
stages:
  - {id: 10, tenant: acme, service: support, name: Triage, sla_minutes: 120}
  - {id: 11, tenant: acme, service: support, name: Fix, sla_minutes: 960}
expedients:
  - {id: 1, tenant: acme, service: support, days: "1,2,3,4,5", start: "08:00", end: "18:00"}
  - {id: 2, tenant: acme, service: broken, days: "1", start: "18:00", end: "08:00"}
tickets:
  - id: t-1
    tenant: acme
    service: support
    priority: HIGH
    stage_id: 10
    stage: Triage
    created_at: 2024-07-01T09:00:00Z
    first_responded_at: 2024-07-01T09:30:00Z
    total_paused_minutes: 15
  - id: t-2
    tenant: acme
    service: support
    priority: URGENT
    stage: "11"
    created_at: 2024-07-01T09:00:00Z
  - id: t-3
    tenant: acme
    service: broken
    priority: HIGH
    created_at: 2024-07-01T09:00:00Z
  - id: t-4
    tenant: acme
    service: support
    priority: HIGH
    created_at: 2024-07-01T09:00:00Z
    closed_at: 2024-07-01T10:00:00Z
`

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func utc(day, hour, minute int) time.Time {
	return time.Date(2024, time.July, day, hour, minute, 0, 0, time.UTC)
}

type testEnv struct {
	service    *SLAService
	clock      *fixedClock
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
}

func newTestEnv(t *testing.T, now time.Time) testEnv {
	t.Helper()
	store, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	clock := &fixedClock{now: now}
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	svc := NewSLAService(SLADependencies{
		TicketRepo:    store.Tickets(),
		PriorityRepo:  store.Priorities(),
		StageRepo:     store.Stages(),
		ExpedientRepo: store.Expedients(),
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Location:      time.UTC,
		Locale:        sla.LocaleEnglish,
		Clock:         clock,
	})
	return testEnv{service: svc, clock: clock, dispatcher: dispatcher, metrics: metrics}
}

func domainCode(err error) string {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

func TestEvaluateTicketAllTargets(t *testing.T) {
	env := newTestEnv(t, utc(1, 12, 0))

	out, err := env.service.EvaluateTicket(context.Background(), "acme", "t-1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	res := out.Results
	if res.PausedMinutes != 15 || !res.EvaluatedAt.Equal(utc(1, 12, 0)) {
		t.Fatalf("unexpected evaluation header %+v", res)
	}

	resp := res.Response
	if resp == nil || !resp.Completed || resp.Breached || resp.Deadline != nil {
		t.Fatalf("unexpected response result %+v", resp)
	}
	if resp.ResponseTimeMinutes == nil || *resp.ResponseTimeMinutes != 15 || resp.Formatted != "responded in 0h 15m" {
		t.Fatalf("unexpected response timing %+v", resp)
	}

	stage := res.Stage
	if stage == nil || !stage.Breached || stage.RemainingMinutes != -45 || stage.Formatted != "overdue by 0h 45m" {
		t.Fatalf("unexpected stage result %+v", stage)
	}
	if stage.Deadline == nil || !stage.Deadline.Equal(utc(1, 11, 15)) {
		t.Fatalf("expected stage deadline 11:15, got %v", stage.Deadline)
	}

	resolution := res.Resolution
	if resolution == nil || resolution.Breached || resolution.RemainingMinutes != 435 {
		t.Fatalf("unexpected resolution result %+v", resolution)
	}
	if resolution.Deadline == nil || !resolution.Deadline.Equal(utc(2, 9, 15)) {
		t.Fatalf("expected Tuesday 09:15 deadline, got %v", resolution.Deadline)
	}

	got, err := testutil.GatherAndCount(env.metrics.Registry(), "helpdesk_sla_evaluations_total")
	if err != nil || got != 3 {
		t.Fatalf("expected one series per target outcome, got %d (%v)", got, err)
	}
}

func TestEvaluateTicketMissingConfiguration(t *testing.T) {
	env := newTestEnv(t, utc(1, 12, 0))

	out, err := env.service.EvaluateTicket(context.Background(), "acme", "t-2")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if out.Results.Response != nil || out.Results.Resolution != nil {
		t.Fatal("unknown priority should leave response and resolution untracked")
	}
	// A numeric legacy stage name resolves by id.
	if out.Results.Stage == nil || out.Results.Stage.RemainingMinutes != 960-180 {
		t.Fatalf("unexpected stage result %+v", out.Results.Stage)
	}
}

func TestEvaluateTicketErrors(t *testing.T) {
	env := newTestEnv(t, utc(1, 12, 0))
	ctx := context.Background()

	if _, err := env.service.EvaluateTicket(ctx, "acme", "missing"); domainCode(err) != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	_, err := env.service.EvaluateTicket(ctx, "acme", "t-3")
	if domainCode(err) != "CALENDAR_INVALID" {
		t.Fatalf("expected CALENDAR_INVALID, got %v", err)
	}
	if !errors.Is(err, sla.ErrInvalidWindow) {
		t.Fatalf("expected wrapped ErrInvalidWindow, got %v", err)
	}
}

func TestPauseAndResume(t *testing.T) {
	env := newTestEnv(t, utc(1, 10, 0))
	ctx := context.Background()

	var seen []events.Event
	record := func(_ context.Context, e events.Event) error {
		seen = append(seen, e)
		return nil
	}
	env.dispatcher.Subscribe(events.EventTicketSLAPaused, record)
	env.dispatcher.Subscribe(events.EventTicketSLAResumed, record)

	if _, err := env.service.ResumeTicket(ctx, "acme", "t-1"); domainCode(err) != "CONFLICT" {
		t.Fatalf("resuming an unpaused ticket should conflict, got %v", err)
	}

	paused, err := env.service.PauseTicket(ctx, "acme", "t-1")
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.PausedAt == nil || !paused.PausedAt.Equal(utc(1, 10, 0)) {
		t.Fatalf("unexpected paused_at %v", paused.PausedAt)
	}
	if _, err := env.service.PauseTicket(ctx, "acme", "t-1"); domainCode(err) != "CONFLICT" {
		t.Fatalf("pausing twice should conflict, got %v", err)
	}

	// A running pause already counts toward evaluations.
	env.clock.Advance(30 * time.Minute)
	mid, err := env.service.EvaluateTicket(ctx, "acme", "t-1")
	if err != nil {
		t.Fatalf("evaluate while paused: %v", err)
	}
	if mid.Results.PausedMinutes != 45 {
		t.Fatalf("expected 45 paused minutes, got %d", mid.Results.PausedMinutes)
	}

	env.clock.Advance(17*time.Minute + 30*time.Second)
	resumed, err := env.service.ResumeTicket(ctx, "acme", "t-1")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.IsPaused() || resumed.TotalPausedMinutes != 15+47 {
		t.Fatalf("unexpected resumed ticket %+v", resumed)
	}

	if len(seen) != 2 || seen[0].Type != events.EventTicketSLAPaused || seen[1].Type != events.EventTicketSLAResumed {
		t.Fatalf("unexpected events %+v", seen)
	}
	payload, ok := seen[1].Payload.(events.TicketSLAResumedPayload)
	if !ok || payload.PausedMinutes != 47 || payload.TotalPausedMinutes != 62 {
		t.Fatalf("unexpected resume payload %+v", seen[1].Payload)
	}
	if seen[0].ID == "" || seen[0].ID == seen[1].ID {
		t.Fatalf("events need distinct ids, got %q and %q", seen[0].ID, seen[1].ID)
	}
}

func TestPauseClosedTicket(t *testing.T) {
	env := newTestEnv(t, utc(1, 12, 0))
	if _, err := env.service.PauseTicket(context.Background(), "acme", "t-4"); domainCode(err) != "CONFLICT" {
		t.Fatalf("expected CONFLICT for closed ticket, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t, utc(1, 9, 0))
	officeHours := []PreviewWindow{{Days: "1,2,3,4,5", Start: "08:00", End: "18:00"}}

	res, err := env.service.Preview(PreviewInput{
		CreatedAt:         utc(1, 9, 0),
		ResolutionMinutes: 600,
		Windows:           officeHours,
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if res.Response != nil || res.Stage != nil {
		t.Fatal("zero budgets should not be tracked")
	}
	if res.Resolution.Deadline == nil || !res.Resolution.Deadline.Equal(utc(2, 9, 0)) {
		t.Fatalf("expected Tuesday 09:00, got %v", res.Resolution.Deadline)
	}

	now := utc(1, 9, 0).Add(500 * time.Minute)
	res, err = env.service.Preview(PreviewInput{
		CreatedAt:          utc(1, 9, 0),
		TotalPausedMinutes: 120,
		ResolutionMinutes:  600,
		Windows:            officeHours,
		Now:                &now,
	})
	if err != nil {
		t.Fatalf("preview with pause: %v", err)
	}
	if res.Resolution.RemainingMinutes != 220 || res.Resolution.Breached {
		t.Fatalf("unexpected paused preview %+v", res.Resolution)
	}
}

func TestPreviewValidation(t *testing.T) {
	env := newTestEnv(t, utc(1, 9, 0))

	if _, err := env.service.Preview(PreviewInput{}); domainCode(err) != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
	_, err := env.service.Preview(PreviewInput{
		CreatedAt: utc(1, 9, 0),
		Windows:   []PreviewWindow{{Days: "9", Start: "08:00", End: "18:00"}},
	})
	if domainCode(err) != "CALENDAR_INVALID" {
		t.Fatalf("expected CALENDAR_INVALID, got %v", err)
	}
	_, err = env.service.Preview(PreviewInput{
		CreatedAt: utc(1, 9, 0),
		Windows:   []PreviewWindow{{Days: "1", Start: "18:00", End: "08:00"}},
	})
	if domainCode(err) != "CALENDAR_INVALID" {
		t.Fatalf("expected CALENDAR_INVALID for inverted window, got %v", err)
	}
}
