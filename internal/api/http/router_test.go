package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/api/dto"
	"github.com/spec-kit/helpdesk-sla/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-sla/internal/observability"
	"github.com/spec-kit/helpdesk-sla/internal/repository/catalog"
	"github.com/spec-kit/helpdesk-sla/internal/service"
)

const routerCatalog = `
priorities:
  - {id: 1, tenant: acme, service: support, name: HIGH, response_minutes: 60, resolution_minutes: 600}
expedients:
  - {id: 1, tenant: acme, service: support, days: "1,2,3,4,5", start: "08:00", end: "18:00"}
tickets:
  - {id: t-1, tenant: acme, service: support, external_key: ACME-1, priority: HIGH, created_at: 2024-07-01T09:00:00Z}
`

type clockAt time.Time

func (c clockAt) Now() time.Time { return time.Time(c) }

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestApp(t *testing.T, redis handlers.Pinger) *fiber.App {
	t.Helper()
	app, _ := newTestAppWithMetrics(t, redis)
	return app
}

func newTestAppWithMetrics(t *testing.T, redis handlers.Pinger) (*fiber.App, *observability.Metrics) {
	t.Helper()
	store, err := catalog.Parse([]byte(routerCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	metrics := observability.NewMetrics()
	svc := service.NewSLAService(service.SLADependencies{
		TicketRepo:    store.Tickets(),
		PriorityRepo:  store.Priorities(),
		StageRepo:     store.Stages(),
		ExpedientRepo: store.Expedients(),
		Metrics:       metrics,
		Location:      time.UTC,
		Clock:         clockAt(time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC)),
	})

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("helpdesk-sla", "test", nil, redis),
		SLA:     handlers.NewSLAHandler(svc),
		Metrics: metrics,
	})
	return app, metrics
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, envelope, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, env, string(raw)
}

func TestHealthRoutes(t *testing.T) {
	app := newTestApp(t, nil)

	if status, _, _ := do(t, app, fiber.MethodGet, "/health/live", ""); status != fiber.StatusOK {
		t.Fatalf("live: expected 200, got %d", status)
	}
	status, _, body := do(t, app, fiber.MethodGet, "/health/ready", "")
	if status != fiber.StatusOK || !strings.Contains(body, `"postgres":"disabled"`) {
		t.Fatalf("ready with disabled backends: %d %s", status, body)
	}

	failing := newTestApp(t, failingPinger{})
	status, env, _ := do(t, failing, fiber.MethodGet, "/health/ready", "")
	if status != fiber.StatusServiceUnavailable || env.Error == nil || env.Error.Code != "DEPENDENCY_UNAVAILABLE" {
		t.Fatalf("expected 503 DEPENDENCY_UNAVAILABLE, got %d %+v", status, env.Error)
	}
}

func TestGetTicketSLA(t *testing.T) {
	app := newTestApp(t, nil)

	status, env, body := do(t, app, fiber.MethodGet, "/api/v1/tenants/acme/tickets/t-1/sla", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d %s", status, body)
	}
	var out dto.TicketSLAResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if out.ExternalKey != "ACME-1" || out.Stage != nil {
		t.Fatalf("unexpected response %+v", out)
	}
	if out.Response == nil || !out.Response.Breached || out.Response.Formatted != "overdue by 2h 0m" {
		t.Fatalf("unexpected response target %+v", out.Response)
	}
	if out.Resolution == nil || out.Resolution.RemainingMinutes != 420 || out.Resolution.Deadline == nil {
		t.Fatalf("unexpected resolution target %+v", out.Resolution)
	}
	if !strings.Contains(body, `"stage":null`) {
		t.Fatalf("untracked target should serialize as null: %s", body)
	}

	status, env, _ = do(t, app, fiber.MethodGet, "/api/v1/tenants/acme/tickets/nope/sla", "")
	if status != fiber.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d %+v", status, env.Error)
	}
}

func TestPauseAndResumeRoutes(t *testing.T) {
	app := newTestApp(t, nil)
	base := "/api/v1/tenants/acme/tickets/t-1"

	status, env, body := do(t, app, fiber.MethodPost, base+"/pause", "")
	if status != fiber.StatusOK {
		t.Fatalf("pause: expected 200, got %d %s", status, body)
	}
	var state dto.PauseStateResponse
	if err := json.Unmarshal(env.Data, &state); err != nil {
		t.Fatalf("decode pause: %v", err)
	}
	if !state.Paused || state.PausedAt == nil {
		t.Fatalf("unexpected pause state %+v", state)
	}

	status, env, _ = do(t, app, fiber.MethodPost, base+"/pause", "")
	if status != fiber.StatusConflict || env.Error.Code != "CONFLICT" {
		t.Fatalf("second pause: expected 409, got %d %+v", status, env.Error)
	}

	status, env, _ = do(t, app, fiber.MethodPost, base+"/resume", "")
	if status != fiber.StatusOK {
		t.Fatalf("resume: expected 200, got %d", status)
	}
	if err := json.Unmarshal(env.Data, &state); err != nil {
		t.Fatalf("decode resume: %v", err)
	}
	if state.Paused || state.TotalPausedMinutes != 0 {
		t.Fatalf("unexpected resume state %+v", state)
	}
}

func TestPreviewRoute(t *testing.T) {
	app := newTestApp(t, nil)

	payload := `{
		"created_at": "2024-07-01T09:00:00Z",
		"resolution_minutes": 600,
		"windows": [{"days": "1,2,3,4,5", "start": "08:00", "end": "18:00"}],
		"now": "2024-07-01T09:00:00Z"
	}`
	status, env, body := do(t, app, fiber.MethodPost, "/api/v1/sla/preview", payload)
	if status != fiber.StatusOK {
		t.Fatalf("preview: expected 200, got %d %s", status, body)
	}
	var out dto.PreviewResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	want := time.Date(2024, time.July, 2, 9, 0, 0, 0, time.UTC)
	if out.Resolution == nil || out.Resolution.Deadline == nil || !out.Resolution.Deadline.Equal(want) {
		t.Fatalf("expected Tuesday 09:00 deadline, got %+v", out.Resolution)
	}
	if out.Resolution.Formatted != "due in 10h 0m" {
		t.Fatalf("unexpected formatted %q", out.Resolution.Formatted)
	}

	status, env, _ = do(t, app, fiber.MethodPost, "/api/v1/sla/preview", `{"created_at": `)
	if status != fiber.StatusBadRequest || env.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("malformed body: expected 400, got %d %+v", status, env.Error)
	}

	bad := `{"created_at": "2024-07-01T09:00:00Z", "windows": [{"days": "1", "start": "18:00", "end": "08:00"}]}`
	status, env, _ = do(t, app, fiber.MethodPost, "/api/v1/sla/preview", bad)
	if status != fiber.StatusUnprocessableEntity || env.Error.Code != "CALENDAR_INVALID" {
		t.Fatalf("inverted window: expected 422, got %d %+v", status, env.Error)
	}
}

func TestMetricsRoute(t *testing.T) {
	app := newTestApp(t, nil)
	do(t, app, fiber.MethodGet, "/health/live", "")

	status, _, body := do(t, app, fiber.MethodGet, "/metrics", "")
	if status != fiber.StatusOK || !strings.Contains(body, "helpdesk_http_requests_total") {
		t.Fatalf("metrics: %d %s", status, body)
	}
}

func TestErrorMetricsUseRouteTemplate(t *testing.T) {
	app, metrics := newTestAppWithMetrics(t, nil)
	for _, id := range []string{"missing-1", "missing-2", "missing-3"} {
		if status, _, _ := do(t, app, fiber.MethodGet, "/api/v1/tenants/acme/tickets/"+id+"/sla", ""); status != fiber.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", id, status)
		}
	}

	for _, name := range []string{"helpdesk_http_errors_total", "helpdesk_http_requests_total"} {
		got, err := testutil.GatherAndCount(metrics.Registry(), name)
		if err != nil || got != 1 {
			t.Fatalf("%s: expected a single series for one route, got %d (%v)", name, got, err)
		}
	}
	body := `helpdesk_http_errors_total{code="NOT_FOUND",method="GET",route="/api/v1/tenants/:tenant/tickets/:id/sla"} 3`
	if err := testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(errorsHelp+body+"\n"), "helpdesk_http_errors_total"); err != nil {
		t.Fatalf("unexpected error series: %v", err)
	}
}

const errorsHelp = `# HELP helpdesk_http_errors_total Count of error responses by code
# TYPE helpdesk_http_errors_total counter
`
