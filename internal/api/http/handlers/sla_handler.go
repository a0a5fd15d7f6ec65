package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-sla/internal/api/dto"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/service"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util"
)

// SLAHandler exposes ticket SLA status and pause controls.
type SLAHandler struct {
	service *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{service: slaService}
}

// GetTicketSLA GET /api/v1/tenants/:tenant/tickets/:id/sla.
func (h *SLAHandler) GetTicketSLA(c *fiber.Ctx) error {
	tenantID, ticketID, err := ticketParams(c)
	if err != nil {
		return err
	}
	evaluated, err := h.service.EvaluateTicket(c.UserContext(), tenantID, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSLAResponse(evaluated)})
}

// PauseTicket POST /api/v1/tenants/:tenant/tickets/:id/pause.
func (h *SLAHandler) PauseTicket(c *fiber.Ctx) error {
	tenantID, ticketID, err := ticketParams(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.PauseTicket(c.UserContext(), tenantID, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pauseStateResponse(ticket)})
}

// ResumeTicket POST /api/v1/tenants/:tenant/tickets/:id/resume.
func (h *SLAHandler) ResumeTicket(c *fiber.Ctx) error {
	tenantID, ticketID, err := ticketParams(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.ResumeTicket(c.UserContext(), tenantID, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pauseStateResponse(ticket)})
}

// Preview POST /api/v1/sla/preview.
func (h *SLAHandler) Preview(c *fiber.Ctx) error {
	var req dto.PreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	windows := make([]service.PreviewWindow, 0, len(req.Windows))
	for _, w := range req.Windows {
		windows = append(windows, service.PreviewWindow{Days: w.Days, Start: w.Start, End: w.End})
	}
	results, err := h.service.Preview(service.PreviewInput{
		CreatedAt:          req.CreatedAt,
		FirstRespondedAt:   req.FirstRespondedAt,
		PausedAt:           req.PausedAt,
		TotalPausedMinutes: req.TotalPausedMinutes,
		ResponseMinutes:    req.ResponseMinutes,
		ResolutionMinutes:  req.ResolutionMinutes,
		StageMinutes:       req.StageMinutes,
		Windows:            windows,
		Now:                req.Now,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PreviewResponse{
		PausedMinutes: results.PausedMinutes,
		EvaluatedAt:   results.EvaluatedAt,
		Response:      targetResponse(results.Response),
		Stage:         targetResponse(results.Stage),
		Resolution:    targetResponse(results.Resolution),
	}})
}

func ticketParams(c *fiber.Ctx) (string, string, error) {
	tenantID := strings.TrimSpace(c.Params("tenant"))
	ticketID := strings.TrimSpace(c.Params("id"))
	if tenantID == "" || ticketID == "" {
		return "", "", apperrors.NewValidationError("tenant and ticket id required", nil)
	}
	return tenantID, ticketID, nil
}

func ticketSLAResponse(evaluated *service.TicketSLA) dto.TicketSLAResponse {
	ticket := evaluated.Ticket
	results := evaluated.Results
	return dto.TicketSLAResponse{
		TicketID:      ticket.ID,
		TenantID:      ticket.TenantID,
		ExternalKey:   ticket.ExternalKey,
		Priority:      ticket.PriorityName,
		Paused:        ticket.IsPaused(),
		PausedMinutes: results.PausedMinutes,
		EvaluatedAt:   results.EvaluatedAt,
		Response:      targetResponse(results.Response),
		Stage:         targetResponse(results.Stage),
		Resolution:    targetResponse(results.Resolution),
	}
}

func targetResponse(result *sla.Result) *dto.SLATargetResponse {
	if result == nil {
		return nil
	}
	return &dto.SLATargetResponse{
		Target:              string(result.Target),
		Deadline:            result.Deadline,
		RemainingMinutes:    result.RemainingMinutes,
		Breached:            result.Breached,
		Formatted:           result.Formatted,
		Completed:           result.Completed,
		ResponseTimeMinutes: result.ResponseTimeMinutes,
	}
}

func pauseStateResponse(ticket *domain.Ticket) dto.PauseStateResponse {
	return dto.PauseStateResponse{
		TicketID:           ticket.ID,
		Paused:             ticket.IsPaused(),
		PausedAt:           ticket.PausedAt,
		TotalPausedMinutes: ticket.TotalPausedMinutes,
	}
}
