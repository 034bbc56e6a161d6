package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cobranza-service/internal/api/dto"
	"github.com/spec-kit/cobranza-service/internal/domain"
	"github.com/spec-kit/cobranza-service/internal/repository"
	"github.com/spec-kit/cobranza-service/internal/service"
	apperrors "github.com/spec-kit/cobranza-service/pkg/util/errorutil"
)

// AdminTicketsHandler manages the back-office ticket endpoints.
type AdminTicketsHandler struct {
	service *service.TicketService
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(ticketService *service.TicketService) *AdminTicketsHandler {
	return &AdminTicketsHandler{service: ticketService}
}

// ListTickets GET /api/admin/tickets.
func (h *AdminTicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /api/admin/tickets/:id.
func (h *AdminTicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ResolveTicket PUT /api/admin/tickets/:id/resolver records the admin answer
// and moves the ticket to resuelto, triggering outbound delivery.
func (h *AdminTicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	var req dto.ResolveTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Respuesta) == "" {
		return apperrors.NewValidationError("respuesta required", nil)
	}
	ticket, err := h.service.Resolve(c.UserContext(), c.Params("id"), req.Respuesta)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UpdateEstado PUT /api/admin/tickets/:id/estado.
func (h *AdminTicketsHandler) UpdateEstado(c *fiber.Ctx) error {
	var req dto.UpdateEstadoRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Estado == "" {
		return apperrors.NewValidationError("estado required", nil)
	}
	ticket, err := h.service.UpdateEstado(c.UserContext(), c.Params("id"), req.Estado, req.RespuestaAdmin)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Stats GET /api/admin/stats.
func (h *AdminTicketsHandler) Stats(c *fiber.Ctx) error {
	counts, err := h.service.Counts(c.UserContext())
	if err != nil {
		return err
	}
	stats := dto.TicketStatsResponse{
		Pendientes: counts[domain.TicketEstadoPendiente],
		EnProceso:  counts[domain.TicketEstadoEnProceso],
		Resueltos:  counts[domain.TicketEstadoResuelto],
	}
	stats.Total = stats.Pendientes + stats.EnProceso + stats.Resueltos
	return c.JSON(fiber.Map{"data": stats})
}

func parseTicketFilter(c *fiber.Ctx) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{Limit: 50}

	if raw := c.Query("estado"); raw != "" {
		estado := domain.TicketEstado(raw)
		if !domain.ValidEstado(estado) {
			return filter, apperrors.NewValidationError("unknown estado", map[string]any{"estado": raw})
		}
		filter.Estado = &estado
	}
	if raw := c.Query("categoria"); raw != "" {
		categoria := domain.TicketCategoria(raw)
		if !domain.ValidCategoria(categoria) {
			return filter, apperrors.NewValidationError("unknown categoria", map[string]any{"categoria": raw})
		}
		filter.Categoria = &categoria
	}
	if raw := c.Query("prioridad"); raw != "" {
		prioridad := domain.TicketPrioridad(raw)
		if !domain.ValidPrioridad(prioridad) {
			return filter, apperrors.NewValidationError("unknown prioridad", map[string]any{"prioridad": raw})
		}
		filter.Prioridad = &prioridad
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 && limit <= 200 {
			filter.Limit = limit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	return filter, nil
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:        ticket.ID,
		ShortID:   ticket.ShortID(),
		Identity:  ticket.Identity,
		Categoria: ticket.Categoria,
		Prioridad: ticket.Prioridad,
		Motivo:    ticket.Motivo,
		Estado:    ticket.Estado,
		CreatedAt: ticket.CreatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		ID:             ticket.ID,
		ShortID:        ticket.ShortID(),
		Identity:       ticket.Identity,
		Categoria:      ticket.Categoria,
		Prioridad:      ticket.Prioridad,
		Motivo:         ticket.Motivo,
		Contexto:       ticket.Contexto,
		Estado:         ticket.Estado,
		RespuestaAdmin: ticket.RespuestaAdmin,
		CreatedAt:      ticket.CreatedAt,
		ResolvedAt:     ticket.ResolvedAt,
	}
}
