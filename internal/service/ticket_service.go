package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/domain"
	"github.com/spec-kit/cobranza-service/internal/events"
	"github.com/spec-kit/cobranza-service/internal/repository"
	apperrors "github.com/spec-kit/cobranza-service/pkg/util/errorutil"
)

// TicketService owns the ticket lifecycle: estado is monotonic, resuelto is
// terminal and set exactly once with a non-empty administrator answer.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, dispatcher events.Dispatcher, logger *zap.Logger) *TicketService {
	return &TicketService{tickets: tickets, dispatcher: dispatcher, logger: logger}
}

// Create persists an escalation ticket, deduplicated by correlation key, and
// publishes the creation event. Used by the coordinator through the
// TicketStore contract.
func (s *TicketService) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	if !domain.ValidCategoria(ticket.Categoria) || !domain.ValidPrioridad(ticket.Prioridad) {
		return nil, apperrors.NewValidationError("categoria or prioridad outside closed set", nil)
	}

	stored, err := s.tickets.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: stored.ID,
		Payload: events.TicketCreatedPayload{
			Identity:  stored.Identity,
			Categoria: stored.Categoria,
			Prioridad: stored.Prioridad,
			Motivo:    stored.Motivo,
		},
	})
	return stored, nil
}

// Get fetches one ticket.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, id)
}

// List returns tickets matching the filter.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, filter)
}

// Counts returns per-estado totals.
func (s *TicketService) Counts(ctx context.Context) (map[domain.TicketEstado]int64, error) {
	return s.tickets.CountByEstado(ctx)
}

// UpdateEstado applies an admin estado change. Moving to resuelto requires a
// non-empty respuestaAdmin and triggers resolution delivery; any backward
// transition is rejected.
func (s *TicketService) UpdateEstado(ctx context.Context, id string, estado domain.TicketEstado, respuestaAdmin *string) (*domain.Ticket, error) {
	if !domain.ValidEstado(estado) {
		return nil, apperrors.NewValidationError("estado outside closed set", map[string]any{"estado": estado})
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.ValidEstadoTransition(ticket.Estado, estado) {
		return nil, apperrors.NewConflict("invalid estado transition", map[string]any{
			"from": ticket.Estado,
			"to":   estado,
		})
	}

	var resolvedAt *time.Time
	if estado == domain.TicketEstadoResuelto {
		if respuestaAdmin == nil || strings.TrimSpace(*respuestaAdmin) == "" {
			return nil, apperrors.NewValidationError("respuesta_admin required to resolve", nil)
		}
		now := time.Now().UTC()
		resolvedAt = &now
	}

	if err := s.tickets.UpdateEstado(ctx, id, estado, respuestaAdmin, resolvedAt); err != nil {
		return nil, err
	}

	oldEstado := ticket.Estado
	ticket.Estado = estado
	if respuestaAdmin != nil {
		ticket.RespuestaAdmin = respuestaAdmin
	}
	ticket.ResolvedAt = resolvedAt

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketEstadoChanged,
		TicketID: ticket.ID,
		Payload: events.TicketEstadoChangedPayload{
			OldEstado: oldEstado,
			NewEstado: estado,
		},
	})
	if estado == domain.TicketEstadoResuelto {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketResolved,
			TicketID: ticket.ID,
			Payload: events.TicketResolvedPayload{
				Identity:       ticket.Contexto.Identity,
				RespuestaAdmin: *respuestaAdmin,
			},
		})
	}
	return ticket, nil
}

// Resolve marks the ticket resuelto with the administrator's answer.
func (s *TicketService) Resolve(ctx context.Context, id, respuesta string) (*domain.Ticket, error) {
	return s.UpdateEstado(ctx, id, domain.TicketEstadoResuelto, &respuesta)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Error("event publication failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
