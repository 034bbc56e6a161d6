package events

import (
	"time"

	"github.com/spec-kit/cobranza-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketEstadoChanged EventType = "ticket_estado_changed"
	EventTicketResolved      EventType = "ticket_resolved"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Identity  string                 `json:"identity"`
	Categoria domain.TicketCategoria `json:"categoria"`
	Prioridad domain.TicketPrioridad `json:"prioridad"`
	Motivo    string                 `json:"motivo"`
}

// TicketEstadoChangedPayload payload.
type TicketEstadoChangedPayload struct {
	OldEstado domain.TicketEstado `json:"old_estado"`
	NewEstado domain.TicketEstado `json:"new_estado"`
}

// TicketResolvedPayload payload. RespuestaAdmin is the raw administrator
// answer; the resolution dispatcher reformulates it before delivery.
type TicketResolvedPayload struct {
	Identity       string `json:"identity"`
	RespuestaAdmin string `json:"respuesta_admin"`
}
