package domain

import (
	"encoding/json"
	"time"
)

// TicketEstado enumerates lifecycle states for escalation tickets.
// Transitions are monotonic: pendiente -> en_proceso -> resuelto.
type TicketEstado string

const (
	TicketEstadoPendiente TicketEstado = "pendiente"
	TicketEstadoEnProceso TicketEstado = "en_proceso"
	TicketEstadoResuelto  TicketEstado = "resuelto"
)

// TicketCategoria enumerates the closed set of escalation subjects.
type TicketCategoria string

const (
	CategoriaPlanPago      TicketCategoria = "plan_pago"
	CategoriaReclamo       TicketCategoria = "reclamo"
	CategoriaBaja          TicketCategoria = "baja"
	CategoriaConsultaAdmin TicketCategoria = "consulta_admin"
)

// TicketPrioridad enumerates urgency levels.
type TicketPrioridad string

const (
	PrioridadBaja  TicketPrioridad = "baja"
	PrioridadMedia TicketPrioridad = "media"
	PrioridadAlta  TicketPrioridad = "alta"
)

// TicketContexto is the conversation snapshot captured when a ticket is
// created. Written once at creation, never mutated.
type TicketContexto struct {
	Identity  string    `json:"identity"`
	Mensajes  []string  `json:"mensajes"`
	Timestamp time.Time `json:"timestamp"`
}

// Ticket is the aggregate for human escalations.
type Ticket struct {
	ID             string
	CorrelationKey string
	Identity       string
	Categoria      TicketCategoria
	Prioridad      TicketPrioridad
	Motivo         string
	Contexto       TicketContexto
	Estado         TicketEstado
	RespuestaAdmin *string
	CreatedAt      time.Time
	ResolvedAt     *time.Time
}

// ShortID returns the first 8 characters of the ticket id, used in
// user-facing acknowledgement messages.
func (t *Ticket) ShortID() string {
	if len(t.ID) <= 8 {
		return t.ID
	}
	return t.ID[:8]
}

// IsResuelto reports whether the ticket reached its terminal state.
func (t *Ticket) IsResuelto() bool {
	return t.Estado == TicketEstadoResuelto
}

// ValidEstado reports whether the value belongs to the closed estado set.
func ValidEstado(e TicketEstado) bool {
	switch e {
	case TicketEstadoPendiente, TicketEstadoEnProceso, TicketEstadoResuelto:
		return true
	}
	return false
}

// ValidCategoria reports whether the value belongs to the closed categoria set.
func ValidCategoria(c TicketCategoria) bool {
	switch c {
	case CategoriaPlanPago, CategoriaReclamo, CategoriaBaja, CategoriaConsultaAdmin:
		return true
	}
	return false
}

// ValidPrioridad reports whether the value belongs to the closed prioridad set.
func ValidPrioridad(p TicketPrioridad) bool {
	switch p {
	case PrioridadBaja, PrioridadMedia, PrioridadAlta:
		return true
	}
	return false
}

var estadoRank = map[TicketEstado]int{
	TicketEstadoPendiente: 0,
	TicketEstadoEnProceso: 1,
	TicketEstadoResuelto:  2,
}

// ValidEstadoTransition reports whether moving from one estado to another is
// allowed. Backward transitions are rejected; resuelto is terminal.
func ValidEstadoTransition(from, to TicketEstado) bool {
	if !ValidEstado(from) || !ValidEstado(to) {
		return false
	}
	if from == TicketEstadoResuelto {
		return false
	}
	return estadoRank[to] > estadoRank[from]
}

// ContextoJSON serializes the snapshot for storage in a JSONB column.
func (t *Ticket) ContextoJSON() ([]byte, error) {
	return json.Marshal(t.Contexto)
}
